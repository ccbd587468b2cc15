// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorse-io/sdm/config"
	"github.com/gorse-io/sdm/divergence"
	"github.com/gorse-io/sdm/model/sdm"
	"github.com/gorse-io/sdm/storage/meta"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
)

func TestWritePredictions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "predictions.csv")
	err := writePredictions(path, []string{"a", "b"}, []float64{1, 2.5}, [][]float64{{0.5, -1}, {2, 0}})
	assert.NoError(t, err)
	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "a,1,0.5,-1\nb,2.5,2,0\n", string(data))

	err = writePredictions(path, nil, []float64{-0.25}, nil)
	assert.NoError(t, err)
	data, err = os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "-0.25\n", string(data))
}

func TestSetScore(t *testing.T) {
	var run meta.Run
	setScore(&run, sdm.Score{Task: sdm.Regression, RMSE: 0.3, Count: 10})
	assert.Equal(t, "rmse", run.Metric)
	assert.Equal(t, 0.3, run.Score)
	assert.Equal(t, 10, run.Count)
	setScore(&run, sdm.Score{Task: sdm.Classification, Accuracy: 0.8, Count: 5})
	assert.Equal(t, "accuracy", run.Metric)
	assert.Equal(t, 0.8, run.Score)
	assert.Equal(t, 5, run.Count)
}

func TestLoadDivs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "divs.csv")
	assert.NoError(t, os.WriteFile(path, []byte("0,1\n1,0\n"), 0o644))
	d, err := loadDivs(path)
	assert.NoError(t, err)
	assert.Equal(t, 2, rowsOf(d))
	assert.Equal(t, 1.0, d.At(0, 1))
	assert.Zero(t, rowsOf(nil))

	_, err = loadDivs(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestWriteMatrix(t *testing.T) {
	d, err := divergence.NewMatrixFrom([][]float64{{0, 0.25, 3}, {1e-9, 0, 2}})
	assert.NoError(t, err)
	path := filepath.Join(t.TempDir(), "divs.csv")
	assert.NoError(t, writeMatrix(path, d))
	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "0,0.25,3\n1e-09,0,2\n", string(data))

	// written matrices are read back by --divs
	loaded, err := loadDivs(path)
	assert.NoError(t, err)
	assert.Equal(t, d.ToRows(), loaded.ToRows())
}

func TestReporter(t *testing.T) {
	cmd := &cobra.Command{Use: "tune"}
	cmd.Flags().Bool("progress", false, "")
	cmd.Flags().Bool("log-progress", false, "")
	assert.Nil(t, reporter(cmd))

	assert.NoError(t, cmd.Flags().Set("log-progress", "true"))
	r := reporter(cmd)
	if assert.NotNil(t, r) {
		r.Progress(1, 2)
		r.Progress(2, 2)
	}
}

func TestLatestModel(t *testing.T) {
	conf := config.GetDefaultConfig()
	conf.Meta.Path = ""
	assert.Equal(t, defaultModelName, latestModel(conf))

	conf.Meta.Path = filepath.Join(t.TempDir(), "runs.db")
	assert.Equal(t, defaultModelName, latestModel(conf))

	// only train runs update the latest model
	recordRun(conf, &meta.Run{Command: "train", Model: "iris.sdm", StartTime: time.Now()})
	assert.Equal(t, "iris.sdm", latestModel(conf))
	recordRun(conf, &meta.Run{Command: "predict", Model: "other.sdm", StartTime: time.Now()})
	assert.Equal(t, "iris.sdm", latestModel(conf))

	db, err := meta.Open(conf.Meta.Path)
	assert.NoError(t, err)
	defer db.Close()
	runs, err := db.ListRuns(time.Time{}, 0)
	assert.NoError(t, err)
	if assert.Len(t, runs, 2) {
		assert.Equal(t, conf.Model.Task, runs[0].Task)
		assert.Equal(t, conf.Divergence.Func, runs[0].DivFunc)
		assert.Equal(t, conf.Kernel.Name, runs[0].Kernel)
	}
}

func TestServeMetrics(t *testing.T) {
	serveMetrics("127.0.0.1:18719")
	assert.Eventually(t, func() bool {
		resp, err := http.Get("http://127.0.0.1:18719/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		return err == nil && resp.StatusCode == http.StatusOK && len(body) > 0
	}, 5*time.Second, 50*time.Millisecond)
}
