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
	"context"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/gorse-io/sdm/base/log"
	"github.com/gorse-io/sdm/divergence"
	"github.com/gorse-io/sdm/kernel"
	"github.com/gorse-io/sdm/model/sdm"
	"github.com/gorse-io/sdm/storage/meta"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	rootCommand.AddCommand(predictCommand)
	addDataFlags(predictCommand.Flags())
	predictCommand.Flags().String("model", "", "name of the model in the blob store, the last trained model if empty")
	predictCommand.Flags().String("divs-t", "", "divergences from training bags (rows) to new bags, for asymmetric functions")
	predictCommand.Flags().String("output", "-", "write predictions to this file")
	predictCommand.Flags().Bool("decisions", false, "write decision values after predictions")
}

var predictCommand = &cobra.Command{
	Use:   "predict",
	Short: "Predict new bags with a saved model",
	Long: "Predict new bags with a saved model. With --divs, the matrix holds divergences from new bags (rows)\n" +
		"to all training bags (columns) in training order.",
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		flags := cmd.Flags()
		name, _ := flags.GetString("model")
		if name == "" {
			name = latestModel(conf)
		}
		trained, err := sdm.LoadModel[float64](context.Background(), openStore(conf), name,
			kernel.WithTolerance(conf.Kernel.Tolerance),
			kernel.WithLogger(log.Logger()))
		if err != nil {
			log.Logger().Fatal("failed to load model", zap.String("model", name), zap.Error(err))
		}
		// the model decides the task and the divergence function
		conf.Model.Task = string(trained.Task)
		conf.Divergence.Func = trained.DivFunc.String()
		conf.Kernel.Name = trained.Kernel
		in := loadInput(cmd, conf, false)
		start := time.Now()
		var predictions *sdm.Predictions
		if in.divs != nil {
			var dyx *divergence.Matrix
			if path, _ := flags.GetString("divs-t"); path != "" {
				if dyx, err = loadDivs(path); err != nil {
					log.Logger().Fatal("failed to load divergences", zap.String("path", path), zap.Error(err))
				}
			}
			predictions, err = trained.PredictTrainDivs(in.divs, dyx)
		} else {
			m := newMachine(cmd, conf)
			predictions, err = m.Predict(context.Background(), trained, in.bags)
		}
		if err != nil {
			log.Logger().Fatal("failed to predict", zap.Error(err))
		}
		var decisions [][]float64
		if withDecisions, _ := flags.GetBool("decisions"); withDecisions {
			decisions = predictions.Decisions
		}
		output, _ := flags.GetString("output")
		if err = writePredictions(output, in.names, predictions.Values, decisions); err != nil {
			log.Logger().Fatal("failed to write predictions", zap.String("output", output), zap.Error(err))
		}
		run := &meta.Run{
			Command:   "predict",
			Scale:     trained.Scale,
			C:         trained.C,
			Model:     name,
			StartTime: start,
		}
		if in.targets != nil {
			if len(in.targets) != len(predictions.Values) {
				log.Logger().Fatal("targets do not match predictions",
					zap.Int("targets", len(in.targets)),
					zap.Int("predictions", len(predictions.Values)))
			}
			score := sdm.Evaluate(trained.Task, in.targets, predictions.Values)
			log.Logger().Info("evaluate predictions", score.ZapFields()...)
			setScore(run, score)
		}
		recordRun(conf, run)
	},
}

// writePredictions writes one CSV record per bag: the bag name if known, the
// prediction and optionally decision values. "-" is the standard output.
func writePredictions(path string, names []string, values []float64, decisions [][]float64) error {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return errors.Trace(err)
		}
		defer f.Close()
		w = f
	}
	writer := csv.NewWriter(w)
	for i, value := range values {
		var record []string
		if names != nil {
			record = append(record, names[i])
		}
		record = append(record, strconv.FormatFloat(value, 'g', -1, 64))
		if decisions != nil {
			for _, d := range decisions[i] {
				record = append(record, strconv.FormatFloat(d, 'g', -1, 64))
			}
		}
		if err := writer.Write(record); err != nil {
			return errors.Trace(err)
		}
	}
	writer.Flush()
	return errors.Trace(writer.Error())
}
