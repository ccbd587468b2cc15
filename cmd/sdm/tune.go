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
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gorse-io/sdm/base/log"
	"github.com/gorse-io/sdm/model/sdm"
	"github.com/gorse-io/sdm/storage/meta"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	rootCommand.AddCommand(tuneCommand)
	addDataFlags(tuneCommand.Flags())
	addTuningFlags(tuneCommand.Flags())
}

var tuneCommand = &cobra.Command{
	Use:   "tune",
	Short: "Select the kernel scale and C by cross-validation",
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		m := newMachine(cmd, conf)
		in := loadInput(cmd, conf, true)
		start := time.Now()
		var (
			result *sdm.TuneResult
			err    error
		)
		if in.divs != nil {
			result, err = m.TuneDivs(context.Background(), in.divs, in.targets)
		} else {
			result, err = m.Tune(context.Background(), in.mustExamples())
		}
		if err != nil {
			log.Logger().Fatal("failed to tune", zap.Error(err))
		}
		printTuneResult(result)
		run := &meta.Run{
			Command:   "tune",
			Scale:     result.Best.Scale,
			C:         result.Best.C,
			StartTime: start,
		}
		setScore(run, result.BestScore)
		recordRun(conf, run)
	},
}

func formatScore(score sdm.Score) string {
	if score.Task == sdm.Regression {
		return fmt.Sprintf("%.4f", score.RMSE)
	}
	return fmt.Sprintf("%.4f", score.Accuracy)
}

func metricName(task sdm.Task) string {
	if task == sdm.Regression {
		return "RMSE"
	}
	return "Accuracy"
}

func printTuneResult(result *sdm.TuneResult) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("#", "Scale", "C", metricName(result.BestScore.Task), "Status")
	for i, score := range result.Scores {
		status := "ok"
		switch {
		case i == result.BestIndex:
			status = "best"
		case !score.Evaluated:
			status = "skipped"
		case !score.Valid:
			status = "failed"
		}
		value := "-"
		if score.Evaluated && score.Valid {
			value = formatScore(score.Score)
		}
		if err := table.Append([]string{
			strconv.Itoa(i),
			strconv.FormatFloat(score.Scale, 'g', 6, 64),
			strconv.FormatFloat(score.C, 'g', 6, 64),
			value,
			status,
		}); err != nil {
			log.Logger().Fatal("failed to print table", zap.Error(err))
		}
	}
	if err := table.Render(); err != nil {
		log.Logger().Fatal("failed to print table", zap.Error(err))
	}
	for _, failure := range result.Failures {
		log.Logger().Warn("candidate failed",
			zap.Float64("scale", failure.Scale),
			zap.Float64("C", failure.C),
			zap.Int("fold", failure.Fold),
			zap.String("reason", failure.Reason))
	}
}
