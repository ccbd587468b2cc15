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
	rootCommand.AddCommand(cvCommand)
	addDataFlags(cvCommand.Flags())
	addTuningFlags(cvCommand.Flags())
	cvCommand.Flags().Int("outer-folds", 0, "number of outer folds")
	cvCommand.Flags().Bool("project-all", true, "project the kernel matrix of all examples once, --project-all=false projects training parts only")
	cvCommand.Flags().Bool("contiguous", false, "use contiguous outer folds instead of stratified shuffled ones")
	cvCommand.Flags().Int("threads", 0, "number of outer folds evaluated at once")
	cvCommand.Flags().String("output", "", "write held-out predictions to this file")
}

var cvCommand = &cobra.Command{
	Use:   "cv",
	Short: "Estimate the generalization score by nested cross-validation",
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		flags := cmd.Flags()
		if flags.Changed("outer-folds") {
			conf.CV.Folds, _ = flags.GetInt("outer-folds")
		}
		if flags.Changed("project-all") {
			conf.CV.ProjectAll, _ = flags.GetBool("project-all")
		}
		if flags.Changed("contiguous") {
			contiguous, _ := flags.GetBool("contiguous")
			conf.CV.Shuffle = !contiguous
		}
		if flags.Changed("threads") {
			conf.CV.Threads, _ = flags.GetInt("threads")
		}
		if err := conf.Validate(); err != nil {
			log.Logger().Fatal("invalid config", zap.Error(err))
		}
		m := newMachine(cmd, conf)
		in := loadInput(cmd, conf, true)
		cvConfig := &sdm.CrossValidateConfig{
			Folds:      conf.CV.Folds,
			ProjectAll: conf.CV.ProjectAll,
			Shuffle:    conf.CV.Shuffle,
			Threads:    conf.CV.Threads,
			Seed:       conf.Tuning.Seed,
		}
		start := time.Now()
		var (
			result *sdm.CrossValidateResult
			err    error
		)
		if in.divs != nil {
			result, err = m.CrossValidateDivs(context.Background(), in.divs, in.targets, cvConfig)
		} else {
			result, err = m.CrossValidate(context.Background(), in.mustExamples(), cvConfig)
		}
		if err != nil {
			log.Logger().Fatal("failed to cross validate", zap.Error(err))
		}
		printCrossValidateResult(result)
		if output, _ := flags.GetString("output"); output != "" {
			if err = writePredictions(output, in.names, result.Predictions, nil); err != nil {
				log.Logger().Fatal("failed to write predictions", zap.String("output", output), zap.Error(err))
			}
		}
		run := &meta.Run{Command: "cv", StartTime: start}
		setScore(run, result.Score)
		recordRun(conf, run)
	},
}

func printCrossValidateResult(result *sdm.CrossValidateResult) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Fold", "Size", "Scale", "C", metricName(result.Score.Task))
	for i, score := range result.FoldScores {
		if err := table.Append([]string{
			strconv.Itoa(i),
			strconv.Itoa(score.Count),
			strconv.FormatFloat(result.Params[i].Scale, 'g', 6, 64),
			strconv.FormatFloat(result.Params[i].C, 'g', 6, 64),
			formatScore(score),
		}); err != nil {
			log.Logger().Fatal("failed to print table", zap.Error(err))
		}
	}
	table.Footer("All", strconv.Itoa(result.Score.Count), "", "", formatScore(result.Score))
	if err := table.Render(); err != nil {
		log.Logger().Fatal("failed to print table", zap.Error(err))
	}
}
