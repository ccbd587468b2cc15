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
	"time"

	"github.com/gorse-io/sdm/base/log"
	"github.com/gorse-io/sdm/model/sdm"
	"github.com/gorse-io/sdm/storage/meta"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultModelName = "model.sdm"

func init() {
	rootCommand.AddCommand(trainCommand)
	addDataFlags(trainCommand.Flags())
	addTuningFlags(trainCommand.Flags())
	trainCommand.Flags().String("model", defaultModelName, "name of the model in the blob store")
}

var trainCommand = &cobra.Command{
	Use:   "train",
	Short: "Train a model and save it to the blob store",
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		m := newMachine(cmd, conf)
		in := loadInput(cmd, conf, true)
		name, _ := cmd.Flags().GetString("model")
		store := openStore(conf)
		start := time.Now()
		var (
			trained *sdm.Model[float64]
			result  *sdm.TuneResult
			err     error
		)
		if in.divs != nil {
			trained, result, err = m.TrainDivs(context.Background(), in.divs, in.targets)
		} else {
			trained, result, err = m.Train(context.Background(), in.mustExamples())
		}
		if err != nil {
			log.Logger().Fatal("failed to train", zap.Error(err))
		}
		if result != nil {
			printTuneResult(result)
		}
		if err = sdm.SaveModel(context.Background(), store, name, trained); err != nil {
			log.Logger().Fatal("failed to save model", zap.String("model", name), zap.Error(err))
		}
		fmt.Printf("Saved model %s: scale=%g C=%g support=%d/%d\n",
			name, trained.Scale, trained.C, len(trained.SupportIndex), trained.TrainSize)
		run := &meta.Run{
			Command:   "train",
			Scale:     trained.Scale,
			C:         trained.C,
			Model:     name,
			StartTime: start,
		}
		if result != nil {
			setScore(run, result.BestScore)
		}
		recordRun(conf, run)
	},
}
