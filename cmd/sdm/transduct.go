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
	"time"

	"github.com/gorse-io/sdm/base/log"
	"github.com/gorse-io/sdm/dataset"
	"github.com/gorse-io/sdm/model/sdm"
	"github.com/gorse-io/sdm/storage/meta"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	rootCommand.AddCommand(transductCommand)
	addDataFlags(transductCommand.Flags())
	addTuningFlags(transductCommand.Flags())
	transductCommand.Flags().String("test-bags", "", "test bags, required with --bags")
	transductCommand.Flags().String("output", "-", "write predictions to this file")
}

var transductCommand = &cobra.Command{
	Use:   "transduct",
	Short: "Predict test bags with a kernel projected over training and test bags",
	Long: "Predict test bags with a kernel projected over training and test bags. With --divs, the matrix holds\n" +
		"divergences of all bags, training bags first: bags beyond the targets are predicted.",
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		m := newMachine(cmd, conf)
		in := loadInput(cmd, conf, true)
		flags := cmd.Flags()
		start := time.Now()
		var (
			predictions *sdm.Predictions
			testNames   []string
			err         error
		)
		if in.divs != nil {
			predictions, err = m.TransductDivs(context.Background(), in.divs, in.targets)
		} else {
			path, _ := flags.GetString("test-bags")
			if path == "" {
				log.Logger().Fatal("--test-bags is required with --bags")
			}
			var testBags []dataset.Bag[float64]
			if testNames, testBags, err = dataset.LoadBags[float64](path); err != nil {
				log.Logger().Fatal("failed to load bags", zap.String("path", path), zap.Error(err))
			}
			predictions, err = m.Transduct(context.Background(), in.mustExamples(), testBags)
		}
		if err != nil {
			log.Logger().Fatal("failed to transduct", zap.Error(err))
		}
		output, _ := flags.GetString("output")
		if err = writePredictions(output, testNames, predictions.Values, nil); err != nil {
			log.Logger().Fatal("failed to write predictions", zap.String("output", output), zap.Error(err))
		}
		recordRun(conf, &meta.Run{Command: "transduct", StartTime: start})
	},
}
