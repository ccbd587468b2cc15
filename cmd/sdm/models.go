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

	"github.com/gorse-io/sdm/base/log"
	"github.com/gorse-io/sdm/kernel"
	"github.com/gorse-io/sdm/model/sdm"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	rootCommand.AddCommand(modelsCommand)
	modelsCommand.AddCommand(removeModelCommand)
	modelsCommand.Flags().Bool("describe", false, "load every model and print its parameters")
}

var modelsCommand = &cobra.Command{
	Use:   "models",
	Short: "List models in the blob store",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		store := openStore(conf)
		ctx := context.Background()
		names, err := store.List(ctx)
		if err != nil {
			log.Logger().Fatal("failed to list models", zap.Error(err))
		}
		describe, _ := cmd.Flags().GetBool("describe")
		if !describe {
			for _, name := range names {
				fmt.Println(name)
			}
			return
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("Name", "Task", "Divergence", "Kernel", "Scale", "C", "Support")
		for _, name := range names {
			row := []string{name, "", "", "", "", "", ""}
			m, err := sdm.LoadModel[float64](ctx, store, name, kernel.WithLogger(log.Logger()))
			if err != nil {
				// not a model or saved with another precision
				log.Logger().Warn("failed to load model", zap.String("model", name), zap.Error(err))
			} else {
				row = []string{
					name,
					string(m.Task),
					m.DivFunc.String(),
					m.Kernel,
					strconv.FormatFloat(m.Scale, 'g', 6, 64),
					strconv.FormatFloat(m.C, 'g', 6, 64),
					fmt.Sprintf("%d/%d", len(m.SupportIndex), m.TrainSize),
				}
			}
			if err = table.Append(row); err != nil {
				log.Logger().Fatal("failed to print table", zap.Error(err))
			}
		}
		if err = table.Render(); err != nil {
			log.Logger().Fatal("failed to print table", zap.Error(err))
		}
	},
}

var removeModelCommand = &cobra.Command{
	Use:   "rm name...",
	Short: "Remove models from the blob store",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		store := openStore(conf)
		for _, name := range args {
			if err := store.Remove(context.Background(), name); err != nil {
				log.Logger().Fatal("failed to remove model", zap.String("model", name), zap.Error(err))
			}
			fmt.Println("Removed", name)
		}
	},
}
