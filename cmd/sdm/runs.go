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
	"os"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gorse-io/sdm/base/log"
	"github.com/gorse-io/sdm/storage/meta"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	rootCommand.AddCommand(runsCommand)
	runsCommand.Flags().IntP("limit", "n", 20, "number of runs to list, all if not positive")
	runsCommand.Flags().String("since", "", "list runs started since this time, e.g. \"2026-01-02\" or \"2026-01-02 15:04\"")
}

var runsCommand = &cobra.Command{
	Use:   "runs [id]",
	Short: "List recorded runs",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		db, err := meta.Open(conf.Meta.Path)
		if err != nil {
			log.Logger().Fatal("failed to open run registry", zap.String("path", conf.Meta.Path), zap.Error(err))
		}
		defer db.Close()
		if err = db.Init(); err != nil {
			log.Logger().Fatal("failed to init run registry", zap.Error(err))
		}
		var runs []*meta.Run
		if len(args) > 0 {
			run, err := db.GetRun(args[0])
			if err != nil {
				log.Logger().Fatal("failed to get run", zap.String("id", args[0]), zap.Error(err))
			}
			runs = append(runs, run)
		} else {
			limit, _ := cmd.Flags().GetInt("limit")
			var since time.Time
			if text, _ := cmd.Flags().GetString("since"); text != "" {
				if since, err = dateparse.ParseLocal(text); err != nil {
					log.Logger().Fatal("invalid time", zap.String("since", text), zap.Error(err))
				}
			}
			if runs, err = db.ListRuns(since, limit); err != nil {
				log.Logger().Fatal("failed to list runs", zap.Error(err))
			}
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.Header("ID", "Command", "Task", "Divergence", "Kernel", "Scale", "C", "Metric", "Score", "Model", "Start", "Duration")
		for _, run := range runs {
			score := ""
			if run.Metric != "" {
				score = strconv.FormatFloat(run.Score, 'f', 4, 64)
			}
			if err = table.Append([]string{
				run.ID,
				run.Command,
				run.Task,
				run.DivFunc,
				run.Kernel,
				strconv.FormatFloat(run.Scale, 'g', 6, 64),
				strconv.FormatFloat(run.C, 'g', 6, 64),
				run.Metric,
				score,
				run.Model,
				run.StartTime.Local().Format(time.DateTime),
				run.EndTime.Sub(run.StartTime).Round(time.Millisecond).String(),
			}); err != nil {
				log.Logger().Fatal("failed to print table", zap.Error(err))
			}
		}
		if err = table.Render(); err != nil {
			log.Logger().Fatal("failed to print table", zap.Error(err))
		}
	},
}
