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

	"github.com/gorse-io/sdm/base/log"
	"github.com/gorse-io/sdm/dataset"
	"github.com/gorse-io/sdm/divergence"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	rootCommand.AddCommand(divsCommand)
	divsCommand.Flags().String("bags", "", "bags as CSV lines \"bag,x1,x2,...\"")
	divsCommand.Flags().String("test-bags", "", "divergences from test bags (rows) to --bags (columns) if set")
	divsCommand.Flags().String("output", "-", "write the divergence matrix to this file")
}

var divsCommand = &cobra.Command{
	Use:   "divs",
	Short: "Estimate a divergence matrix with the divergence service",
	Long: "Estimate a divergence matrix with the divergence service. The output can be passed to --divs of\n" +
		"other commands.",
	Run: func(cmd *cobra.Command, args []string) {
		conf := loadConfig(cmd)
		flags := cmd.Flags()
		if conf.Divergence.OracleURL == "" {
			log.Logger().Fatal("divs requires a divergence service, set divergence.oracle_url or --oracle-url")
		}
		m := newMachine(cmd, conf)
		bagsPath, _ := flags.GetString("bags")
		if bagsPath == "" {
			log.Logger().Fatal("--bags is required")
		}
		_, bags, err := dataset.LoadBags[float64](bagsPath)
		if err != nil {
			log.Logger().Fatal("failed to load bags", zap.String("path", bagsPath), zap.Error(err))
		}
		var d *divergence.Matrix
		if testPath, _ := flags.GetString("test-bags"); testPath != "" {
			_, testBags, err := dataset.LoadBags[float64](testPath)
			if err != nil {
				log.Logger().Fatal("failed to load bags", zap.String("path", testPath), zap.Error(err))
			}
			d, err = m.Divergences(context.Background(), testBags, bags)
			if err != nil {
				log.Logger().Fatal("failed to estimate divergences", zap.Error(err))
			}
		} else if d, err = m.Divergences(context.Background(), bags, nil); err != nil {
			log.Logger().Fatal("failed to estimate divergences", zap.Error(err))
		}
		output, _ := flags.GetString("output")
		if err = writeMatrix(output, d); err != nil {
			log.Logger().Fatal("failed to write divergences", zap.String("output", output), zap.Error(err))
		}
		log.Logger().Info("estimate divergences",
			zap.Stringer("divergence", m.DivFunc),
			zap.Int("rows", d.Rows),
			zap.Int("cols", d.Cols))
	},
}

// writeMatrix writes one CSV record per row. "-" is the standard output.
func writeMatrix(path string, d *divergence.Matrix) error {
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
	for _, row := range d.ToRows() {
		record := make([]string, len(row))
		for j, v := range row {
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := writer.Write(record); err != nil {
			return errors.Trace(err)
		}
	}
	writer.Flush()
	return errors.Trace(writer.Error())
}
