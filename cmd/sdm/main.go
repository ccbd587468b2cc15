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
	"fmt"
	"net/http"
	"os"

	"github.com/gorse-io/sdm/base/log"
	"github.com/gorse-io/sdm/cmd/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCommand = &cobra.Command{
	Use:   "sdm",
	Short: "Support distribution machines over divergence estimates.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
			serveMetrics(addr)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
			fmt.Println(version.BuildInfo())
			return
		}
		_ = cmd.Help()
	},
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Show the version of sdm",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.BuildInfo())
	},
}

func init() {
	rootCommand.Flags().BoolP("version", "v", false, "show version")
	rootCommand.PersistentFlags().StringP("config", "c", "", "path of the configuration file")
	rootCommand.PersistentFlags().String("task", "", "classification or regression")
	rootCommand.PersistentFlags().String("oracle-url", "", "base URL of the divergence service")
	rootCommand.PersistentFlags().Bool("progress", false, "show progress bars")
	rootCommand.PersistentFlags().Bool("log-progress", false, "log progress notifications")
	rootCommand.PersistentFlags().String("metrics-addr", "", "serve prometheus metrics at this address during the run")
	log.AddFlags(rootCommand.PersistentFlags())
	rootCommand.AddCommand(versionCommand)
}

// serveMetrics exposes /metrics in the background until the process exits.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Logger().Info("start metrics server", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Logger().Error("failed to serve metrics", zap.String("addr", addr), zap.Error(err))
		}
	}()
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Error("failed to execute command", zap.Error(err))
		os.Exit(1)
	}
}
