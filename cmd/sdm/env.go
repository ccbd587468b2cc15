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
	"time"

	"github.com/gorse-io/sdm/base/log"
	"github.com/gorse-io/sdm/base/progress"
	"github.com/gorse-io/sdm/config"
	"github.com/gorse-io/sdm/dataset"
	"github.com/gorse-io/sdm/divergence"
	"github.com/gorse-io/sdm/kernel"
	"github.com/gorse-io/sdm/model"
	"github.com/gorse-io/sdm/model/sdm"
	"github.com/gorse-io/sdm/storage/blob"
	"github.com/gorse-io/sdm/storage/meta"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func addTuningFlags(flags *pflag.FlagSet) {
	flags.Float64Slice("scales", nil, "candidate kernel scales, chosen from divergence quantiles if empty")
	flags.Float64Slice("cs", nil, "candidate values of C")
	flags.Float64("scale", 0, "fixed kernel scale")
	flags.Float64("C", 0, "fixed C")
	flags.Int("folds", 0, "number of tuning folds")
	flags.String("strategy", "", "tuning strategy: grid or tpe")
	flags.Int("trials", 0, "number of trials of the tpe strategy")
	flags.Int64("seed", 0, "random seed of fold assignment")
	flags.IntP("jobs", "j", 0, "number of candidate evaluations run at once")
}

func addDataFlags(flags *pflag.FlagSet) {
	flags.String("divs", "", "precomputed divergence matrix (CSV)")
	flags.String("bags", "", "bags as CSV lines \"bag,x1,x2,...\"")
	flags.String("targets", "", "targets, one per line")
}

// loadConfig reads the configuration file, applies command line overrides and
// sets up the process logger.
func loadConfig(cmd *cobra.Command) *config.Config {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	conf, err := config.LoadConfig(configPath)
	if err != nil {
		log.Logger().Fatal("failed to load config", zap.Error(err))
	}
	if flags.Changed("task") {
		conf.Model.Task, _ = flags.GetString("task")
	}
	if flags.Changed("oracle-url") {
		conf.Divergence.OracleURL, _ = flags.GetString("oracle-url")
	}
	if flags.Lookup("scales") != nil {
		if flags.Changed("scales") {
			conf.Tuning.Scales, _ = flags.GetFloat64Slice("scales")
		}
		if flags.Changed("cs") {
			conf.Tuning.Cs, _ = flags.GetFloat64Slice("cs")
		}
		if flags.Changed("folds") {
			conf.Tuning.Folds, _ = flags.GetInt("folds")
		}
		if flags.Changed("strategy") {
			conf.Tuning.Strategy, _ = flags.GetString("strategy")
		}
		if flags.Changed("trials") {
			conf.Tuning.Trials, _ = flags.GetInt("trials")
		}
		if flags.Changed("seed") {
			conf.Tuning.Seed, _ = flags.GetInt64("seed")
		}
		if flags.Changed("jobs") {
			conf.Tuning.Jobs, _ = flags.GetInt("jobs")
		}
	}
	if err = conf.Validate(); err != nil {
		log.Logger().Fatal("invalid config", zap.Error(err))
	}
	// setup logger
	opts := log.ParseFlags(flags)
	if !flags.Changed("log-path") {
		opts.Path = conf.Log.Path
	}
	opts.Debug = opts.Debug || conf.Log.Debug
	log.SetLogger(log.New(opts))
	log.Logger().Debug("load config", zap.String("config", configPath), zap.Any("values", conf))
	return conf
}

// reporter combines the progress bar and progress logs selected by flags, nil if
// neither is.
func reporter(cmd *cobra.Command) progress.Reporter {
	var bar, logs progress.Reporter
	if showProgress, _ := cmd.Flags().GetBool("progress"); showProgress {
		bar = progress.NewBar(os.Stderr, cmd.Name())
	}
	if logProgress, _ := cmd.Flags().GetBool("log-progress"); logProgress {
		logs = progress.NewLogReporter(log.Logger(), cmd.Name())
	}
	return progress.Multi(bar, logs)
}

// newMachine builds a machine from the configuration. Bags can only be used if a
// divergence service is configured.
func newMachine(cmd *cobra.Command, conf *config.Config) *sdm.Machine[float64] {
	task, err := sdm.ParseTask(conf.Model.Task)
	if err != nil {
		log.Logger().Fatal("invalid task", zap.Error(err))
	}
	fn, err := divergence.ParseFunc(conf.Divergence.Func)
	if err != nil {
		log.Logger().Fatal("invalid divergence function", zap.Error(err))
	}
	group, err := kernel.NewGroup(conf.Kernel.Name,
		kernel.WithTolerance(conf.Kernel.Tolerance),
		kernel.WithLogger(log.Logger()))
	if err != nil {
		log.Logger().Fatal("invalid kernel", zap.Error(err))
	}
	var cache *divergence.Cache[float64]
	if conf.Divergence.OracleURL != "" {
		oracle := divergence.NewRemoteOracle[float64](conf.Divergence.OracleURL,
			divergence.WithTimeout(conf.Divergence.OracleTimeout),
			divergence.WithRetries(conf.Divergence.OracleRetries, conf.Divergence.OracleBackoff),
			divergence.WithRateLimit(conf.Divergence.OracleRate))
		cache = divergence.NewCache[float64](oracle,
			divergence.WithCapacity(conf.Divergence.CacheCapacity),
			divergence.WithTTL(conf.Divergence.CacheTTL),
			divergence.WithLogger(log.Logger()))
	}
	params := model.Params{
		model.Epsilon:     conf.SVM.Epsilon,
		model.Tolerance:   conf.SVM.Tolerance,
		model.MaxIter:     conf.SVM.MaxIter,
		model.RandomState: conf.Tuning.Seed,
	}
	flags := cmd.Flags()
	if flags.Lookup("scale") != nil && flags.Changed("scale") {
		params[model.Scale], _ = flags.GetFloat64("scale")
	}
	if flags.Lookup("C") != nil && flags.Changed("C") {
		params[model.C], _ = flags.GetFloat64("C")
	}
	m := sdm.NewMachine(task, fn, group, cache, params)
	m.MinPoints = conf.Divergence.MinPoints
	m.Tuning = &sdm.TuneConfig{
		Scales:   conf.Tuning.Scales,
		Cs:       conf.Tuning.Cs,
		Folds:    conf.Tuning.Folds,
		Strategy: conf.Tuning.Strategy,
		Trials:   conf.Tuning.Trials,
		Seed:     conf.Tuning.Seed,
	}
	m.Config = sdm.NewFitConfig().
		SetJobs(conf.Tuning.Jobs).
		SetStride(conf.Divergence.Stride).
		SetReporter(reporter(cmd)).
		SetLogger(log.Logger())
	if conf.Divergence.Threads > 0 {
		m.Config.SetDivThreads(conf.Divergence.Threads)
	}
	m.Config.SetDivBatch(conf.Divergence.BatchSize)
	return m
}

// input is either a precomputed divergence matrix or bags, with optional targets.
type input struct {
	divs    *divergence.Matrix
	names   []string
	bags    []dataset.Bag[float64]
	targets []float64
}

func (in *input) mustExamples() *dataset.Examples[float64] {
	examples, err := dataset.NewExamples(in.bags, in.targets)
	if err != nil {
		log.Logger().Fatal("invalid examples", zap.Error(err))
	}
	return examples
}

func loadDivs(path string) (*divergence.Matrix, error) {
	rows, err := dataset.LoadMatrix(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return divergence.NewMatrixFrom(rows)
}

func loadInput(cmd *cobra.Command, conf *config.Config, needTargets bool) *input {
	flags := cmd.Flags()
	divsPath, _ := flags.GetString("divs")
	bagsPath, _ := flags.GetString("bags")
	targetsPath, _ := flags.GetString("targets")
	if (divsPath == "") == (bagsPath == "") {
		log.Logger().Fatal("exactly one of --divs and --bags is required")
	}
	var (
		in  input
		err error
	)
	if divsPath != "" {
		if in.divs, err = loadDivs(divsPath); err != nil {
			log.Logger().Fatal("failed to load divergences", zap.String("path", divsPath), zap.Error(err))
		}
	} else {
		if conf.Divergence.OracleURL == "" {
			log.Logger().Fatal("bags require a divergence service, set divergence.oracle_url or --oracle-url")
		}
		if in.names, in.bags, err = dataset.LoadBags[float64](bagsPath); err != nil {
			log.Logger().Fatal("failed to load bags", zap.String("path", bagsPath), zap.Error(err))
		}
	}
	if targetsPath != "" {
		if in.targets, err = dataset.LoadTargets(targetsPath); err != nil {
			log.Logger().Fatal("failed to load targets", zap.String("path", targetsPath), zap.Error(err))
		}
	} else if needTargets {
		log.Logger().Fatal("--targets is required")
	}
	log.Logger().Info("load input",
		zap.String("divs", divsPath),
		zap.String("bags", bagsPath),
		zap.Int("count", max(len(in.bags), rowsOf(in.divs))),
		zap.Int("targets", len(in.targets)))
	return &in
}

func rowsOf(d *divergence.Matrix) int {
	if d == nil {
		return 0
	}
	return d.Rows
}

func openStore(conf *config.Config) blob.Store {
	store, err := blob.New(conf.Blob)
	if err != nil {
		log.Logger().Fatal("failed to open blob store", zap.String("type", conf.Blob.Type), zap.Error(err))
	}
	return store
}

// recordRun adds a run to the run registry. Failures are logged only.
func recordRun(conf *config.Config, run *meta.Run) {
	if conf.Meta.Path == "" {
		return
	}
	db, err := meta.Open(conf.Meta.Path)
	if err != nil {
		log.Logger().Warn("failed to open run registry", zap.Error(err))
		return
	}
	defer db.Close()
	if err = db.Init(); err != nil {
		log.Logger().Warn("failed to init run registry", zap.Error(err))
		return
	}
	run.Task = conf.Model.Task
	run.DivFunc = conf.Divergence.Func
	run.Kernel = conf.Kernel.Name
	run.EndTime = time.Now()
	if err = db.AddRun(run); err != nil {
		log.Logger().Warn("failed to record run", zap.Error(err))
		return
	}
	if run.Command == "train" && run.Model != "" {
		if err = db.Put(meta.LatestModel, run.Model); err != nil {
			log.Logger().Warn("failed to record latest model", zap.Error(err))
		}
	}
	log.Logger().Info("record run", zap.String("id", run.ID), zap.String("command", run.Command))
}

func setScore(run *meta.Run, score sdm.Score) {
	if score.Task == sdm.Regression {
		run.Metric = "rmse"
		run.Score = score.RMSE
	} else {
		run.Metric = "accuracy"
		run.Score = score.Accuracy
	}
	run.Count = score.Count
}

// latestModel returns the name of the last trained model in the run registry,
// defaultModelName if unknown.
func latestModel(conf *config.Config) string {
	if conf.Meta.Path == "" {
		return defaultModelName
	}
	db, err := meta.Open(conf.Meta.Path)
	if err != nil {
		log.Logger().Warn("failed to open run registry", zap.Error(err))
		return defaultModelName
	}
	defer db.Close()
	if err = db.Init(); err != nil {
		log.Logger().Warn("failed to init run registry", zap.Error(err))
		return defaultModelName
	}
	name, err := db.Get(meta.LatestModel)
	if err != nil {
		log.Logger().Warn("failed to get latest model", zap.Error(err))
		return defaultModelName
	}
	if name == nil {
		return defaultModelName
	}
	return *name
}
