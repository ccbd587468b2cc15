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

package sdm

import (
	"runtime"

	"github.com/gorse-io/sdm/base/log"
	"github.com/gorse-io/sdm/base/progress"
	"github.com/gorse-io/sdm/divergence"
	"go.uber.org/zap"
)

type FitConfig struct {
	// Jobs is the number of (C, fold) evaluations run at once.
	Jobs int
	// DivThreads is the number of workers calling the divergence oracle.
	DivThreads int
	// DivBatch is the number of pairs a divergence worker takes at once.
	DivBatch int
	// Stride is the number of completed units between progress reports.
	Stride   int
	Reporter progress.Reporter
	Logger   *zap.Logger
}

func NewFitConfig() *FitConfig {
	return &FitConfig{
		Jobs:       1,
		DivThreads: runtime.NumCPU(),
		DivBatch:   1,
		Stride:     100,
	}
}

func (config *FitConfig) SetJobs(jobs int) *FitConfig {
	config.Jobs = jobs
	return config
}

func (config *FitConfig) SetDivThreads(threads int) *FitConfig {
	config.DivThreads = threads
	return config
}

func (config *FitConfig) SetDivBatch(batch int) *FitConfig {
	config.DivBatch = batch
	return config
}

func (config *FitConfig) SetStride(stride int) *FitConfig {
	config.Stride = stride
	return config
}

func (config *FitConfig) SetReporter(reporter progress.Reporter) *FitConfig {
	config.Reporter = reporter
	return config
}

func (config *FitConfig) SetLogger(logger *zap.Logger) *FitConfig {
	config.Logger = logger
	return config
}

func (config *FitConfig) LoadDefaultIfNil() *FitConfig {
	if config == nil {
		return NewFitConfig()
	}
	return config
}

func (config *FitConfig) logger() *zap.Logger {
	return log.OrDefault(config.Logger)
}

func (config *FitConfig) divOptions() divergence.Options {
	return divergence.Options{
		Threads:  config.DivThreads,
		Batch:    config.DivBatch,
		Stride:   config.Stride,
		Reporter: progress.Serialize(config.Reporter),
	}
}
