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

package progress

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// NewLogReporter logs every progress notification.
func NewLogReporter(logger *zap.Logger, name string) Reporter {
	start := time.Now()
	return Serialize(Func(func(completed, total int) {
		logger.Info(name,
			zap.Int("completed", completed),
			zap.Int("total", total),
			zap.Duration("elapsed", time.Since(start)))
	}))
}

// NewBar renders progress as a terminal progress bar. A bar is created on the first
// notification of every new total, so one reporter can follow successive stages.
func NewBar(w io.Writer, description string) Reporter {
	return Serialize(&bar{writer: w, description: description})
}

type bar struct {
	writer      io.Writer
	description string
	total       int
	bar         *progressbar.ProgressBar
}

func (b *bar) Progress(completed, total int) {
	if b.bar == nil || b.total != total {
		b.total = total
		b.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(b.writer),
			progressbar.OptionSetDescription(b.description),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish())
	}
	_ = b.bar.Set(completed)
}
