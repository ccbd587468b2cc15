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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const LabelTask = "task"

var (
	FoldFitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sdm",
		Subsystem: "tuner",
		Name:      "fold_fits_total",
	}, []string{LabelTask})
	FoldFitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sdm",
		Subsystem: "tuner",
		Name:      "fold_fit_seconds",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{LabelTask})
	FailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sdm",
		Subsystem: "tuner",
		Name:      "failures_total",
	}, []string{LabelTask})
	// BestScore is the score of the last selected candidate: accuracy or negative RMSE.
	BestScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "sdm",
		Subsystem: "tuner",
		Name:      "best_score",
	}, []string{LabelTask})
)
