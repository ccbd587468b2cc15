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

package divergence

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const LabelCode = "code"

var (
	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sdm",
		Subsystem: "divergence",
		Name:      "cache_hits_total",
	})
	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sdm",
		Subsystem: "divergence",
		Name:      "cache_misses_total",
	})
	EstimatedPairsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sdm",
		Subsystem: "divergence",
		Name:      "estimated_pairs_total",
	})
	ComputeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sdm",
		Subsystem: "divergence",
		Name:      "compute_seconds",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	})
	// RemoteRequestsTotal counts requests to divergence services by HTTP status
	// code, "error" if no response was received.
	RemoteRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sdm",
		Subsystem: "divergence",
		Name:      "remote_requests_total",
	}, []string{LabelCode})
)
