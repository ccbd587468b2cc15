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
	"sort"

	"github.com/bits-and-blooms/bitset"
	"github.com/gorse-io/sdm/base"
	"github.com/juju/errors"
	"github.com/samber/lo"
)

// StratifiedFolds partitions example indices into k near-equal folds. Examples of
// each label are shuffled and dealt round-robin, continuing across labels, so that
// every fold gets its share of every class. Regression targets are a single stratum.
func StratifiedFolds(task Task, targets []float64, k int, seed int64) ([][]int, error) {
	n := len(targets)
	if k < 2 {
		return nil, errors.Annotatef(ErrInvalidFolds, "need at least 2 folds, got %d", k)
	}
	if k > n {
		return nil, errors.Annotatef(ErrInvalidFolds, "%d folds for %d examples", k, n)
	}
	rng := base.NewRandomGenerator(seed)
	var strata [][]int
	if task == Classification {
		groups := lo.GroupBy(lo.Range(n), func(i int) float64 { return targets[i] })
		labels := lo.Keys(groups)
		sort.Float64s(labels)
		for _, label := range labels {
			strata = append(strata, groups[label])
		}
	} else {
		strata = [][]int{lo.Range(n)}
	}
	folds := make([][]int, k)
	next := 0
	for _, stratum := range strata {
		rng.ShuffleInts(stratum)
		for _, i := range stratum {
			folds[next] = append(folds[next], i)
			next = (next + 1) % k
		}
	}
	for _, fold := range folds {
		sort.Ints(fold)
	}
	return folds, nil
}

// ContiguousFolds splits 0..n-1 into k near-equal blocks in order.
func ContiguousFolds(n, k int) ([][]int, error) {
	if k < 2 {
		return nil, errors.Annotatef(ErrInvalidFolds, "need at least 2 folds, got %d", k)
	}
	if k > n {
		return nil, errors.Annotatef(ErrInvalidFolds, "%d folds for %d examples", k, n)
	}
	folds := make([][]int, k)
	begin := 0
	for f := 0; f < k; f++ {
		size := n / k
		if f < n%k {
			size++
		}
		folds[f] = lo.Range(size)
		for i := range folds[f] {
			folds[f][i] += begin
		}
		begin += size
	}
	return folds, nil
}

// complement returns indices of 0..n-1 not in fold, in ascending order.
func complement(n int, fold []int) []int {
	in := bitset.New(uint(n))
	for _, i := range fold {
		in.Set(uint(i))
	}
	rest := make([]int, 0, n-int(in.Count()))
	for i, ok := in.NextClear(0); ok && i < uint(n); i, ok = in.NextClear(i + 1) {
		rest = append(rest, int(i))
	}
	return rest
}
