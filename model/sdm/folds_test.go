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
	"testing"

	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func assertPartition(t *testing.T, n int, folds [][]int) {
	all := lo.Flatten(folds)
	sort.Ints(all)
	assert.Equal(t, lo.Range(n), all)
	sizes := lo.Map(folds, func(fold []int, _ int) int { return len(fold) })
	assert.LessOrEqual(t, lo.Max(sizes)-lo.Min(sizes), 1)
}

func TestStratifiedFolds(t *testing.T) {
	labels := []float64{0, 0, 0, 1, 1, 1, 2, 2, 2, 2}
	folds, err := StratifiedFolds(Classification, labels, 3, 0)
	assert.NoError(t, err)
	assert.Len(t, folds, 3)
	assertPartition(t, len(labels), folds)
	for _, fold := range folds {
		classes := lo.Uniq(pick(labels, fold))
		assert.Len(t, classes, 3)
		assert.True(t, sort.IntsAreSorted(fold))
	}

	// same seed, same folds
	again, err := StratifiedFolds(Classification, labels, 3, 0)
	assert.NoError(t, err)
	assert.Equal(t, folds, again)

	// regression targets are a single stratum
	folds, err = StratifiedFolds(Regression, []float64{0.1, 0.5, 0.2, 0.9, 1.3}, 2, 1)
	assert.NoError(t, err)
	assertPartition(t, 5, folds)

	_, err = StratifiedFolds(Classification, labels, 1, 0)
	assert.True(t, errors.Is(err, ErrInvalidFolds))
	_, err = StratifiedFolds(Classification, labels, 11, 0)
	assert.True(t, errors.Is(err, ErrInvalidFolds))
}

func TestContiguousFolds(t *testing.T) {
	folds, err := ContiguousFolds(7, 3)
	assert.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1, 2}, {3, 4}, {5, 6}}, folds)
	_, err = ContiguousFolds(2, 3)
	assert.True(t, errors.Is(err, ErrInvalidFolds))
	_, err = ContiguousFolds(5, 0)
	assert.True(t, errors.Is(err, ErrInvalidFolds))
}

func TestComplement(t *testing.T) {
	assert.Equal(t, []int{0, 2, 4}, complement(5, []int{1, 3}))
	assert.Equal(t, []int{}, complement(2, []int{0, 1}))
}
