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

package base

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/stat"
)

const randomEpsilon = 0.1

func TestRandomGenerator_NormalVector64(t *testing.T) {
	rng := NewRandomGenerator(0)
	vec := rng.NormalVector64(1000, 1, 2)
	assert.False(t, math.Abs(stat.Mean(vec, nil)-1) > randomEpsilon)
	assert.False(t, math.Abs(stat.StdDev(vec, nil)-2) > randomEpsilon)
}

func TestNormalBag(t *testing.T) {
	rng := NewRandomGenerator(0)
	bag := NormalBag[float32](rng, 500, []float64{3, -3}, 0.5)
	assert.Len(t, bag, 500)
	assert.Equal(t, 2, bag.Dim())
	mean := bag.Mean()
	assert.InDelta(t, 3, mean[0], randomEpsilon)
	assert.InDelta(t, -3, mean[1], randomEpsilon)
}

func TestRandomGenerator_ShuffleInts(t *testing.T) {
	a := []int{0, 1, 2, 3, 4, 5, 6, 7}
	b := append([]int(nil), a...)
	NewRandomGenerator(1).ShuffleInts(b)
	c := append([]int(nil), a...)
	NewRandomGenerator(1).ShuffleInts(c)
	assert.Equal(t, b, c)
	sort.Ints(b)
	assert.Equal(t, a, b)
}
