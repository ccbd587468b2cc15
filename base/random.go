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
	"math/rand"

	"github.com/gorse-io/sdm/dataset"
	"golang.org/x/exp/constraints"
)

// RandomGenerator is the seeded random generator of sdm. It is not safe for
// concurrent use.
type RandomGenerator struct {
	*rand.Rand
}

// NewRandomGenerator creates a RandomGenerator.
func NewRandomGenerator(seed int64) RandomGenerator {
	return RandomGenerator{rand.New(rand.NewSource(seed))}
}

// NormalVector64 makes a vec filled with normal random floats.
func (rng RandomGenerator) NormalVector64(size int, mean, stdDev float64) []float64 {
	ret := make([]float64, size)
	for i := 0; i < len(ret); i++ {
		ret[i] = rng.NormFloat64()*stdDev + mean
	}
	return ret
}

// NormalBag samples n points of dimension len(mean) from an isotropic normal distribution.
func NormalBag[T constraints.Float](rng RandomGenerator, n int, mean []float64, stdDev float64) dataset.Bag[T] {
	bag := make(dataset.Bag[T], n)
	for i := range bag {
		bag[i] = make([]T, len(mean))
		for j := range mean {
			bag[i][j] = T(rng.NormFloat64()*stdDev + mean[j])
		}
	}
	return bag
}

// ShuffleInts shuffles a in place.
func (rng RandomGenerator) ShuffleInts(a []int) {
	rng.Shuffle(len(a), func(i, j int) {
		a[i], a[j] = a[j], a[i]
	})
}
