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

package dataset

import (
	"math"

	"github.com/google/uuid"
	"github.com/juju/errors"
	"golang.org/x/exp/constraints"
)

const (
	ErrNoBags            = errors.ConstError("no bags")
	ErrEmptyBag          = errors.ConstError("empty bag")
	ErrDimensionMismatch = errors.ConstError("dimension mismatch")
	ErrTooFewPoints      = errors.ConstError("too few points in bag")
	ErrTargetCount       = errors.ConstError("number of targets does not match number of bags")
	ErrNonIntegralLabel  = errors.ConstError("classification label is not an integer")
)

// Bag is a set of points sampled from one distribution. Each row is a point.
type Bag[T constraints.Float] [][]T

// Dim returns the dimension of points, or 0 for an empty bag.
func (b Bag[T]) Dim() int {
	if len(b) == 0 {
		return 0
	}
	return len(b[0])
}

// Mean returns the coordinate-wise mean of points.
func (b Bag[T]) Mean() []T {
	mean := make([]T, b.Dim())
	for _, point := range b {
		for j, v := range point {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= T(len(b))
	}
	return mean
}

// Clone returns a deep copy.
func (b Bag[T]) Clone() Bag[T] {
	c := make(Bag[T], len(b))
	for i, point := range b {
		c[i] = append([]T(nil), point...)
	}
	return c
}

// Validate checks that every bag contains at least minPoints points (and at least
// one) and that all points share the same dimension.
func Validate[T constraints.Float](bags []Bag[T], minPoints int) error {
	if len(bags) == 0 {
		return errors.Trace(ErrNoBags)
	}
	dim := -1
	for i, bag := range bags {
		if len(bag) == 0 {
			return errors.Annotatef(ErrEmptyBag, "bag %d", i)
		}
		if len(bag) < minPoints {
			return errors.Annotatef(ErrTooFewPoints, "bag %d has %d points, need %d", i, len(bag), minPoints)
		}
		for j, point := range bag {
			if dim < 0 {
				dim = len(point)
				if dim == 0 {
					return errors.Annotatef(ErrDimensionMismatch, "bag %d point %d has no coordinates", i, j)
				}
			}
			if len(point) != dim {
				return errors.Annotatef(ErrDimensionMismatch, "bag %d point %d has dimension %d, expect %d", i, j, len(point), dim)
			}
			for _, v := range point {
				if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
					return errors.Errorf("bag %d point %d is not finite", i, j)
				}
			}
		}
	}
	return nil
}

// BagSet is an ordered collection of bags with a stable identity. Divergence
// matrices are cached by the identity, so a set must not be mutated after creation.
type BagSet[T constraints.Float] struct {
	ID   string
	Bags []Bag[T]
}

func NewBagSet[T constraints.Float](bags []Bag[T]) *BagSet[T] {
	return &BagSet[T]{ID: uuid.NewString(), Bags: bags}
}

func (s *BagSet[T]) Len() int {
	return len(s.Bags)
}

// Subset returns a new set holding the bags at indices.
func (s *BagSet[T]) Subset(indices []int) *BagSet[T] {
	bags := make([]Bag[T], len(indices))
	for i, idx := range indices {
		bags[i] = s.Bags[idx]
	}
	return NewBagSet(bags)
}

// Concat builds the union of a and b. Bags of a come first.
func Concat[T constraints.Float](a, b *BagSet[T]) *BagSet[T] {
	bags := make([]Bag[T], 0, a.Len()+b.Len())
	bags = append(bags, a.Bags...)
	bags = append(bags, b.Bags...)
	return &BagSet[T]{ID: a.ID + "+" + b.ID, Bags: bags}
}

// Examples are bags with targets. Targets are integer labels for classification
// and real values for regression.
type Examples[T constraints.Float] struct {
	*BagSet[T]
	Targets []float64
}

func NewExamples[T constraints.Float](bags []Bag[T], targets []float64) (*Examples[T], error) {
	if len(bags) != len(targets) {
		return nil, errors.Annotatef(ErrTargetCount, "%d bags, %d targets", len(bags), len(targets))
	}
	return &Examples[T]{BagSet: NewBagSet(bags), Targets: targets}, nil
}

// Split returns examples at indices.
func (e *Examples[T]) Split(indices []int) *Examples[T] {
	targets := make([]float64, len(indices))
	for i, idx := range indices {
		targets[i] = e.Targets[idx]
	}
	return &Examples[T]{BagSet: e.Subset(indices), Targets: targets}
}

// IntLabels converts targets to integer labels.
func IntLabels(targets []float64) ([]int, error) {
	labels := make([]int, len(targets))
	for i, t := range targets {
		if t != math.Trunc(t) || math.IsInf(t, 0) {
			return nil, errors.Annotatef(ErrNonIntegralLabel, "target %d is %v", i, t)
		}
		labels[i] = int(t)
	}
	return labels, nil
}
