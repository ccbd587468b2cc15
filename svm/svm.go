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

// Package svm trains support vector machines on precomputed kernel matrices.
// Classification is C-SVC with one-vs-one multi-class handling and regression is
// epsilon-SVR. Both are solved by SMO.
package svm

import (
	"math"

	"github.com/juju/errors"
)

const (
	ErrTooFewClasses = errors.ConstError("classification needs at least two classes")
	ErrKernelShape   = errors.ConstError("kernel matrix shape mismatch")
	ErrNotFinite     = errors.ConstError("kernel matrix is not finite")
	ErrNotSymmetric  = errors.ConstError("kernel matrix is not symmetric")
	ErrInvalidParams = errors.ConstError("invalid svm parameters")
)

const (
	DefaultEpsilon   = 0.1
	DefaultTolerance = 1e-3
)

type Params struct {
	// C is the regularization strength.
	C float64
	// Epsilon is the width of the insensitive tube of regression.
	Epsilon float64
	// Tolerance is the stopping tolerance of the duality gap.
	Tolerance float64
	// MaxIter caps SMO iterations of one problem. Non-positive means
	// max(10^7, 100 l).
	MaxIter int
}

func (p Params) withDefaults() Params {
	if p.Tolerance <= 0 {
		p.Tolerance = DefaultTolerance
	}
	return p
}

func (p Params) validate() error {
	if !(p.C > 0) || math.IsInf(p.C, 0) {
		return errors.Annotatef(ErrInvalidParams, "C must be positive, got %v", p.C)
	}
	if p.Epsilon < 0 || math.IsNaN(p.Epsilon) {
		return errors.Annotatef(ErrInvalidParams, "epsilon must not be negative, got %v", p.Epsilon)
	}
	return nil
}

// Kernel is a read-only view of a kernel matrix.
type Kernel interface {
	At(i, j int) float64
}

type subset struct {
	k   Kernel
	idx []int
}

func (s subset) At(i, j int) float64 {
	return s.k.At(s.idx[i], s.idx[j])
}

// Subset views the rows and columns of k at idx.
func Subset(k Kernel, idx []int) Kernel {
	return subset{k: k, idx: idx}
}

// dense copies an n by n kernel view, checking that values are finite and that
// the view really has n rows and columns.
func dense(k Kernel, n int) (d []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Annotatef(ErrKernelShape, "kernel is smaller than %dx%d: %v", n, n, r)
		}
	}()
	d = make([]float64, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := k.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.Annotatef(ErrNotFinite, "entry (%d, %d) is %v", i, j, v)
			}
			d[i*n+j] = v
		}
	}
	return d, nil
}

// Symmetric copies the n by n kernel view k in row-major order. Entries k(i, j)
// and k(j, i) may differ by tolerance times the largest magnitude of k.
func Symmetric(k Kernel, n int, tolerance float64) ([]float64, error) {
	if err := checkShape(k, n); err != nil {
		return nil, err
	}
	d, err := dense(k, n)
	if err != nil {
		return nil, err
	}
	var scale float64
	for _, v := range d {
		scale = math.Max(scale, math.Abs(v))
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if diff := math.Abs(d[i*n+j] - d[j*n+i]); diff > tolerance*scale {
				return nil, errors.Annotatef(ErrNotSymmetric, "entries (%d, %d) and (%d, %d) differ by %v", i, j, j, i, diff)
			}
		}
	}
	return d, nil
}

// Dims is implemented by gonum matrices.
type Dims interface {
	Dims() (r, c int)
}

func checkShape(k Kernel, n int) error {
	if d, ok := k.(Dims); ok {
		r, c := d.Dims()
		if r != c {
			return errors.Annotatef(ErrKernelShape, "kernel is %dx%d", r, c)
		}
		if r != n {
			return errors.Annotatef(ErrKernelShape, "kernel is %dx%d for %d examples", r, c, n)
		}
	}
	return nil
}

func (s subset) Dims() (int, int) {
	return len(s.idx), len(s.idx)
}
