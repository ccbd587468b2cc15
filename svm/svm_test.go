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

package svm

import (
	"context"
	"math"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

func linearKernel(x []float64) *mat.SymDense {
	k := mat.NewSymDense(len(x), nil)
	for i := range x {
		for j := i; j < len(x); j++ {
			k.SetSym(i, j, x[i]*x[j]+1)
		}
	}
	return k
}

func gaussianKernel(x []float64) *mat.SymDense {
	k := mat.NewSymDense(len(x), nil)
	for i := range x {
		for j := i; j < len(x); j++ {
			k.SetSym(i, j, math.Exp(-(x[i]-x[j])*(x[i]-x[j])/4))
		}
	}
	return k
}

func rowOf(support []int, train []float64, kernel func(a, b float64) float64, x float64) []float64 {
	row := make([]float64, len(support))
	for i, s := range support {
		row[i] = kernel(x, train[s])
	}
	return row
}

func TestBinaryClassifier(t *testing.T) {
	x := []float64{-2, -1.5, -1, 1, 1.5, 2}
	labels := []int{3, 3, 3, 7, 7, 7}
	c, err := TrainClassifier(context.Background(), linearKernel(x), labels, Params{C: 10}, zap.NewNop())
	assert.NoError(t, err)
	assert.Equal(t, []int{3, 7}, c.Labels)
	assert.Len(t, c.Pairs, 1)
	assert.Equal(t, ClassPair{Positive: 0, Negative: 1}, c.Pairs[0].Pair)
	assert.True(t, c.Pairs[0].Converged)
	assert.NotEmpty(t, c.Support)

	k := func(a, b float64) float64 { return a*b + 1 }
	label, values := c.Predict(rowOf(c.Support, x, k, -3))
	assert.Equal(t, 3, label)
	assert.Len(t, values, 1)
	assert.Greater(t, values[0], 0.0)
	label, values = c.Predict(rowOf(c.Support, x, k, 3))
	assert.Equal(t, 7, label)
	assert.Less(t, values[0], 0.0)
	for i, xi := range x {
		label, _ = c.Predict(rowOf(c.Support, x, k, xi))
		assert.Equal(t, labels[i], label)
	}
}

func TestMultiClassClassifier(t *testing.T) {
	x := []float64{0, 0.5, 1, 5, 5.5, 6, 10, 10.5, 11}
	labels := []int{2, 2, 2, 0, 0, 0, 1, 1, 1}
	c, err := TrainClassifier(context.Background(), gaussianKernel(x), labels, Params{C: 1}, nil)
	assert.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, c.Labels)
	assert.Equal(t, []ClassPair{{0, 1}, {0, 2}, {1, 2}}, []ClassPair{c.Pairs[0].Pair, c.Pairs[1].Pair, c.Pairs[2].Pair})

	k := func(a, b float64) float64 { return math.Exp(-(a - b) * (a - b) / 4) }
	for _, tc := range []struct {
		x     float64
		label int
	}{{0.2, 2}, {5.2, 0}, {10.7, 1}} {
		label, values := c.Predict(rowOf(c.Support, x, k, tc.x))
		assert.Equal(t, tc.label, label, tc.x)
		assert.Len(t, values, 3)
	}
	// support positions refer to the compacted support list
	for _, pm := range c.Pairs {
		for _, pos := range pm.Support {
			assert.Less(t, pos, len(c.Support))
		}
	}
}

func TestClassifierVoteTie(t *testing.T) {
	c := &Classifier{
		Labels:  []int{4, 5, 6},
		Support: []int{0},
		Pairs: []PairModel{
			{Pair: ClassPair{0, 1}, Support: []int{0}, Coef: []float64{1}, Rho: 0},
			{Pair: ClassPair{0, 2}, Support: []int{0}, Coef: []float64{-1}, Rho: 0},
			{Pair: ClassPair{1, 2}, Support: []int{0}, Coef: []float64{1}, Rho: 0},
		},
	}
	// 4 beats 5, 6 beats 4, 5 beats 6: each class has one vote
	label, values := c.Predict([]float64{1})
	assert.Equal(t, 4, label)
	assert.Equal(t, []float64{1, -1, 1}, values)
}

func TestClassifierErrors(t *testing.T) {
	ctx := context.Background()
	_, err := TrainClassifier(ctx, linearKernel([]float64{1, 2}), []int{1, 1}, Params{C: 1}, nil)
	assert.True(t, errors.Is(err, ErrTooFewClasses))
	_, err = TrainClassifier(ctx, mat.NewDense(2, 3, nil), []int{0, 1}, Params{C: 1}, nil)
	assert.True(t, errors.Is(err, ErrKernelShape))
	_, err = TrainClassifier(ctx, linearKernel([]float64{1, 2, 3}), []int{0, 1}, Params{C: 1}, nil)
	assert.True(t, errors.Is(err, ErrKernelShape))
	k := linearKernel([]float64{1, 2})
	k.SetSym(0, 1, math.NaN())
	_, err = TrainClassifier(ctx, k, []int{0, 1}, Params{C: 1}, nil)
	assert.True(t, errors.Is(err, ErrNotFinite))
	_, err = TrainClassifier(ctx, linearKernel([]float64{1, 2}), []int{0, 1}, Params{C: 0}, nil)
	assert.True(t, errors.Is(err, ErrInvalidParams))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = TrainClassifier(cancelled, linearKernel([]float64{1, 2}), []int{0, 1}, Params{C: 1}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubset(t *testing.T) {
	x := []float64{-2, 5, -1, 1, 7, 2}
	k := linearKernel(x)
	sub := Subset(k, []int{0, 2, 3, 5})
	assert.Equal(t, k.At(2, 5), sub.At(1, 3))
	c, err := TrainClassifier(context.Background(), sub, []int{0, 0, 1, 1}, Params{C: 10}, nil)
	assert.NoError(t, err)
	assert.Len(t, c.Pairs, 1)
}

func TestRegressor(t *testing.T) {
	x := []float64{-2, -1, 0, 1, 2, 3}
	targets := make([]float64, len(x))
	for i := range x {
		targets[i] = 2*x[i] + 1
	}
	r, err := TrainRegressor(context.Background(), linearKernel(x), targets, Params{C: 100, Epsilon: 0.1}, nil)
	assert.NoError(t, err)
	assert.True(t, r.Converged)
	k := func(a, b float64) float64 { return a*b + 1 }
	for _, xi := range []float64{-1.5, 0.5, 2.5} {
		assert.InDelta(t, 2*xi+1, r.Predict(rowOf(r.Support, x, k, xi)), 0.3)
	}
}

func TestRegressorErrors(t *testing.T) {
	ctx := context.Background()
	_, err := TrainRegressor(ctx, linearKernel([]float64{1}), nil, Params{C: 1}, nil)
	assert.True(t, errors.Is(err, ErrKernelShape))
	_, err = TrainRegressor(ctx, linearKernel([]float64{1, 2}), []float64{1, 2}, Params{C: 1, Epsilon: -1}, nil)
	assert.True(t, errors.Is(err, ErrInvalidParams))
	_, err = TrainRegressor(ctx, linearKernel([]float64{1, 2}), []float64{1, 2, 3}, Params{C: 1}, nil)
	assert.True(t, errors.Is(err, ErrKernelShape))
}
