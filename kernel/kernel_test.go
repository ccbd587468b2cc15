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

package kernel

import (
	"math"
	"math/rand"
	"testing"

	"github.com/gorse-io/sdm/divergence"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/mat"
)

func mustMatrix(t *testing.T, rows [][]float64) *divergence.Matrix {
	m, err := divergence.NewMatrixFrom(rows)
	assert.NoError(t, err)
	return m
}

func assertPSD(t *testing.T, k *mat.SymDense) {
	n := k.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			assert.Equal(t, k.At(i, j), k.At(j, i))
		}
	}
	var es mat.EigenSym
	assert.True(t, es.Factorize(k, false))
	for _, v := range es.Values(nil) {
		assert.GreaterOrEqual(t, v, -1e-8)
	}
}

func TestNewGroup(t *testing.T) {
	g, err := NewGroup(Gaussian)
	assert.NoError(t, err)
	assert.Equal(t, Gaussian, g.Name())
	_, err = NewGroup("polynomial")
	assert.True(t, errors.Is(err, ErrUnknownKernel))
}

func TestKernel(t *testing.T) {
	g, _ := NewGroup(Gaussian)
	assert.InDelta(t, math.Exp(-0.5), g.Kernel(1, 2), 1e-12)
	assert.Equal(t, 1.0, g.Kernel(0, 2))
	l, _ := NewGroup(Linear)
	assert.Equal(t, 0.7, l.Kernel(0.7, 100))
}

func TestMatrixRandom(t *testing.T) {
	g, _ := NewGroup(Gaussian, WithLogger(zap.NewNop()))
	rng := rand.New(rand.NewSource(0))
	for trial := 0; trial < 5; trial++ {
		n := 12
		d := divergence.NewMatrix(n, n)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i != j {
					d.Set(i, j, rng.Float64()*3)
				}
			}
		}
		for _, scale := range g.CandidateScales(d) {
			k, err := g.Matrix(d, scale)
			assert.NoError(t, err)
			assertPSD(t, k)
		}
	}
}

func TestMatrixNegativeEntry(t *testing.T) {
	g, _ := NewGroup(Gaussian, WithLogger(zap.NewNop()))
	d := mustMatrix(t, [][]float64{
		{0, 1.2, 0.8, 2.0},
		{1.1, 0, -0.05, 1.7},
		{0.9, 0.6, 0, 1.3},
		{2.1, 1.6, 1.2, 0},
	})
	k, err := g.Matrix(d, 1)
	assert.NoError(t, err)
	assertPSD(t, k)
	assert.Equal(t, 4, k.SymmetricDim())
}

func TestMatrixSymmetrize(t *testing.T) {
	g, _ := NewGroup(Gaussian, WithLogger(zap.NewNop()))
	d := mustMatrix(t, [][]float64{{0, 1}, {3, 0}})
	k, err := g.Matrix(d, 1)
	assert.NoError(t, err)
	want := (math.Exp(-1) + math.Exp(-3)) / 2
	assert.InDelta(t, want, k.At(0, 1), 1e-12)
	assert.InDelta(t, want, k.At(1, 0), 1e-12)
	assert.InDelta(t, 1.0, k.At(0, 0), 1e-12)
}

func TestMatrixErrors(t *testing.T) {
	g, _ := NewGroup(Gaussian, WithLogger(zap.NewNop()))
	_, err := g.Matrix(divergence.NewMatrix(2, 3), 1)
	assert.True(t, errors.Is(err, ErrNotSquare))
	_, err = g.Matrix(divergence.NewMatrix(2, 2), 0)
	assert.True(t, errors.Is(err, ErrInvalidScale))
	_, err = g.Matrix(divergence.NewMatrix(2, 2), math.NaN())
	assert.True(t, errors.Is(err, ErrInvalidScale))
	_, err = g.Matrix(divergence.NewMatrix(0, 0), 1)
	assert.True(t, errors.Is(err, ErrDegenerateKernel))

	l, _ := NewGroup(Linear, WithLogger(zap.NewNop()))
	_, err = l.Matrix(divergence.NewMatrix(3, 3), 1)
	assert.True(t, errors.Is(err, ErrDegenerateKernel))
}

func TestMatrixClipLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	g, _ := NewGroup(Linear, WithLogger(zap.New(core)))

	// eigenvalues 3 and -1
	k, err := g.Matrix(mustMatrix(t, [][]float64{{1, 2}, {2, 1}}), 1)
	assert.NoError(t, err)
	assertPSD(t, k)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())

	// eigenvalues 2+1e-9 and -1e-9
	_, err = g.Matrix(mustMatrix(t, [][]float64{{1, 1 + 1e-9}, {1 + 1e-9, 1}}), 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.DebugLevel).Len())
}

func TestProjectPSD(t *testing.T) {
	k := mat.NewSymDense(2, []float64{1, 2, 2, 1})
	clip, err := ProjectPSD(k, DefaultTolerance)
	assert.NoError(t, err)
	assert.Equal(t, 1, clip.Count)
	assert.True(t, clip.Significant)
	assert.InDelta(t, -1, clip.MinEigenvalue, 1e-9)
	assert.InDelta(t, 3, clip.MaxEigenvalue, 1e-9)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			assert.InDelta(t, 1.5, k.At(i, j), 1e-9)
		}
	}

	// PSD input is left untouched
	k = mat.NewSymDense(2, []float64{2, 1, 1, 2})
	clip, err = ProjectPSD(k, DefaultTolerance)
	assert.NoError(t, err)
	assert.Zero(t, clip.Count)
	assert.Equal(t, 1.0, k.At(0, 1))

	_, err = ProjectPSD(mat.NewSymDense(2, []float64{-1, 0, 0, -2}), DefaultTolerance)
	assert.True(t, errors.Is(err, ErrDegenerateKernel))
}

func TestCheckPSD(t *testing.T) {
	assert.NoError(t, CheckPSD(mat.NewSymDense(2, []float64{2, 1, 1, 2}), DefaultTolerance))
	assert.NoError(t, CheckPSD(mat.NewSymDense(2, []float64{1, 1, 1, 1}), DefaultTolerance))
	err := CheckPSD(mat.NewSymDense(2, []float64{1, 2, 2, 1}), DefaultTolerance)
	assert.True(t, errors.Is(err, ErrNotPSD))
	err = CheckPSD(mat.NewSymDense(2, []float64{-1, 0, 0, -2}), DefaultTolerance)
	assert.True(t, errors.Is(err, ErrNotPSD))

	// projected kernels pass
	k := mat.NewSymDense(3, []float64{1, 0.9, -0.9, 0.9, 1, 0.9, -0.9, 0.9, 1})
	_, err = ProjectPSD(k, DefaultTolerance)
	assert.NoError(t, err)
	assert.NoError(t, CheckPSD(k, DefaultTolerance))
}

func TestCandidateScales(t *testing.T) {
	g, _ := NewGroup(Gaussian)
	d := mustMatrix(t, [][]float64{{0, 1, 2}, {3, 0, 4}, {5, 6, 0}})
	scales := g.CandidateScales(d)
	assert.Len(t, scales, 7)
	assert.InDelta(t, 0.375, scales[0], 1e-12)
	assert.InDelta(t, 3, scales[3], 1e-12)
	assert.InDelta(t, 24, scales[6], 1e-12)

	scales = g.CandidateScales(divergence.NewMatrix(3, 3))
	assert.InDelta(t, 1, scales[3], 1e-12)

	l, _ := NewGroup(Linear)
	assert.Equal(t, []float64{1}, l.CandidateScales(d))
}

func TestCrossRows(t *testing.T) {
	g, _ := NewGroup(Gaussian)
	dxy := mustMatrix(t, [][]float64{{1, 2, 3}})
	dyx := mustMatrix(t, [][]float64{{3}, {2}, {1}})
	rows, err := g.CrossRows(dxy, nil, 1)
	assert.NoError(t, err)
	assert.InDelta(t, math.Exp(-2), rows.At(0, 1), 1e-12)

	rows, err = g.CrossRows(dxy, dyx, 1)
	assert.NoError(t, err)
	r, c := rows.Dims()
	assert.Equal(t, 1, r)
	assert.Equal(t, 3, c)
	assert.InDelta(t, (math.Exp(-1)+math.Exp(-3))/2, rows.At(0, 0), 1e-12)
	assert.InDelta(t, math.Exp(-2), rows.At(0, 1), 1e-12)

	_, err = g.CrossRows(dxy, dxy, 1)
	assert.True(t, errors.Is(err, divergence.ErrShape))
}
