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

// Package kernel turns divergence matrices into positive semi-definite kernel
// matrices.
package kernel

import (
	"math"
	"sort"

	"github.com/gorse-io/sdm/base/log"
	"github.com/gorse-io/sdm/divergence"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	ErrUnknownKernel    = errors.ConstError("unknown kernel")
	ErrDegenerateKernel = errors.ConstError("kernel matrix has no positive eigenvalue")
	ErrNotSquare        = errors.ConstError("divergence matrix is not square")
	ErrInvalidScale     = errors.ConstError("invalid kernel scale")
	ErrNotPSD           = errors.ConstError("kernel matrix is not positive semidefinite")
)

const (
	Gaussian = "gaussian"
	Linear   = "linear"
)

// DefaultTolerance is the magnitude of negative eigenvalues, relative to the
// largest eigenvalue, that is clipped without a warning.
const DefaultTolerance = 1e-6

// Group is a kernel family fixed at construction, parameterized by a scale.
type Group struct {
	name      string
	tolerance float64
	logger    *zap.Logger
}

type Option func(*Group)

func WithTolerance(tolerance float64) Option {
	return func(g *Group) {
		g.tolerance = tolerance
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(g *Group) {
		g.logger = logger
	}
}

func NewGroup(name string, opts ...Option) (*Group, error) {
	if name != Gaussian && name != Linear {
		return nil, errors.Annotatef(ErrUnknownKernel, "%q", name)
	}
	g := &Group{name: name, tolerance: DefaultTolerance}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = log.OrDefault(g.logger)
	return g, nil
}

func (g *Group) Name() string {
	return g.name
}

// Kernel maps a divergence to a kernel value. Gaussian is exp(-d/scale) and linear
// is the identity, which ignores the scale.
func (g *Group) Kernel(d, scale float64) float64 {
	if g.name == Linear {
		return d
	}
	return math.Exp(-d / scale)
}

func (g *Group) checkScale(scale float64) error {
	if g.name == Gaussian && (!(scale > 0) || math.IsInf(scale, 0)) {
		return errors.Annotatef(ErrInvalidScale, "%v", scale)
	}
	return nil
}

// Matrix transforms a square divergence matrix element-wise, symmetrizes it by
// averaging with its transpose and projects it onto the PSD cone.
func (g *Group) Matrix(d *divergence.Matrix, scale float64) (*mat.SymDense, error) {
	if !d.IsSquare() {
		return nil, errors.Annotatef(ErrNotSquare, "%dx%d", d.Rows, d.Cols)
	}
	if err := g.checkScale(scale); err != nil {
		return nil, errors.Trace(err)
	}
	if d.Rows == 0 {
		return nil, errors.Annotate(ErrDegenerateKernel, "empty matrix")
	}
	n := d.Rows
	k := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			k.SetSym(i, j, (g.Kernel(d.At(i, j), scale)+g.Kernel(d.At(j, i), scale))/2)
		}
	}
	clip, err := ProjectPSD(k, g.tolerance)
	if err != nil {
		return nil, errors.Annotatef(err, "kernel %s with scale %v", g.name, scale)
	}
	if clip.Count > 0 {
		fields := []zap.Field{
			zap.String("kernel", g.name),
			zap.Float64("scale", scale),
			zap.Int("clipped", clip.Count),
			zap.Float64("min_eigenvalue", clip.MinEigenvalue),
		}
		if clip.Significant {
			g.logger.Warn("clip negative eigenvalues of kernel matrix", fields...)
		} else {
			g.logger.Debug("clip negative eigenvalues of kernel matrix", fields...)
		}
	}
	return k, nil
}

// CrossRows transforms divergences dxy between new bags (rows) and training bags
// (columns) into kernel rows. For asymmetric divergences, dyx holds divergences
// from the training bags to the new bags and both directions are averaged,
// matching the symmetrization of training kernels. A nil dyx uses dxy only.
func (g *Group) CrossRows(dxy, dyx *divergence.Matrix, scale float64) (*mat.Dense, error) {
	if err := g.checkScale(scale); err != nil {
		return nil, errors.Trace(err)
	}
	if dyx != nil && (dyx.Rows != dxy.Cols || dyx.Cols != dxy.Rows) {
		return nil, errors.Annotatef(divergence.ErrShape, "expect %dx%d reverse divergences, got %dx%d",
			dxy.Cols, dxy.Rows, dyx.Rows, dyx.Cols)
	}
	if dxy.Rows == 0 || dxy.Cols == 0 {
		return &mat.Dense{}, nil
	}
	var rows mat.Dense
	rows.Apply(func(i, j int, v float64) float64 {
		k := g.Kernel(v, scale)
		if dyx != nil {
			k = (k + g.Kernel(dyx.At(j, i), scale)) / 2
		}
		return k
	}, dxy.Dense())
	return &rows, nil
}

// CandidateScales returns scales around the median of off-diagonal divergences:
// the median times 2^-3, ..., 2^3. The linear kernel has the single scale 1.
func (g *Group) CandidateScales(d *divergence.Matrix) []float64 {
	if g.name == Linear {
		return []float64{1}
	}
	values := make([]float64, 0, len(d.Data))
	for i := 0; i < d.Rows; i++ {
		for j := 0; j < d.Cols; j++ {
			if i != j || !d.IsSquare() {
				values = append(values, d.At(i, j))
			}
		}
	}
	median := 1.0
	if len(values) > 0 {
		sort.Float64s(values)
		median = stat.Quantile(0.5, stat.Empirical, values, nil)
	}
	if !(median > 0) || math.IsInf(median, 0) {
		median = 1
	}
	scales := make([]float64, 0, 7)
	for p := -3; p <= 3; p++ {
		scales = append(scales, median*math.Pow(2, float64(p)))
	}
	return scales
}

// Clip describes eigenvalues clipped by ProjectPSD.
type Clip struct {
	Count         int
	MinEigenvalue float64
	MaxEigenvalue float64
	// Significant is set when a clipped eigenvalue exceeds the tolerance relative
	// to the largest eigenvalue.
	Significant bool
}

// CheckPSD fails with ErrNotPSD when an eigenvalue of k is below -tolerance
// times the largest eigenvalue.
func CheckPSD(k *mat.SymDense, tolerance float64) error {
	var es mat.EigenSym
	if ok := es.Factorize(k, false); !ok {
		return errors.New("eigen decomposition of kernel matrix failed")
	}
	values := es.Values(nil)
	minValue, maxValue := math.Inf(1), 0.0
	for _, v := range values {
		minValue = math.Min(minValue, v)
		maxValue = math.Max(maxValue, v)
	}
	if minValue < -tolerance*maxValue {
		return errors.Annotatef(ErrNotPSD, "eigenvalue %v, largest %v", minValue, maxValue)
	}
	return nil
}

// ProjectPSD replaces k in place by its nearest PSD matrix in Frobenius norm,
// V max(L, 0) V'. It fails when no eigenvalue is positive.
func ProjectPSD(k *mat.SymDense, tolerance float64) (Clip, error) {
	var es mat.EigenSym
	if ok := es.Factorize(k, true); !ok {
		return Clip{}, errors.New("eigen decomposition of kernel matrix failed")
	}
	values := es.Values(nil)
	var vectors mat.Dense
	es.VectorsTo(&vectors)

	clip := Clip{MinEigenvalue: math.Inf(1), MaxEigenvalue: math.Inf(-1)}
	for _, v := range values {
		clip.MinEigenvalue = math.Min(clip.MinEigenvalue, v)
		clip.MaxEigenvalue = math.Max(clip.MaxEigenvalue, v)
	}
	if !(clip.MaxEigenvalue > 0) {
		return clip, errors.Trace(ErrDegenerateKernel)
	}
	for i, v := range values {
		if v < 0 {
			clip.Count++
			if -v > tolerance*clip.MaxEigenvalue {
				clip.Significant = true
			}
			values[i] = 0
		}
	}
	if clip.Count == 0 {
		return clip, nil
	}
	n := k.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var sum float64
			for e, v := range values {
				if v > 0 {
					sum += vectors.At(i, e) * v * vectors.At(j, e)
				}
			}
			k.SetSym(i, j, sum)
		}
	}
	return clip, nil
}
