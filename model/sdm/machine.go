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
	"context"

	"github.com/gorse-io/sdm/dataset"
	"github.com/gorse-io/sdm/divergence"
	"github.com/gorse-io/sdm/kernel"
	"github.com/gorse-io/sdm/model"
	"github.com/gorse-io/sdm/svm"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/mat"
)

// Machine trains support distribution machines over bags. Divergences are
// computed through Cache, so every bag set is sent to the oracle at most once
// per divergence function.
//
// Hyper-parameters:
//   - Scale, C: fixed kernel scale and C. A missing one is tuned.
//   - Epsilon: width of the insensitive tube of regression.
//   - Tolerance, MaxIter: stopping criteria of the solver.
//   - RandomState: seed of fold assignment if Tuning.Seed is zero.
type Machine[T constraints.Float] struct {
	model.BaseModel
	Task      Task
	DivFunc   divergence.Func
	Group     *kernel.Group
	Cache     *divergence.Cache[T]
	Tuning    *TuneConfig
	Config    *FitConfig
	MinPoints int
}

func NewMachine[T constraints.Float](task Task, fn divergence.Func, group *kernel.Group, cache *divergence.Cache[T],
	params model.Params) *Machine[T] {
	m := &Machine[T]{
		Task:      task,
		DivFunc:   fn,
		Group:     group,
		Cache:     cache,
		MinPoints: 1,
	}
	m.SetParams(params)
	return m
}

var _ model.Model = (*Machine[float64])(nil)

// GetParamsGrid returns the candidates searched by Tune. A fixed hyper-parameter
// has a single candidate. Scales are absent when they are chosen from divergences.
func (m *Machine[T]) GetParamsGrid() model.ParamsGrid {
	config := m.Tuning.LoadDefaultIfNil()
	grid := make(model.ParamsGrid)
	if c, ok := m.Params.Float64(model.C); ok {
		grid[model.C] = []any{c}
	} else if config.Cs == nil {
		grid[model.C] = lo.ToAnySlice(DefaultCs())
	} else {
		grid[model.C] = lo.ToAnySlice(config.Cs)
	}
	if scale, ok := m.Params.Float64(model.Scale); ok {
		grid[model.Scale] = []any{scale}
	} else if config.Scales != nil {
		grid[model.Scale] = lo.ToAnySlice(config.Scales)
	}
	return grid
}

func (m *Machine[T]) svmParams() svm.Params {
	return svm.Params{
		C:         m.Params.GetFloat64(model.C, 1),
		Epsilon:   m.Params.GetFloat64(model.Epsilon, svm.DefaultEpsilon),
		Tolerance: m.Params.GetFloat64(model.Tolerance, svm.DefaultTolerance),
		MaxIter:   m.Params.GetInt(model.MaxIter, 0),
	}
}

// fixed returns the candidate given by hyper-parameters. The linear kernel has no
// scale to tune.
func (m *Machine[T]) fixed() (Candidate, bool) {
	candidate := Candidate{
		Scale: m.Params.GetFloat64(model.Scale, 1),
		C:     m.Params.GetFloat64(model.C, 1),
	}
	return candidate, m.Fixed(model.C) && (m.Fixed(model.Scale) || m.Group.Name() == kernel.Linear)
}

func (m *Machine[T]) tuner() *Tuner {
	config := *m.Tuning.LoadDefaultIfNil()
	if config.Seed == 0 {
		config.Seed = m.GetRandomState()
	}
	grid := m.GetParamsGrid()
	config.Cs = grid.Floats(model.C)
	if _, ok := grid[model.Scale]; ok {
		config.Scales = grid.Floats(model.Scale)
	}
	m.Config.LoadDefaultIfNil().logger().Debug("search space",
		zap.Int("combinations", grid.NumCombinations()),
		zap.Bool("scales_from_divergences", config.Scales == nil))
	return &Tuner{
		Task:      m.Task,
		Group:     m.Group,
		SVM:       m.svmParams(),
		Config:    &config,
		FitConfig: m.Config,
	}
}

func (m *Machine[T]) validate(sets ...*dataset.BagSet[T]) error {
	var bags []dataset.Bag[T]
	for _, set := range sets {
		bags = append(bags, set.Bags...)
	}
	return errors.Trace(dataset.Validate(bags, m.MinPoints))
}

func (m *Machine[T]) divergences(ctx context.Context, a, b *dataset.BagSet[T]) (*divergence.Matrix, error) {
	d, err := m.Cache.Compute(ctx, a, b, m.DivFunc, m.Config.LoadDefaultIfNil().divOptions())
	return d, errors.Trace(err)
}

// Divergences computes divergences from bags (rows) to others (columns), or
// between bags if others is nil.
func (m *Machine[T]) Divergences(ctx context.Context, bags, others []dataset.Bag[T]) (*divergence.Matrix, error) {
	a := dataset.NewBagSet(bags)
	b := a
	if others != nil {
		b = dataset.NewBagSet(others)
	}
	if err := m.validate(a, b); err != nil {
		return nil, err
	}
	return m.divergences(ctx, a, b)
}

// Tune cross-validates hyper-parameter candidates on examples.
func (m *Machine[T]) Tune(ctx context.Context, examples *dataset.Examples[T]) (*TuneResult, error) {
	if err := m.validate(examples.BagSet); err != nil {
		return nil, err
	}
	d, err := m.divergences(ctx, examples.BagSet, examples.BagSet)
	if err != nil {
		return nil, err
	}
	return m.tuner().Tune(ctx, d, examples.Targets)
}

// TuneDivs is Tune over a precomputed divergence matrix.
func (m *Machine[T]) TuneDivs(ctx context.Context, d *divergence.Matrix, targets []float64) (*TuneResult, error) {
	return m.tuner().Tune(ctx, d, targets)
}

// Train fits a model on examples. Hyper-parameters missing from the machine are
// tuned first, in which case the tuning result is returned too.
func (m *Machine[T]) Train(ctx context.Context, examples *dataset.Examples[T]) (*Model[T], *TuneResult, error) {
	if err := m.validate(examples.BagSet); err != nil {
		return nil, nil, err
	}
	d, err := m.divergences(ctx, examples.BagSet, examples.BagSet)
	if err != nil {
		return nil, nil, err
	}
	return m.train(ctx, examples, d)
}

// TrainDivs is Train over a precomputed divergence matrix. The model keeps no
// support bags, so it predicts with PredictDivs or PredictTrainDivs only.
func (m *Machine[T]) TrainDivs(ctx context.Context, d *divergence.Matrix, targets []float64) (*Model[T], *TuneResult, error) {
	if !d.IsSquare() {
		return nil, nil, errors.Annotatef(kernel.ErrNotSquare, "%dx%d", d.Rows, d.Cols)
	}
	examples := &dataset.Examples[T]{
		BagSet:  dataset.NewBagSet(make([]dataset.Bag[T], d.Rows)),
		Targets: targets,
	}
	return m.train(ctx, examples, d)
}

func (m *Machine[T]) train(ctx context.Context, examples *dataset.Examples[T], d *divergence.Matrix) (*Model[T], *TuneResult, error) {
	if candidate, ok := m.fixed(); ok {
		trained, err := m.fit(ctx, examples, d, candidate, nil)
		return trained, nil, err
	}
	result, err := m.tuner().Tune(ctx, d, examples.Targets)
	if err != nil {
		return nil, nil, err
	}
	trained, err := m.fit(ctx, examples, d, result.Best, result.kernel)
	if err != nil {
		return nil, nil, err
	}
	return trained, result, nil
}

// TrainWithParams fits a model on examples with the given candidate.
func (m *Machine[T]) TrainWithParams(ctx context.Context, examples *dataset.Examples[T], candidate Candidate) (*Model[T], error) {
	if err := m.validate(examples.BagSet); err != nil {
		return nil, err
	}
	d, err := m.divergences(ctx, examples.BagSet, examples.BagSet)
	if err != nil {
		return nil, err
	}
	return m.fit(ctx, examples, d, candidate, nil)
}

// fit trains on the whole of examples. k is the kernel matrix for the candidate
// scale if already known.
func (m *Machine[T]) fit(ctx context.Context, examples *dataset.Examples[T], d *divergence.Matrix,
	candidate Candidate, k svm.Kernel) (*Model[T], error) {
	logger := m.Config.LoadDefaultIfNil().logger()
	if len(examples.Targets) != d.Rows {
		return nil, errors.Annotatef(dataset.ErrTargetCount, "%d targets for %d bags", len(examples.Targets), d.Rows)
	}
	if k == nil {
		var err error
		if k, err = m.Group.Matrix(d, candidate.Scale); err != nil {
			return nil, errors.Trace(err)
		}
	}
	params := m.svmParams()
	params.C = candidate.C
	trained, err := fitKernel(ctx, k, examples.Targets, m.Task, params, logger, true)
	if err != nil {
		return nil, errors.Trace(&TrainError{Scale: candidate.Scale, C: candidate.C, Err: err})
	}
	logger.Info("train support distribution machine",
		zap.String("task", string(m.Task)),
		zap.Stringer("divergence", m.DivFunc),
		zap.String("kernel", m.Group.Name()),
		zap.Float64("scale", candidate.Scale),
		zap.Float64("C", candidate.C),
		zap.Int("examples", d.Rows),
		zap.Int("support", len(trained.Support())))
	return newModel(m.Task, m.DivFunc, m.Group, examples.BagSet, candidate, params, trained), nil
}

// Predict predicts bags with a trained model. Divergences between the bags and the
// support bags are computed in one batch, in both directions if the divergence
// function is asymmetric.
func (m *Machine[T]) Predict(ctx context.Context, trained *Model[T], bags []dataset.Bag[T]) (*Predictions, error) {
	set := dataset.NewBagSet(bags)
	if err := m.validate(trained.Support, set); err != nil {
		return nil, err
	}
	defer m.Cache.Evict(set)
	options := m.Config.LoadDefaultIfNil().divOptions()
	dxy, err := m.Cache.Compute(ctx, set, trained.Support, trained.DivFunc, options)
	if err != nil {
		return nil, errors.Trace(err)
	}
	var dyx *divergence.Matrix
	if !trained.DivFunc.Symmetric() {
		if dyx, err = m.Cache.Compute(ctx, trained.Support, set, trained.DivFunc, options); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return trained.PredictDivs(dxy, dyx)
}

// Transduct predicts test bags from divergences over the union of training and test
// bags. The kernel matrix of the union is projected as a whole, so that kernel
// values between training and test bags come from the same projection as the ones
// used for training.
func (m *Machine[T]) Transduct(ctx context.Context, train *dataset.Examples[T], testBags []dataset.Bag[T]) (*Predictions, error) {
	test := dataset.NewBagSet(testBags)
	if err := m.validate(train.BagSet, test); err != nil {
		return nil, err
	}
	union := dataset.Concat(train.BagSet, test)
	defer m.Cache.Evict(test)
	d, err := m.divergences(ctx, union, union)
	if err != nil {
		return nil, err
	}
	trainIdx := lo.Range(train.Len())
	testIdx := lo.RangeFrom(train.Len(), test.Len())
	return m.transduct(ctx, d, train.Targets, trainIdx, testIdx)
}

// TransductDivs is Transduct over a precomputed divergence matrix of the union,
// training bags first.
func (m *Machine[T]) TransductDivs(ctx context.Context, d *divergence.Matrix, targets []float64) (*Predictions, error) {
	if !d.IsSquare() {
		return nil, errors.Annotatef(kernel.ErrNotSquare, "%dx%d", d.Rows, d.Cols)
	}
	if len(targets) > d.Rows {
		return nil, errors.Annotatef(dataset.ErrTargetCount, "%d targets for %d bags", len(targets), d.Rows)
	}
	return m.transduct(ctx, d, targets, lo.Range(len(targets)), lo.RangeFrom(len(targets), d.Rows-len(targets)))
}

func (m *Machine[T]) transduct(ctx context.Context, d *divergence.Matrix, targets []float64, trainIdx, testIdx []int) (*Predictions, error) {
	logger := m.Config.LoadDefaultIfNil().logger()
	kernels := make(map[float64]*mat.SymDense)
	unionKernel := func(scale float64) (*mat.SymDense, error) {
		if k, ok := kernels[scale]; ok {
			return k, nil
		}
		k, err := m.Group.Matrix(d, scale)
		if err != nil {
			return nil, errors.Trace(err)
		}
		kernels[scale] = k
		return k, nil
	}

	candidate, ok := m.fixed()
	if !ok {
		result, err := m.tuner().tune(ctx, d.Sub(trainIdx, trainIdx), targets, func(scale float64) (svm.Kernel, error) {
			k, err := unionKernel(scale)
			if err != nil {
				return nil, err
			}
			return svm.Subset(k, trainIdx), nil
		})
		if err != nil {
			return nil, err
		}
		candidate = result.Best
	}
	k, err := unionKernel(candidate.Scale)
	if err != nil {
		return nil, err
	}
	params := m.svmParams()
	params.C = candidate.C
	trained, err := fitKernel(ctx, svm.Subset(k, trainIdx), targets, m.Task, params, logger, true)
	if err != nil {
		return nil, errors.Trace(&TrainError{Scale: candidate.Scale, C: candidate.C, Err: err})
	}
	logger.Info("transduct",
		zap.Float64("scale", candidate.Scale),
		zap.Float64("C", candidate.C),
		zap.Int("train", len(trainIdx)),
		zap.Int("test", len(testIdx)))
	return trained.predictTraining(crossView{k: k, rows: testIdx, cols: trainIdx}, nil), nil
}
