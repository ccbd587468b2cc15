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
	"sync"

	"github.com/gorse-io/sdm/base/progress"
	"github.com/gorse-io/sdm/common/parallel"
	"github.com/gorse-io/sdm/dataset"
	"github.com/gorse-io/sdm/divergence"
	"github.com/gorse-io/sdm/kernel"
	"github.com/gorse-io/sdm/svm"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

const DefaultOuterFolds = 10

type CrossValidateConfig struct {
	// Folds is the number of outer folds.
	Folds int
	// ProjectAll projects the kernel matrix of all examples before slicing the
	// training part of each outer fold. Otherwise only the training part is
	// projected and test rows are plain kernel values.
	ProjectAll bool
	// Shuffle assigns stratified shuffled outer folds. Otherwise folds are
	// contiguous blocks.
	Shuffle bool
	// Threads is the number of outer folds evaluated at once.
	Threads int
	Seed    int64
}

func NewCrossValidateConfig() *CrossValidateConfig {
	return &CrossValidateConfig{
		Folds:      DefaultOuterFolds,
		ProjectAll: true,
		Shuffle:    true,
		Threads:    1,
	}
}

func (config *CrossValidateConfig) LoadDefaultIfNil() *CrossValidateConfig {
	if config == nil {
		return NewCrossValidateConfig()
	}
	return config
}

type CrossValidateResult struct {
	Score      Score
	FoldScores []Score
	// Params are the candidates selected in each outer fold.
	Params []Candidate
	// Predictions are held-out predictions of every example.
	Predictions []float64
	Folds       [][]int
}

// CrossValidate estimates the generalization score of the machine by nested
// cross-validation over examples. Divergences are computed once.
func (m *Machine[T]) CrossValidate(ctx context.Context, examples *dataset.Examples[T], config *CrossValidateConfig) (*CrossValidateResult, error) {
	if err := m.validate(examples.BagSet); err != nil {
		return nil, err
	}
	d, err := m.divergences(ctx, examples.BagSet, examples.BagSet)
	if err != nil {
		return nil, err
	}
	return m.CrossValidateDivs(ctx, d, examples.Targets, config)
}

// CrossValidateDivs is CrossValidate over a precomputed divergence matrix.
func (m *Machine[T]) CrossValidateDivs(ctx context.Context, d *divergence.Matrix, targets []float64, config *CrossValidateConfig) (*CrossValidateResult, error) {
	tuner := m.tuner()
	if candidate, ok := m.fixed(); ok {
		tuner.Config.Scales = []float64{candidate.Scale}
		tuner.Config.Cs = []float64{candidate.C}
	}
	return CrossValidateDivs(ctx, d, targets, tuner, config)
}

// CrossValidateDivs runs nested cross-validation over a precomputed divergence
// matrix: each outer fold is tuned on its training part with the inner folds of
// tuner, retrained with the best candidate and scored on its held-out part.
func CrossValidateDivs(ctx context.Context, d *divergence.Matrix, targets []float64, tuner *Tuner, config *CrossValidateConfig) (*CrossValidateResult, error) {
	config = config.LoadDefaultIfNil()
	fitConfig := tuner.FitConfig.LoadDefaultIfNil()
	logger := fitConfig.logger()
	n := len(targets)
	if !d.IsSquare() {
		return nil, errors.Annotatef(kernel.ErrNotSquare, "%dx%d", d.Rows, d.Cols)
	}
	if d.Rows != n {
		return nil, errors.Annotatef(dataset.ErrTargetCount, "%d targets for %d bags", n, d.Rows)
	}
	var (
		folds [][]int
		err   error
	)
	if config.Shuffle {
		folds, err = StratifiedFolds(tuner.Task, targets, config.Folds, config.Seed)
	} else {
		folds, err = ContiguousFolds(n, config.Folds)
	}
	if err != nil {
		return nil, errors.Trace(err)
	}

	// kernels of all examples shared by outer folds
	var (
		mu      sync.Mutex
		kernels = make(map[float64]*mat.SymDense)
	)
	fullKernel := func(scale float64) (*mat.SymDense, error) {
		mu.Lock()
		defer mu.Unlock()
		if k, ok := kernels[scale]; ok {
			return k, nil
		}
		k, err := tuner.Group.Matrix(d, scale)
		if err != nil {
			return nil, err
		}
		kernels[scale] = k
		return k, nil
	}

	// inner runs report to the log only
	inner := *tuner
	innerConfig := *fitConfig
	innerConfig.Reporter = nil
	inner.FitConfig = &innerConfig

	result := &CrossValidateResult{
		FoldScores:  make([]Score, len(folds)),
		Params:      make([]Candidate, len(folds)),
		Predictions: make([]float64, n),
		Folds:       folds,
	}
	tracker := progress.NewTracker("cross validate", len(folds), 1, progress.Serialize(fitConfig.Reporter))
	err = parallel.Parallel(ctx, len(folds), config.Threads, func(_, f int) error {
		test := folds[f]
		train := complement(n, test)
		trainTargets := pick(targets, train)
		dTrain := d.Sub(train, train)

		var kernelOf func(float64) (svm.Kernel, error)
		if config.ProjectAll {
			kernelOf = func(scale float64) (svm.Kernel, error) {
				k, err := fullKernel(scale)
				if err != nil {
					return nil, err
				}
				return svm.Subset(k, train), nil
			}
		} else {
			kernelOf = func(scale float64) (svm.Kernel, error) {
				return tuner.Group.Matrix(dTrain, scale)
			}
		}

		// select candidate
		var (
			candidate Candidate
			k         svm.Kernel
		)
		if cfg := inner.Config.LoadDefaultIfNil(); len(cfg.Scales) == 1 && len(cfg.Cs) == 1 {
			candidate = Candidate{Scale: cfg.Scales[0], C: cfg.Cs[0]}
		} else {
			tuned, err := inner.tune(ctx, dTrain, trainTargets, kernelOf)
			if err != nil {
				return errors.Annotatef(err, "outer fold %d", f)
			}
			candidate, k = tuned.Best, tuned.kernel
		}
		if k == nil {
			var err error
			if k, err = kernelOf(candidate.Scale); err != nil {
				return errors.Annotatef(err, "outer fold %d", f)
			}
		}

		// retrain and score
		params := tuner.SVM
		params.C = candidate.C
		trained, err := fitKernel(ctx, k, trainTargets, tuner.Task, params, logger, true)
		if err != nil {
			return &TrainError{Scale: candidate.Scale, C: candidate.C, Err: err}
		}
		var predictions *Predictions
		if config.ProjectAll {
			full, err := fullKernel(candidate.Scale)
			if err != nil {
				return errors.Trace(err)
			}
			predictions = trained.predictTraining(crossView{k: full, rows: test, cols: train}, nil)
		} else {
			rows, err := tuner.Group.CrossRows(d.Sub(test, train), d.Sub(train, test), candidate.Scale)
			if err != nil {
				return errors.Trace(err)
			}
			predictions = trained.predictTraining(rows, nil)
		}
		for i, idx := range test {
			result.Predictions[idx] = predictions.Values[i]
		}
		result.Params[f] = candidate
		result.FoldScores[f] = Evaluate(tuner.Task, pick(targets, test), predictions.Values)
		logger.Info("cross validate outer fold", append([]zap.Field{
			zap.Int("fold", f),
			zap.Float64("scale", candidate.Scale),
			zap.Float64("C", candidate.C),
		}, result.FoldScores[f].ZapFields()...)...)
		tracker.Add(1)
		return nil
	})
	if err != nil {
		tracker.Fail(err)
		return nil, errors.Trace(err)
	}
	tracker.End()
	result.Score = PoolScores(tuner.Task, result.FoldScores)
	return result, nil
}
