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

	"github.com/gorse-io/sdm/base/log"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

type svrQ struct {
	k []float64
	n int
}

func (q svrQ) Len() int {
	return 2 * q.n
}

// At folds the 2n variables (alpha+, alpha-) onto the n by n kernel.
func (q svrQ) At(i, j int) float64 {
	v := q.k[(i%q.n)*q.n+j%q.n]
	if (i < q.n) != (j < q.n) {
		return -v
	}
	return v
}

// Regressor is an epsilon support vector regressor.
type Regressor struct {
	// Support are indices of support vectors in the training set, ascending.
	Support   []int
	Coef      []float64
	Rho       float64
	Iter      int
	Converged bool
}

func TrainRegressor(ctx context.Context, k Kernel, targets []float64, params Params, logger *zap.Logger) (*Regressor, error) {
	logger = log.OrDefault(logger)
	params = params.withDefaults()
	if err := params.validate(); err != nil {
		return nil, errors.Trace(err)
	}
	n := len(targets)
	if n == 0 {
		return nil, errors.Annotate(ErrKernelShape, "no training examples")
	}
	if err := checkShape(k, n); err != nil {
		return nil, errors.Trace(err)
	}
	kd, err := dense(k, n)
	if err != nil {
		return nil, errors.Trace(err)
	}
	linear := make([]float64, 2*n)
	y := make([]int8, 2*n)
	for i, t := range targets {
		linear[i] = params.Epsilon - t
		y[i] = 1
		linear[i+n] = params.Epsilon + t
		y[i+n] = -1
	}
	sol, err := solve(ctx, svrQ{k: kd, n: n}, linear, y, params.C, params.C, params)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if !sol.converged {
		logger.Warn("svm reached max iterations", zap.Int("iter", sol.iter))
	}
	r := &Regressor{Rho: sol.rho, Iter: sol.iter, Converged: sol.converged}
	for i := 0; i < n; i++ {
		if coef := sol.alpha[i] - sol.alpha[i+n]; coef != 0 {
			r.Support = append(r.Support, i)
			r.Coef = append(r.Coef, coef)
		}
	}
	logger.Debug("svm regressor trained", zap.Int("examples", n), zap.Int("support", len(r.Support)))
	return r, nil
}

// Predict evaluates the regression function on a kernel row over Support.
func (r *Regressor) Predict(row []float64) float64 {
	var sum float64
	for i, coef := range r.Coef {
		sum += coef * row[i]
	}
	return sum - r.Rho
}
