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
	"github.com/gorse-io/sdm/kernel"
	"github.com/gorse-io/sdm/svm"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Trained is the fitted solver state. Exactly one of Classifier and Regressor is set.
type Trained struct {
	Classifier *svm.Classifier
	Regressor  *svm.Regressor
}

// Fit trains on kernel k over len(targets) examples with params.C. The kernel
// must be square, symmetric and PSD up to kernel.DefaultTolerance.
func Fit(ctx context.Context, k svm.Kernel, targets []float64, task Task, params svm.Params, logger *zap.Logger) (*Trained, error) {
	return fitKernel(ctx, k, targets, task, params, logger, false)
}

// fitKernel skips the kernel checks if projected, i.e. k is a principal submatrix
// of a matrix returned by kernel.Group.Matrix.
func fitKernel(ctx context.Context, k svm.Kernel, targets []float64, task Task, params svm.Params,
	logger *zap.Logger, projected bool) (*Trained, error) {
	if !projected {
		n := len(targets)
		d, err := svm.Symmetric(k, n, kernel.DefaultTolerance)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if n > 0 {
			if err = kernel.CheckPSD(mat.NewSymDense(n, d), kernel.DefaultTolerance); err != nil {
				return nil, errors.Trace(err)
			}
		}
	}
	switch task {
	case Classification:
		labels, err := dataset.IntLabels(targets)
		if err != nil {
			return nil, errors.Trace(err)
		}
		c, err := svm.TrainClassifier(ctx, k, labels, params, logger)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return &Trained{Classifier: c}, nil
	case Regression:
		r, err := svm.TrainRegressor(ctx, k, targets, params, logger)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return &Trained{Regressor: r}, nil
	}
	return nil, errors.Errorf("unknown task %q", task)
}

// Support returns training indices of support vectors.
func (t *Trained) Support() []int {
	if t.Classifier != nil {
		return t.Classifier.Support
	}
	return t.Regressor.Support
}

// Predict evaluates one kernel row over Support. The value is the predicted label
// for classification.
func (t *Trained) Predict(row []float64) (float64, []float64) {
	if t.Classifier != nil {
		label, decisions := t.Classifier.Predict(row)
		return float64(label), decisions
	}
	v := t.Regressor.Predict(row)
	return v, []float64{v}
}

// Predictions of a batch of bags.
type Predictions struct {
	// Labels are predicted classes, nil for regression.
	Labels []int
	// Values are predicted labels as floats or regression values.
	Values []float64
	// Decisions are one-vs-one decision values in pair order for classification, or
	// the single regression value.
	Decisions [][]float64
}

// Rows is a matrix of kernel values between new bags (rows) and training bags.
type Rows interface {
	Dims() (r, c int)
	At(i, j int) float64
}

// predict evaluates kernel rows. column maps the j-th support vector to its
// column in rows.
func (t *Trained) predict(rows Rows, column func(j int) int) *Predictions {
	n, _ := rows.Dims()
	support := t.Support()
	p := &Predictions{
		Values:    make([]float64, n),
		Decisions: make([][]float64, n),
	}
	if t.Classifier != nil {
		p.Labels = make([]int, n)
	}
	for i := 0; i < n; i++ {
		row := make([]float64, len(support))
		for j := range support {
			row[j] = rows.At(i, column(j))
		}
		p.Values[i], p.Decisions[i] = t.Predict(row)
		if p.Labels != nil {
			p.Labels[i] = int(p.Values[i])
		}
	}
	return p
}

// predictTraining evaluates rows whose columns are training examples. The i-th
// training example is column cols[i], or column i when cols is nil.
func (t *Trained) predictTraining(rows Rows, cols []int) *Predictions {
	support := t.Support()
	return t.predict(rows, func(j int) int {
		if cols == nil {
			return support[j]
		}
		return cols[support[j]]
	})
}

// predictSupport evaluates rows whose columns are the support vectors in order.
func (t *Trained) predictSupport(rows Rows) *Predictions {
	return t.predict(rows, func(j int) int {
		return j
	})
}

// crossView views k at the given rows and columns.
type crossView struct {
	k    svm.Kernel
	rows []int
	cols []int
}

func (v crossView) Dims() (int, int) {
	return len(v.rows), len(v.cols)
}

func (v crossView) At(i, j int) float64 {
	return v.k.At(v.rows[i], v.cols[j])
}
