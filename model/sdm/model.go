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
	"github.com/gorse-io/sdm/dataset"
	"github.com/gorse-io/sdm/divergence"
	"github.com/gorse-io/sdm/kernel"
	"github.com/gorse-io/sdm/svm"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"golang.org/x/exp/constraints"
)

// Model is a trained support distribution machine. It keeps the support bags by
// value so that new bags can be predicted without the training set. A model is
// never modified after training.
type Model[T constraints.Float] struct {
	Task    Task
	DivFunc divergence.Func
	Kernel  string
	Scale   float64
	C       float64
	SVM     svm.Params
	// Support holds the support bags in the column order of Trained.
	Support *dataset.BagSet[T]
	// SupportIndex are the positions of the support bags in the training set.
	SupportIndex []int
	TrainSize    int
	Trained      *Trained

	group *kernel.Group
}

func newModel[T constraints.Float](task Task, fn divergence.Func, group *kernel.Group, train *dataset.BagSet[T],
	candidate Candidate, params svm.Params, trained *Trained) *Model[T] {
	support := trained.Support()
	return &Model[T]{
		Task:         task,
		DivFunc:      fn,
		Kernel:       group.Name(),
		Scale:        candidate.Scale,
		C:            candidate.C,
		SVM:          params,
		Support:      train.Subset(support),
		SupportIndex: append([]int(nil), support...),
		TrainSize:    train.Len(),
		Trained:      trained,
		group:        group,
	}
}

// Labels returns class labels in ascending order, nil for regression.
func (m *Model[T]) Labels() []int {
	if m.Trained.Classifier == nil {
		return nil
	}
	return m.Trained.Classifier.Labels
}

// NumDecisions is the length of a decision value vector.
func (m *Model[T]) NumDecisions() int {
	if m.Trained.Classifier == nil {
		return 1
	}
	return len(m.Trained.Classifier.Pairs)
}

// PredictDivs predicts new bags from divergences dxy between the new bags (rows) and
// the support bags (columns). dyx holds the divergences in the other direction and
// may be nil for symmetric divergence functions.
func (m *Model[T]) PredictDivs(dxy, dyx *divergence.Matrix) (*Predictions, error) {
	if dxy.Cols != m.Support.Len() {
		return nil, errors.Annotatef(divergence.ErrShape, "expect %d support columns, got %d", m.Support.Len(), dxy.Cols)
	}
	for _, d := range []*divergence.Matrix{dxy, dyx} {
		if d == nil {
			continue
		}
		if err := d.Validate(); err != nil {
			return nil, errors.Trace(err)
		}
	}
	if dxy.Rows == 0 || dxy.Cols == 0 {
		return m.Trained.predictSupport(emptyRows(dxy.Rows)), nil
	}
	rows, err := m.group.CrossRows(dxy, dyx, m.Scale)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return m.Trained.predictSupport(rows), nil
}

// PredictTrainDivs is PredictDivs with divergences against the whole training set:
// dxy has one column per training bag and dyx, if not nil, one row per training bag.
func (m *Model[T]) PredictTrainDivs(dxy, dyx *divergence.Matrix) (*Predictions, error) {
	if dxy.Cols != m.TrainSize {
		return nil, errors.Annotatef(divergence.ErrShape, "expect %d training columns, got %d", m.TrainSize, dxy.Cols)
	}
	sub := dxy.Sub(lo.Range(dxy.Rows), m.SupportIndex)
	if dyx != nil {
		if dyx.Rows != m.TrainSize || dyx.Cols != dxy.Rows {
			return nil, errors.Annotatef(divergence.ErrShape, "expect %dx%d reverse divergences, got %dx%d",
				m.TrainSize, dxy.Rows, dyx.Rows, dyx.Cols)
		}
		dyx = dyx.Sub(m.SupportIndex, lo.Range(dyx.Cols))
	}
	return m.PredictDivs(sub, dyx)
}

// emptyRows are kernel rows without support columns.
type emptyRows int

func (r emptyRows) Dims() (int, int) {
	return int(r), 0
}

func (r emptyRows) At(_, _ int) float64 {
	panic("no support column")
}
