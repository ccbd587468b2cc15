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
	"sort"

	"github.com/gorse-io/sdm/base/log"
	"github.com/gorse-io/sdm/dataset"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// ClassPair indexes two classes of a classifier, Positive < Negative.
type ClassPair struct {
	Positive int
	Negative int
}

// PairModel is the binary machine separating one pair of classes. A positive
// decision value favors Pair.Positive.
type PairModel struct {
	Pair ClassPair
	// Support are positions in Classifier.Support.
	Support []int
	// Coef are y_i alpha_i of the support vectors.
	Coef      []float64
	Rho       float64
	Iter      int
	Converged bool
}

// Decision evaluates the decision function on a kernel row over Classifier.Support.
func (m *PairModel) Decision(row []float64) float64 {
	var sum float64
	for i, pos := range m.Support {
		sum += m.Coef[i] * row[pos]
	}
	return sum - m.Rho
}

type svcQ struct {
	k []float64
	n int
	y []int8
}

func (q svcQ) Len() int {
	return q.n
}

func (q svcQ) At(i, j int) float64 {
	return float64(q.y[i]*q.y[j]) * q.k[i*q.n+j]
}

// Classifier is a one-vs-one multi-class support vector classifier. Pairs are
// ordered (0,1), (0,2), ..., (1,2), ... over label indices.
type Classifier struct {
	// Labels are the distinct class labels in ascending order.
	Labels []int
	// Support are indices of support vectors in the training set, ascending.
	Support []int
	Pairs   []PairModel
}

// TrainClassifier trains k(k-1)/2 binary machines on a precomputed kernel matrix
// over len(labels) training examples.
func TrainClassifier(ctx context.Context, k Kernel, labels []int, params Params, logger *zap.Logger) (*Classifier, error) {
	logger = log.OrDefault(logger)
	params = params.withDefaults()
	if err := params.validate(); err != nil {
		return nil, errors.Trace(err)
	}
	n := len(labels)
	dict := dataset.NewLabelDict(labels)
	if dict.Count() < 2 {
		return nil, errors.Annotatef(ErrTooFewClasses, "got %d", dict.Count())
	}
	if err := checkShape(k, n); err != nil {
		return nil, errors.Trace(err)
	}
	kd, err := dense(k, n)
	if err != nil {
		return nil, errors.Trace(err)
	}

	// group examples by class
	groups := make([][]int, dict.Count())
	for i, label := range labels {
		c, _ := dict.Id(label)
		groups[c] = append(groups[c], i)
	}

	type binary struct {
		pair    ClassPair
		support []int
		coef    []float64
		sol     *solution
	}
	var machines []binary
	isSupport := make([]bool, n)
	for p := 0; p < dict.Count(); p++ {
		for q := p + 1; q < dict.Count(); q++ {
			idx := append(append([]int(nil), groups[p]...), groups[q]...)
			l := len(idx)
			sub := make([]float64, l*l)
			y := make([]int8, l)
			minusOnes := make([]float64, l)
			for a := 0; a < l; a++ {
				y[a] = -1
				if a < len(groups[p]) {
					y[a] = +1
				}
				minusOnes[a] = -1
				for b := 0; b < l; b++ {
					sub[a*l+b] = kd[idx[a]*n+idx[b]]
				}
			}
			sol, err := solve(ctx, svcQ{k: sub, n: l, y: y}, minusOnes, y, params.C, params.C, params)
			if err != nil {
				return nil, errors.Trace(err)
			}
			pair := ClassPair{Positive: p, Negative: q}
			if !sol.converged {
				logger.Warn("svm reached max iterations",
					zap.Int("positive", dict.Labels()[p]),
					zap.Int("negative", dict.Labels()[q]),
					zap.Int("iter", sol.iter))
			}
			m := binary{pair: pair, sol: sol}
			for a, alpha := range sol.alpha {
				if alpha > 0 {
					m.support = append(m.support, idx[a])
					m.coef = append(m.coef, float64(y[a])*alpha)
					isSupport[idx[a]] = true
				}
			}
			machines = append(machines, m)
		}
	}

	// compact support vectors shared by pairs
	c := &Classifier{Labels: dict.Labels()}
	position := make(map[int]int)
	for i, ok := range isSupport {
		if ok {
			position[i] = len(c.Support)
			c.Support = append(c.Support, i)
		}
	}
	for _, m := range machines {
		pm := PairModel{
			Pair:      m.pair,
			Coef:      m.coef,
			Rho:       m.sol.rho,
			Iter:      m.sol.iter,
			Converged: m.sol.converged,
		}
		for _, i := range m.support {
			pm.Support = append(pm.Support, position[i])
		}
		c.Pairs = append(c.Pairs, pm)
	}
	sort.Slice(c.Pairs, func(a, b int) bool {
		if c.Pairs[a].Pair.Positive != c.Pairs[b].Pair.Positive {
			return c.Pairs[a].Pair.Positive < c.Pairs[b].Pair.Positive
		}
		return c.Pairs[a].Pair.Negative < c.Pairs[b].Pair.Negative
	})
	logger.Debug("svm classifier trained",
		zap.Int("classes", len(c.Labels)),
		zap.Int("examples", n),
		zap.Int("support", len(c.Support)))
	return c, nil
}

// Decision returns the decision values of all pairs on a kernel row over Support.
func (c *Classifier) Decision(row []float64) []float64 {
	values := make([]float64, len(c.Pairs))
	for i := range c.Pairs {
		values[i] = c.Pairs[i].Decision(row)
	}
	return values
}

// Predict votes over pairs. Each pair votes for its positive class when the
// decision value is positive and for its negative class otherwise. The class with
// most votes wins, and ties go to the lower label.
func (c *Classifier) Predict(row []float64) (int, []float64) {
	values := c.Decision(row)
	votes := make([]int, len(c.Labels))
	for i, pm := range c.Pairs {
		if values[i] > 0 {
			votes[pm.Pair.Positive]++
		} else {
			votes[pm.Pair.Negative]++
		}
	}
	best := 0
	for i := 1; i < len(votes); i++ {
		if votes[i] > votes[best] {
			best = i
		}
	}
	return c.Labels[best], values
}
