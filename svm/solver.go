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

	"github.com/juju/errors"
)

const (
	lowerBound = int8(0)
	upperBound = int8(1)
	free       = int8(2)
)

// qMatrix is the Hessian of the dual problem, Q[i][j] = y[i] y[j] K(i, j).
type qMatrix interface {
	Len() int
	At(i, j int) float64
}

type solution struct {
	alpha     []float64
	rho       float64
	obj       float64
	iter      int
	converged bool
}

// solver minimizes 0.5 a'Qa + p'a subject to y'a = 0 and 0 <= a[i] <= C[i] with
// sequential minimal optimization. Working sets are chosen by second order
// information. There is no shrinking: kernel matrices here are precomputed and small.
type solver struct {
	l      int
	q      qMatrix
	qd     []float64
	p      []float64
	y      []int8
	alpha  []float64
	status []int8
	g      []float64
	cp, cn float64
	eps    float64
}

func (s *solver) c(i int) float64 {
	if s.y[i] > 0 {
		return s.cp
	}
	return s.cn
}

func (s *solver) updateStatus(i int) {
	if s.alpha[i] >= s.c(i) {
		s.status[i] = upperBound
	} else if s.alpha[i] <= 0 {
		s.status[i] = lowerBound
	} else {
		s.status[i] = free
	}
}

func (s *solver) isUpper(i int) bool { return s.status[i] == upperBound }
func (s *solver) isLower(i int) bool { return s.status[i] == lowerBound }

func solve(ctx context.Context, q qMatrix, p []float64, y []int8, cp, cn float64, params Params) (*solution, error) {
	l := q.Len()
	s := &solver{
		l:      l,
		q:      q,
		qd:     make([]float64, l),
		p:      p,
		y:      y,
		alpha:  make([]float64, l),
		status: make([]int8, l),
		g:      make([]float64, l),
		cp:     cp,
		cn:     cn,
		eps:    params.Tolerance,
	}
	for i := 0; i < l; i++ {
		s.qd[i] = q.At(i, i)
		s.updateStatus(i)
		// alpha starts at zero, so the gradient is p
		s.g[i] = p[i]
	}

	maxIter := params.MaxIter
	if maxIter <= 0 {
		maxIter = max(10000000, 100*l)
	}
	iter := 0
	converged := false
	for iter < maxIter {
		if iter%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, errors.Trace(err)
			}
		}
		i, j, ok := s.selectWorkingSet()
		if !ok {
			converged = true
			break
		}
		iter++
		s.step(i, j)
	}

	sol := &solution{alpha: s.alpha, rho: s.rho(), iter: iter, converged: converged}
	for i := 0; i < l; i++ {
		sol.obj += s.alpha[i] * (s.g[i] + s.p[i])
	}
	sol.obj /= 2
	return sol, nil
}

// step updates alpha[i] and alpha[j] analytically, keeping y'a fixed and both
// variables inside their boxes, then updates the gradient.
func (s *solver) step(i, j int) {
	ci, cj := s.c(i), s.c(j)
	oldI, oldJ := s.alpha[i], s.alpha[j]
	qij := s.q.At(i, j)

	if s.y[i] != s.y[j] {
		quad := s.qd[i] + s.qd[j] + 2*qij
		if quad <= 0 {
			quad = tau
		}
		delta := (-s.g[i] - s.g[j]) / quad
		diff := s.alpha[i] - s.alpha[j]
		s.alpha[i] += delta
		s.alpha[j] += delta
		if diff > 0 {
			if s.alpha[j] < 0 {
				s.alpha[j] = 0
				s.alpha[i] = diff
			}
		} else if s.alpha[i] < 0 {
			s.alpha[i] = 0
			s.alpha[j] = -diff
		}
		if diff > ci-cj {
			if s.alpha[i] > ci {
				s.alpha[i] = ci
				s.alpha[j] = ci - diff
			}
		} else if s.alpha[j] > cj {
			s.alpha[j] = cj
			s.alpha[i] = cj + diff
		}
	} else {
		quad := s.qd[i] + s.qd[j] - 2*qij
		if quad <= 0 {
			quad = tau
		}
		delta := (s.g[i] - s.g[j]) / quad
		sum := s.alpha[i] + s.alpha[j]
		s.alpha[i] -= delta
		s.alpha[j] += delta
		if sum > ci {
			if s.alpha[i] > ci {
				s.alpha[i] = ci
				s.alpha[j] = sum - ci
			}
		} else if s.alpha[j] < 0 {
			s.alpha[j] = 0
			s.alpha[i] = sum
		}
		if sum > cj {
			if s.alpha[j] > cj {
				s.alpha[j] = cj
				s.alpha[i] = sum - cj
			}
		} else if s.alpha[i] < 0 {
			s.alpha[i] = 0
			s.alpha[j] = sum
		}
	}

	deltaI := s.alpha[i] - oldI
	deltaJ := s.alpha[j] - oldJ
	for k := 0; k < s.l; k++ {
		s.g[k] += s.q.At(i, k)*deltaI + s.q.At(j, k)*deltaJ
	}
	s.updateStatus(i)
	s.updateStatus(j)
}

const tau = 1e-12

// selectWorkingSet returns the maximal violating i and the j giving the largest
// decrease of the objective. ok is false once the duality gap is below eps.
func (s *solver) selectWorkingSet() (int, int, bool) {
	gmax, gmax2 := math.Inf(-1), math.Inf(-1)
	gmaxIdx, gminIdx := -1, -1
	objDiffMin := math.Inf(1)

	for t := 0; t < s.l; t++ {
		if s.y[t] == +1 {
			if !s.isUpper(t) && -s.g[t] >= gmax {
				gmax = -s.g[t]
				gmaxIdx = t
			}
		} else if !s.isLower(t) && s.g[t] >= gmax {
			gmax = s.g[t]
			gmaxIdx = t
		}
	}
	i := gmaxIdx
	if i == -1 {
		return 0, 0, false
	}

	for j := 0; j < s.l; j++ {
		var gradDiff, quad float64
		if s.y[j] == +1 {
			if s.isLower(j) {
				continue
			}
			gradDiff = gmax + s.g[j]
			if s.g[j] >= gmax2 {
				gmax2 = s.g[j]
			}
			quad = s.qd[i] + s.qd[j] - 2*float64(s.y[i])*s.q.At(i, j)
		} else {
			if s.isUpper(j) {
				continue
			}
			gradDiff = gmax - s.g[j]
			if -s.g[j] >= gmax2 {
				gmax2 = -s.g[j]
			}
			quad = s.qd[i] + s.qd[j] + 2*float64(s.y[i])*s.q.At(i, j)
		}
		if gradDiff > 0 {
			if quad <= 0 {
				quad = tau
			}
			objDiff := -(gradDiff * gradDiff) / quad
			if objDiff <= objDiffMin {
				gminIdx = j
				objDiffMin = objDiff
			}
		}
	}

	if gmax+gmax2 < s.eps || gminIdx == -1 {
		return 0, 0, false
	}
	return i, gminIdx, true
}

func (s *solver) rho() float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	var (
		nFree   int
		sumFree float64
	)
	for i := 0; i < s.l; i++ {
		yg := float64(s.y[i]) * s.g[i]
		switch {
		case s.isLower(i):
			if s.y[i] > 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		case s.isUpper(i):
			if s.y[i] < 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		default:
			nFree++
			sumFree += yg
		}
	}
	if nFree > 0 {
		return sumFree / float64(nFree)
	}
	return (ub + lb) / 2
}
