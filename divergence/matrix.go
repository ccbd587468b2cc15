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

package divergence

import (
	"math"

	"github.com/juju/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	ErrInvalidDivergence = errors.ConstError("invalid divergence")
	ErrShape             = errors.ConstError("matrix shape mismatch")
)

// Matrix is a dense row-major matrix of divergences. Entry (i, j) is the
// divergence from the i-th bag of the row set to the j-th bag of the column set.
type Matrix struct {
	Rows int
	Cols int
	Data []float64
}

func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// NewMatrixFrom copies a slice of rows. All rows must have the same length.
func NewMatrixFrom(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 {
		return NewMatrix(0, 0), nil
	}
	m := NewMatrix(len(rows), len(rows[0]))
	for i, row := range rows {
		if len(row) != m.Cols {
			return nil, errors.Annotatef(ErrShape, "row %d has %d columns, expect %d", i, len(row), m.Cols)
		}
		copy(m.Data[i*m.Cols:], row)
	}
	return m, nil
}

func (m *Matrix) At(i, j int) float64 {
	return m.Data[i*m.Cols+j]
}

func (m *Matrix) Set(i, j int, v float64) {
	m.Data[i*m.Cols+j] = v
}

func (m *Matrix) Row(i int) []float64 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

func (m *Matrix) IsSquare() bool {
	return m.Rows == m.Cols
}

// Sub copies the block at the given row and column indices.
func (m *Matrix) Sub(rows, cols []int) *Matrix {
	s := NewMatrix(len(rows), len(cols))
	for i, r := range rows {
		for j, c := range cols {
			s.Data[i*s.Cols+j] = m.Data[r*m.Cols+c]
		}
	}
	return s
}

// T returns the transpose.
func (m *Matrix) T() *Matrix {
	t := NewMatrix(m.Cols, m.Rows)
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			t.Data[j*t.Cols+i] = m.Data[i*m.Cols+j]
		}
	}
	return t
}

func (m *Matrix) Clone() *Matrix {
	return &Matrix{Rows: m.Rows, Cols: m.Cols, Data: append([]float64(nil), m.Data...)}
}

func (m *Matrix) ToRows() [][]float64 {
	rows := make([][]float64, m.Rows)
	for i := range rows {
		rows[i] = append([]float64(nil), m.Row(i)...)
	}
	return rows
}

// Dense wraps the matrix without copying.
func (m *Matrix) Dense() *mat.Dense {
	if m.Rows == 0 || m.Cols == 0 {
		return &mat.Dense{}
	}
	return mat.NewDense(m.Rows, m.Cols, m.Data)
}

// Validate rejects non-finite entries. Negative entries are estimation noise and
// are left to the kernel projection.
func (m *Matrix) Validate() error {
	if len(m.Data) != m.Rows*m.Cols {
		return errors.Annotatef(ErrShape, "%d entries for %dx%d", len(m.Data), m.Rows, m.Cols)
	}
	for k, v := range m.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Annotatef(ErrInvalidDivergence, "entry (%d, %d) is %v", k/m.Cols, k%m.Cols, v)
		}
	}
	return nil
}

// ZeroDiagonal sets self-divergences of a square matrix to exactly zero.
func (m *Matrix) ZeroDiagonal() {
	for i := 0; i < m.Rows && i < m.Cols; i++ {
		m.Data[i*m.Cols+i] = 0
	}
}
