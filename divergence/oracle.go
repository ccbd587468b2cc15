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
	"context"

	"github.com/gorse-io/sdm/dataset"
	"golang.org/x/exp/constraints"
)

// Oracle estimates the divergence between two bags.
type Oracle[T constraints.Float] interface {
	Divergence(ctx context.Context, x, y dataset.Bag[T], fn Func) (float64, error)
}

// BatchOracle estimates a whole block of divergences at once, e.g. sharing nearest
// neighbor indexes across pairs. The returned matrix is len(xs) by len(ys).
type BatchOracle[T constraints.Float] interface {
	Estimate(ctx context.Context, xs, ys []dataset.Bag[T], fn Func) (*Matrix, error)
}

// OracleFunc adapts a plain function to Oracle.
type OracleFunc[T constraints.Float] func(x, y dataset.Bag[T], fn Func) (float64, error)

func (f OracleFunc[T]) Divergence(_ context.Context, x, y dataset.Bag[T], fn Func) (float64, error) {
	return f(x, y, fn)
}
