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

package model

import (
	"fmt"

	"github.com/gorse-io/sdm/base/log"
	"go.uber.org/zap"
)

// ParamName is the type of hyper-parameter names.
type ParamName string

const (
	Scale       ParamName = "Scale"       // kernel scale
	C           ParamName = "C"           // regularization strength
	Epsilon     ParamName = "Epsilon"     // width of the insensitive tube of regression
	Tolerance   ParamName = "Tolerance"   // stopping tolerance of the solver
	MaxIter     ParamName = "MaxIter"     // maximum number of solver iterations
	RandomState ParamName = "RandomState" // random state (seed)
)

// Params stores hyper-parameters for a model. A parameter that is set is fixed,
// the others are tuned or take their defaults. For example, a gaussian kernel
// machine with fixed hyper-parameters is given by:
//
//	model.Params{
//		model.Scale: 0.5,
//		model.C:     8.0,
//	}
type Params map[ParamName]any

// Copy hyper-parameters.
func (params Params) Copy() Params {
	copied := make(Params, len(params))
	for name, value := range params {
		copied[name] = value
	}
	return copied
}

// Float64 returns a numeric parameter and whether it is set.
func (params Params) Float64(name ParamName) (float64, bool) {
	value, exist := params[name]
	if !exist {
		return 0, false
	}
	switch value := value.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	}
	mismatch(name, "float64", value)
	return 0, false
}

// GetFloat64 returns a numeric parameter or _default if not set or not numeric.
func (params Params) GetFloat64(name ParamName, _default float64) float64 {
	if value, ok := params.Float64(name); ok {
		return value
	}
	return _default
}

// GetInt64 returns an integer parameter or _default if not set or not an integer.
func (params Params) GetInt64(name ParamName, _default int64) int64 {
	value, exist := params[name]
	if !exist {
		return _default
	}
	switch value := value.(type) {
	case int64:
		return value
	case int:
		return int64(value)
	}
	mismatch(name, "int", value)
	return _default
}

func (params Params) GetInt(name ParamName, _default int) int {
	return int(params.GetInt64(name, int64(_default)))
}

func mismatch(name ParamName, expect string, value any) {
	log.Logger().Error("type mismatch",
		zap.String("param", string(name)),
		zap.String("expect", expect),
		zap.String("actual", fmt.Sprintf("%T", value)))
}

// ParamsGrid contains candidates for grid search. Candidates of one parameter are
// tried in the given order.
type ParamsGrid map[ParamName][]any

func (grid ParamsGrid) NumCombinations() int {
	count := 1
	for _, values := range grid {
		count *= len(values)
	}
	return count
}

// Floats returns candidates of a parameter as float64s. Non-numeric candidates are skipped.
func (grid ParamsGrid) Floats(name ParamName) []float64 {
	floats := make([]float64, 0, len(grid[name]))
	for _, value := range grid[name] {
		if f, ok := (Params{name: value}).Float64(name); ok {
			floats = append(floats, f)
		}
	}
	return floats
}
