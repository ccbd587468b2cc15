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

// Model is implemented by estimators with hyper-parameters.
type Model interface {
	SetParams(params Params)
	GetParams() Params
	// GetParamsGrid returns candidates of the hyper-parameters that are tuned.
	GetParamsGrid() ParamsGrid
}

// BaseModel keeps the hyper-parameters of a model.
type BaseModel struct {
	Params Params
}

// SetParams sets hyper-parameters. Later changes to params do not affect the model.
func (m *BaseModel) SetParams(params Params) {
	m.Params = params.Copy()
}

func (m *BaseModel) GetParams() Params {
	return m.Params
}

// GetRandomState returns the random seed, 0 if not set.
func (m *BaseModel) GetRandomState() int64 {
	return m.Params.GetInt64(RandomState, 0)
}

// Fixed reports whether all of the given hyper-parameters are set.
func (m *BaseModel) Fixed(names ...ParamName) bool {
	for _, name := range names {
		if _, ok := m.Params.Float64(name); !ok {
			return false
		}
	}
	return true
}
