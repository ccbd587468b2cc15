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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseModel(t *testing.T) {
	params := Params{RandomState: 7, C: 2.0}
	var m BaseModel
	m.SetParams(params)
	params[Scale] = 1.0
	assert.Equal(t, int64(7), m.GetRandomState())
	assert.Equal(t, Params{RandomState: 7, C: 2.0}, m.GetParams())
	assert.True(t, m.Fixed(C))
	assert.False(t, m.Fixed(C, Scale))
	assert.True(t, m.Fixed())

	m.SetParams(nil)
	assert.Zero(t, m.GetRandomState())
	assert.False(t, m.Fixed(C))
}
