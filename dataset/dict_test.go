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

package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelDict(t *testing.T) {
	dict := NewLabelDict([]int{5, -1, 5, 3, 5, 3})
	assert.Equal(t, 3, dict.Count())
	assert.Equal(t, []int{-1, 3, 5}, dict.Labels())
	id, ok := dict.Id(5)
	assert.True(t, ok)
	assert.Equal(t, 2, id)
	_, ok = dict.Id(4)
	assert.False(t, ok)
	label, ok := dict.Label(1)
	assert.True(t, ok)
	assert.Equal(t, 3, label)
	_, ok = dict.Label(3)
	assert.False(t, ok)
	assert.Equal(t, 1, dict.Freq(0))
	assert.Equal(t, 2, dict.Freq(1))
	assert.Equal(t, 3, dict.Freq(2))
	assert.Equal(t, 0, dict.Freq(7))
}
