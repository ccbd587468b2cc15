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
	"sort"

	"modernc.org/sortutil"
)

// LabelDict maps class labels to dense indices in ascending label order and counts
// the examples of each class.
type LabelDict struct {
	labels []int
	index  map[int]int
	counts []int
}

func NewLabelDict(labels []int) *LabelDict {
	distinct := sort.IntSlice(append([]int(nil), labels...))
	sort.Sort(distinct)
	d := &LabelDict{labels: distinct[:sortutil.Dedupe(distinct)], index: make(map[int]int)}
	d.counts = make([]int, len(d.labels))
	for i, label := range d.labels {
		d.index[label] = i
	}
	for _, label := range labels {
		d.counts[d.index[label]]++
	}
	return d
}

func (d *LabelDict) Count() int {
	return len(d.labels)
}

// Labels returns distinct labels in ascending order.
func (d *LabelDict) Labels() []int {
	return d.labels
}

func (d *LabelDict) Id(label int) (int, bool) {
	i, ok := d.index[label]
	return i, ok
}

func (d *LabelDict) Label(id int) (int, bool) {
	if id < 0 || id >= len(d.labels) {
		return 0, false
	}
	return d.labels[id], true
}

func (d *LabelDict) Freq(id int) int {
	if id < 0 || id >= len(d.counts) {
		return 0
	}
	return d.counts[id]
}
