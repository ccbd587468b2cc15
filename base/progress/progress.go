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

package progress

import (
	"sync"
	"time"

	"go.uber.org/atomic"
)

type Status string

const (
	StatusPending  Status = "Pending"
	StatusComplete Status = "Complete"
	StatusRunning  Status = "Running"
	StatusFailed   Status = "Failed"
)

// Reporter receives progress of a long-running computation. Progress may be called
// concurrently from several workers, so implementations must be safe for concurrent use.
type Reporter interface {
	Progress(completed, total int)
}

// Func adapts a plain function to Reporter.
type Func func(completed, total int)

func (f Func) Progress(completed, total int) {
	f(completed, total)
}

// Tracker counts completed units of work and notifies a reporter every stride units
// and once more when the total is reached.
type Tracker struct {
	name     string
	total    int
	stride   int
	reporter Reporter
	count    atomic.Int64

	mu     sync.Mutex
	status Status
	err    error
	start  time.Time
	finish time.Time
}

// NewTracker creates a running tracker. A nil reporter disables notifications and a
// non-positive stride reports only on completion.
func NewTracker(name string, total, stride int, reporter Reporter) *Tracker {
	return &Tracker{
		name:     name,
		total:    total,
		stride:   stride,
		reporter: reporter,
		status:   StatusRunning,
		start:    time.Now(),
	}
}

func (t *Tracker) Add(n int) {
	if n <= 0 {
		return
	}
	after := int(t.count.Add(int64(n)))
	before := after - n
	if t.reporter == nil {
		return
	}
	crossed := t.stride > 0 && after/t.stride > before/t.stride
	if crossed || (after >= t.total && before < t.total) {
		t.reporter.Progress(after, t.total)
	}
}

func (t *Tracker) Count() int {
	return int(t.count.Load())
}

func (t *Tracker) End() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = StatusComplete
	t.finish = time.Now()
}

func (t *Tracker) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = StatusFailed
	t.err = err
	t.finish = time.Now()
}

// Progress returns a snapshot of the tracker.
func (t *Tracker) Progress() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := Progress{
		Name:       t.name,
		Status:     t.status,
		Count:      t.Count(),
		Total:      t.total,
		StartTime:  t.start,
		FinishTime: t.finish,
	}
	if t.err != nil {
		p.Error = t.err.Error()
	}
	return p
}

type Progress struct {
	Name       string
	Status     Status
	Error      string
	Count      int
	Total      int
	StartTime  time.Time
	FinishTime time.Time
}

// Serialize wraps a reporter so that calls never overlap and stale counts, which
// arrive late from slower workers, are dropped.
func Serialize(r Reporter) Reporter {
	if r == nil {
		return nil
	}
	return &serialized{reporter: r}
}

type serialized struct {
	mu       sync.Mutex
	reporter Reporter
	last     int
}

func (s *serialized) Progress(completed, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if completed < s.last {
		return
	}
	s.last = completed
	s.reporter.Progress(completed, total)
}

// Multi fans progress out to several reporters. Nil reporters are skipped.
func Multi(reporters ...Reporter) Reporter {
	var rs []Reporter
	for _, r := range reporters {
		if r != nil {
			rs = append(rs, r)
		}
	}
	if len(rs) == 0 {
		return nil
	}
	return Func(func(completed, total int) {
		for _, r := range rs {
			r.Progress(completed, total)
		}
	})
}
