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
	"runtime"
	"strings"
	"time"

	"github.com/gorse-io/sdm/base/log"
	"github.com/gorse-io/sdm/base/progress"
	"github.com/gorse-io/sdm/common/parallel"
	"github.com/gorse-io/sdm/dataset"
	"github.com/jellydator/ttlcache/v3"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/exp/constraints"
	"golang.org/x/sync/singleflight"
)

const DefaultCapacity = 16

// Options of one divergence computation.
type Options struct {
	// Threads is the number of workers calling the oracle. Non-positive means
	// runtime.NumCPU().
	Threads int
	// Stride is the number of completed pairs between two progress reports.
	Stride int
	// Batch is the number of pairs a worker takes at once. Non-positive means 1.
	Batch int
	// Reporter receives progress. It is called from worker goroutines.
	Reporter progress.Reporter
}

func (o Options) threads() int {
	if o.Threads > 0 {
		return o.Threads
	}
	return runtime.NumCPU()
}

type CacheOption func(*cacheOptions)

type cacheOptions struct {
	capacity uint64
	ttl      time.Duration
	logger   *zap.Logger
}

func WithCapacity(capacity uint64) CacheOption {
	return func(o *cacheOptions) {
		o.capacity = capacity
	}
}

func WithTTL(ttl time.Duration) CacheOption {
	return func(o *cacheOptions) {
		o.ttl = ttl
	}
}

func WithLogger(logger *zap.Logger) CacheOption {
	return func(o *cacheOptions) {
		o.logger = logger
	}
}

// Cache computes divergence matrices through an oracle and memoizes them by
// (row set, column set, divergence function). Cached matrices are shared and must
// be treated as read-only.
type Cache[T constraints.Float] struct {
	oracle Oracle[T]
	store  *ttlcache.Cache[string, *Matrix]
	group  singleflight.Group
	logger *zap.Logger
}

func NewCache[T constraints.Float](oracle Oracle[T], opts ...CacheOption) *Cache[T] {
	o := cacheOptions{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[T]{
		oracle: oracle,
		store: ttlcache.New[string, *Matrix](
			ttlcache.WithCapacity[string, *Matrix](o.capacity),
			ttlcache.WithTTL[string, *Matrix](o.ttl),
		),
		logger: log.OrDefault(o.logger),
	}
}

func cacheKey(rowSet, colSet string, fn Func) string {
	return rowSet + "|" + colSet + "|" + fn.String()
}

// Compute returns the divergence matrix between the bags of a (rows) and b (columns).
// When a and b are the same set, self-divergences are zero and only one half is
// estimated if fn is symmetric.
func (c *Cache[T]) Compute(ctx context.Context, a, b *dataset.BagSet[T], fn Func, opts Options) (*Matrix, error) {
	key := cacheKey(a.ID, b.ID, fn)
	if item := c.store.Get(key); item != nil {
		CacheHitsTotal.Inc()
		return item.Value(), nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		if item := c.store.Get(key); item != nil {
			CacheHitsTotal.Inc()
			return item.Value(), nil
		}
		CacheMissesTotal.Inc()
		start := time.Now()
		m, err := c.compute(ctx, a, b, fn, opts)
		if err != nil {
			return nil, err
		}
		ComputeSeconds.Observe(time.Since(start).Seconds())
		c.store.Set(key, m, ttlcache.DefaultTTL)
		c.logger.Info("divergence matrix computed",
			zap.String("func", fn.String()),
			zap.Int("rows", m.Rows),
			zap.Int("cols", m.Cols),
			zap.Duration("elapsed", time.Since(start)))
		return m, nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return v.(*Matrix), nil
}

// Put seeds the cache with a precomputed matrix.
func (c *Cache[T]) Put(a, b *dataset.BagSet[T], fn Func, m *Matrix) error {
	if m.Rows != a.Len() || m.Cols != b.Len() {
		return errors.Annotatef(ErrShape, "expect %dx%d, got %dx%d", a.Len(), b.Len(), m.Rows, m.Cols)
	}
	if err := m.Validate(); err != nil {
		return errors.Trace(err)
	}
	m = m.Clone()
	if a.ID == b.ID {
		m.ZeroDiagonal()
	}
	c.store.Set(cacheKey(a.ID, b.ID, fn), m, ttlcache.DefaultTTL)
	return nil
}

// Evict drops every matrix cached for the bag set.
func (c *Cache[T]) Evict(set *dataset.BagSet[T]) {
	for _, key := range c.store.Keys() {
		if containsSet(key, set.ID) {
			c.store.Delete(key)
		}
	}
}

func containsSet(key, id string) bool {
	return lo.Contains(strings.FieldsFunc(key, func(r rune) bool {
		return r == '|' || r == '+'
	}), id)
}

func (c *Cache[T]) Len() int {
	return c.store.Len()
}

func (c *Cache[T]) compute(ctx context.Context, a, b *dataset.BagSet[T], fn Func, opts Options) (*Matrix, error) {
	self := a.ID == b.ID
	if batch, ok := c.oracle.(BatchOracle[T]); ok {
		tracker := progress.NewTracker("divergence", a.Len()*b.Len(), opts.Stride, opts.Reporter)
		m, err := batch.Estimate(ctx, a.Bags, b.Bags, fn)
		if err != nil {
			tracker.Fail(err)
			return nil, errors.Annotatef(err, "estimate %s", fn)
		}
		if m.Rows != a.Len() || m.Cols != b.Len() {
			return nil, errors.Annotatef(ErrShape, "oracle returned %dx%d, expect %dx%d", m.Rows, m.Cols, a.Len(), b.Len())
		}
		if self {
			m.ZeroDiagonal()
		}
		if err = m.Validate(); err != nil {
			return nil, errors.Trace(err)
		}
		EstimatedPairsTotal.Add(float64(a.Len() * b.Len()))
		tracker.Add(a.Len() * b.Len())
		tracker.End()
		return m, nil
	}

	// enumerate pairs to estimate
	type pair struct{ i, j int }
	var pairs []pair
	mirror := self && fn.Symmetric()
	for i := 0; i < a.Len(); i++ {
		for j := 0; j < b.Len(); j++ {
			switch {
			case self && i == j:
			case mirror && j < i:
			default:
				pairs = append(pairs, pair{i, j})
			}
		}
	}
	m := NewMatrix(a.Len(), b.Len())
	tracker := progress.NewTracker("divergence", len(pairs), opts.Stride, opts.Reporter)
	err := parallel.BatchParallel(ctx, len(pairs), opts.threads(), opts.Batch, func(_, begin, end int) error {
		for _, p := range pairs[begin:end] {
			d, err := c.oracle.Divergence(ctx, a.Bags[p.i], b.Bags[p.j], fn)
			if err != nil {
				return errors.Annotatef(err, "divergence of pair (%d, %d)", p.i, p.j)
			}
			m.Set(p.i, p.j, d)
			if mirror {
				m.Set(p.j, p.i, d)
			}
		}
		EstimatedPairsTotal.Add(float64(end - begin))
		tracker.Add(end - begin)
		return nil
	})
	if err != nil {
		tracker.Fail(err)
		return nil, errors.Trace(err)
	}
	tracker.End()
	if err = m.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return m, nil
}
