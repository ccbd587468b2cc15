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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorse-io/sdm/dataset"
	"github.com/juju/errors"
	"github.com/juju/ratelimit"
	"golang.org/x/exp/constraints"
)

// EstimateRequest is the body of POST /estimate on a divergence service.
type EstimateRequest[T constraints.Float] struct {
	Func string           `json:"func"`
	Xs   []dataset.Bag[T] `json:"xs"`
	Ys   []dataset.Bag[T] `json:"ys"`
}

// EstimateResponse holds len(xs) rows of len(ys) divergences.
type EstimateResponse struct {
	Divergences [][]float64 `json:"divergences"`
}

type RemoteOption func(*remoteOptions)

type remoteOptions struct {
	timeout      time.Duration
	maxTries     uint
	initialDelay time.Duration
	rate         float64
}

// WithTimeout bounds a single request. Zero means no timeout.
func WithTimeout(timeout time.Duration) RemoteOption {
	return func(o *remoteOptions) {
		o.timeout = timeout
	}
}

// WithRetries retries failed requests up to tries times in total with exponential
// backoff starting at initialDelay. Only transport errors, 429 and 5xx responses
// are retried.
func WithRetries(tries uint, initialDelay time.Duration) RemoteOption {
	return func(o *remoteOptions) {
		o.maxTries = tries
		o.initialDelay = initialDelay
	}
}

// WithRateLimit limits requests per second. Non-positive means unlimited.
func WithRateLimit(rate float64) RemoteOption {
	return func(o *remoteOptions) {
		o.rate = rate
	}
}

// RemoteOracle delegates estimation to a divergence service over HTTP.
type RemoteOracle[T constraints.Float] struct {
	baseURL string
	client  *http.Client
	options remoteOptions
	bucket  *ratelimit.Bucket
}

func NewRemoteOracle[T constraints.Float](baseURL string, opts ...RemoteOption) *RemoteOracle[T] {
	o := remoteOptions{maxTries: 1, initialDelay: 500 * time.Millisecond}
	for _, opt := range opts {
		opt(&o)
	}
	oracle := &RemoteOracle[T]{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: o.timeout},
		options: o,
	}
	if o.rate > 0 {
		oracle.bucket = ratelimit.NewBucketWithRate(o.rate, max(1, int64(o.rate)))
	}
	return oracle
}

func (o *RemoteOracle[T]) Divergence(ctx context.Context, x, y dataset.Bag[T], fn Func) (float64, error) {
	m, err := o.Estimate(ctx, []dataset.Bag[T]{x}, []dataset.Bag[T]{y}, fn)
	if err != nil {
		return 0, errors.Trace(err)
	}
	return m.At(0, 0), nil
}

func (o *RemoteOracle[T]) Estimate(ctx context.Context, xs, ys []dataset.Bag[T], fn Func) (*Matrix, error) {
	if len(xs) == 0 {
		return NewMatrix(0, len(ys)), nil
	}
	body, err := json.Marshal(EstimateRequest[T]{Func: fn.String(), Xs: xs, Ys: ys})
	if err != nil {
		return nil, errors.Trace(err)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.options.initialDelay
	m, err := backoff.Retry(ctx, func() (*Matrix, error) {
		if err := o.wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		return o.post(ctx, body, len(xs), len(ys))
	}, backoff.WithBackOff(b), backoff.WithMaxTries(max(1, o.options.maxTries)))
	return m, errors.Trace(err)
}

// wait blocks until the rate limit admits one request.
func (o *RemoteOracle[T]) wait(ctx context.Context) error {
	if o.bucket == nil {
		return nil
	}
	delay := o.bucket.Take(1)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// post sends one request. Errors that retrying cannot fix are permanent.
func (o *RemoteOracle[T]) post(ctx context.Context, body []byte, rows, cols int) (*Matrix, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/estimate", bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(errors.Trace(err))
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := o.client.Do(req)
	if err != nil {
		RemoteRequestsTotal.WithLabelValues("error").Inc()
		if ctx.Err() != nil {
			return nil, backoff.Permanent(errors.Trace(err))
		}
		return nil, errors.Trace(err)
	}
	defer resp.Body.Close()
	RemoteRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err = errors.New(fmt.Sprintf("divergence service returned %s: %s", resp.Status, strings.TrimSpace(string(msg))))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}
	var r EstimateResponse
	if err = json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, backoff.Permanent(errors.Annotate(err, "decode divergence response"))
	}
	if len(r.Divergences) != rows {
		return nil, backoff.Permanent(errors.Annotatef(ErrShape, "service returned %d rows, expect %d", len(r.Divergences), rows))
	}
	m, err := NewMatrixFrom(r.Divergences)
	if err != nil {
		return nil, backoff.Permanent(errors.Trace(err))
	}
	if m.Cols != cols {
		return nil, backoff.Permanent(errors.Annotatef(ErrShape, "service returned %d columns, expect %d", m.Cols, cols))
	}
	return m, nil
}
