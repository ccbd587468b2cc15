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

package mock

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"

	"github.com/emicklei/go-restful/v3"
	"github.com/gorse-io/sdm/dataset"
	"github.com/gorse-io/sdm/divergence"
	"go.uber.org/atomic"
	"golang.org/x/exp/constraints"
)

// MeanOracle is a stand-in divergence oracle: the squared distance between bag
// means, skewed for asymmetric divergence functions. It counts invocations.
type MeanOracle[T constraints.Float] struct {
	calls atomic.Int64
	Err   error
}

func (o *MeanOracle[T]) Divergence(_ context.Context, x, y dataset.Bag[T], fn divergence.Func) (float64, error) {
	o.calls.Inc()
	if o.Err != nil {
		return 0, o.Err
	}
	return MeanDivergence(x, y, fn), nil
}

func (o *MeanOracle[T]) Calls() int {
	return int(o.calls.Load())
}

func (o *MeanOracle[T]) Reset() {
	o.calls.Store(0)
}

func MeanDivergence[T constraints.Float](x, y dataset.Bag[T], fn divergence.Func) float64 {
	mx, my := x.Mean(), y.Mean()
	var d, skew float64
	for i := range mx {
		diff := float64(mx[i] - my[i])
		d += diff * diff
		skew += diff
	}
	if !fn.Symmetric() {
		d *= 1 + 0.1*math.Tanh(skew)
	}
	return d
}

// DivergenceServer serves POST /estimate backed by MeanDivergence.
type DivergenceServer struct {
	listener   net.Listener
	httpServer *http.Server
	ready      chan struct{}
	requests   atomic.Int64
	failures   atomic.Int64
	failCode   atomic.Int64
}

func NewDivergenceServer() *DivergenceServer {
	s := &DivergenceServer{ready: make(chan struct{})}
	ws := new(restful.WebService)
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Route(ws.POST("/estimate").
		Reads(divergence.EstimateRequest[float64]{}).
		Writes(divergence.EstimateResponse{}).
		To(s.estimate))
	container := restful.NewContainer()
	container.Add(ws)
	s.httpServer = &http.Server{Handler: container}
	return s
}

func (s *DivergenceServer) Start() error {
	var err error
	s.listener, err = net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	close(s.ready)
	return s.httpServer.Serve(s.listener)
}

func (s *DivergenceServer) Ready() {
	<-s.ready
}

func (s *DivergenceServer) BaseURL() string {
	return fmt.Sprintf("http://%s", s.listener.Addr().String())
}

func (s *DivergenceServer) Requests() int {
	return int(s.requests.Load())
}

// FailNext makes the next n requests fail with the given status code.
func (s *DivergenceServer) FailNext(n, code int) {
	s.failCode.Store(int64(code))
	s.failures.Store(int64(n))
}

func (s *DivergenceServer) Close() error {
	return s.httpServer.Close()
}

func (s *DivergenceServer) estimate(req *restful.Request, resp *restful.Response) {
	s.requests.Inc()
	if s.failures.Dec() >= 0 {
		_ = resp.WriteErrorString(int(s.failCode.Load()), "injected failure")
		return
	}
	s.failures.Store(0)
	var r divergence.EstimateRequest[float64]
	if err := req.ReadEntity(&r); err != nil {
		_ = resp.WriteError(http.StatusBadRequest, err)
		return
	}
	fn, err := divergence.ParseFunc(r.Func)
	if err != nil {
		_ = resp.WriteError(http.StatusBadRequest, err)
		return
	}
	divs := make([][]float64, len(r.Xs))
	for i, x := range r.Xs {
		divs[i] = make([]float64, len(r.Ys))
		for j, y := range r.Ys {
			divs[i][j] = MeanDivergence(x, y, fn)
		}
	}
	_ = resp.WriteEntity(divergence.EstimateResponse{Divergences: divs})
}
