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
	"strconv"
	"strings"

	"github.com/juju/errors"
)

const ErrUnknownFunc = errors.ConstError("unknown divergence function")

const (
	Renyi     = "renyi"
	Alpha     = "alpha"
	Hellinger = "hellinger"
	BC        = "bc"
	L2        = "l2"
	KL        = "kl"
	Linear    = "linear"
)

var families = map[string]struct {
	symmetric    bool
	parametric   bool
	defaultAlpha float64
}{
	Renyi:     {parametric: true, defaultAlpha: 0.9},
	Alpha:     {parametric: true, defaultAlpha: 0.5},
	Hellinger: {symmetric: true},
	BC:        {symmetric: true},
	L2:        {symmetric: true},
	KL:        {},
	Linear:    {symmetric: true},
}

// Func identifies a divergence function, e.g. "renyi:.9" or "hellinger". It is
// opaque to the pipeline except as a cache key and as a symmetry hint.
type Func struct {
	Name  string
	Alpha float64
}

// ParseFunc parses "name" or "name:alpha". Parametric families fall back to their
// default alpha when none is given.
func ParseFunc(s string) (Func, error) {
	name, param, hasParam := strings.Cut(strings.ToLower(strings.TrimSpace(s)), ":")
	family, ok := families[name]
	if !ok {
		return Func{}, errors.Annotatef(ErrUnknownFunc, "%q", s)
	}
	fn := Func{Name: name}
	if !family.parametric {
		if hasParam {
			return Func{}, errors.Errorf("divergence function %s takes no parameter", name)
		}
		return fn, nil
	}
	fn.Alpha = family.defaultAlpha
	if hasParam {
		alpha, err := strconv.ParseFloat(param, 64)
		if err != nil {
			return Func{}, errors.Annotatef(err, "invalid alpha of %s", name)
		}
		if alpha <= 0 || alpha == 1 {
			return Func{}, errors.Errorf("alpha of %s must be positive and not 1, got %v", name, alpha)
		}
		fn.Alpha = alpha
	}
	return fn, nil
}

// MustParseFunc is like ParseFunc but panics on error.
func MustParseFunc(s string) Func {
	fn, err := ParseFunc(s)
	if err != nil {
		panic(err)
	}
	return fn
}

// String returns the canonical form, which is stable across equivalent inputs.
func (f Func) String() string {
	if families[f.Name].parametric {
		return f.Name + ":" + strconv.FormatFloat(f.Alpha, 'g', -1, 64)
	}
	return f.Name
}

// Symmetric reports whether D(x, y) = D(y, x) holds for the function.
func (f Func) Symmetric() bool {
	return families[f.Name].symmetric
}
