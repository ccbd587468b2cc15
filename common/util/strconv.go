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

package util

import (
	"strconv"
	"strings"

	"github.com/juju/errors"
	"golang.org/x/exp/constraints"
)

func ParseFloat[T constraints.Float](s string) (T, error) {
	var zero T
	bitSize := 64
	if _, ok := any(zero).(float32); ok {
		bitSize = 32
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), bitSize)
	return T(v), err
}

// ParseFloats parses a list of floats separated by sep. Empty fields are skipped.
func ParseFloats[T constraints.Float](s, sep string) ([]T, error) {
	var values []T
	for _, field := range strings.Split(s, sep) {
		if strings.TrimSpace(field) == "" {
			continue
		}
		v, err := ParseFloat[T](field)
		if err != nil {
			return nil, errors.Annotatef(err, "invalid number %q", field)
		}
		values = append(values, v)
	}
	return values, nil
}
