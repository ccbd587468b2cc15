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
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/gorse-io/sdm/common/util"
	"github.com/juju/errors"
	"golang.org/x/exp/constraints"
)

// ReadLines calls handler with the fields of every non-empty line. Lines starting
// with '#' are comments.
func ReadLines(r io.Reader, sep string, handler func(line int, fields []string) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	lineCount := 0
	for sc.Scan() {
		lineCount++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if err := handler(lineCount, strings.Split(text, sep)); err != nil {
			return errors.Annotatef(err, "line %d", lineCount)
		}
	}
	return errors.Trace(sc.Err())
}

// ReadMatrix reads a dense matrix, one row per line.
func ReadMatrix(r io.Reader, sep string) ([][]float64, error) {
	var rows [][]float64
	err := ReadLines(r, sep, func(_ int, fields []string) error {
		row, err := util.ParseFloats[float64](strings.Join(fields, sep), sep)
		if err != nil {
			return errors.Trace(err)
		}
		if len(rows) > 0 && len(row) != len(rows[0]) {
			return errors.Errorf("expect %d columns, got %d", len(rows[0]), len(row))
		}
		rows = append(rows, row)
		return nil
	})
	return rows, err
}

// ReadTargets reads one target per line.
func ReadTargets(r io.Reader) ([]float64, error) {
	var targets []float64
	err := ReadLines(r, ",", func(_ int, fields []string) error {
		if len(fields) != 1 {
			return errors.Errorf("expect one target, got %d fields", len(fields))
		}
		t, err := util.ParseFloat[float64](fields[0])
		if err != nil {
			return errors.Trace(err)
		}
		targets = append(targets, t)
		return nil
	})
	return targets, err
}

// ReadBags reads points in the format "bag,x1,x2,...". Bags are ordered by first
// appearance of their names.
func ReadBags[T constraints.Float](r io.Reader, sep string) ([]string, []Bag[T], error) {
	var (
		names []string
		bags  []Bag[T]
		index = make(map[string]int)
	)
	err := ReadLines(r, sep, func(_ int, fields []string) error {
		if len(fields) < 2 {
			return errors.Errorf("expect bag name and coordinates")
		}
		name := strings.TrimSpace(fields[0])
		point, err := util.ParseFloats[T](strings.Join(fields[1:], sep), sep)
		if err != nil {
			return errors.Trace(err)
		}
		i, exist := index[name]
		if !exist {
			i = len(bags)
			index[name] = i
			names = append(names, name)
			bags = append(bags, nil)
		}
		bags[i] = append(bags[i], point)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return names, bags, nil
}

func LoadMatrix(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer f.Close()
	return ReadMatrix(f, ",")
}

func LoadTargets(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer f.Close()
	return ReadTargets(f)
}

func LoadBags[T constraints.Float](path string) ([]string, []Bag[T], error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	defer f.Close()
	return ReadBags[T](f, ",")
}
