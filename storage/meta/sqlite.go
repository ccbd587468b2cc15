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

package meta

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	_ "modernc.org/sqlite"
)

type SQLite struct {
	db *sql.DB
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Init() error {
	// Create tables
	if _, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	command TEXT,
	task TEXT,
	div_func TEXT,
	kernel TEXT,
	scale REAL,
	c REAL,
	metric TEXT,
	score REAL,
	count INTEGER,
	model TEXT,
	start_time TIMESTAMP,
	end_time TIMESTAMP
);`); err != nil {
		return errors.Trace(err)
	}
	if _, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS key_values (
	key TEXT PRIMARY KEY,
	value TEXT
);`); err != nil {
		return errors.Trace(err)
	}
	return nil
}

// AddRun inserts a run. An empty ID is filled with a new UUID.
func (s *SQLite) AddRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`
INSERT INTO runs (id, command, task, div_func, kernel, scale, c, metric, score, count, model, start_time, end_time)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, run.ID, run.Command, run.Task, run.DivFunc, run.Kernel, run.Scale, run.C, run.Metric, run.Score, run.Count,
		run.Model, run.StartTime.UTC(), run.EndTime.UTC())
	return errors.Trace(err)
}

const selectRuns = `
SELECT id, command, task, div_func, kernel, scale, c, metric, score, count, model, start_time, end_time FROM runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	if err := row.Scan(&run.ID, &run.Command, &run.Task, &run.DivFunc, &run.Kernel, &run.Scale, &run.C,
		&run.Metric, &run.Score, &run.Count, &run.Model, &run.StartTime, &run.EndTime); err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *SQLite) GetRun(id string) (*Run, error) {
	run, err := scanRun(s.db.QueryRow(selectRuns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFoundf("run %s", id)
	}
	return run, errors.Trace(err)
}

func (s *SQLite) ListRuns(since time.Time, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rs, err := s.db.Query(selectRuns+` WHERE start_time >= ? ORDER BY start_time DESC, id LIMIT ?`, since.UTC(), limit)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rs.Close()
	var runs []*Run
	for rs.Next() {
		run, err := scanRun(rs)
		if err != nil {
			return nil, errors.Trace(err)
		}
		runs = append(runs, run)
	}
	return runs, errors.Trace(rs.Err())
}

func (s *SQLite) Put(key, value string) error {
	_, err := s.db.Exec(`
INSERT INTO key_values (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value
`, key, value)
	return errors.Trace(err)
}

func (s *SQLite) Get(key string) (*string, error) {
	var value string
	err := s.db.QueryRow(`
SELECT value FROM key_values WHERE key = ?
`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // key not found
		}
		return nil, errors.Trace(err)
	}
	return &value, nil
}
