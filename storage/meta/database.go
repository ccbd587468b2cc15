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
	"net/url"
	"strings"
	"time"

	"github.com/juju/errors"
)

const SQLitePrefix = "sqlite://"

// LatestModel is the key of the name of the last trained model.
const LatestModel = "latest_model"

// Run records one tuning, cross-validation or training run.
type Run struct {
	ID      string
	Command string
	Task    string
	DivFunc string
	Kernel  string
	Scale   float64
	C       float64
	// Metric is "accuracy" or "rmse".
	Metric    string
	Score     float64
	Count     int
	Model     string
	StartTime time.Time
	EndTime   time.Time
}

type Database interface {
	Close() error
	Init() error
	AddRun(run *Run) error
	GetRun(id string) (*Run, error)
	// ListRuns returns runs started at or after since, the latest first. A
	// non-positive limit lists all.
	ListRuns(since time.Time, limit int) ([]*Run, error)
	Put(key, value string) error
	Get(key string) (*string, error)
}

// Open a connection to a database. The path is a SQLite file, optionally prefixed
// by sqlite://.
func Open(path string) (Database, error) {
	dataSourceName := strings.TrimPrefix(path, SQLitePrefix)
	if dataSourceName == "" {
		return nil, errors.NotValidf("empty database path")
	}
	// append parameters
	params := url.Values{}
	params.Add("_pragma", "busy_timeout(10000)")
	params.Add("_pragma", "journal_mode(wal)")
	separator := "?"
	if strings.Contains(dataSourceName, "?") {
		separator = "&"
	}
	dataSourceName += separator + params.Encode()
	// connect to database
	database := new(SQLite)
	var err error
	if database.db, err = sql.Open("sqlite", dataSourceName); err != nil {
		return nil, errors.Trace(err)
	}
	return database, nil
}
