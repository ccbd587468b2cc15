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
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/suite"
)

type baseTestSuite struct {
	suite.Suite
	Database
}

func (suite *baseTestSuite) TestRuns() {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, command := range []string{"tune", "cv", "train"} {
		err := suite.Database.AddRun(&Run{
			ID:        command,
			Command:   command,
			Task:      "classification",
			DivFunc:   "renyi:0.9",
			Kernel:    "gaussian",
			Scale:     0.5,
			C:         float64(i + 1),
			Metric:    "accuracy",
			Score:     0.75,
			Count:     20,
			StartTime: start.Add(time.Duration(i) * time.Hour),
			EndTime:   start.Add(time.Duration(i)*time.Hour + time.Minute),
		})
		suite.NoError(err)
	}
	// duplicate run
	suite.Error(suite.Database.AddRun(&Run{ID: "tune"}))

	run, err := suite.Database.GetRun("cv")
	suite.NoError(err)
	suite.Equal("cv", run.Command)
	suite.Equal("renyi:0.9", run.DivFunc)
	suite.Equal(2.0, run.C)
	suite.Equal(20, run.Count)
	suite.True(start.Add(time.Hour).Equal(run.StartTime))

	_, err = suite.Database.GetRun("unknown")
	suite.True(errors.Is(err, errors.NotFound))

	runs, err := suite.Database.ListRuns(time.Time{}, 2)
	suite.NoError(err)
	if suite.Len(runs, 2) {
		suite.Equal("train", runs[0].ID)
		suite.Equal("cv", runs[1].ID)
	}
	runs, err = suite.Database.ListRuns(time.Time{}, 0)
	suite.NoError(err)
	suite.Len(runs, 3)
	runs, err = suite.Database.ListRuns(start.Add(time.Hour), 0)
	suite.NoError(err)
	if suite.Len(runs, 2) {
		suite.Equal("train", runs[0].ID)
		suite.Equal("cv", runs[1].ID)
	}
}

func (suite *baseTestSuite) TestGenerateRunID() {
	run := &Run{Command: "train", StartTime: time.Now(), EndTime: time.Now()}
	suite.NoError(suite.Database.AddRun(run))
	suite.NotEmpty(run.ID)
	saved, err := suite.Database.GetRun(run.ID)
	suite.NoError(err)
	suite.Equal("train", saved.Command)
}

func (suite *baseTestSuite) TestKeyValues() {
	err := suite.Database.Put("key1", "value1")
	suite.NoError(err)
	err = suite.Database.Put("key2", "value2")
	suite.NoError(err)
	err = suite.Database.Put("key1", "value3")
	suite.NoError(err)

	value, err := suite.Database.Get("key1")
	suite.NoError(err)
	suite.Equal("value3", *value)

	value, err = suite.Database.Get("key2")
	suite.NoError(err)
	suite.Equal("value2", *value)

	// Test non-existing key
	value, err = suite.Database.Get("non-existing-key")
	suite.NoError(err)
	suite.Nil(value)
}
