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

package sdm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTask(t *testing.T) {
	task, err := ParseTask("regression")
	assert.NoError(t, err)
	assert.Equal(t, Regression, task)
	_, err = ParseTask("ranking")
	assert.Error(t, err)
}

func TestEvaluate(t *testing.T) {
	score := Evaluate(Classification, []float64{0, 1, 2, 1}, []float64{0, 1, 1, 1})
	assert.Equal(t, 0.75, score.Accuracy)
	assert.Equal(t, 4, score.Count)
	assert.Equal(t, 0.75, score.GetValue())

	score = Evaluate(Regression, []float64{1, 2}, []float64{2, 4})
	assert.InDelta(t, math.Sqrt(2.5), score.RMSE, 1e-12)
	assert.InDelta(t, -math.Sqrt(2.5), score.GetValue(), 1e-12)

	score = Evaluate(Regression, nil, nil)
	assert.Zero(t, score.Count)
	assert.Zero(t, score.RMSE)
}

func TestBetterThan(t *testing.T) {
	assert.True(t, Score{Task: Classification, Accuracy: 0.9}.BetterThan(Score{Task: Classification, Accuracy: 0.8}))
	assert.False(t, Score{Task: Classification, Accuracy: 0.8}.BetterThan(Score{Task: Classification, Accuracy: 0.8}))
	assert.True(t, Score{Task: Regression, RMSE: 0.1}.BetterThan(Score{Task: Regression, RMSE: 0.2}))
}

func TestPoolScores(t *testing.T) {
	targets := []float64{1, 2, 3, 4, 5}
	predictions := []float64{1.5, 2, 2, 4.5, 5}
	pooled := PoolScores(Regression, []Score{
		Evaluate(Regression, targets[:2], predictions[:2]),
		Evaluate(Regression, targets[2:], predictions[2:]),
	})
	all := Evaluate(Regression, targets, predictions)
	assert.InDelta(t, all.RMSE, pooled.RMSE, 1e-12)
	assert.Equal(t, 5, pooled.Count)

	labels := []float64{0, 1, 1, 0, 1}
	pooled = PoolScores(Classification, []Score{
		Evaluate(Classification, labels[:3], []float64{0, 1, 0}),
		Evaluate(Classification, labels[3:], []float64{0, 0}),
		{Task: Classification},
	})
	assert.InDelta(t, 0.6, pooled.Accuracy, 1e-12)
	assert.Equal(t, Score{Task: Regression}, PoolScores(Regression, nil))
}
