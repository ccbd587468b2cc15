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

	"github.com/juju/errors"
	"go.uber.org/zap"
)

type Task string

const (
	Classification Task = "classification"
	Regression     Task = "regression"
)

func ParseTask(s string) (Task, error) {
	switch Task(s) {
	case Classification, Regression:
		return Task(s), nil
	}
	return "", errors.Errorf("unknown task %q", s)
}

// Score is a cross-validated score. Higher is better for both tasks: accuracy for
// classification and negative RMSE for regression.
type Score struct {
	Task     Task
	Accuracy float64
	RMSE     float64
	Count    int
}

func (score Score) ZapFields() []zap.Field {
	if score.Task == Regression {
		return []zap.Field{zap.Float64("RMSE", score.RMSE), zap.Int("Count", score.Count)}
	}
	return []zap.Field{zap.Float64("Accuracy", score.Accuracy), zap.Int("Count", score.Count)}
}

func (score Score) GetValue() float64 {
	if score.Task == Regression {
		return -score.RMSE
	}
	return score.Accuracy
}

func (score Score) BetterThan(s Score) bool {
	return score.GetValue() > s.GetValue()
}

// Evaluate scores predictions against targets.
func Evaluate(task Task, targets, predictions []float64) Score {
	score := Score{Task: task, Count: len(targets)}
	if len(targets) == 0 {
		return score
	}
	var sum float64
	for i, target := range targets {
		if task == Regression {
			diff := predictions[i] - target
			sum += diff * diff
		} else if predictions[i] == target {
			sum++
		}
	}
	if task == Regression {
		score.RMSE = math.Sqrt(sum / float64(len(targets)))
	} else {
		score.Accuracy = sum / float64(len(targets))
	}
	return score
}

// PoolScores combines scores of disjoint folds as if all predictions were scored at once.
func PoolScores(task Task, scores []Score) Score {
	pooled := Score{Task: task}
	var sum float64
	for _, s := range scores {
		pooled.Count += s.Count
		if task == Regression {
			sum += s.RMSE * s.RMSE * float64(s.Count)
		} else {
			sum += s.Accuracy * float64(s.Count)
		}
	}
	if pooled.Count == 0 {
		return pooled
	}
	if task == Regression {
		pooled.RMSE = math.Sqrt(sum / float64(pooled.Count))
	} else {
		pooled.Accuracy = sum / float64(pooled.Count)
	}
	return pooled
}
