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
	"context"
	"math"
	"testing"

	"github.com/gorse-io/sdm/common/mock"
	"github.com/gorse-io/sdm/dataset"
	"github.com/gorse-io/sdm/divergence"
	"github.com/gorse-io/sdm/kernel"
	"github.com/gorse-io/sdm/model"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// testBags returns 7 bags of 3 points in 2 dimensions around three centers. The
// first five bags cover all three classes.
func testBags() ([]dataset.Bag[float64], []float64) {
	centers := [][2]float64{{0, 0}, {0.5, 0.2}, {5, 0}, {5.3, 0.4}, {0, 5}, {0.2, 5.5}, {0.3, -0.1}}
	labels := []float64{0, 0, 1, 1, 2, 2, 0}
	offsets := [][2]float64{{-0.1, 0.1}, {0.1, 0}, {0, -0.1}}
	bags := make([]dataset.Bag[float64], len(centers))
	for i, c := range centers {
		for _, o := range offsets {
			bags[i] = append(bags[i], []float64{c[0] + o[0], c[1] + o[1]})
		}
	}
	return bags, labels
}

// testValues are regression targets of testBags.
func testValues(bags []dataset.Bag[float64]) []float64 {
	return lo.Map(bags, func(bag dataset.Bag[float64], _ int) float64 {
		mean := bag.Mean()
		return mean[0] + 0.5*mean[1]
	})
}

func testDivergences(bags []dataset.Bag[float64]) *divergence.Matrix {
	fn := divergence.MustParseFunc("l2")
	d := divergence.NewMatrix(len(bags), len(bags))
	for i := range bags {
		for j := range bags {
			if i != j {
				d.Set(i, j, mock.MeanDivergence(bags[i], bags[j], fn))
			}
		}
	}
	return d
}

func newTestMachine(task Task, params model.Params) (*Machine[float64], *mock.MeanOracle[float64]) {
	oracle := new(mock.MeanOracle[float64])
	group, _ := kernel.NewGroup(kernel.Gaussian)
	cache := divergence.NewCache[float64](oracle)
	m := NewMachine(task, divergence.MustParseFunc("renyi:0.9"), group, cache, params)
	m.Config = NewFitConfig().SetJobs(2).SetLogger(zap.NewNop())
	return m, oracle
}

func TestMachine_Predict(t *testing.T) {
	ctx := context.Background()
	bags, labels := testBags()
	m, oracle := newTestMachine(Classification, nil)
	examples, err := dataset.NewExamples(bags[:5], labels[:5])
	assert.NoError(t, err)
	trained, result, err := m.Train(ctx, examples)
	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, result.Best.Scale, trained.Scale)
	assert.Equal(t, result.Best.C, trained.C)
	assert.Equal(t, []int{0, 1, 2}, trained.Labels())
	assert.Equal(t, 3, trained.NumDecisions())
	assert.Equal(t, 5, trained.TrainSize)

	predictions, err := m.Predict(ctx, trained, bags[5:])
	assert.NoError(t, err)
	assert.Len(t, predictions.Labels, 2)
	assert.Len(t, predictions.Values, 2)
	for i, decisions := range predictions.Decisions {
		assert.Len(t, decisions, 3)
		assert.Contains(t, []int{0, 1, 2}, predictions.Labels[i])
		assert.Equal(t, float64(predictions.Labels[i]), predictions.Values[i])
	}

	// predicting again gives the same result
	calls := oracle.Calls()
	again, err := m.Predict(ctx, trained, bags[5:])
	assert.NoError(t, err)
	assert.Equal(t, predictions, again)
	assert.Greater(t, oracle.Calls(), calls)
}

func TestMachine_PredictEmpty(t *testing.T) {
	bags, labels := testBags()
	m, _ := newTestMachine(Classification, model.Params{model.Scale: 1.0, model.C: 1.0})
	examples, err := dataset.NewExamples(bags, labels)
	assert.NoError(t, err)
	trained, result, err := m.Train(context.Background(), examples)
	assert.NoError(t, err)
	assert.Nil(t, result)
	predictions, err := m.Predict(context.Background(), trained, nil)
	assert.NoError(t, err)
	assert.Empty(t, predictions.Labels)
}

func TestMachine_Transduct(t *testing.T) {
	bags, labels := testBags()
	m, _ := newTestMachine(Classification, nil)
	examples, err := dataset.NewExamples(bags[:5], labels[:5])
	assert.NoError(t, err)
	predictions, err := m.Transduct(context.Background(), examples, bags[5:])
	assert.NoError(t, err)
	assert.Len(t, predictions.Labels, 2)
	for _, label := range predictions.Labels {
		assert.Contains(t, []int{0, 1, 2}, label)
	}
}

func TestMachine_TransductDivs(t *testing.T) {
	bags, labels := testBags()
	m, _ := newTestMachine(Classification, model.Params{model.Scale: 1.0, model.C: 1.0})
	predictions, err := m.TransductDivs(context.Background(), testDivergences(bags), labels[:5])
	assert.NoError(t, err)
	assert.Len(t, predictions.Labels, 2)

	_, err = m.TransductDivs(context.Background(), testDivergences(bags).Sub([]int{0, 1}, []int{0, 1, 2}), labels[:1])
	assert.ErrorIs(t, err, kernel.ErrNotSquare)
	_, err = m.TransductDivs(context.Background(), testDivergences(bags), append(labels, 0))
	assert.ErrorIs(t, err, dataset.ErrTargetCount)
}

func TestMachine_DivergencesComputedOnce(t *testing.T) {
	ctx := context.Background()
	bags, labels := testBags()
	examples, err := dataset.NewExamples(bags, labels)
	assert.NoError(t, err)

	small, smallOracle := newTestMachine(Classification, nil)
	small.Tuning = &TuneConfig{Scales: []float64{1}, Cs: []float64{1}}
	_, err = small.Tune(ctx, examples)
	assert.NoError(t, err)

	large, largeOracle := newTestMachine(Classification, nil)
	large.Tuning = &TuneConfig{Scales: []float64{0.5, 1, 2, 4}, Cs: DefaultCs()}
	_, err = large.Tune(ctx, examples)
	assert.NoError(t, err)
	assert.Positive(t, smallOracle.Calls())
	assert.Equal(t, smallOracle.Calls(), largeOracle.Calls())

	// training on the same bags hits the cache
	calls := largeOracle.Calls()
	_, _, err = large.Train(ctx, examples)
	assert.NoError(t, err)
	assert.Equal(t, calls, largeOracle.Calls())
}

func TestMachine_Divergences(t *testing.T) {
	ctx := context.Background()
	bags, _ := testBags()
	m, oracle := newTestMachine(Classification, nil)
	d, err := m.Divergences(ctx, bags[:5], nil)
	assert.NoError(t, err)
	assert.Equal(t, 5, d.Rows)
	assert.Equal(t, 5, d.Cols)
	assert.Zero(t, d.At(3, 3))
	assert.InDelta(t, mock.MeanDivergence(bags[0], bags[2], m.DivFunc), d.At(0, 2), 1e-12)

	d, err = m.Divergences(ctx, bags[5:], bags[:5])
	assert.NoError(t, err)
	assert.Equal(t, 2, d.Rows)
	assert.Equal(t, 5, d.Cols)
	assert.InDelta(t, mock.MeanDivergence(bags[6], bags[1], m.DivFunc), d.At(1, 1), 1e-12)

	calls := oracle.Calls()
	_, err = m.Divergences(ctx, append(bags[:2:2], dataset.Bag[float64]{}), nil)
	assert.True(t, errors.Is(err, dataset.ErrEmptyBag))
	assert.Equal(t, calls, oracle.Calls())
}

func TestMachine_FixedParams(t *testing.T) {
	bags, labels := testBags()
	m, _ := newTestMachine(Classification, model.Params{model.Scale: 2.0, model.C: 4.0})
	examples, err := dataset.NewExamples(bags, labels)
	assert.NoError(t, err)
	trained, result, err := m.Train(context.Background(), examples)
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 2.0, trained.Scale)
	assert.Equal(t, 4.0, trained.C)

	// a missing scale is tuned with the given C
	m, _ = newTestMachine(Classification, model.Params{model.C: 4.0})
	trained, result, err = m.Train(context.Background(), examples)
	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, 4.0, trained.C)
	for _, score := range result.Scores {
		assert.Equal(t, 4.0, score.C)
	}
}

func TestMachine_TrainWithParams(t *testing.T) {
	bags, labels := testBags()
	m, _ := newTestMachine(Classification, nil)
	examples, err := dataset.NewExamples(bags, labels)
	assert.NoError(t, err)
	trained, err := m.TrainWithParams(context.Background(), examples, Candidate{Scale: 1, C: 2})
	assert.NoError(t, err)
	assert.Equal(t, 1.0, trained.Scale)
	assert.Equal(t, 2.0, trained.C)

	_, err = m.TrainWithParams(context.Background(), examples, Candidate{Scale: 1, C: -1})
	var trainErr *TrainError
	assert.ErrorAs(t, err, &trainErr)
	assert.Equal(t, -1.0, trainErr.C)
}

func TestMachine_TrainDivs(t *testing.T) {
	bags, labels := testBags()
	m, _ := newTestMachine(Classification, model.Params{model.Scale: 1.0, model.C: 1.0})
	d := testDivergences(bags)
	trained, _, err := m.TrainDivs(context.Background(), d.Sub(lo.Range(5), lo.Range(5)), labels[:5])
	assert.NoError(t, err)
	predictions, err := trained.PredictTrainDivs(d.Sub([]int{5, 6}, lo.Range(5)), nil)
	assert.NoError(t, err)
	assert.Len(t, predictions.Labels, 2)

	_, err = trained.PredictTrainDivs(d.Sub([]int{5, 6}, lo.Range(4)), nil)
	assert.ErrorIs(t, err, divergence.ErrShape)
}

func TestMachine_InvalidBags(t *testing.T) {
	bags, labels := testBags()
	bags[3] = dataset.Bag[float64]{{1, 2, 3}}
	m, oracle := newTestMachine(Classification, nil)
	examples, err := dataset.NewExamples(bags, labels)
	assert.NoError(t, err)
	_, _, err = m.Train(context.Background(), examples)
	assert.Error(t, err)
	assert.Zero(t, oracle.Calls())
}

func TestMachine_OracleError(t *testing.T) {
	bags, labels := testBags()
	m, oracle := newTestMachine(Classification, nil)
	oracle.Err = assert.AnError
	examples, err := dataset.NewExamples(bags, labels)
	assert.NoError(t, err)
	_, err = m.Tune(context.Background(), examples)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestMachine_CrossValidateRegression(t *testing.T) {
	bags, _ := testBags()
	examples, err := dataset.NewExamples(bags, testValues(bags))
	assert.NoError(t, err)
	for _, config := range []*CrossValidateConfig{
		{Folds: 3, Shuffle: true, Threads: 2, Seed: 1},
		{Folds: 3, ProjectAll: true, Threads: 1},
	} {
		m, _ := newTestMachine(Regression, nil)
		result, err := m.CrossValidate(context.Background(), examples, config)
		assert.NoError(t, err)
		assert.Equal(t, Regression, result.Score.Task)
		assert.False(t, math.IsNaN(result.Score.RMSE))
		assert.False(t, math.IsInf(result.Score.RMSE, 0))
		assert.GreaterOrEqual(t, result.Score.RMSE, 0.0)
		assert.Equal(t, 7, result.Score.Count)
		assert.Len(t, result.FoldScores, 3)
		assert.Len(t, result.Params, 3)
		assert.Len(t, result.Predictions, 7)
	}
}

func TestMachine_GetParamsGrid(t *testing.T) {
	m, _ := newTestMachine(Classification, nil)
	grid := m.GetParamsGrid()
	assert.Len(t, grid[model.C], len(DefaultCs()))
	assert.NotContains(t, grid, model.Scale)

	m.Tuning = &TuneConfig{Scales: []float64{1, 2}, Cs: []float64{1}}
	grid = m.GetParamsGrid()
	assert.Equal(t, []any{1.0, 2.0}, grid[model.Scale])
	assert.Equal(t, []any{1.0}, grid[model.C])
	assert.Equal(t, 2, grid.NumCombinations())

	// the tuner searches the grid
	tuner := m.tuner()
	assert.Equal(t, []float64{1, 2}, tuner.Config.Scales)
	assert.Equal(t, []float64{1}, tuner.Config.Cs)

	// fixed hyper-parameters have one candidate
	m.SetParams(model.Params{model.Scale: 0.5})
	grid = m.GetParamsGrid()
	assert.Equal(t, []any{0.5}, grid[model.Scale])
	tuner = m.tuner()
	assert.Equal(t, []float64{0.5}, tuner.Config.Scales)
	assert.Equal(t, []float64{1}, tuner.Config.Cs)

	// empty candidate lists stay empty
	m.SetParams(nil)
	m.Tuning = &TuneConfig{Scales: []float64{}, Cs: []float64{1}}
	tuner = m.tuner()
	assert.NotNil(t, tuner.Config.Scales)
	assert.Empty(t, tuner.Config.Scales)
	m.Tuning = nil
	tuner = m.tuner()
	assert.Nil(t, tuner.Config.Scales)
	assert.Equal(t, DefaultCs(), tuner.Config.Cs)
}
