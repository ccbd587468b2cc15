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
	"strconv"
	"time"

	"github.com/c-bata/goptuna"
	"github.com/c-bata/goptuna/tpe"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/gorse-io/sdm/base/progress"
	"github.com/gorse-io/sdm/common/parallel"
	"github.com/gorse-io/sdm/dataset"
	"github.com/gorse-io/sdm/divergence"
	"github.com/gorse-io/sdm/kernel"
	"github.com/gorse-io/sdm/model"
	"github.com/gorse-io/sdm/svm"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const (
	GridSearch = "grid"
	TPESearch  = "tpe"
)

const (
	DefaultTuningFolds = 3
	DefaultTrials      = 20
)

// DefaultCs returns 2^-9, 2^-7, ..., 2^11.
func DefaultCs() []float64 {
	cs := make([]float64, 0, 11)
	for p := -9; p <= 11; p += 2 {
		cs = append(cs, math.Pow(2, float64(p)))
	}
	return cs
}

// TuneConfig holds the hyper-parameter search space. A nil candidate list selects
// the default one while an empty non-nil list is an error.
type TuneConfig struct {
	Scales   []float64
	Cs       []float64
	Folds    int
	Strategy string
	Trials   int
	Seed     int64
}

func NewTuneConfig() *TuneConfig {
	return &TuneConfig{
		Folds:    DefaultTuningFolds,
		Strategy: GridSearch,
		Trials:   DefaultTrials,
	}
}

func (config *TuneConfig) LoadDefaultIfNil() *TuneConfig {
	if config == nil {
		return NewTuneConfig()
	}
	return config
}

type Candidate struct {
	Scale float64
	C     float64
}

func (c Candidate) params() model.Params {
	return model.Params{model.Scale: c.Scale, model.C: c.C}
}

// CandidateScore is the cross-validated score of one candidate. FoldScores is
// indexed by fold and excluded folds have a zero count.
type CandidateScore struct {
	Candidate
	Score      Score
	FoldScores []Score
	Evaluated  bool
	Valid      bool
}

// Failure is a candidate excluded from a fold. Fold is -1 if the candidate failed
// on every fold.
type Failure struct {
	Candidate
	Fold   int
	Reason string
}

type TuneResult struct {
	Best      Candidate
	BestScore Score
	BestIndex int
	// Scores are ordered by scale first and C second.
	Scores   []CandidateScore
	Failures []Failure
	Folds    [][]int

	kernel svm.Kernel
}

func (r *TuneResult) BestParams() model.Params {
	return r.Best.params()
}

type tuneState string

const (
	stateInit               tuneState = "Init"
	stateDivergenceComputed tuneState = "DivergenceComputed"
	stateFoldEval           tuneState = "FoldEval"
	stateSelected           tuneState = "Selected"
	stateDone               tuneState = "Done"
)

// Tuner selects (scale, C) by k-fold cross-validation over a precomputed divergence
// matrix.
type Tuner struct {
	Task      Task
	Group     *kernel.Group
	SVM       svm.Params
	Config    *TuneConfig
	FitConfig *FitConfig
}

// Tune cross-validates every candidate on d, the divergences between training
// examples.
func (t *Tuner) Tune(ctx context.Context, d *divergence.Matrix, targets []float64) (*TuneResult, error) {
	if !d.IsSquare() {
		return nil, errors.Annotatef(kernel.ErrNotSquare, "%dx%d", d.Rows, d.Cols)
	}
	return t.tune(ctx, d, targets, func(scale float64) (svm.Kernel, error) {
		return t.Group.Matrix(d, scale)
	})
}

// tune runs the search. kernelOf builds the kernel matrix between training examples
// for a scale and is called at most once per scale.
func (t *Tuner) tune(ctx context.Context, d *divergence.Matrix, targets []float64,
	kernelOf func(scale float64) (svm.Kernel, error)) (*TuneResult, error) {
	config := t.Config.LoadDefaultIfNil()
	fitConfig := t.FitConfig.LoadDefaultIfNil()
	logger := fitConfig.logger()
	n := len(targets)
	logger.Debug("tune", zap.String("state", string(stateInit)), zap.Int("examples", n))

	// check inputs
	if d.Rows != n || d.Cols != n {
		return nil, errors.Annotatef(dataset.ErrTargetCount, "%d targets for %dx%d divergences", n, d.Rows, d.Cols)
	}
	if err := d.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if t.Task == Classification {
		labels, err := dataset.IntLabels(targets)
		if err != nil {
			return nil, errors.Trace(err)
		}
		if dict := dataset.NewLabelDict(labels); dict.Count() < 2 {
			return nil, errors.Annotatef(svm.ErrTooFewClasses, "found %d", dict.Count())
		}
	}
	if config.Strategy != "" && config.Strategy != GridSearch && config.Strategy != TPESearch {
		return nil, errors.Annotatef(ErrUnknownStrategy, "%q", config.Strategy)
	}
	scales := config.Scales
	if scales == nil {
		scales = t.Group.CandidateScales(d)
	} else if len(scales) == 0 {
		return nil, errors.Annotate(ErrEmptyCandidates, "scales")
	}
	cs := config.Cs
	if cs == nil {
		cs = DefaultCs()
	} else if len(cs) == 0 {
		return nil, errors.Annotate(ErrEmptyCandidates, "C")
	}
	numFolds := config.Folds
	if numFolds == 0 {
		numFolds = DefaultTuningFolds
	}
	folds, err := StratifiedFolds(t.Task, targets, numFolds, config.Seed)
	if err != nil {
		return nil, errors.Trace(err)
	}
	logger.Debug("tune", zap.String("state", string(stateDivergenceComputed)),
		zap.Float64s("scales", scales), zap.Float64s("Cs", cs), zap.Int("folds", len(folds)))

	e := &evaluator{
		tuner:      t,
		logger:     logger,
		jobs:       fitConfig.Jobs,
		targets:    targets,
		folds:      folds,
		scales:     scales,
		cs:         cs,
		kernelOf:   kernelOf,
		kernels:    make(map[int]svm.Kernel),
		kernelErrs: make(map[int]error),
		scores:     make([]CandidateScore, len(scales)*len(cs)),
	}
	e.checkFolds()
	total := len(e.scores)
	if config.Strategy == TPESearch && config.Trials < total {
		total = config.Trials
	}
	e.tracker = progress.NewTracker("tune", total*e.validFolds(), fitConfig.Stride, progress.Serialize(fitConfig.Reporter))
	if config.Strategy == TPESearch {
		err = e.tpe(ctx, config.Trials, config.Seed)
	} else {
		err = e.grid(ctx)
	}
	if err != nil {
		e.tracker.Fail(err)
		return nil, err
	}
	e.tracker.End()

	// select the first best candidate
	result := &TuneResult{
		BestIndex: -1,
		Scores:    e.scores,
		Failures:  e.failures,
		Folds:     folds,
	}
	for i, s := range e.scores {
		if s.Valid && (result.BestIndex < 0 || s.Score.BetterThan(result.BestScore)) {
			result.BestIndex = i
			result.BestScore = s.Score
			result.Best = s.Candidate
		}
	}
	if result.BestIndex < 0 {
		return nil, errors.Annotatef(ErrNoValidCandidate, "%d failures", len(e.failures))
	}
	result.kernel = e.kernels[result.BestIndex/len(cs)]
	FailuresTotal.WithLabelValues(string(t.Task)).Add(float64(len(e.failures)))
	BestScore.WithLabelValues(string(t.Task)).Set(result.BestScore.GetValue())
	logger.Info("tune", append([]zap.Field{
		zap.String("state", string(stateSelected)),
		zap.Float64("scale", result.Best.Scale),
		zap.Float64("C", result.Best.C),
	}, result.BestScore.ZapFields()...)...)
	p := e.tracker.Progress()
	logger.Debug("tune", zap.String("state", string(stateDone)),
		zap.Int("fold_fits", p.Count),
		zap.Duration("elapsed", p.FinishTime.Sub(p.StartTime)))
	return result, nil
}

type evaluator struct {
	tuner   *Tuner
	logger  *zap.Logger
	jobs    int
	tracker *progress.Tracker

	targets []float64
	folds   [][]int
	trains  [][]int
	// reasons of excluded folds, empty for valid ones
	reasons []string

	scales     []float64
	cs         []float64
	kernelOf   func(float64) (svm.Kernel, error)
	kernels    map[int]svm.Kernel
	kernelErrs map[int]error

	scores   []CandidateScore
	failures []Failure
}

// checkFolds excludes empty folds and folds whose training part has less than two
// classes. A class missing from a test fold is only logged.
func (e *evaluator) checkFolds() {
	n := len(e.targets)
	e.trains = make([][]int, len(e.folds))
	e.reasons = make([]string, len(e.folds))
	classes := mapset.NewSet(e.targets...)
	for f, fold := range e.folds {
		e.trains[f] = complement(n, fold)
		if len(fold) == 0 {
			e.reasons[f] = "empty fold"
		} else if e.tuner.Task == Classification {
			trainClasses := mapset.NewSet(pick(e.targets, e.trains[f])...)
			if trainClasses.Cardinality() < 2 {
				e.reasons[f] = "fewer than two classes in training part"
			} else if missing := classes.Difference(mapset.NewSet(pick(e.targets, fold)...)); missing.Cardinality() > 0 {
				e.logger.Warn("classes missing from test fold",
					zap.Int("fold", f), zap.Float64s("classes", missing.ToSlice()))
			}
		}
		if e.reasons[f] != "" {
			e.logger.Warn("exclude degenerate fold", zap.Int("fold", f), zap.String("reason", e.reasons[f]))
		}
	}
}

func (e *evaluator) validFolds() int {
	return lo.CountBy(e.reasons, func(reason string) bool {
		return reason == ""
	})
}

func (e *evaluator) candidate(si, ci int) Candidate {
	return Candidate{Scale: e.scales[si], C: e.cs[ci]}
}

func (e *evaluator) kernel(si int) (svm.Kernel, error) {
	if k, ok := e.kernels[si]; ok {
		return k, nil
	}
	if err, ok := e.kernelErrs[si]; ok {
		return nil, err
	}
	k, err := e.kernelOf(e.scales[si])
	if err != nil {
		e.kernelErrs[si] = err
		return nil, err
	}
	e.kernels[si] = k
	return k, nil
}

func (e *evaluator) grid(ctx context.Context) error {
	for si := range e.scales {
		if err := e.evaluate(ctx, si, lo.Range(len(e.cs))); err != nil {
			return err
		}
	}
	return nil
}

// tpe samples candidate indices with a seeded TPE sampler. Small grids are searched
// exhaustively.
func (e *evaluator) tpe(ctx context.Context, trials int, seed int64) error {
	if len(e.scores) <= trials {
		return e.grid(ctx)
	}
	study, err := goptuna.CreateStudy("sdm",
		goptuna.StudyOptionDirection(goptuna.StudyDirectionMaximize),
		goptuna.StudyOptionSampler(tpe.NewSampler(tpe.SamplerOptionSeed(seed))))
	if err != nil {
		return errors.Trace(err)
	}
	choices := func(n int) []string {
		return lo.Map(lo.Range(n), func(i, _ int) string {
			return strconv.Itoa(i)
		})
	}
	scaleChoices, cChoices := choices(len(e.scales)), choices(len(e.cs))
	var evalErr error
	err = study.Optimize(func(trial goptuna.Trial) (float64, error) {
		scale, err := trial.SuggestCategorical(string(model.Scale), scaleChoices)
		if err != nil {
			return 0, errors.Trace(err)
		}
		c, err := trial.SuggestCategorical(string(model.C), cChoices)
		if err != nil {
			return 0, errors.Trace(err)
		}
		si, _ := strconv.Atoi(scale)
		ci, _ := strconv.Atoi(c)
		if e.scores[si*len(e.cs)+ci].Evaluated {
			// a repeated suggestion still counts as a trial
			e.tracker.Add(e.validFolds())
		} else if evalErr == nil {
			evalErr = e.evaluate(ctx, si, []int{ci})
		}
		if evalErr != nil {
			return 0, evalErr
		}
		s := e.scores[si*len(e.cs)+ci]
		if !s.Valid {
			return -math.MaxFloat64, nil
		}
		return s.Score.GetValue(), nil
	}, trials)
	if evalErr != nil {
		return evalErr
	}
	return errors.Trace(err)
}

type foldJob struct {
	ci   int
	fold int
}

// evaluate cross-validates scale si with every C in cis. Evaluated candidates are
// skipped.
func (e *evaluator) evaluate(ctx context.Context, si int, cis []int) error {
	pending := lo.Filter(cis, func(ci, _ int) bool {
		return !e.scores[si*len(e.cs)+ci].Evaluated
	})
	if len(pending) == 0 {
		return nil
	}
	e.logger.Debug("tune", zap.String("state", string(stateFoldEval)),
		zap.Float64("scale", e.scales[si]), zap.Int("candidates", len(pending)))
	k, err := e.kernel(si)
	if err != nil {
		if !errors.Is(err, kernel.ErrDegenerateKernel) {
			return errors.Trace(err)
		}
		e.logger.Warn("exclude scale with degenerate kernel", zap.Float64("scale", e.scales[si]), zap.Error(err))
		for _, ci := range pending {
			e.scores[si*len(e.cs)+ci] = CandidateScore{Candidate: e.candidate(si, ci), Evaluated: true}
			e.failures = append(e.failures, Failure{Candidate: e.candidate(si, ci), Fold: -1, Reason: err.Error()})
		}
		e.tracker.Add(len(pending) * e.validFolds())
		return nil
	}

	// train and score (C, fold) pairs in parallel
	var jobs []foldJob
	for _, ci := range pending {
		for f := range e.folds {
			if e.reasons[f] == "" {
				jobs = append(jobs, foldJob{ci: ci, fold: f})
			}
		}
	}
	slots := make([]Score, len(jobs))
	err = parallel.Parallel(ctx, len(jobs), e.jobs, func(_, jobId int) error {
		job := jobs[jobId]
		score, err := e.evaluateFold(ctx, k, e.cs[job.ci], job.fold)
		if err != nil {
			return &TrainError{Scale: e.scales[si], C: e.cs[job.ci], Err: err}
		}
		slots[jobId] = score
		e.tracker.Add(1)
		return nil
	})
	if err != nil {
		return errors.Trace(err)
	}

	// pool fold scores
	for _, ci := range pending {
		s := &e.scores[si*len(e.cs)+ci]
		s.Candidate = e.candidate(si, ci)
		s.FoldScores = make([]Score, len(e.folds))
		for f := range s.FoldScores {
			s.FoldScores[f].Task = e.tuner.Task
		}
		s.Evaluated = true
	}
	valid := make(map[int][]Score)
	for jobId, job := range jobs {
		e.scores[si*len(e.cs)+job.ci].FoldScores[job.fold] = slots[jobId]
		valid[job.ci] = append(valid[job.ci], slots[jobId])
	}
	for _, ci := range pending {
		s := &e.scores[si*len(e.cs)+ci]
		s.Score = PoolScores(e.tuner.Task, valid[ci])
		s.Valid = len(valid[ci]) > 0
		for f, reason := range e.reasons {
			if reason != "" {
				e.failures = append(e.failures, Failure{Candidate: s.Candidate, Fold: f, Reason: reason})
			}
		}
		e.logger.Info("cross validate", append([]zap.Field{
			zap.Float64("scale", s.Scale),
			zap.Float64("C", s.C),
		}, s.Score.ZapFields()...)...)
	}
	return nil
}

// evaluateFold trains on the training part of a fold and scores the held-out part.
func (e *evaluator) evaluateFold(ctx context.Context, k svm.Kernel, c float64, f int) (Score, error) {
	train, test := e.trains[f], e.folds[f]
	params := e.tuner.SVM
	params.C = c
	start := time.Now()
	trained, err := fitKernel(ctx, svm.Subset(k, train), pick(e.targets, train), e.tuner.Task, params, e.logger, true)
	if err != nil {
		return Score{}, err
	}
	FoldFitSeconds.WithLabelValues(string(e.tuner.Task)).Observe(time.Since(start).Seconds())
	FoldFitsTotal.WithLabelValues(string(e.tuner.Task)).Inc()
	predictions := trained.predictTraining(crossView{k: k, rows: test, cols: train}, nil)
	return Evaluate(e.tuner.Task, pick(e.targets, test), predictions.Values), nil
}

func pick[T any](values []T, indices []int) []T {
	return lo.Map(indices, func(i, _ int) T {
		return values[i]
	})
}
