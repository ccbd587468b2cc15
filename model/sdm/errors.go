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
	"fmt"

	"github.com/juju/errors"
)

const (
	ErrInvalidFolds     = errors.ConstError("invalid number of folds")
	ErrEmptyCandidates  = errors.ConstError("empty hyper-parameter candidates")
	ErrNoValidCandidate = errors.ConstError("no valid hyper-parameter candidate")
	ErrUnknownStrategy  = errors.ConstError("unknown search strategy")
	ErrUnknownModel     = errors.ConstError("unknown model")
)

// TrainError is a solver failure for one hyper-parameter candidate.
type TrainError struct {
	Scale float64
	C     float64
	Err   error
}

func (e *TrainError) Error() string {
	return fmt.Sprintf("train with scale=%v C=%v: %v", e.Scale, e.C, e.Err)
}

func (e *TrainError) Unwrap() error {
	return e.Err
}
