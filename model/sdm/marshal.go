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
	"fmt"
	"io"

	"github.com/gorse-io/sdm/common/encoding"
	"github.com/gorse-io/sdm/kernel"
	"github.com/gorse-io/sdm/storage/blob"
	"github.com/juju/errors"
	"golang.org/x/exp/constraints"
)

const modelHeader = "sdm/v1"

func typeName[T constraints.Float]() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}

// MarshalModel writes a header, the point type and a gob snapshot of m.
func MarshalModel[T constraints.Float](w io.Writer, m *Model[T]) error {
	if err := encoding.WriteHeader(w, modelHeader, typeName[T]()); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(encoding.WriteGob(w, m))
}

// UnmarshalModel reads a model written by MarshalModel. The point type must match.
func UnmarshalModel[T constraints.Float](r io.Reader, opts ...kernel.Option) (*Model[T], error) {
	if err := encoding.ReadHeader(r, modelHeader, typeName[T]()); err != nil {
		if errors.Is(err, errors.NotValid) {
			return nil, errors.Annotate(ErrUnknownModel, err.Error())
		}
		return nil, errors.Trace(err)
	}
	var m Model[T]
	if err := encoding.ReadGob(r, &m); err != nil {
		return nil, errors.Trace(err)
	}
	if m.Trained == nil || (m.Trained.Classifier == nil) == (m.Trained.Regressor == nil) {
		return nil, errors.Annotate(ErrUnknownModel, "missing solver state")
	}
	group, err := kernel.NewGroup(m.Kernel, opts...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	m.group = group
	return &m, nil
}

// SaveModel writes m to store under name.
func SaveModel[T constraints.Float](ctx context.Context, store blob.Store, name string, m *Model[T]) error {
	w, done, err := store.Create(ctx, name)
	if err != nil {
		return errors.Trace(err)
	}
	if err = MarshalModel(w, m); err != nil {
		_ = w.Close()
		<-done
		return errors.Trace(err)
	}
	if err = w.Close(); err != nil {
		return errors.Trace(err)
	}
	<-done
	return nil
}

// LoadModel reads a model saved by SaveModel.
func LoadModel[T constraints.Float](ctx context.Context, store blob.Store, name string, opts ...kernel.Option) (*Model[T], error) {
	r, err := store.Open(ctx, name)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer r.Close()
	return UnmarshalModel[T](r, opts...)
}
