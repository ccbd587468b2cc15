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

package blob

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/juju/errors"
)

// POSIX stores blobs as files under a directory.
type POSIX struct {
	dir string
}

func NewPOSIX(dir string) *POSIX {
	return &POSIX{dir: dir}
}

func (p *POSIX) path(name string) string {
	return filepath.Join(p.dir, filepath.FromSlash(name))
}

func (p *POSIX) Open(_ context.Context, name string) (io.ReadCloser, error) {
	file, err := os.Open(p.path(name))
	if os.IsNotExist(err) {
		return nil, errors.NotFoundf("blob %q", name)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	return file, nil
}

// Create writes to a temporary file which replaces the blob on Close, so readers
// never see a partial blob.
func (p *POSIX) Create(_ context.Context, name string) (io.WriteCloser, chan struct{}, error) {
	fullPath := p.path(name)
	if err := os.MkdirAll(filepath.Dir(fullPath), os.ModePerm); err != nil {
		return nil, nil, errors.Trace(err)
	}
	file, err := os.CreateTemp(filepath.Dir(fullPath), "."+filepath.Base(fullPath)+".*")
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	w, done := upload(fullPath, func(r io.Reader) error {
		_, err := io.Copy(file, r)
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(file.Name())
			return errors.Trace(err)
		}
		return errors.Trace(os.Rename(file.Name(), fullPath))
	})
	return w, done, nil
}

func (p *POSIX) List(_ context.Context) ([]string, error) {
	var names []string
	err := filepath.WalkDir(p.dir, func(fullPath string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && fullPath == p.dir {
				return filepath.SkipDir
			}
			return err
		}
		if d.Type().IsRegular() && !isTemp(d.Name()) {
			name, err := filepath.Rel(p.dir, fullPath)
			if err != nil {
				return err
			}
			names = append(names, filepath.ToSlash(name))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return sorted(names), nil
}

func (p *POSIX) Remove(_ context.Context, name string) error {
	err := os.Remove(p.path(name))
	if os.IsNotExist(err) {
		return errors.NotFoundf("blob %q", name)
	}
	return errors.Trace(err)
}

func isTemp(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
