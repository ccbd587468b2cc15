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
	"path"
	"sort"
	"strings"

	"github.com/gorse-io/sdm/base/log"
	"github.com/gorse-io/sdm/config"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// Store keeps named blobs such as trained models. Names are slash separated and
// relative to the root of the store.
type Store interface {
	// Open a blob for reading. A missing blob is an errors.NotFound error.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Create a blob for writing. The done channel is closed once the content
	// written before Close has been persisted.
	Create(ctx context.Context, name string) (io.WriteCloser, chan struct{}, error)
	// List names of blobs in ascending order.
	List(ctx context.Context) ([]string, error)
	// Remove a blob. A missing blob is an errors.NotFound error.
	Remove(ctx context.Context, name string) error
}

// New creates the store selected by cfg.Type.
func New(cfg config.BlobConfig) (Store, error) {
	switch cfg.Type {
	case "", "posix":
		return NewPOSIX(cfg.Dir), nil
	case "s3":
		return NewS3(cfg.S3)
	case "gcs":
		return NewGCS(cfg.GCS)
	case "azure":
		return NewAzureBlob(cfg.Azure)
	}
	return nil, errors.NotSupportedf("blob store %q", cfg.Type)
}

// objectKey maps a blob name to the key of an object store under prefix.
func objectKey(prefix, name string) string {
	return strings.TrimPrefix(path.Join(prefix, name), "/")
}

// blobName is the inverse of objectKey. Keys outside prefix are skipped.
func blobName(prefix, key string) (string, bool) {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key, key != ""
	}
	name, ok := strings.CutPrefix(key, prefix+"/")
	return name, ok && name != ""
}

func sorted(names []string) []string {
	sort.Strings(names)
	return names
}

// upload streams everything written to the returned writer into put, which runs
// in its own goroutine. A failed upload fails later writes.
func upload(key string, put func(r io.Reader) error) (io.WriteCloser, chan struct{}) {
	pr, pw := io.Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := put(pr); err != nil {
			log.Logger().Error("failed to upload blob", zap.String("key", key), zap.Error(err))
			_ = pr.CloseWithError(err)
			return
		}
		// drain a writer that wrote past what put consumed
		_, _ = io.Copy(io.Discard, pr)
	}()
	return pw, done
}
