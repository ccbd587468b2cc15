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
	"testing"

	"github.com/gorse-io/sdm/config"
	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func writeBlob(t *testing.T, store Store, name, content string) {
	w, done, err := store.Create(context.Background(), name)
	assert.NoError(t, err)
	_, err = w.Write([]byte(content))
	assert.NoError(t, err)
	assert.NoError(t, w.Close())
	<-done
}

func readBlob(t *testing.T, store Store, name string) string {
	r, err := store.Open(context.Background(), name)
	if !assert.NoError(t, err) {
		return ""
	}
	defer r.Close()
	content, err := io.ReadAll(r)
	assert.NoError(t, err)
	return string(content)
}

// testStore runs the same scenario against every store.
func testStore(t *testing.T, store Store) {
	ctx := context.Background()

	// write models
	writeBlob(t, store, "iris.sdm", "iris")
	writeBlob(t, store, "digits/v1.sdm", "digits")
	assert.Equal(t, "iris", readBlob(t, store, "iris.sdm"))
	assert.Equal(t, "digits", readBlob(t, store, "digits/v1.sdm"))

	// overwrite
	writeBlob(t, store, "iris.sdm", "iris v2")
	assert.Equal(t, "iris v2", readBlob(t, store, "iris.sdm"))

	names, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []string{"digits/v1.sdm", "iris.sdm"}, names)

	// missing blobs
	_, err = store.Open(ctx, "missing.sdm")
	assert.True(t, errors.Is(err, errors.NotFound), err)
	assert.True(t, errors.Is(store.Remove(ctx, "missing.sdm"), errors.NotFound))

	// remove
	assert.NoError(t, store.Remove(ctx, "iris.sdm"))
	assert.NoError(t, store.Remove(ctx, "digits/v1.sdm"))
	names, err = store.List(ctx)
	assert.NoError(t, err)
	assert.Empty(t, names)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "models/iris.sdm", objectKey("models", "iris.sdm"))
	assert.Equal(t, "models/iris.sdm", objectKey("/models/", "iris.sdm"))
	assert.Equal(t, "iris.sdm", objectKey("", "iris.sdm"))
	assert.Equal(t, "models", objectKey("models", ""))

	name, ok := blobName("models", "models/a/iris.sdm")
	assert.True(t, ok)
	assert.Equal(t, "a/iris.sdm", name)
	_, ok = blobName("models", "models2/iris.sdm")
	assert.False(t, ok)
	name, ok = blobName("", "iris.sdm")
	assert.True(t, ok)
	assert.Equal(t, "iris.sdm", name)
}

func TestNew(t *testing.T) {
	store, err := New(config.BlobConfig{Type: "posix", Dir: t.TempDir()})
	assert.NoError(t, err)
	assert.IsType(t, &POSIX{}, store)

	_, err = New(config.BlobConfig{Type: "ftp"})
	assert.True(t, errors.Is(err, errors.NotSupported))
	_, err = New(config.BlobConfig{Type: "azure"})
	assert.True(t, errors.Is(err, errors.NotValid))
}
