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

	"github.com/gorse-io/sdm/config"
	"github.com/juju/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3 stores blobs in an S3 compatible bucket.
type S3 struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewS3(cfg config.S3Config) (*S3, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &S3{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func (s *S3) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := objectKey(s.prefix, name)
	// GetObject is lazy, so a missing object is detected by StatObject
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); isNoSuchKey(err) {
		return nil, errors.NotFoundf("blob %q", name)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return object, nil
}

func (s *S3) Create(ctx context.Context, name string) (io.WriteCloser, chan struct{}, error) {
	key := objectKey(s.prefix, name)
	w, done := upload(key, func(r io.Reader) error {
		_, err := s.client.PutObject(ctx, s.bucket, key, r, -1, minio.PutObjectOptions{})
		return errors.Trace(err)
	})
	return w, done, nil
}

func (s *S3) List(ctx context.Context) ([]string, error) {
	var names []string
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    objectKey(s.prefix, ""),
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, errors.Trace(object.Err)
		}
		if name, ok := blobName(s.prefix, object.Key); ok {
			names = append(names, name)
		}
	}
	return sorted(names), nil
}

// Remove deletes a blob. S3 does not report missing objects on removal, so they are
// checked first.
func (s *S3) Remove(ctx context.Context, name string) error {
	key := objectKey(s.prefix, name)
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); isNoSuchKey(err) {
		return errors.NotFoundf("blob %q", name)
	} else if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}))
}
