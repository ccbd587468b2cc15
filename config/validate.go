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

package config

import (
	"github.com/go-playground/validator/v10"
	"github.com/juju/errors"
)

var validate = validator.New()

// Validate checks field constraints and the settings of the selected blob store.
func (config *Config) Validate() error {
	if err := validate.Struct(config); err != nil {
		return errors.Trace(err)
	}
	switch config.Blob.Type {
	case "posix":
		if config.Blob.Dir == "" {
			return errors.NotValidf("empty blob.dir")
		}
	case "s3":
		if config.Blob.S3.Endpoint == "" || config.Blob.S3.Bucket == "" {
			return errors.NotValidf("blob.s3 without endpoint or bucket")
		}
	case "gcs":
		if config.Blob.GCS.Bucket == "" {
			return errors.NotValidf("blob.gcs without bucket")
		}
	case "azure":
		if config.Blob.Azure.Container == "" {
			return errors.NotValidf("blob.azure without container")
		}
	}
	return nil
}
