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
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// Config is the configuration of sdm.
type Config struct {
	Model      ModelConfig      `mapstructure:"model"`
	Divergence DivergenceConfig `mapstructure:"divergence"`
	Kernel     KernelConfig     `mapstructure:"kernel"`
	SVM        SVMConfig        `mapstructure:"svm"`
	Tuning     TuningConfig     `mapstructure:"tuning"`
	CV         CVConfig         `mapstructure:"cv"`
	Blob       BlobConfig       `mapstructure:"blob"`
	Meta       MetaConfig       `mapstructure:"meta"`
	Log        LogConfig        `mapstructure:"log"`
}

type ModelConfig struct {
	Task string `mapstructure:"task" validate:"oneof=classification regression"`
}

type DivergenceConfig struct {
	Func          string        `mapstructure:"func" validate:"required"`
	Threads       int           `mapstructure:"threads" validate:"gte=0"`
	Stride        int           `mapstructure:"stride" validate:"gte=0"`
	BatchSize     int           `mapstructure:"batch_size" validate:"gte=1"`
	CacheCapacity uint64        `mapstructure:"cache_capacity"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
	MinPoints     int           `mapstructure:"min_points" validate:"gte=1"`
	OracleURL     string        `mapstructure:"oracle_url" validate:"omitempty,url"`
	OracleTimeout time.Duration `mapstructure:"oracle_timeout" validate:"gte=0"`
	OracleRetries uint          `mapstructure:"oracle_retries" validate:"gte=1"`
	OracleBackoff time.Duration `mapstructure:"oracle_backoff" validate:"gte=0"`
	OracleRate    float64       `mapstructure:"oracle_rate" validate:"gte=0"`
}

type KernelConfig struct {
	Name      string  `mapstructure:"name" validate:"oneof=gaussian linear"`
	Tolerance float64 `mapstructure:"tolerance" validate:"gte=0"`
}

type SVMConfig struct {
	Epsilon   float64 `mapstructure:"epsilon" validate:"gte=0"`
	Tolerance float64 `mapstructure:"tolerance" validate:"gt=0"`
	MaxIter   int     `mapstructure:"max_iter" validate:"gte=0"`
}

type TuningConfig struct {
	Scales   []float64 `mapstructure:"scales" validate:"omitempty,dive,gt=0"`
	Cs       []float64 `mapstructure:"cs" validate:"omitempty,dive,gt=0"`
	Folds    int       `mapstructure:"folds" validate:"gte=2"`
	Strategy string    `mapstructure:"strategy" validate:"oneof=grid tpe"`
	Trials   int       `mapstructure:"trials" validate:"gt=0"`
	Seed     int64     `mapstructure:"seed"`
	Jobs     int       `mapstructure:"jobs" validate:"gt=0"`
}

type CVConfig struct {
	Folds      int  `mapstructure:"folds" validate:"gte=2"`
	ProjectAll bool `mapstructure:"project_all"`
	Shuffle    bool `mapstructure:"shuffle"`
	Threads    int  `mapstructure:"threads" validate:"gt=0"`
}

type BlobConfig struct {
	Type  string          `mapstructure:"type" validate:"oneof=posix s3 gcs azure"`
	Dir   string          `mapstructure:"dir"`
	S3    S3Config        `mapstructure:"s3"`
	GCS   GCSConfig       `mapstructure:"gcs"`
	Azure AzureBlobConfig `mapstructure:"azure"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

type AzureBlobConfig struct {
	ConnectionString string `mapstructure:"connection_string"`
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	Endpoint         string `mapstructure:"endpoint"`
	Container        string `mapstructure:"container"`
	Prefix           string `mapstructure:"prefix"`
	MaxRetries       int32  `mapstructure:"max_retries" validate:"gte=-1"`
}

type MetaConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Debug bool   `mapstructure:"debug"`
	Path  string `mapstructure:"path"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Task: "classification",
		},
		Divergence: DivergenceConfig{
			Func:          "renyi:0.9",
			Stride:        100,
			BatchSize:     1,
			CacheCapacity: 16,
			MinPoints:     1,
			OracleTimeout: time.Minute,
			OracleRetries: 3,
			OracleBackoff: 500 * time.Millisecond,
		},
		Kernel: KernelConfig{
			Name:      "gaussian",
			Tolerance: 1e-6,
		},
		SVM: SVMConfig{
			Epsilon:   0.1,
			Tolerance: 1e-3,
		},
		Tuning: TuningConfig{
			Folds:    3,
			Strategy: "grid",
			Trials:   20,
			Jobs:     1,
		},
		CV: CVConfig{
			Folds:      10,
			ProjectAll: true,
			Shuffle:    true,
			Threads:    1,
		},
		Blob: BlobConfig{
			Type: "posix",
			Dir:  "models",
		},
		Meta: MetaConfig{
			Path: "sdm.db",
		},
	}
}

func setDefault() {
	defaultConfig := GetDefaultConfig()
	// [model]
	viper.SetDefault("model.task", defaultConfig.Model.Task)
	// [divergence]
	viper.SetDefault("divergence.func", defaultConfig.Divergence.Func)
	viper.SetDefault("divergence.threads", defaultConfig.Divergence.Threads)
	viper.SetDefault("divergence.stride", defaultConfig.Divergence.Stride)
	viper.SetDefault("divergence.batch_size", defaultConfig.Divergence.BatchSize)
	viper.SetDefault("divergence.cache_capacity", defaultConfig.Divergence.CacheCapacity)
	viper.SetDefault("divergence.cache_ttl", defaultConfig.Divergence.CacheTTL)
	viper.SetDefault("divergence.min_points", defaultConfig.Divergence.MinPoints)
	viper.SetDefault("divergence.oracle_url", defaultConfig.Divergence.OracleURL)
	viper.SetDefault("divergence.oracle_timeout", defaultConfig.Divergence.OracleTimeout)
	viper.SetDefault("divergence.oracle_retries", defaultConfig.Divergence.OracleRetries)
	viper.SetDefault("divergence.oracle_backoff", defaultConfig.Divergence.OracleBackoff)
	viper.SetDefault("divergence.oracle_rate", defaultConfig.Divergence.OracleRate)
	// [kernel]
	viper.SetDefault("kernel.name", defaultConfig.Kernel.Name)
	viper.SetDefault("kernel.tolerance", defaultConfig.Kernel.Tolerance)
	// [svm]
	viper.SetDefault("svm.epsilon", defaultConfig.SVM.Epsilon)
	viper.SetDefault("svm.tolerance", defaultConfig.SVM.Tolerance)
	viper.SetDefault("svm.max_iter", defaultConfig.SVM.MaxIter)
	// [tuning]
	viper.SetDefault("tuning.folds", defaultConfig.Tuning.Folds)
	viper.SetDefault("tuning.strategy", defaultConfig.Tuning.Strategy)
	viper.SetDefault("tuning.trials", defaultConfig.Tuning.Trials)
	viper.SetDefault("tuning.seed", defaultConfig.Tuning.Seed)
	viper.SetDefault("tuning.jobs", defaultConfig.Tuning.Jobs)
	// [cv]
	viper.SetDefault("cv.folds", defaultConfig.CV.Folds)
	viper.SetDefault("cv.project_all", defaultConfig.CV.ProjectAll)
	viper.SetDefault("cv.shuffle", defaultConfig.CV.Shuffle)
	viper.SetDefault("cv.threads", defaultConfig.CV.Threads)
	// [blob]
	viper.SetDefault("blob.type", defaultConfig.Blob.Type)
	viper.SetDefault("blob.dir", defaultConfig.Blob.Dir)
	// [meta]
	viper.SetDefault("meta.path", defaultConfig.Meta.Path)
	// [log]
	viper.SetDefault("log.debug", defaultConfig.Log.Debug)
	viper.SetDefault("log.path", defaultConfig.Log.Path)
}

type configBinding struct {
	key string
	env string
}

var bindings = []configBinding{
	{"divergence.oracle_url", "SDM_ORACLE_URL"},
	{"divergence.threads", "SDM_DIVERGENCE_THREADS"},
	{"tuning.jobs", "SDM_TUNING_JOBS"},
	{"blob.type", "SDM_BLOB_TYPE"},
	{"blob.dir", "SDM_BLOB_DIR"},
	{"blob.s3.endpoint", "S3_ENDPOINT"},
	{"blob.s3.access_key_id", "S3_ACCESS_KEY_ID"},
	{"blob.s3.secret_access_key", "S3_SECRET_ACCESS_KEY"},
	{"blob.gcs.credentials_file", "GCS_CREDENTIALS_FILE"},
	{"blob.azure.connection_string", "AZURE_STORAGE_CONNECTION_STRING"},
	{"meta.path", "SDM_META_PATH"},
}

func decodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
}

// LoadConfig loads configuration from a TOML file. Missing values are filled with
// defaults and environment variables override the file. An empty path loads
// defaults and environment variables only.
func LoadConfig(path string) (*Config, error) {
	setDefault()
	for _, binding := range bindings {
		if err := viper.BindEnv(binding.key, binding.env); err != nil {
			return nil, errors.Trace(err)
		}
	}
	viper.SetConfigType("toml")
	if path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	} else if err := viper.ReadConfig(strings.NewReader("")); err != nil {
		return nil, errors.Trace(err)
	}
	var conf Config
	if err := viper.Unmarshal(&conf, decodeHook()); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}
