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

package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestParseFlags(t *testing.T) {
	flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(flagSet)
	assert.Equal(t, Options{MaxSize: 100}, ParseFlags(flagSet))

	assert.NoError(t, flagSet.Parse([]string{"--debug", "--log-path", "sdm.log", "--log-max-age", "7"}))
	assert.Equal(t, Options{Debug: true, Path: "sdm.log", MaxSize: 100, MaxAge: 7}, ParseFlags(flagSet))
}

func TestNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sdm.log")
	l := New(Options{Path: path, MaxSize: 1})
	assert.False(t, l.Core().Enabled(zap.DebugLevel))
	l.Info("hello")
	_ = l.Sync()
	content, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"hello"`)

	assert.True(t, New(Options{Debug: true}).Core().Enabled(zap.DebugLevel))
}

func TestSetLogger(t *testing.T) {
	defer Silence()
	l := zap.NewNop()
	SetLogger(l)
	assert.Equal(t, l, Logger())

	Silence()
	assert.False(t, Logger().Core().Enabled(zap.ErrorLevel))
	assert.True(t, Logger().Core().Enabled(zap.FatalLevel))
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, Logger(), OrDefault(nil))
	l := zap.NewNop()
	assert.Equal(t, l, OrDefault(l))
}
