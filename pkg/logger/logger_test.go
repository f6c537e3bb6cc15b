/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package logger

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	config := &Config{
		Level:  "warn",
		Debug:  true,
		Output: OutputStdout,
	}

	require.NoError(t, Init(context.Background(), config))

	l := GetLogger()
	assert.Equal(t, zerolog.DebugLevel, l.GetLevel(), "debug overrides level")
}

func TestInitRejectsBadLevel(t *testing.T) {
	err := Init(context.Background(), &Config{Level: "loud"})
	require.Error(t, err)
}

func TestSetDebug(t *testing.T) {
	SetDebug(true)
	assert.Equal(t, zerolog.DebugLevel, GetLogger().GetLevel())

	SetDebug(false)
	assert.Equal(t, zerolog.InfoLevel, GetLogger().GetLevel())
}

func TestWithComponent(t *testing.T) {
	componentLogger := WithComponent("fleet")

	assert.NotEqual(t, zerolog.Disabled, componentLogger.GetLevel())
}

func TestNewWriterFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arceus.log")

	w, err := NewWriter(context.Background(), &Config{
		Output: OutputFile,
		File:   FileConfig{Path: path, MaxSizeMB: 1},
	})
	require.NoError(t, err)

	zl := zerolog.New(w)
	zl.Info().Str("component", "fleet").Msg("device connected")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"device connected"`)
}

func TestNewWriterErrors(t *testing.T) {
	_, err := NewWriter(context.Background(), &Config{Output: OutputFile})
	require.ErrorIs(t, err, errLogFileRequired)

	_, err = NewWriter(context.Background(), &Config{Output: "syslog"})
	require.ErrorIs(t, err, errUnknownOutput)
}

func TestWrapLevels(t *testing.T) {
	var buf bytes.Buffer

	l := Wrap(zerolog.New(&buf).Level(zerolog.InfoLevel))
	l.Debug().Msg("hidden")
	l.SetDebug(true)
	l.Debug().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	fields := l.WithFields(map[string]interface{}{"serial": "ABC"})
	fields.Info().Msg("with fields")
	assert.Contains(t, buf.String(), `"serial":"ABC"`)
}

func TestNewTestLoggerDiscards(t *testing.T) {
	l := NewTestLogger()

	assert.NotPanics(t, func() {
		l.Info().Str("k", "v").Msg("discarded")
		cl := l.WithComponent("x")
		cl.Warn().Msg("discarded")
	})
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FILE_MAX_BACKUPS", "9")

	config := DefaultConfig()

	assert.Equal(t, "debug", config.Level)
	assert.Equal(t, OutputStdout, config.Output)
	assert.Equal(t, 9, config.File.MaxBackups)
	assert.Equal(t, "arceus", config.OTel.ServiceName)
	assert.False(t, config.OTel.Enabled)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
}

func TestMapZerologLevelToOTEL(t *testing.T) {
	assert.Equal(t, mapZerologLevelToOTEL("error"), mapZerologLevelToOTEL("ERROR"))
	assert.Equal(t, mapZerologLevelToOTEL("fatal"), mapZerologLevelToOTEL("panic"))
}

func TestInitializeMetricsDisabled(t *testing.T) {
	_, err := InitializeMetrics(context.Background(), MetricsConfig{})
	require.ErrorIs(t, err, ErrOTelMetricsDisabled)
}

func TestInitializeTracingWithoutExporter(t *testing.T) {
	tp, err := InitializeTracing(context.Background(), TracingConfig{ServiceName: "arceus-test"})
	require.NoError(t, err)
	require.NotNil(t, tp)

	require.NoError(t, ShutdownOTEL())
}
