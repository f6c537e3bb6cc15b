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

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/arceus/pkg/logger"
	"github.com/carverauto/arceus/pkg/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadJSONOverlaysDefaults(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := writeFile(t, "arceus.json", `{
		"listen_port": 9999,
		"accept_poll_interval": "250ms",
		"api": {"enabled": true, "listen_addr": ":9000", "public_url": "http://10.0.0.2:9000"}
	}`)

	cfg := models.DefaultCoordinatorConfig()
	require.NoError(t, NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), path, cfg))

	assert.Equal(t, 9999, cfg.ListenPort)
	assert.Equal(t, models.DefaultListenHost, cfg.ListenHost)
	assert.Equal(t, 250*time.Millisecond, cfg.AcceptPollInterval.Std())
	assert.Equal(t, ":9000", cfg.API.ListenAddr)
	assert.Equal(t, []string{"com.b3n00n.snorlax"}, cfg.ProtectedPackages)
}

func TestLoadYAML(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "file")

	path := writeFile(t, "arceus.yaml", `
listen_host: 127.0.0.1
write_timeout: 3s
events:
  enabled: true
  encoding: cbor
nats:
  url: nats://127.0.0.1:4222
schedule:
  battery_poll: "@every 1m"
`)

	cfg := models.DefaultCoordinatorConfig()
	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), path, cfg))

	assert.Equal(t, "127.0.0.1", cfg.ListenHost)
	assert.Equal(t, 3*time.Second, cfg.WriteTimeout.Std())
	assert.True(t, cfg.Events.Enabled)
	assert.Equal(t, models.EncodingCBOR, cfg.Events.Encoding)
	assert.Equal(t, models.DefaultStreamName, cfg.Events.StreamName)
	assert.Equal(t, "@every 1m", cfg.Schedule.BatteryPoll)
}

func TestLoadAndValidateRejectsInvalidConfig(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := writeFile(t, "bad.json", `{"events": {"enabled": true}}`)

	cfg := models.DefaultCoordinatorConfig()
	err := NewConfig(nil).LoadAndValidate(context.Background(), path, cfg)
	require.ErrorIs(t, err, models.ErrInvalidConfig)
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	cfg := models.DefaultCoordinatorConfig()
	err := NewConfig(nil).LoadAndValidate(context.Background(), "/nonexistent/arceus.json", cfg)
	require.Error(t, err)
}

func TestInvalidConfigSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "etcd")

	err := NewConfig(nil).LoadAndValidate(context.Background(), "", models.DefaultCoordinatorConfig())
	require.ErrorIs(t, err, errInvalidConfigSource)
}

func TestEnvSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("CONFIG_ENV_PREFIX", "")
	t.Setenv("ARCEUS_LISTEN_PORT", "7000")
	t.Setenv("ARCEUS_ACCEPT_POLL_INTERVAL", "2s")
	t.Setenv("ARCEUS_PROTECTED_PACKAGES", "com.a, com.b")
	t.Setenv("ARCEUS_API_API_KEY", "secret")
	t.Setenv("ARCEUS_HISTORY_SIZE", "not-a-number")

	cfg := models.DefaultCoordinatorConfig()
	require.NoError(t, NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), "", cfg))

	assert.Equal(t, 7000, cfg.ListenPort)
	assert.Equal(t, 2*time.Second, cfg.AcceptPollInterval.Std())
	assert.Equal(t, []string{"com.a", "com.b"}, cfg.ProtectedPackages)
	assert.Equal(t, "secret", cfg.API.APIKey)
	assert.Equal(t, models.DefaultHistorySize, cfg.HistorySize, "unparseable values keep the default")
}

func TestEnvConfigJSON(t *testing.T) {
	t.Setenv("ARCEUS_CONFIG_JSON", `{"listen_port": 1234, "read_buffer_size": 8192}`)

	cfg := models.DefaultCoordinatorConfig()
	require.NoError(t, NewEnvConfigLoader(nil, "ARCEUS_").Load(context.Background(), "", cfg))

	assert.Equal(t, 1234, cfg.ListenPort)
	assert.Equal(t, 8192, cfg.ReadBufferSize)
}

func TestEnvLoaderRejectsNonPointer(t *testing.T) {
	var cfg models.CoordinatorConfig

	err := NewEnvConfigLoader(nil, "X_").Load(context.Background(), "", cfg)
	require.ErrorIs(t, err, ErrDstMustBeNonNilPointer)

	n := 3
	err = NewEnvConfigLoader(nil, "X_").Load(context.Background(), "", &n)
	require.ErrorIs(t, err, ErrDstMustBePointerToStruct)
}
