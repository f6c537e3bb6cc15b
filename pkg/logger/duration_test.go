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
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Duration
		wantErr  bool
	}{
		{name: "string duration", input: `"5s"`, expected: Duration(5 * time.Second)},
		{name: "numeric duration (nanoseconds)", input: `5000000000`, expected: Duration(5 * time.Second)},
		{name: "complex duration string", input: `"1h30m45s"`, expected: Duration(time.Hour + 30*time.Minute + 45*time.Second)},
		{name: "invalid duration string", input: `"invalid"`, wantErr: true},
		{name: "invalid type", input: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration

			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	var cfg struct {
		Poll    Duration `yaml:"poll"`
		Timeout Duration `yaml:"timeout"`
	}

	require.NoError(t, yaml.Unmarshal([]byte("poll: 1s\ntimeout: 2000000000\n"), &cfg))
	assert.Equal(t, time.Second, cfg.Poll.Std())
	assert.Equal(t, 2*time.Second, cfg.Timeout.Std())

	require.Error(t, yaml.Unmarshal([]byte("poll: soon\n"), &cfg))
}

func TestDuration_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Duration(90 * time.Second))
	require.NoError(t, err)
	assert.JSONEq(t, `"1m30s"`, string(b))
}

func TestOTelConfig_JSONUnmarshaling(t *testing.T) {
	configJSON := `{
		"enabled": true,
		"endpoint": "localhost:4317",
		"service_name": "test-service",
		"batch_timeout": "10s",
		"insecure": true,
		"headers": {
			"x-api-key": "test-key"
		}
	}`

	var config OTelConfig

	require.NoError(t, json.Unmarshal([]byte(configJSON), &config))

	assert.True(t, config.Enabled)
	assert.Equal(t, "localhost:4317", config.Endpoint)
	assert.Equal(t, "test-service", config.ServiceName)
	assert.Equal(t, Duration(10*time.Second), config.BatchTimeout)
	assert.True(t, config.Insecure)
	assert.Equal(t, "test-key", config.Headers["x-api-key"])
}
