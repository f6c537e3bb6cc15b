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

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCoordinatorConfigIsValid(t *testing.T) {
	cfg := DefaultCoordinatorConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultListenPort, cfg.ListenPort)
	assert.Equal(t, []string{"com.b3n00n.snorlax"}, cfg.ProtectedPackages)
	assert.False(t, cfg.Events.Enabled)
}

func TestCoordinatorConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CoordinatorConfig)
	}{
		{"port out of range", func(c *CoordinatorConfig) { c.ListenPort = 70000 }},
		{"zero buffer", func(c *CoordinatorConfig) { c.ReadBufferSize = 0 }},
		{"zero history", func(c *CoordinatorConfig) { c.HistorySize = 0 }},
		{"zero poll", func(c *CoordinatorConfig) { c.AcceptPollInterval = 0 }},
		{"negative write timeout", func(c *CoordinatorConfig) { c.WriteTimeout = -1 }},
		{"api without addr", func(c *CoordinatorConfig) { c.API.ListenAddr = "" }},
		{"unknown encoding", func(c *CoordinatorConfig) { c.Events.Encoding = "xml" }},
		{"events without nats url", func(c *CoordinatorConfig) { c.Events.Enabled = true }},
		{"partial nats tls", func(c *CoordinatorConfig) {
			c.Events.Enabled = true
			c.NATS = NATSConfig{URL: "nats://localhost:4222", TLS: &TLSConfig{CertFile: "c.pem"}}
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultCoordinatorConfig()
			tc.mutate(cfg)

			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestEventsConfigFillsDefaults(t *testing.T) {
	ev := EventsConfig{}

	require.NoError(t, ev.Validate())
	assert.Equal(t, EventsConfig{
		StreamName:    DefaultStreamName,
		SubjectPrefix: DefaultSubjectPrefix,
		Encoding:      EncodingJSON,
	}, ev)
}
