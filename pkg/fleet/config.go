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

package fleet

import (
	"time"

	"github.com/carverauto/arceus/pkg/models"
)

// Config tunes the listener and per-connection handling.
type Config struct {
	ReadBufferSize     int
	AcceptPollInterval time.Duration
	WriteTimeout       time.Duration
	HistorySize        int
	ProtectedPackages  []string
}

// DefaultConfig mirrors models.DefaultCoordinatorConfig.
func DefaultConfig() Config {
	return Config{
		ReadBufferSize:     models.DefaultReadBufferSize,
		AcceptPollInterval: models.DefaultAcceptPollInterval,
		WriteTimeout:       models.DefaultWriteTimeout,
		HistorySize:        models.DefaultHistorySize,
	}
}

// ConfigFromModel extracts the server settings from the coordinator config.
func ConfigFromModel(c *models.CoordinatorConfig) Config {
	return Config{
		ReadBufferSize:     c.ReadBufferSize,
		AcceptPollInterval: c.AcceptPollInterval.Std(),
		WriteTimeout:       c.WriteTimeout.Std(),
		HistorySize:        c.HistorySize,
		ProtectedPackages:  append([]string(nil), c.ProtectedPackages...),
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()

	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}

	if c.AcceptPollInterval <= 0 {
		c.AcceptPollInterval = d.AcceptPollInterval
	}

	if c.HistorySize <= 0 {
		c.HistorySize = d.HistorySize
	}
}

func (c *Config) isProtected(pkg string) bool {
	for _, p := range c.ProtectedPackages {
		if p == pkg {
			return true
		}
	}

	return false
}
