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
	"fmt"
	"time"

	"github.com/carverauto/arceus/pkg/logger"
)

const (
	DefaultListenHost         = "0.0.0.0"
	DefaultListenPort         = 8888
	DefaultReadBufferSize     = 4096
	DefaultAcceptPollInterval = time.Second
	DefaultWriteTimeout       = 10 * time.Second
	DefaultHistorySize        = 50
	DefaultNamesFile          = "device_names.json"
	DefaultAPIListenAddr      = ":8889"
	DefaultAPKDir             = "apks"
	DefaultBatteryPoll        = "@every 30s"
	DefaultStreamName         = "ARCEUS_EVENTS"
	DefaultSubjectPrefix      = "arceus.events"

	EncodingJSON = "json"
	EncodingCBOR = "cbor"
)

// CoordinatorConfig is the top-level configuration of the arceus binary.
type CoordinatorConfig struct {
	ListenHost         string          `json:"listen_host" yaml:"listen_host"`
	ListenPort         int             `json:"listen_port" yaml:"listen_port"`
	ReadBufferSize     int             `json:"read_buffer_size" yaml:"read_buffer_size"`
	AcceptPollInterval logger.Duration `json:"accept_poll_interval" yaml:"accept_poll_interval"`
	WriteTimeout       logger.Duration `json:"write_timeout" yaml:"write_timeout"`
	HistorySize        int             `json:"history_size" yaml:"history_size"`
	ProtectedPackages  []string        `json:"protected_packages" yaml:"protected_packages"`
	NamesFile          string          `json:"names_file" yaml:"names_file"`
	API                APIConfig       `json:"api" yaml:"api"`
	NATS               NATSConfig      `json:"nats" yaml:"nats"`
	Events             EventsConfig    `json:"events" yaml:"events"`
	Schedule           ScheduleConfig  `json:"schedule" yaml:"schedule"`
	Logging            *logger.Config  `json:"logging" yaml:"logging"`
	Telemetry          TelemetryConfig `json:"telemetry" yaml:"telemetry"`
}

// APIConfig configures the operator HTTP API and APK repository.
type APIConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	ListenAddr string `json:"listen_addr" yaml:"listen_addr"`
	APIKey     string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APKDir     string `json:"apk_dir" yaml:"apk_dir"`
	// PublicURL is the base URL headsets use to reach this API, e.g.
	// "http://192.168.1.10:8889". Install commands point at PublicURL/apks/<file>.
	PublicURL string     `json:"public_url" yaml:"public_url"`
	CORS      CORSConfig `json:"cors" yaml:"cors"`
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins" yaml:"allowed_origins"`
	AllowCredentials bool     `json:"allow_credentials" yaml:"allow_credentials"`
}

// ScheduleConfig holds cron specs for periodic fleet-wide commands. An empty
// spec disables the job.
type ScheduleConfig struct {
	BatteryPoll string `json:"battery_poll" yaml:"battery_poll"`
	Ping        string `json:"ping" yaml:"ping"`
}

// TelemetryConfig enables OTLP metrics and tracing.
type TelemetryConfig struct {
	Metrics        bool              `json:"metrics" yaml:"metrics"`
	Tracing        bool              `json:"tracing" yaml:"tracing"`
	ExportInterval logger.Duration   `json:"export_interval" yaml:"export_interval"`
	OTel           logger.OTelConfig `json:"otel" yaml:"otel"`
}

// DefaultCoordinatorConfig returns the configuration used when no file
// overrides a field.
func DefaultCoordinatorConfig() *CoordinatorConfig {
	return &CoordinatorConfig{
		ListenHost:         DefaultListenHost,
		ListenPort:         DefaultListenPort,
		ReadBufferSize:     DefaultReadBufferSize,
		AcceptPollInterval: logger.Duration(DefaultAcceptPollInterval),
		WriteTimeout:       logger.Duration(DefaultWriteTimeout),
		HistorySize:        DefaultHistorySize,
		ProtectedPackages:  []string{"com.b3n00n.snorlax"},
		NamesFile:          DefaultNamesFile,
		API: APIConfig{
			Enabled:    true,
			ListenAddr: DefaultAPIListenAddr,
			APKDir:     DefaultAPKDir,
		},
		Events: EventsConfig{
			StreamName:    DefaultStreamName,
			SubjectPrefix: DefaultSubjectPrefix,
			Encoding:      EncodingJSON,
		},
		Schedule: ScheduleConfig{
			BatteryPoll: DefaultBatteryPoll,
		},
		Logging: logger.DefaultConfig(),
	}
}

// Validate implements config.Validator.
func (c *CoordinatorConfig) Validate() error {
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return fmt.Errorf("%w: listen_port %d", ErrInvalidConfig, c.ListenPort)
	}

	if c.ReadBufferSize <= 0 {
		return fmt.Errorf("%w: read_buffer_size must be positive", ErrInvalidConfig)
	}

	if c.HistorySize <= 0 {
		return fmt.Errorf("%w: history_size must be positive", ErrInvalidConfig)
	}

	if c.AcceptPollInterval <= 0 {
		return fmt.Errorf("%w: accept_poll_interval must be positive", ErrInvalidConfig)
	}

	if c.WriteTimeout < 0 {
		return fmt.Errorf("%w: write_timeout must not be negative", ErrInvalidConfig)
	}

	if c.API.Enabled && c.API.ListenAddr == "" {
		return fmt.Errorf("%w: api.listen_addr is required when the API is enabled", ErrInvalidConfig)
	}

	if err := c.Events.Validate(); err != nil {
		return err
	}

	if c.Events.Enabled {
		if err := c.NATS.Validate(); err != nil {
			return err
		}
	}

	return nil
}
