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
)

// NATSConfig configures NATS connectivity
type NATSConfig struct {
	URL    string `json:"url" yaml:"url"`
	Domain string `json:"domain,omitempty" yaml:"domain,omitempty"`
	// CredsFile is an optional NATS user credentials file.
	CredsFile string     `json:"creds_file,omitempty" yaml:"creds_file,omitempty"`
	TLS       *TLSConfig `json:"tls,omitempty" yaml:"tls,omitempty"`
}

// TLSConfig holds client certificate paths for mutual TLS.
type TLSConfig struct {
	CertFile   string `json:"cert_file" yaml:"cert_file"`
	KeyFile    string `json:"key_file" yaml:"key_file"`
	CAFile     string `json:"ca_file" yaml:"ca_file"`
	ServerName string `json:"server_name,omitempty" yaml:"server_name,omitempty"`
}

// Validate ensures the NATS configuration is valid
func (c *NATSConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("%w: nats.url is required", ErrInvalidConfig)
	}

	if c.TLS != nil && (c.TLS.CertFile == "" || c.TLS.KeyFile == "" || c.TLS.CAFile == "") {
		return fmt.Errorf("%w: nats.tls needs cert_file, key_file and ca_file", ErrInvalidConfig)
	}

	return nil
}

// EventsConfig configures republishing fleet events to JetStream.
type EventsConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	StreamName    string `json:"stream_name" yaml:"stream_name"`
	SubjectPrefix string `json:"subject_prefix" yaml:"subject_prefix"`
	// Encoding is "json" (default) or "cbor".
	Encoding string `json:"encoding" yaml:"encoding"`
}

// Validate fills defaults and rejects unknown encodings.
func (c *EventsConfig) Validate() error {
	if c.StreamName == "" {
		c.StreamName = DefaultStreamName
	}

	if c.SubjectPrefix == "" {
		c.SubjectPrefix = DefaultSubjectPrefix
	}

	switch c.Encoding {
	case "":
		c.Encoding = EncodingJSON
	case EncodingJSON, EncodingCBOR:
	default:
		return fmt.Errorf("%w: events.encoding %q", ErrInvalidConfig, c.Encoding)
	}

	return nil
}

// CloudEvent represents a CloudEvents v1.0 compliant event.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion" cbor:"specversion"`
	ID              string      `json:"id" cbor:"id"`
	Source          string      `json:"source" cbor:"source"`
	Type            string      `json:"type" cbor:"type"`
	DataContentType string      `json:"datacontenttype" cbor:"datacontenttype"`
	Subject         string      `json:"subject,omitempty" cbor:"subject,omitempty"`
	Time            *time.Time  `json:"time,omitempty" cbor:"time,omitempty"`
	Data            interface{} `json:"data,omitempty" cbor:"data,omitempty"`
}
