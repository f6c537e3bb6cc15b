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

package natsbridge

import "errors"

var (
	// ErrQueueFull is reported when an event is dropped because the export
	// queue is saturated.
	ErrQueueFull = errors.New("event export queue full")
	// ErrUnsupportedEncoding rejects encodings other than json and cbor.
	ErrUnsupportedEncoding = errors.New("unsupported event encoding")
	// ErrTLSNotConfigured is returned by TLSConfig when nats.tls is absent.
	ErrTLSNotConfigured = errors.New("nats tls not configured")
	// ErrCAParsingFailed is returned when the CA file holds no certificate.
	ErrCAParsingFailed = errors.New("failed to parse CA certificate")
)
