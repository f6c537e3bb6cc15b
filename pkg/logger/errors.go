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

import "errors"

// Static errors for err113 compliance
var (
	ErrOTelLoggingDisabled  = errors.New("OTel logging is disabled")
	ErrOTelEndpointRequired = errors.New("OTel endpoint is required when enabled")
	ErrOTelMetricsDisabled  = errors.New("OTel metrics exporter disabled")

	errFailedToParseCACert = errors.New("failed to parse CA certificate")
	errLogFileRequired     = errors.New("log file path is required when output is \"file\"")
	errUnknownOutput       = errors.New("unknown log output")
	errInvalidDuration     = errors.New("invalid duration")
)
