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

package device

import "errors"

var (
	// ErrSessionClosed is returned when sending on a session that has disconnected.
	ErrSessionClosed = errors.New("session closed")
	// ErrSendFailed wraps the socket error of a failed write.
	ErrSendFailed = errors.New("send failed")
	// ErrSerialMismatch rejects a registration that would change an observed serial.
	ErrSerialMismatch = errors.New("serial differs from registered serial")
	// ErrMissingArgument rejects an argument-carrying command with an empty argument.
	ErrMissingArgument = errors.New("command requires a non-empty argument")
)
