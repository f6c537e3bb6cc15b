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

import "errors"

var (
	// ErrDeviceNotFound is returned when no live session has the requested key.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrProtectedPackage refuses uninstalling a package the coordinator depends on.
	ErrProtectedPackage = errors.New("package is protected")
	// ErrServerStopping is returned by Start while a stop is still in progress.
	ErrServerStopping = errors.New("server is stopping")
	// ErrServerStarting is returned by Stop while Start is still binding.
	ErrServerStarting = errors.New("server is starting")
	// ErrBindFailed wraps the listener error from Start.
	ErrBindFailed = errors.New("failed to bind listener")
	// ErrShutdownTimeout is returned by Stop when handlers outlive its context.
	ErrShutdownTimeout = errors.New("timed out waiting for connection handlers")
	// ErrNamesUnavailable is returned by RenameDevice without a name store.
	ErrNamesUnavailable = errors.New("device name store not configured")
	// ErrNotRegistered rejects renaming a session that has not reported a serial.
	ErrNotRegistered = errors.New("device has not registered a serial")
	errInvalidBufferSize = errors.New("read buffer size must be positive")
)
