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

package protocol

import "errors"

var (
	// ErrTruncated is returned when a read needs more bytes than remain in the buffer.
	ErrTruncated = errors.New("not enough data")
	// ErrUnknownType is returned by Decode for a tag outside the protocol table.
	ErrUnknownType = errors.New("unknown message type")
	// ErrUnknownTypeName is returned by ParseMessageType.
	ErrUnknownTypeName = errors.New("unknown message type name")
	// ErrInvalidUTF8 is returned when a string payload is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("string is not valid UTF-8")
	// ErrNotASCII is returned when an ASCII string carries a byte above 0x7f.
	ErrNotASCII = errors.New("string is not ASCII")
	// ErrStringTooLong is returned when a string does not fit its length prefix.
	ErrStringTooLong = errors.New("string too long for length prefix")
	// ErrInvalidBatteryLevel is returned for battery levels above 100.
	ErrInvalidBatteryLevel = errors.New("battery level out of range")
	// ErrInvalidShutdownAction is returned for actions other than shutdown or restart.
	ErrInvalidShutdownAction = errors.New("shutdown action must be \"shutdown\" or \"restart\"")
	// ErrNotACommand is returned when building a command from a device-to-coordinator tag.
	ErrNotACommand = errors.New("message type is not a command")
)
