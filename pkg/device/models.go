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

import (
	"time"

	"github.com/carverauto/arceus/pkg/protocol"
)

// DefaultHistorySize bounds the per-session outcome history.
const DefaultHistorySize = 50

// Identity is what a device reports about itself plus connection timestamps.
// Serial never changes once observed.
type Identity struct {
	Model       string    `json:"model"`
	Serial      string    `json:"serial"`
	IP          string    `json:"ip"`
	Port        int       `json:"port"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeen    time.Time `json:"last_seen"`
}

// Battery is the most recent battery report. Each report replaces the last.
type Battery struct {
	Level     uint8     `json:"level"`
	Charging  bool      `json:"charging"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Outcome records a COMMAND_RESPONSE or ERROR from the device. Command is the
// oldest in-flight command at the time the response arrived, or zero when
// nothing was pending or the outcome came from an ERROR message.
type Outcome struct {
	Succeeded bool                 `json:"succeeded"`
	Message   string               `json:"message"`
	At        time.Time            `json:"at"`
	Command   protocol.MessageType `json:"command,omitempty"`
}

// Snapshot is a point-in-time copy of a session, safe to hand to observers.
type Snapshot struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	DisplayName string    `json:"display_name"`
	Registered  bool      `json:"registered"`
	Identity    Identity  `json:"identity"`
	Battery     *Battery  `json:"battery,omitempty"`
	History     []Outcome `json:"history"`
	Pending     int       `json:"pending_commands"`
	Connected   bool      `json:"connected"`
}
