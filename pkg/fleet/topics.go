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
	"github.com/carverauto/arceus/pkg/device"
	"github.com/carverauto/arceus/pkg/events"
)

// CommandExecuted is published for every COMMAND_RESPONSE a device sends.
type CommandExecuted struct {
	Session   *device.Session
	Succeeded bool
	Message   string
	Outcome   device.Outcome
}

// ServerStarted carries the address the listener actually bound.
type ServerStarted struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// ServerStopped is the empty payload of server_stopped.
type ServerStopped struct{}

// NameChanged is published after an operator renames a device.
type NameChanged struct {
	Key     string `json:"key"`
	NewName string `json:"new_name"`
}

// Topics published by the coordinator.
var (
	DeviceConnectedTopic    = events.NewTopic[*device.Session]("device_connected")
	DeviceDisconnectedTopic = events.NewTopic[string]("device_disconnected")
	DeviceUpdatedTopic      = events.NewTopic[*device.Session]("device_updated")
	BatteryUpdatedTopic     = events.NewTopic[*device.Session]("battery_updated")
	CommandExecutedTopic    = events.NewTopic[CommandExecuted]("command_executed")
	ErrorOccurredTopic      = events.NewTopic[string]("error_occurred")
	ServerStartedTopic      = events.NewTopic[ServerStarted]("server_started")
	ServerStoppedTopic      = events.NewTopic[ServerStopped]("server_stopped")
	DeviceNameChangedTopic  = events.NewTopic[NameChanged]("device_name_changed")
)
