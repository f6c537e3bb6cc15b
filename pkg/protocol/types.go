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

// Package protocol implements the binary wire format spoken between headsets
// and the coordinator: a one-byte message tag followed by a typed payload of
// big-endian integers and length-prefixed strings.
package protocol

import (
	"fmt"
	"strings"
)

// MessageType is the one-byte tag that leads every message on the wire.
type MessageType uint8

// Device to coordinator.
const (
	DeviceConnected MessageType = 0x01
	Heartbeat       MessageType = 0x02
	BatteryStatus   MessageType = 0x03
	CommandResponse MessageType = 0x04
	Error           MessageType = 0x05
)

// Coordinator to device.
const (
	LaunchApp             MessageType = 0x10
	ExecuteShell          MessageType = 0x12
	RequestBattery        MessageType = 0x13
	GetInstalledApps      MessageType = 0x14
	GetDeviceInfo         MessageType = 0x15
	Ping                  MessageType = 0x16
	DownloadAndInstallAPK MessageType = 0x17
	ShutdownDevice        MessageType = 0x18
	UninstallApp          MessageType = 0x19
)

var typeNames = map[MessageType]string{
	DeviceConnected:       "device_connected",
	Heartbeat:             "heartbeat",
	BatteryStatus:         "battery_status",
	CommandResponse:       "command_response",
	Error:                 "error",
	LaunchApp:             "launch_app",
	ExecuteShell:          "execute_shell",
	RequestBattery:        "request_battery",
	GetInstalledApps:      "get_installed_apps",
	GetDeviceInfo:         "get_device_info",
	Ping:                  "ping",
	DownloadAndInstallAPK: "download_and_install_apk",
	ShutdownDevice:        "shutdown_device",
	UninstallApp:          "uninstall_app",
}

// String returns the snake_case name of the tag, or its hex value when unknown.
func (t MessageType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("unknown(0x%02x)", uint8(t))
}

// MarshalText renders the tag by name so JSON carries "launch_app" rather than 16.
func (t MessageType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText.
func (t *MessageType) UnmarshalText(text []byte) error {
	parsed, err := ParseMessageType(string(text))
	if err != nil {
		return err
	}

	*t = parsed

	return nil
}

// Known reports whether t is one of the tags in the protocol table.
func (t MessageType) Known() bool {
	_, ok := typeNames[t]

	return ok
}

// IsCommand reports whether t flows from the coordinator to a device.
func (t MessageType) IsCommand() bool {
	return t >= LaunchApp && t.Known()
}

// CarriesArgument reports whether a command of type t has a string payload.
func (t MessageType) CarriesArgument() bool {
	switch t {
	case LaunchApp, ExecuteShell, DownloadAndInstallAPK, ShutdownDevice, UninstallApp:
		return true
	case DeviceConnected, Heartbeat, BatteryStatus, CommandResponse, Error,
		RequestBattery, GetInstalledApps, GetDeviceInfo, Ping:
		return false
	default:
		return false
	}
}

// ExpectsResponse reports whether a device answers a command of type t with a
// COMMAND_RESPONSE. Battery requests are answered with BATTERY_STATUS instead.
func (t MessageType) ExpectsResponse() bool {
	return t.IsCommand() && t != RequestBattery
}

// ParseMessageType resolves a snake_case name such as "launch_app" back to its tag.
func ParseMessageType(name string) (MessageType, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownTypeName, name)
}

// Shutdown actions accepted by SHUTDOWN_DEVICE.
const (
	ActionShutdown = "shutdown"
	ActionRestart  = "restart"
)

// ValidShutdownAction reports whether action is accepted by SHUTDOWN_DEVICE.
func ValidShutdownAction(action string) bool {
	return action == ActionShutdown || action == ActionRestart
}

// MaxBatteryLevel is the highest legal battery percentage.
const MaxBatteryLevel = 100
