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

import "fmt"

// Message is a decoded protocol message. The set of implementations is closed.
type Message interface {
	Type() MessageType
	encodePayload(w *Writer) error
}

// Registration announces a device's model and serial (DEVICE_CONNECTED).
type Registration struct {
	Model  string
	Serial string
}

// HeartbeatMsg is the empty liveness message (HEARTBEAT).
type HeartbeatMsg struct{}

// BatteryReport carries a battery reading (BATTERY_STATUS).
type BatteryReport struct {
	Level    uint8
	Charging bool
}

// CommandResult is a device's answer to a command (COMMAND_RESPONSE).
type CommandResult struct {
	Success bool
	Message string
}

// ErrorReport is an application-level error raised by the device (ERROR).
type ErrorReport struct {
	Message string
}

// Command is any coordinator-to-device message. Arg is empty for commands
// that carry no payload.
type Command struct {
	Kind MessageType
	Arg  string
}

func (Registration) Type() MessageType  { return DeviceConnected }
func (HeartbeatMsg) Type() MessageType  { return Heartbeat }
func (BatteryReport) Type() MessageType { return BatteryStatus }
func (CommandResult) Type() MessageType { return CommandResponse }
func (ErrorReport) Type() MessageType   { return Error }
func (c Command) Type() MessageType     { return c.Kind }

func (m Registration) encodePayload(w *Writer) error {
	if err := w.WriteString(m.Model); err != nil {
		return fmt.Errorf("model: %w", err)
	}

	if err := w.WriteString(m.Serial); err != nil {
		return fmt.Errorf("serial: %w", err)
	}

	return nil
}

func (HeartbeatMsg) encodePayload(*Writer) error { return nil }

func (m BatteryReport) encodePayload(w *Writer) error {
	if m.Level > MaxBatteryLevel {
		return fmt.Errorf("%w: %d", ErrInvalidBatteryLevel, m.Level)
	}

	w.WriteU8(m.Level)
	w.WriteBool(m.Charging)

	return nil
}

func (m CommandResult) encodePayload(w *Writer) error {
	w.WriteBool(m.Success)

	return w.WriteString(m.Message)
}

func (m ErrorReport) encodePayload(w *Writer) error {
	return w.WriteString(m.Message)
}

func (c Command) encodePayload(w *Writer) error {
	if !c.Kind.IsCommand() {
		return fmt.Errorf("%w: %s", ErrNotACommand, c.Kind)
	}

	if !c.Kind.CarriesArgument() {
		return nil
	}

	if c.Kind == ShutdownDevice && !ValidShutdownAction(c.Arg) {
		return fmt.Errorf("%w: %q", ErrInvalidShutdownAction, c.Arg)
	}

	return w.WriteString(c.Arg)
}

// NewCommand builds a coordinator-to-device command. arg is ignored for
// commands without a payload.
func NewCommand(t MessageType, arg string) (Command, error) {
	if !t.IsCommand() {
		return Command{}, fmt.Errorf("%w: %s", ErrNotACommand, t)
	}

	if !t.CarriesArgument() {
		return Command{Kind: t}, nil
	}

	if t == ShutdownDevice && !ValidShutdownAction(arg) {
		return Command{}, fmt.Errorf("%w: %q", ErrInvalidShutdownAction, arg)
	}

	return Command{Kind: t, Arg: arg}, nil
}

// Encode serializes m as its tag byte followed by its payload.
func Encode(m Message) ([]byte, error) {
	w := NewWriter(16)
	w.WriteU8(uint8(m.Type()))

	if err := m.encodePayload(w); err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Type(), err)
	}

	return w.Bytes(), nil
}

// EncodePayload serializes only the payload of m, without its tag.
func EncodePayload(m Message) ([]byte, error) {
	w := NewWriter(16)

	if err := m.encodePayload(w); err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Type(), err)
	}

	return w.Bytes(), nil
}

// Decode reads one message starting at offset and returns it together with
// the number of bytes consumed. On error no message is returned and the
// consumed count is zero.
func Decode(data []byte, offset int) (Message, int, error) {
	r := NewReader(data, offset)

	tag, err := r.ReadU8()
	if err != nil {
		return nil, 0, err
	}

	msg, err := decodePayload(MessageType(tag), r)
	if err != nil {
		return nil, 0, err
	}

	return msg, r.Offset() - offset, nil
}

func decodePayload(t MessageType, r *Reader) (Message, error) {
	switch t {
	case DeviceConnected:
		model, err := r.ReadString()
		if err != nil {
			return nil, fmt.Errorf("%s model: %w", t, err)
		}

		serial, err := r.ReadString()
		if err != nil {
			return nil, fmt.Errorf("%s serial: %w", t, err)
		}

		return Registration{Model: model, Serial: serial}, nil
	case Heartbeat:
		return HeartbeatMsg{}, nil
	case BatteryStatus:
		level, err := r.ReadU8()
		if err != nil {
			return nil, fmt.Errorf("%s level: %w", t, err)
		}

		charging, err := r.ReadBool()
		if err != nil {
			return nil, fmt.Errorf("%s charging: %w", t, err)
		}

		if level > MaxBatteryLevel {
			return nil, fmt.Errorf("%w: %d", ErrInvalidBatteryLevel, level)
		}

		return BatteryReport{Level: level, Charging: charging}, nil
	case CommandResponse:
		ok, err := r.ReadBool()
		if err != nil {
			return nil, fmt.Errorf("%s success: %w", t, err)
		}

		msg, err := r.ReadString()
		if err != nil {
			return nil, fmt.Errorf("%s message: %w", t, err)
		}

		return CommandResult{Success: ok, Message: msg}, nil
	case Error:
		msg, err := r.ReadString()
		if err != nil {
			return nil, fmt.Errorf("%s message: %w", t, err)
		}

		return ErrorReport{Message: msg}, nil
	case RequestBattery, GetInstalledApps, GetDeviceInfo, Ping:
		return Command{Kind: t}, nil
	case LaunchApp, ExecuteShell, DownloadAndInstallAPK, ShutdownDevice, UninstallApp:
		arg, err := r.ReadString()
		if err != nil {
			return nil, fmt.Errorf("%s argument: %w", t, err)
		}

		if t == ShutdownDevice && !ValidShutdownAction(arg) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidShutdownAction, arg)
		}

		return Command{Kind: t, Arg: arg}, nil
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownType, uint8(t))
	}
}
