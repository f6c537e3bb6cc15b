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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allMessages() []Message {
	return []Message{
		Registration{Model: "Quest 3", Serial: "2G0YC5ZF9F00N1"},
		Registration{},
		HeartbeatMsg{},
		BatteryReport{Level: 0, Charging: false},
		BatteryReport{Level: 100, Charging: true},
		CommandResult{Success: true, Message: "Launched com.example.app"},
		CommandResult{Success: false, Message: ""},
		ErrorReport{Message: "Unknown message type: 0x7f"},
		Command{Kind: LaunchApp, Arg: "com.example.app"},
		Command{Kind: ExecuteShell, Arg: "pm list packages"},
		Command{Kind: RequestBattery},
		Command{Kind: GetInstalledApps},
		Command{Kind: GetDeviceInfo},
		Command{Kind: Ping},
		Command{Kind: DownloadAndInstallAPK, Arg: "http://10.0.0.2:8889/apks/app.apk"},
		Command{Kind: ShutdownDevice, Arg: ActionRestart},
		Command{Kind: ShutdownDevice, Arg: ActionShutdown},
		Command{Kind: UninstallApp, Arg: "com.example.app"},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, msg := range allMessages() {
		t.Run(msg.Type().String(), func(t *testing.T) {
			data, err := Encode(msg)
			require.NoError(t, err)
			assert.Equal(t, uint8(msg.Type()), data[0])

			got, n, err := Decode(data, 0)
			require.NoError(t, err)
			assert.Equal(t, len(data), n)
			assert.Equal(t, msg, got)
		})
	}
}

func TestDecodeTruncatedAtEveryBoundary(t *testing.T) {
	for _, msg := range allMessages() {
		data, err := Encode(msg)
		require.NoError(t, err)

		for cut := 0; cut < len(data); cut++ {
			got, n, err := Decode(data[:cut], 0)
			require.ErrorIs(t, err, ErrTruncated, "%s cut at %d", msg.Type(), cut)
			assert.Nil(t, got)
			assert.Zero(t, n)
		}
	}
}

func TestDecodeBatteryLiteral(t *testing.T) {
	msg, n, err := Decode([]byte{0x03, 0x55, 0x01}, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, BatteryReport{Level: 85, Charging: true}, msg)
}

func TestDecodeErrorWithShortString(t *testing.T) {
	msg, n, err := Decode([]byte{0x05, 0x00, 0x00, 0x00, 0x0A, 0x41, 0x42}, 0)
	require.ErrorIs(t, err, ErrTruncated)
	assert.Nil(t, msg)
	assert.Zero(t, n)
}

func TestDecodeUnknownType(t *testing.T) {
	msg, _, err := Decode([]byte{0x7f, 0x00}, 0)
	require.ErrorIs(t, err, ErrUnknownType)
	assert.Nil(t, msg)

	// 0x11 sits inside the command range but is unassigned
	_, _, err = Decode([]byte{0x11}, 0)
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestDecodeRejectsBatteryAbove100(t *testing.T) {
	_, _, err := Decode([]byte{0x03, 101, 0x00}, 0)
	require.ErrorIs(t, err, ErrInvalidBatteryLevel)

	_, err = Encode(BatteryReport{Level: 101})
	require.ErrorIs(t, err, ErrInvalidBatteryLevel)
}

func TestDecodeSequentialMessages(t *testing.T) {
	var stream []byte

	for _, msg := range []Message{
		Registration{Model: "Quest 2", Serial: "ABC"},
		BatteryReport{Level: 42, Charging: true},
		HeartbeatMsg{},
	} {
		data, err := Encode(msg)
		require.NoError(t, err)

		stream = append(stream, data...)
	}

	var decoded []Message

	for off := 0; off < len(stream); {
		msg, n, err := Decode(stream, off)
		require.NoError(t, err)

		decoded = append(decoded, msg)
		off += n
	}

	require.Len(t, decoded, 3)
	assert.Equal(t, Registration{Model: "Quest 2", Serial: "ABC"}, decoded[0])
	assert.Equal(t, BatteryReport{Level: 42, Charging: true}, decoded[1])
	assert.Equal(t, HeartbeatMsg{}, decoded[2])
}

func TestPayloadlessCommandsIgnoreArgument(t *testing.T) {
	for _, kind := range []MessageType{RequestBattery, GetInstalledApps, GetDeviceInfo, Ping} {
		cmd, err := NewCommand(kind, "ignored")
		require.NoError(t, err)

		data, err := Encode(cmd)
		require.NoError(t, err)
		assert.Equal(t, []byte{uint8(kind)}, data)
	}
}

func TestNewCommandValidation(t *testing.T) {
	_, err := NewCommand(BatteryStatus, "")
	require.ErrorIs(t, err, ErrNotACommand)

	_, err = NewCommand(ShutdownDevice, "reboot")
	require.ErrorIs(t, err, ErrInvalidShutdownAction)

	_, _, err = Decode(append([]byte{0x18}, mustString(t, "halt")...), 0)
	require.ErrorIs(t, err, ErrInvalidShutdownAction)

	cmd, err := NewCommand(ExecuteShell, "ls /sdcard")
	require.NoError(t, err)
	assert.Equal(t, Command{Kind: ExecuteShell, Arg: "ls /sdcard"}, cmd)
}

func TestMessageTypeHelpers(t *testing.T) {
	assert.True(t, LaunchApp.IsCommand())
	assert.False(t, Heartbeat.IsCommand())
	assert.False(t, MessageType(0x11).IsCommand())
	assert.False(t, RequestBattery.ExpectsResponse())
	assert.True(t, Ping.ExpectsResponse())
	assert.Equal(t, "unknown(0x7f)", MessageType(0x7f).String())

	got, err := ParseMessageType(" Launch_App ")
	require.NoError(t, err)
	assert.Equal(t, LaunchApp, got)

	_, err = ParseMessageType("reboot")
	require.ErrorIs(t, err, ErrUnknownTypeName)
}

func mustString(t *testing.T, s string) []byte {
	t.Helper()

	w := NewWriter(0)
	require.NoError(t, w.WriteString(s))

	return w.Bytes()
}
