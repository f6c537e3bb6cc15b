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

package main

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/arceus/pkg/protocol"
)

func TestRespond(t *testing.T) {
	h := &headset{model: "Quest 3", serial: "SIM1", battery: 80, logger: zerolog.Nop()}

	tests := []struct {
		cmd  protocol.Command
		want protocol.Message
	}{
		{protocol.Command{Kind: protocol.RequestBattery}, protocol.BatteryReport{Level: 80}},
		{protocol.Command{Kind: protocol.Ping}, protocol.CommandResult{Success: true, Message: "pong"}},
		{
			protocol.Command{Kind: protocol.UninstallApp, Arg: "com.x"},
			protocol.CommandResult{Success: true, Message: "Uninstalled com.x"},
		},
		{
			protocol.Command{Kind: protocol.ShutdownDevice, Arg: "halt"},
			protocol.ErrorReport{Message: "unsupported shutdown action halt"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.cmd.Kind.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, h.respond(tc.cmd))
		})
	}
}

func TestDrainStopsAtZeroAndWhileCharging(t *testing.T) {
	h := &headset{battery: 1}

	assert.Equal(t, uint8(0), h.drain().Level)
	assert.Equal(t, uint8(0), h.drain().Level)

	h.battery, h.charging = 50, true
	assert.Equal(t, protocol.BatteryReport{Level: 50, Charging: true}, h.drain())
}

func TestRunRegistersAndAnswers(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	t.Cleanup(func() { _ = ln.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := &headset{model: "Quest 3", serial: "SIM1", heartbeat: time.Hour, battery: 64, logger: zerolog.Nop()}

	errCh := make(chan error, 1)

	go func() { errCh <- h.run(ctx, ln.Addr().String()) }()

	conn, err := ln.Accept()
	require.NoError(t, err)

	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, conn.SetDeadline(time.Now().Add(2*time.Second)))

	buf := make([]byte, 256)
	n, err := conn.Read(buf)
	require.NoError(t, err)

	msg, _, err := protocol.Decode(buf[:n], 0)
	require.NoError(t, err)
	assert.Equal(t, protocol.Registration{Model: "Quest 3", Serial: "SIM1"}, msg)

	cmd, err := protocol.Encode(protocol.Command{Kind: protocol.RequestBattery})
	require.NoError(t, err)

	_, err = conn.Write(cmd)
	require.NoError(t, err)

	n, err = conn.Read(buf)
	require.NoError(t, err)

	msg, _, err = protocol.Decode(buf[:n], 0)
	require.NoError(t, err)
	assert.Equal(t, protocol.BatteryReport{Level: 64}, msg)

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("simulator did not stop")
	}
}
