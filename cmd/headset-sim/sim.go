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
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/carverauto/arceus/pkg/protocol"
)

const readBufferSize = 4096

// headset plays one device against a coordinator.
type headset struct {
	model     string
	serial    string
	heartbeat time.Duration
	logger    zerolog.Logger

	writeMu sync.Mutex
	conn    net.Conn

	mu       sync.Mutex
	battery  uint8
	charging bool
}

func (h *headset) run(ctx context.Context, addr string) error {
	var d net.Dialer

	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	h.conn = conn
	defer func() { _ = conn.Close() }()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	if err := h.send(protocol.Registration{Model: h.model, Serial: h.serial}); err != nil {
		return err
	}

	h.logger.Info().Str("addr", addr).Msg("Registered with coordinator")

	go h.heartbeatLoop(ctx)

	err = h.readLoop()
	if ctx.Err() != nil {
		return nil
	}

	return err
}

func (h *headset) send(m protocol.Message) error {
	data, err := protocol.Encode(m)
	if err != nil {
		return err
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	_, err = h.conn.Write(data)

	return err
}

func (h *headset) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for beats := 1; ; beats++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := h.send(protocol.HeartbeatMsg{}); err != nil {
			h.logger.Warn().Err(err).Msg("Heartbeat failed")

			return
		}

		// report battery every fifth beat and drain a percent
		if beats%5 == 0 {
			if err := h.send(h.drain()); err != nil {
				h.logger.Warn().Err(err).Msg("Battery report failed")

				return
			}
		}
	}
}

func (h *headset) drain() protocol.BatteryReport {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.charging && h.battery > 0 {
		h.battery--
	}

	return protocol.BatteryReport{Level: h.battery, Charging: h.charging}
}

func (h *headset) readLoop() error {
	buf := make([]byte, readBufferSize)

	var pending []byte

	for {
		n, err := h.conn.Read(buf)
		if err != nil {
			return err
		}

		pending = append(pending, buf[:n]...)

		for len(pending) > 0 {
			msg, used, err := protocol.Decode(pending, 0)
			if errors.Is(err, protocol.ErrTruncated) {
				break
			}

			if err != nil {
				h.logger.Warn().Err(err).Msg("Discarding undecodable data")

				pending = nil

				break
			}

			pending = pending[used:]

			cmd, ok := msg.(protocol.Command)
			if !ok {
				h.logger.Warn().Str("type", msg.Type().String()).Msg("Ignoring non-command message")

				continue
			}

			if err := h.send(h.respond(cmd)); err != nil {
				return err
			}
		}
	}
}

// respond produces the reply a real headset would send for cmd.
func (h *headset) respond(cmd protocol.Command) protocol.Message {
	h.logger.Info().Str("command", cmd.Kind.String()).Str("arg", cmd.Arg).Msg("Received command")

	h.mu.Lock()
	defer h.mu.Unlock()

	switch cmd.Kind {
	case protocol.RequestBattery:
		return protocol.BatteryReport{Level: h.battery, Charging: h.charging}
	case protocol.Ping:
		return protocol.CommandResult{Success: true, Message: "pong"}
	case protocol.LaunchApp:
		return protocol.CommandResult{Success: true, Message: "Launched " + cmd.Arg}
	case protocol.ExecuteShell:
		return protocol.CommandResult{Success: true, Message: "$ " + cmd.Arg}
	case protocol.GetInstalledApps:
		return protocol.CommandResult{Success: true, Message: "com.b3n00n.snorlax\ncom.example.game"}
	case protocol.GetDeviceInfo:
		return protocol.CommandResult{
			Success: true,
			Message: fmt.Sprintf("model=%s serial=%s battery=%d", h.model, h.serial, h.battery),
		}
	case protocol.DownloadAndInstallAPK:
		return protocol.CommandResult{Success: true, Message: "Installed from " + cmd.Arg}
	case protocol.UninstallApp:
		return protocol.CommandResult{Success: true, Message: "Uninstalled " + cmd.Arg}
	case protocol.ShutdownDevice:
		if !protocol.ValidShutdownAction(cmd.Arg) {
			return protocol.ErrorReport{Message: "unsupported shutdown action " + cmd.Arg}
		}

		return protocol.CommandResult{Success: true, Message: "Simulated " + cmd.Arg}
	case protocol.DeviceConnected, protocol.Heartbeat, protocol.BatteryStatus,
		protocol.CommandResponse, protocol.Error:
		return protocol.ErrorReport{Message: "unexpected message " + cmd.Kind.String()}
	default:
		return protocol.ErrorReport{Message: "unsupported command " + cmd.Kind.String()}
	}
}
