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
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carverauto/arceus/pkg/device"
	"github.com/carverauto/arceus/pkg/events"
	"github.com/carverauto/arceus/pkg/protocol"
)

// ListDevices returns snapshots of every live session, ordered by key.
func (s *Server) ListDevices() []device.Snapshot {
	sessions := s.registry.List()
	out := make([]device.Snapshot, 0, len(sessions))

	for _, sess := range sessions {
		out = append(out, sess.Snapshot())
	}

	return out
}

// Session returns the live session under key.
func (s *Server) Session(key string) (*device.Session, error) {
	sess, ok := s.registry.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, key)
	}

	return sess, nil
}

// GetDevice returns a snapshot of the session under key.
func (s *Server) GetDevice(key string) (device.Snapshot, error) {
	sess, err := s.Session(key)
	if err != nil {
		return device.Snapshot{}, err
	}

	return sess.Snapshot(), nil
}

// validateCommand rejects a command before any socket is touched so a
// broadcast of a bad command fails as a whole rather than per device.
func (s *Server) validateCommand(t protocol.MessageType, arg string) error {
	if _, err := protocol.NewCommand(t, arg); err != nil {
		return err
	}

	if t.CarriesArgument() && arg == "" {
		return fmt.Errorf("%w: %s", device.ErrMissingArgument, t)
	}

	if t == protocol.UninstallApp && s.cfg.isProtected(arg) {
		return fmt.Errorf("%w: %s", ErrProtectedPackage, arg)
	}

	return nil
}

// SendCommand sends one command to the device under key.
func (s *Server) SendCommand(ctx context.Context, key string, t protocol.MessageType, arg string) error {
	ctx, span := s.tracer.Start(ctx, "fleet.SendCommand", trace.WithAttributes(
		attribute.String("key", key),
		attribute.String("type", t.String()),
	))
	defer span.End()

	if err := s.validateCommand(t, arg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid command")

		return err
	}

	sess, err := s.Session(key)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "device not found")

		return err
	}

	err = sess.SendCommand(t, arg)
	recordCommandSent(ctx, t, err == nil)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		s.logger.Warn().Err(err).Str("key", key).Stringer("type", t).Msg("Failed to send command")

		return err
	}

	s.logger.Debug().Str("key", key).Stringer("type", t).Msg("Sent command")

	return nil
}

// SendShutdown asks the device under key to shut down or restart.
func (s *Server) SendShutdown(ctx context.Context, key, action string) error {
	return s.SendCommand(ctx, key, protocol.ShutdownDevice, strings.ToLower(strings.TrimSpace(action)))
}

// SendUninstall asks the device under key to remove packageName. Protected
// packages are refused.
func (s *Server) SendUninstall(ctx context.Context, key, packageName string) error {
	return s.SendCommand(ctx, key, protocol.UninstallApp, packageName)
}

// InstallAPK asks the device under key to download and install the APK at url.
func (s *Server) InstallAPK(ctx context.Context, key, url string) error {
	return s.SendCommand(ctx, key, protocol.DownloadAndInstallAPK, url)
}

// BroadcastCommand sends one command to every live session concurrently and
// reports per key whether the write succeeded. An invalid command is
// rejected before anything is sent.
func (s *Server) BroadcastCommand(ctx context.Context, t protocol.MessageType, arg string) (map[string]bool, error) {
	ctx, span := s.tracer.Start(ctx, "fleet.BroadcastCommand", trace.WithAttributes(
		attribute.String("type", t.String()),
	))
	defer span.End()

	if err := s.validateCommand(t, arg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid command")

		return nil, err
	}

	results := s.registry.Broadcast(func(sess *device.Session) error {
		err := sess.SendCommand(t, arg)
		recordCommandSent(ctx, t, err == nil)

		if err != nil {
			s.logger.Warn().Err(err).Str("key", sess.Key()).Stringer("type", t).Msg("Broadcast send failed")
		}

		return err
	})

	failed := 0

	for _, ok := range results {
		if !ok {
			failed++
		}
	}

	recordBroadcastFailures(ctx, t, failed)
	span.SetAttributes(
		attribute.Int("devices", len(results)),
		attribute.Int("failed", failed),
	)

	s.logger.Info().
		Stringer("type", t).
		Int("devices", len(results)).
		Int("failed", failed).
		Msg("Broadcast command")

	return results, nil
}

// RenameDevice assigns an operator name to the registered device under key.
// A blank name reverts to the default "model (serial)".
func (s *Server) RenameDevice(key, name string) error {
	if s.names == nil {
		return ErrNamesUnavailable
	}

	sess, err := s.Session(key)
	if err != nil {
		return err
	}

	id, registered := sess.Identity()
	if !registered {
		return fmt.Errorf("%w: %s", ErrNotRegistered, key)
	}

	if err := s.names.Set(id.Serial, name); err != nil {
		return fmt.Errorf("failed to store name for %s: %w", id.Serial, err)
	}

	sess.InvalidateName()
	newName := sess.DisplayName()

	s.logger.Info().Str("key", key).Str("name", newName).Msg("Device renamed")
	events.Emit(s.bus, DeviceNameChangedTopic, NameChanged{Key: key, NewName: newName})

	return nil
}
