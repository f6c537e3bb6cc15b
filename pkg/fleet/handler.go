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
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/carverauto/arceus/pkg/device"
	"github.com/carverauto/arceus/pkg/events"
	"github.com/carverauto/arceus/pkg/protocol"
)

// handleConn owns conn for its lifetime: it registers the session, decodes
// everything the device sends and reaps the session when the stream ends.
func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()

	ctx := context.Background()

	sess := device.NewSession(conn, device.Options{
		WriteTimeout: s.cfg.WriteTimeout,
		HistorySize:  s.cfg.HistorySize,
		Names:        s.resolver(),
		Clock:        s.clock,
	})

	if !s.registry.Add(sess.Addr(), sess) {
		s.logger.Debug().Str("addr", sess.Addr()).Msg("Rejecting connection during shutdown")
		_ = sess.Close()

		return
	}

	recordSessionDelta(ctx, 1)
	s.logger.Info().Str("addr", sess.Addr()).Str("session_id", sess.ID()).Msg("Device connected")

	buf := make([]byte, s.cfg.ReadBufferSize)

	for {
		n, err := sess.Read(buf)
		if n > 0 {
			s.dispatchChunk(ctx, sess, buf[:n])
		}

		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug().Err(err).Str("key", sess.Key()).Msg("Device read failed")
			}

			break
		}
	}

	s.reap(ctx, sess)
}

func (s *Server) resolver() device.NameResolver {
	if s.names == nil {
		return nil
	}

	return s.names
}

// dispatchChunk decodes every complete message in one read. The wire has no
// framing beyond the tag, so a decode error leaves no way to resync and the
// rest of the chunk is dropped; the connection stays open.
func (s *Server) dispatchChunk(ctx context.Context, sess *device.Session, chunk []byte) {
	offset := 0

	for offset < len(chunk) {
		msg, n, err := protocol.Decode(chunk, offset)
		if err != nil {
			recordDecodeError(ctx)
			s.logger.Warn().
				Err(err).
				Str("key", sess.Key()).
				Int("offset", offset).
				Int("dropped_bytes", len(chunk)-offset).
				Msg("Dropping undecodable device data")

			return
		}

		offset += n

		recordMessage(ctx, msg.Type())
		sess.Touch()
		s.dispatch(sess, msg)
	}
}

func (s *Server) dispatch(sess *device.Session, msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.Registration:
		s.handleRegistration(sess, m)
	case protocol.HeartbeatMsg:
		events.Emit(s.bus, DeviceUpdatedTopic, sess)
	case protocol.BatteryReport:
		sess.ApplyBattery(m.Level, m.Charging)
		events.Emit(s.bus, BatteryUpdatedTopic, sess)
	case protocol.CommandResult:
		outcome := sess.AppendResponse(m.Success, m.Message)
		events.Emit(s.bus, CommandExecutedTopic, CommandExecuted{
			Session:   sess,
			Succeeded: m.Success,
			Message:   m.Message,
			Outcome:   outcome,
		})
	case protocol.ErrorReport:
		sess.AppendOutcome(false, m.Message)
		s.logger.Warn().Str("key", sess.Key()).Str("error", m.Message).Msg("Device reported an error")
		events.Emit(s.bus, ErrorOccurredTopic, fmt.Sprintf("%s: %s", sess.DisplayName(), m.Message))
	case protocol.Command:
		s.logger.Warn().Str("key", sess.Key()).Stringer("type", m.Kind).Msg("Ignoring command sent by a device")
	}
}

func (s *Server) handleRegistration(sess *device.Session, m protocol.Registration) {
	if m.Serial == "" {
		s.logger.Warn().Str("addr", sess.Addr()).Str("model", m.Model).Msg("Ignoring registration without a serial")

		return
	}

	_, wasRegistered := sess.Identity()

	oldKey, newKey, err := sess.ApplyIdentity(m.Model, m.Serial)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", oldKey).Msg("Rejected registration")

		return
	}

	if oldKey != newKey {
		displaced, ok := s.registry.Rekey(oldKey, newKey, sess)
		if !ok {
			return
		}

		if displaced != nil {
			s.logger.Info().
				Str("serial", newKey).
				Str("old_addr", displaced.Addr()).
				Str("new_addr", sess.Addr()).
				Msg("Replacing stale session for reconnecting device")

			_ = displaced.Close()
		}
	}

	if wasRegistered {
		events.Emit(s.bus, DeviceUpdatedTopic, sess)

		return
	}

	s.logger.Info().
		Str("serial", m.Serial).
		Str("model", m.Model).
		Str("addr", sess.Addr()).
		Msg("Device registered")
	events.Emit(s.bus, DeviceConnectedTopic, sess)
}

// reap removes sess if it is still the registered owner of its key and
// publishes device_disconnected only in that case. A session displaced by a
// reconnect of the same serial therefore leaves silently.
func (s *Server) reap(ctx context.Context, sess *device.Session) {
	key := sess.Key()

	removed := s.registry.Remove(key, sess)
	if !removed && key != sess.Addr() && s.registry.Remove(sess.Addr(), sess) {
		removed, key = true, sess.Addr()
	}

	_ = sess.Close()

	recordSessionDelta(ctx, -1)

	if !removed {
		return
	}

	s.logger.Info().Str("key", key).Msg("Device disconnected")
	events.Emit(s.bus, DeviceDisconnectedTopic, key)
}
