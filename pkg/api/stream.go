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

package api

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/carverauto/arceus/pkg/fleet"
)

const (
	streamBuffer     = 64
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = (streamPongWait * 9) / 10
)

// StreamMessage is one event pushed to websocket clients.
type StreamMessage struct {
	Topic     string      `json:"topic"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// streamEvents upgrades to a websocket and forwards every bus publication.
// A client that cannot keep up loses events rather than slowing the bus.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkWebSocketOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Failed to upgrade to WebSocket")

		return
	}

	defer func() { _ = conn.Close() }()

	s.logger.Info().Str("remote_addr", r.RemoteAddr).Msg("Event stream client connected")

	out := make(chan StreamMessage, streamBuffer)

	var dropped atomic.Uint64

	sub := s.fleet.Bus().SubscribeAll(func(topic string, payload any) error {
		msg := StreamMessage{Topic: topic, Data: fleet.Export(topic, payload), Timestamp: time.Now()}

		select {
		case out <- msg:
		default:
			dropped.Add(1)
		}

		return nil
	})
	defer sub.Unsubscribe()

	closed := make(chan struct{})

	go readPump(conn, closed)

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))

			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Event stream write failed")

				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case <-closed:
			s.logger.Info().
				Str("remote_addr", r.RemoteAddr).
				Uint64("dropped", dropped.Load()).
				Msg("Event stream client disconnected")

			return
		case <-r.Context().Done():
			return
		}
	}
}

// readPump discards client frames and signals when the peer goes away.
func readPump(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)

	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	for _, allowed := range s.cfg.CORS.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	return origin == "http://"+r.Host || origin == "https://"+r.Host
}
