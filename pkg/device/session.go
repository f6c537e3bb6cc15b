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

// Package device models one live headset connection: its socket, the
// identity and battery it reported, and the outcomes of commands sent to it.
package device

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carverauto/arceus/pkg/protocol"
)

// Options configures a Session. Zero values select defaults.
type Options struct {
	// WriteTimeout bounds a single socket write. Zero disables the deadline.
	WriteTimeout time.Duration
	// HistorySize caps the outcome history and the in-flight command queue.
	HistorySize int
	Names       NameResolver
	Clock       func() time.Time
}

// Session is one live connection. Sends are serialized by sendMu; identity,
// battery, history and the name cache are guarded by mu. The two locks are
// never held together except in Send, which takes mu briefly under sendMu.
type Session struct {
	id          string
	conn        net.Conn
	ip          string
	port        int
	connectedAt time.Time

	writeTimeout time.Duration
	historySize  int
	names        NameResolver
	clock        func() time.Time

	sendMu sync.Mutex

	mu         sync.RWMutex
	registered bool
	model      string
	serial     string
	lastSeen   time.Time
	battery    *Battery
	history    []Outcome
	pending    []protocol.MessageType
	connected  bool
	nameCache  string
	nameFor    string
	nameValid  bool

	closeOnce sync.Once
}

// NewSession wraps an accepted connection.
func NewSession(conn net.Conn, opts Options) *Session {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	historySize := opts.HistorySize
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}

	ip, port := splitAddr(conn.RemoteAddr())
	now := clock()

	return &Session{
		id:           uuid.New().String(),
		conn:         conn,
		ip:           ip,
		port:         port,
		connectedAt:  now,
		writeTimeout: opts.WriteTimeout,
		historySize:  historySize,
		names:        opts.Names,
		clock:        clock,
		lastSeen:     now,
		connected:    true,
	}
}

func splitAddr(addr net.Addr) (string, int) {
	if addr == nil {
		return "", 0
	}

	host, portStr, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String(), 0
	}

	port, _ := strconv.Atoi(portStr)

	return host, port
}

// ID is a random identifier unique to this connection.
func (s *Session) ID() string {
	return s.id
}

// Addr returns "ip:port" of the remote end.
func (s *Session) Addr() string {
	return net.JoinHostPort(s.ip, strconv.Itoa(s.port))
}

// Key is the registry key: the serial once registered, else the remote address.
func (s *Session) Key() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.keyLocked()
}

func (s *Session) keyLocked() string {
	if s.registered && s.serial != "" {
		return s.serial
	}

	return s.Addr()
}

// Read reads from the socket. Only the connection's handler goroutine reads.
func (s *Session) Read(p []byte) (int, error) {
	return s.conn.Read(p)
}

// Send writes tag and payload as one write. A failure closes the session so
// the connection's reader unblocks and the device is reaped; there is no retry.
func (s *Session) Send(t protocol.MessageType, payload []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if !s.Connected() {
		return ErrSessionClosed
	}

	frame := make([]byte, 0, len(payload)+1)
	frame = append(frame, uint8(t))
	frame = append(frame, payload...)

	// queued before the write so a fast response cannot overtake it
	if t.ExpectsResponse() {
		s.pushPending(t)
	}

	if s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(s.clock().Add(s.writeTimeout)); err != nil {
			_ = s.Close()

			return fmt.Errorf("%w: %w", ErrSendFailed, err)
		}
	}

	if _, err := s.conn.Write(frame); err != nil {
		_ = s.Close()

		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	return nil
}

// SendMessage encodes m and sends it.
func (s *Session) SendMessage(m protocol.Message) error {
	payload, err := protocol.EncodePayload(m)
	if err != nil {
		return err
	}

	return s.Send(m.Type(), payload)
}

// SendCommand builds and sends a coordinator-to-device command. Commands that
// carry an argument reject an empty one; payload-less commands ignore arg.
func (s *Session) SendCommand(t protocol.MessageType, arg string) error {
	if t.CarriesArgument() && arg == "" {
		return fmt.Errorf("%w: %s", ErrMissingArgument, t)
	}

	cmd, err := protocol.NewCommand(t, arg)
	if err != nil {
		return err
	}

	return s.SendMessage(cmd)
}

// SendShutdown sends SHUTDOWN_DEVICE with "shutdown" or "restart".
func (s *Session) SendShutdown(action string) error {
	return s.SendCommand(protocol.ShutdownDevice, action)
}

// SendUninstall sends UNINSTALL_APP for packageName.
func (s *Session) SendUninstall(packageName string) error {
	return s.SendCommand(protocol.UninstallApp, packageName)
}

// ApplyIdentity records a DEVICE_CONNECTED registration. A different serial
// than one already observed is rejected and nothing changes. It reports the
// registry key before and after the call.
func (s *Session) ApplyIdentity(model, serial string) (oldKey, newKey string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldKey = s.keyLocked()

	if s.registered && s.serial != serial {
		return oldKey, oldKey, fmt.Errorf("%w: have %q, got %q", ErrSerialMismatch, s.serial, serial)
	}

	s.registered = true
	s.model = model
	s.serial = serial
	s.lastSeen = s.clock()
	s.nameValid = false

	return oldKey, s.keyLocked(), nil
}

// ApplyBattery replaces the battery reading.
func (s *Session) ApplyBattery(level uint8, charging bool) Battery {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	b := Battery{Level: level, Charging: charging, UpdatedAt: now}
	s.battery = &b
	s.lastSeen = now

	return b
}

// AppendOutcome records an uncorrelated outcome, as produced by an ERROR message.
func (s *Session) AppendOutcome(succeeded bool, message string) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendLocked(Outcome{Succeeded: succeeded, Message: message})
}

// AppendResponse records a COMMAND_RESPONSE, attributing it to the oldest
// in-flight command. The wire carries no correlation id, so this assumes the
// device answers commands one at a time in the order they were sent.
func (s *Session) AppendResponse(succeeded bool, message string) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := Outcome{Succeeded: succeeded, Message: message}

	if len(s.pending) > 0 {
		o.Command = s.pending[0]
		s.pending = s.pending[1:]
	}

	return s.appendLocked(o)
}

func (s *Session) appendLocked(o Outcome) Outcome {
	o.At = s.clock()
	s.lastSeen = o.At

	s.history = append(s.history, o)
	if over := len(s.history) - s.historySize; over > 0 {
		s.history = append([]Outcome(nil), s.history[over:]...)
	}

	return o
}

func (s *Session) pushPending(t protocol.MessageType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = append(s.pending, t)
	if over := len(s.pending) - s.historySize; over > 0 {
		s.pending = append([]protocol.MessageType(nil), s.pending[over:]...)
	}
}

// Touch marks the device as heard from now.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = s.clock()
}

// DisplayName returns the operator-assigned name, else "model (serial)", else
// the remote address. The result is cached until InvalidateName.
func (s *Session) DisplayName() string {
	s.mu.RLock()
	if s.nameValid && s.nameFor == s.serial {
		name := s.nameCache
		s.mu.RUnlock()

		return name
	}

	registered, model, serial := s.registered, s.model, s.serial
	s.mu.RUnlock()

	name := s.resolveName(registered, model, serial)

	s.mu.Lock()
	if s.serial == serial {
		s.nameCache = name
		s.nameFor = serial
		s.nameValid = true
	}
	s.mu.Unlock()

	return name
}

// resolveName runs without the state lock since the resolver may do I/O.
func (s *Session) resolveName(registered bool, model, serial string) string {
	if registered && serial != "" && s.names != nil {
		if name, ok := s.names.Lookup(serial); ok && name != "" {
			return name
		}
	}

	if registered && serial != "" {
		return fmt.Sprintf("%s (%s)", model, serial)
	}

	return s.Addr()
}

// InvalidateName drops the cached display name.
func (s *Session) InvalidateName() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nameValid = false
}

// Identity returns the registered identity, or false before DEVICE_CONNECTED.
func (s *Session) Identity() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.identityLocked(), s.registered
}

func (s *Session) identityLocked() Identity {
	return Identity{
		Model:       s.model,
		Serial:      s.serial,
		IP:          s.ip,
		Port:        s.port,
		ConnectedAt: s.connectedAt,
		LastSeen:    s.lastSeen,
	}
}

// Battery returns the latest battery report, or false if none arrived yet.
func (s *Session) Battery() (Battery, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.battery == nil {
		return Battery{}, false
	}

	return *s.battery, true
}

// History returns a copy of the outcome history, oldest first.
func (s *Session) History() []Outcome {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]Outcome(nil), s.history...)
}

// Connected reports whether the socket is still considered usable.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.connected
}

func (s *Session) markDisconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected = false
	s.pending = nil
}

// Close marks the session disconnected and closes its socket. Later calls
// are no-ops.
func (s *Session) Close() error {
	var err error

	s.closeOnce.Do(func() {
		s.markDisconnected()
		err = s.conn.Close()
	})

	return err
}

// Snapshot copies the session state for observers.
func (s *Session) Snapshot() Snapshot {
	name := s.DisplayName()

	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		ID:          s.id,
		Key:         s.keyLocked(),
		DisplayName: name,
		Registered:  s.registered,
		Identity:    s.identityLocked(),
		History:     append([]Outcome(nil), s.history...),
		Pending:     len(s.pending),
		Connected:   s.connected,
	}

	if s.battery != nil {
		b := *s.battery
		snap.Battery = &b
	}

	return snap
}
