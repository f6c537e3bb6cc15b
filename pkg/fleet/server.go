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

// Package fleet accepts headset connections, tracks them in a registry and
// publishes what they report on an event bus.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/carverauto/arceus/pkg/device"
	"github.com/carverauto/arceus/pkg/events"
	"github.com/carverauto/arceus/pkg/logger"
)

const tracerName = "github.com/carverauto/arceus/pkg/fleet"

// State is the server lifecycle stage.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// NameStore persists operator-assigned names keyed by serial.
type NameStore interface {
	device.NameResolver
	Set(serial, name string) error
}

// Option customizes a Server.
type Option func(*Server)

// WithBus publishes on b instead of a private bus.
func WithBus(b *events.Bus) Option {
	return func(s *Server) {
		s.bus = b
	}
}

// WithNames resolves display names through store and enables RenameDevice.
func WithNames(store NameStore) Option {
	return func(s *Server) {
		s.names = store
	}
}

// WithClock overrides time.Now for sessions.
func WithClock(clock func() time.Time) Option {
	return func(s *Server) {
		s.clock = clock
	}
}

// Server owns the listener, the registry and the per-connection handlers.
type Server struct {
	cfg      Config
	bus      *events.Bus
	registry *Registry
	names    NameStore
	logger   logger.Logger
	tracer   trace.Tracer
	clock    func() time.Time

	mu       sync.Mutex
	state    State
	listener *net.TCPListener
	done     chan struct{}

	wg sync.WaitGroup
}

// NewServer builds a stopped server.
func NewServer(cfg Config, log logger.Logger, opts ...Option) (*Server, error) {
	if cfg.ReadBufferSize < 0 {
		return nil, fmt.Errorf("%w: %d", errInvalidBufferSize, cfg.ReadBufferSize)
	}

	cfg.applyDefaults()

	s := &Server{
		cfg:      cfg,
		registry: NewRegistry(),
		logger:   log,
		tracer:   otel.Tracer(tracerName),
		clock:    time.Now,
		state:    StateStopped,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.bus == nil {
		s.bus = events.NewBus(log)
	}

	return s, nil
}

// Bus returns the bus the server publishes on.
func (s *Server) Bus() *events.Bus {
	return s.bus
}

// Registry exposes the live session registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// State returns the current lifecycle stage.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Addr returns the bound listener address, or nil when not running.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return nil
	}

	return s.listener.Addr()
}

// Start binds host:port and begins accepting connections. It is a no-op when
// the server is already running. A bind failure is returned, published as
// error_occurred, and leaves the server stopped.
func (s *Server) Start(ctx context.Context, host string, port int) error {
	s.mu.Lock()

	switch s.state {
	case StateRunning, StateStarting:
		s.mu.Unlock()

		return nil
	case StateStopping:
		s.mu.Unlock()

		return ErrServerStopping
	case StateStopped:
	}

	s.state = StateStarting
	s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "fleet.Start", trace.WithAttributes(
		attribute.String("host", host),
		attribute.Int("port", port),
	))
	defer span.End()

	addr := net.JoinHostPort(host, strconv.Itoa(port))

	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		s.setState(StateStopped)

		span.RecordError(err)
		span.SetStatus(codes.Error, "bind failed")

		s.logger.Error().Err(err).Str("addr", addr).Msg("Failed to start device server")
		events.Emit(s.bus, ErrorOccurredTopic, fmt.Sprintf("failed to start server on %s: %v", addr, err))

		return fmt.Errorf("%w on %s: %w", ErrBindFailed, addr, err)
	}

	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		_ = ln.Close()

		s.setState(StateStopped)

		return fmt.Errorf("%w: unexpected listener type %T", ErrBindFailed, ln)
	}

	s.registry.Unseal()

	done := make(chan struct{})

	s.mu.Lock()
	s.listener = tcpLn
	s.done = done
	s.state = StateRunning
	s.mu.Unlock()

	boundPort := port
	if a, ok := tcpLn.Addr().(*net.TCPAddr); ok {
		boundPort = a.Port
	}

	s.wg.Add(1)

	go s.acceptLoop(tcpLn, done)

	s.logger.Info().Str("host", host).Int("port", boundPort).Msg("Device server started")
	events.Emit(s.bus, ServerStartedTopic, ServerStarted{Host: host, Port: boundPort})

	return nil
}

func (s *Server) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
}

// acceptLoop polls Accept with a deadline so a stop is noticed within one
// AcceptPollInterval even if closing the listener does not wake it.
func (s *Server) acceptLoop(ln *net.TCPListener, done <-chan struct{}) {
	defer s.wg.Done()

	for {
		select {
		case <-done:
			return
		default:
		}

		if err := ln.SetDeadline(time.Now().Add(s.cfg.AcceptPollInterval)); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			s.logger.Warn().Err(err).Msg("Failed to set accept deadline")
		}

		conn, err := ln.Accept()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}

			if errors.Is(err, net.ErrClosed) {
				return
			}

			s.logger.Warn().Err(err).Msg("Accept failed")

			continue
		}

		s.wg.Add(1)

		go s.handleConn(conn)
	}
}

// Stop seals the registry, closes every session and the listener, and waits
// for handlers to finish or ctx to expire. It returns ErrServerStarting while
// a Start is still binding and is a no-op in any other non-running state.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateRunning:
	case StateStarting:
		s.mu.Unlock()

		return ErrServerStarting
	case StateStopped, StateStopping:
		s.mu.Unlock()

		return nil
	}

	s.state = StateStopping
	ln := s.listener
	close(s.done)
	s.mu.Unlock()

	ctx, span := s.tracer.Start(ctx, "fleet.Stop")
	defer span.End()

	sessions := s.registry.Seal()
	for _, sess := range sessions {
		_ = sess.Close()
	}

	if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Warn().Err(err).Msg("Failed to close listener")
	}

	waitCh := make(chan struct{})

	go func() {
		s.wg.Wait()
		close(waitCh)
	}()

	var err error

	select {
	case <-waitCh:
	case <-ctx.Done():
		err = fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
		span.RecordError(err)
	}

	s.mu.Lock()
	s.listener = nil
	s.state = StateStopped
	s.mu.Unlock()

	s.logger.Info().Int("sessions_closed", len(sessions)).Msg("Device server stopped")
	events.Emit(s.bus, ServerStoppedTopic, ServerStopped{})

	return err
}
