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

// Package api serves the operator HTTP API: device listing, commands,
// broadcasts, renames, the APK repository and a live event stream.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/carverauto/arceus/pkg/device"
	"github.com/carverauto/arceus/pkg/events"
	"github.com/carverauto/arceus/pkg/fleet"
	arcHttp "github.com/carverauto/arceus/pkg/http"
	"github.com/carverauto/arceus/pkg/logger"
	"github.com/carverauto/arceus/pkg/models"
	"github.com/carverauto/arceus/pkg/protocol"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 60 * time.Second
	maxBodyBytes        = 64 << 10
)

// Fleet is the coordinator surface the API drives.
type Fleet interface {
	ListDevices() []device.Snapshot
	GetDevice(key string) (device.Snapshot, error)
	SendCommand(ctx context.Context, key string, t protocol.MessageType, arg string) error
	SendShutdown(ctx context.Context, key, action string) error
	SendUninstall(ctx context.Context, key, packageName string) error
	InstallAPK(ctx context.Context, key, url string) error
	BroadcastCommand(ctx context.Context, t protocol.MessageType, arg string) (map[string]bool, error)
	RenameDevice(key, name string) error
	State() fleet.State
	Addr() net.Addr
	Bus() *events.Bus
}

// Server is the HTTP API.
type Server struct {
	cfg    models.APIConfig
	fleet  Fleet
	host   HostStats
	logger logger.Logger
	router *mux.Router

	mu   sync.Mutex
	http *http.Server
	ln   net.Listener
}

// Option customizes a Server.
type Option func(*Server)

// WithHostStats replaces the gopsutil-backed host probe.
func WithHostStats(h HostStats) Option {
	return func(s *Server) {
		s.host = h
	}
}

// NewServer builds the router. Nothing listens until Start.
func NewServer(cfg models.APIConfig, f Fleet, log logger.Logger, opts ...Option) *Server {
	s := &Server{
		cfg:    cfg,
		fleet:  f,
		host:   systemHostStats{},
		logger: log,
		router: mux.NewRouter(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()

	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(func(next http.Handler) http.Handler {
		return arcHttp.CommonMiddleware(next, s.cfg.CORS, s.logger)
	})
	s.router.Use(arcHttp.APIKeyMiddlewareWithOptions(arcHttp.APIKeyOptions{
		APIKey:          s.cfg.APIKey,
		ExcludePaths:    []string{"/apks/"},
		LogUnauthorized: true,
		Logger:          s.logger,
	}))

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/devices", s.listDevices).Methods(http.MethodGet)
	api.HandleFunc("/devices/{key}", s.getDevice).Methods(http.MethodGet)
	api.HandleFunc("/devices/{key}/commands", s.sendCommand).Methods(http.MethodPost)
	api.HandleFunc("/devices/{key}/shutdown", s.shutdownDevice).Methods(http.MethodPost)
	api.HandleFunc("/devices/{key}/apps/{package}", s.uninstallApp).Methods(http.MethodDelete)
	api.HandleFunc("/devices/{key}/install", s.installAPK).Methods(http.MethodPost)
	api.HandleFunc("/devices/{key}/name", s.renameDevice).Methods(http.MethodPut)
	api.HandleFunc("/broadcast", s.broadcast).Methods(http.MethodPost)
	api.HandleFunc("/broadcast/install", s.broadcastInstall).Methods(http.MethodPost)
	api.HandleFunc("/apks", s.listAPKs).Methods(http.MethodGet)
	api.HandleFunc("/status", s.getStatus).Methods(http.MethodGet)
	api.HandleFunc("/events", s.streamEvents).Methods(http.MethodGet)

	if s.cfg.APKDir != "" {
		s.router.PathPrefix("/apks/").Handler(
			http.StripPrefix("/apks/", http.FileServer(http.Dir(s.cfg.APKDir))),
		).Methods(http.MethodGet, http.MethodHead)
	}
}

// Start listens on cfg.ListenAddr and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}

	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	s.mu.Lock()
	s.http = srv
	s.ln = ln
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("HTTP API stopped unexpectedly")
		}
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("HTTP API listening")

	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln == nil {
		return nil
	}

	return s.ln.Addr()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.http
	s.http = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	return srv.Shutdown(ctx)
}

func encodeJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errResponse := models.ErrorResponse{
		Message: message,
		Status:  statusCode,
	}

	if err := json.NewEncoder(w).Encode(errResponse); err != nil {
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}

// statusFor maps coordinator errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, fleet.ErrDeviceNotFound), errors.Is(err, errNoAPKDir):
		return http.StatusNotFound
	case errors.Is(err, protocol.ErrNotACommand),
		errors.Is(err, protocol.ErrUnknownTypeName),
		errors.Is(err, protocol.ErrInvalidShutdownAction),
		errors.Is(err, device.ErrMissingArgument),
		errors.Is(err, fleet.ErrProtectedPackage),
		errors.Is(err, fleet.ErrNotRegistered),
		errors.Is(err, errInvalidBody),
		errors.Is(err, errInvalidAPK):
		return http.StatusBadRequest
	case errors.Is(err, fleet.ErrNamesUnavailable):
		return http.StatusNotImplemented
	case errors.Is(err, device.ErrSendFailed), errors.Is(err, device.ErrSessionClosed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	writeError(w, err.Error(), statusFor(err))
}
