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

// Package app wires the coordinator binary together.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/carverauto/arceus/pkg/api"
	"github.com/carverauto/arceus/pkg/config"
	"github.com/carverauto/arceus/pkg/fleet"
	"github.com/carverauto/arceus/pkg/lifecycle"
	"github.com/carverauto/arceus/pkg/logger"
	"github.com/carverauto/arceus/pkg/models"
	"github.com/carverauto/arceus/pkg/names"
	"github.com/carverauto/arceus/pkg/natsbridge"
	"github.com/carverauto/arceus/pkg/scheduler"
	"github.com/carverauto/arceus/pkg/version"
)

const (
	serviceName     = "arceus-coordinator"
	shutdownTimeout = 10 * time.Second
)

// Options contains runtime configuration derived from CLI flags.
type Options struct {
	ConfigPath string
	// ListenHost and ListenPort override the config file when non-nil.
	ListenHost *string
	ListenPort *int
}

// LoadConfig returns defaults overlaid with the config file (or the
// environment, when CONFIG_SOURCE=env) and the flag overrides.
func LoadConfig(ctx context.Context, opts Options) (*models.CoordinatorConfig, error) {
	cfg := models.DefaultCoordinatorConfig()

	if opts.ConfigPath != "" || os.Getenv("CONFIG_SOURCE") == "env" {
		if err := config.NewConfig(nil).LoadAndValidate(ctx, opts.ConfigPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	if opts.ListenHost != nil {
		cfg.ListenHost = *opts.ListenHost
	}

	if opts.ListenPort != nil {
		cfg.ListenPort = *opts.ListenPort
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Run boots the coordinator and blocks until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := LoadConfig(ctx, opts)
	if err != nil {
		return err
	}

	mainLogger, err := lifecycle.CreateComponentLogger(ctx, "arceus", cfg.Logging)
	if err != nil {
		return err
	}

	defer func() {
		if err := lifecycle.ShutdownLogger(); err != nil {
			mainLogger.Error().Err(err).Msg("Error shutting down logger")
		}
	}()

	shutdownTelemetry, err := initTelemetry(ctx, cfg, mainLogger)
	if err != nil {
		return err
	}
	defer shutdownTelemetry()

	svc, err := startServices(ctx, cfg, mainLogger)
	if err != nil {
		return err
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		svc.shutdown(shutdownCtx)
	}()

	mainLogger.Info().
		Str("version", version.GetFullVersion()).
		Str("addr", svc.server.Addr().String()).
		Bool("api", cfg.API.Enabled).
		Bool("events", cfg.Events.Enabled).
		Int("scheduled_jobs", svc.jobs).
		Msg("Coordinator running")

	<-ctx.Done()

	mainLogger.Info().Msg("Shutting down coordinator")

	return nil
}

// services holds everything Run started. Stops run in reverse start order,
// so the event exporter, started first, outlives the device server and
// ships its disconnect and stop events.
type services struct {
	server *fleet.Server
	jobs   int
	stops  []func(context.Context)
}

func (s *services) onStop(fn func(context.Context)) {
	s.stops = append(s.stops, fn)
}

func (s *services) shutdown(ctx context.Context) {
	for i := len(s.stops) - 1; i >= 0; i-- {
		s.stops[i](ctx)
	}

	s.stops = nil
}

func startServices(ctx context.Context, cfg *models.CoordinatorConfig, log logger.Logger) (_ *services, err error) {
	svc := &services{}

	defer func() {
		if err != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			svc.shutdown(shutdownCtx)
		}
	}()

	store, err := names.Open(cfg.NamesFile, log)
	if err != nil {
		return nil, err
	}

	svc.server, err = fleet.NewServer(fleet.ConfigFromModel(cfg), log, fleet.WithNames(store))
	if err != nil {
		return nil, err
	}

	if cfg.Events.Enabled {
		stop, err := startEventExport(ctx, cfg, svc.server, log)
		if err != nil {
			return nil, err
		}

		svc.onStop(stop)
	}

	if err := svc.server.Start(ctx, cfg.ListenHost, cfg.ListenPort); err != nil {
		return nil, err
	}

	svc.onStop(func(ctx context.Context) {
		if err := svc.server.Stop(ctx); err != nil {
			log.Error().Err(err).Msg("Device server did not stop cleanly")
		}
	})

	sched, err := scheduler.New(svc.server, cfg.Schedule, log)
	if err != nil {
		return nil, err
	}

	svc.jobs = sched.Jobs()

	if svc.jobs > 0 {
		sched.Start()

		svc.onStop(func(ctx context.Context) {
			if err := sched.Stop(ctx); err != nil {
				log.Warn().Err(err).Msg("Scheduled jobs still running at shutdown")
			}
		})
	}

	if cfg.API.Enabled {
		apiServer := api.NewServer(cfg.API, svc.server, log)
		if err := apiServer.Start(); err != nil {
			return nil, err
		}

		svc.onStop(func(ctx context.Context) {
			if err := apiServer.Shutdown(ctx); err != nil {
				log.Error().Err(err).Msg("HTTP API did not stop cleanly")
			}
		})
	}

	return svc, nil
}

func initTelemetry(ctx context.Context, cfg *models.CoordinatorConfig, log logger.Logger) (func(), error) {
	var shutdowns []func(context.Context) error

	if cfg.Telemetry.Tracing {
		tp, err := logger.InitializeTracing(ctx, logger.TracingConfig{
			ServiceName:    serviceName,
			ServiceVersion: version.GetVersion(),
			Logger:         log,
			OTel:           &cfg.Telemetry.OTel,
		})
		if err != nil {
			return nil, err
		}

		shutdowns = append(shutdowns, tp.Shutdown)
	}

	if cfg.Telemetry.Metrics {
		mp, err := logger.InitializeMetrics(ctx, logger.MetricsConfig{
			ServiceName:    serviceName,
			ServiceVersion: version.GetVersion(),
			OTel:           &cfg.Telemetry.OTel,
			ExportInterval: cfg.Telemetry.ExportInterval.Std(),
		})

		switch {
		case errors.Is(err, logger.ErrOTelMetricsDisabled):
			log.Warn().Msg("Metrics requested but no OTLP endpoint is configured")
		case err != nil:
			return nil, err
		default:
			shutdowns = append(shutdowns, mp.Shutdown)
		}
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		for _, shutdown := range shutdowns {
			if err := shutdown(ctx); err != nil {
				log.Error().Err(err).Msg("Error shutting down telemetry provider")
			}
		}
	}, nil
}

func startEventExport(
	ctx context.Context, cfg *models.CoordinatorConfig, server *fleet.Server, log logger.Logger,
) (func(context.Context), error) {
	pub, nc, err := natsbridge.Connect(ctx, cfg.NATS, cfg.Events, log)
	if err != nil {
		return nil, err
	}

	bridge, err := natsbridge.NewBridge(pub, cfg.Events, log)
	if err != nil {
		nc.Close()

		return nil, err
	}

	bridge.Attach(server.Bus())
	// the worker is stopped explicitly after the device server so that
	// shutdown events are still delivered once the signal context is done
	bridge.Start(context.Background())

	return func(context.Context) {
		bridge.Stop()

		if err := nc.Drain(); err != nil {
			log.Warn().Err(err).Msg("Failed to drain NATS connection")
		}

		if n := bridge.Dropped(); n > 0 {
			log.Warn().Uint64("dropped", n).Msg("Events dropped by the NATS exporter")
		}
	}, nil
}
