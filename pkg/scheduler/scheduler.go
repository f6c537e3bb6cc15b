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

// Package scheduler runs periodic fleet-wide commands such as battery polls.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/carverauto/arceus/pkg/logger"
	"github.com/carverauto/arceus/pkg/models"
	"github.com/carverauto/arceus/pkg/protocol"
)

const jobTimeout = 30 * time.Second

var errInvalidSpec = errors.New("invalid schedule")

// Broadcaster sends one command to every connected device.
type Broadcaster interface {
	BroadcastCommand(ctx context.Context, t protocol.MessageType, arg string) (map[string]bool, error)
}

// Scheduler wraps a cron runner whose jobs broadcast commands.
type Scheduler struct {
	cron   *cron.Cron
	target Broadcaster
	logger logger.Logger
	jobs   int
}

// New registers a job for every non-empty spec in cfg.
func New(target Broadcaster, cfg models.ScheduleConfig, log logger.Logger) (*Scheduler, error) {
	cl := cronLogger{log: log}

	s := &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		target: target,
		logger: log,
	}

	jobs := []struct {
		spec string
		kind protocol.MessageType
	}{
		{cfg.BatteryPoll, protocol.RequestBattery},
		{cfg.Ping, protocol.Ping},
	}

	for _, j := range jobs {
		if j.spec == "" {
			continue
		}

		kind := j.kind
		if _, err := s.cron.AddFunc(j.spec, func() { s.broadcast(kind) }); err != nil {
			return nil, fmt.Errorf("%w for %s %q: %w", errInvalidSpec, kind, j.spec, err)
		}

		s.jobs++
	}

	return s, nil
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return s.jobs
}

// Start runs the jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs or ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) broadcast(kind protocol.MessageType) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	results, err := s.target.BroadcastCommand(ctx, kind, "")
	if err != nil {
		s.logger.Error().Err(err).Stringer("type", kind).Msg("Scheduled broadcast failed")

		return
	}

	failed := 0

	for _, ok := range results {
		if !ok {
			failed++
		}
	}

	s.logger.Debug().
		Stringer("type", kind).
		Int("devices", len(results)).
		Int("failed", failed).
		Msg("Scheduled broadcast sent")
}

// cronLogger adapts logger.Logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
