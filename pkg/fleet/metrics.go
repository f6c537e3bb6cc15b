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
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/carverauto/arceus/pkg/protocol"
)

const (
	meterName               = "github.com/carverauto/arceus/pkg/fleet"
	metricSessionsActive    = "arceus_fleet_sessions_active"
	metricMessagesReceived  = "arceus_fleet_messages_received_total"
	metricDecodeErrors      = "arceus_fleet_decode_errors_total"
	metricCommandsSent      = "arceus_fleet_commands_sent_total"
	metricBroadcastFailures = "arceus_fleet_broadcast_failures_total"
)

//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
var (
	meterOnce         sync.Once
	sessionsActive    metric.Int64UpDownCounter
	messagesReceived  metric.Int64Counter
	decodeErrors      metric.Int64Counter
	commandsSent      metric.Int64Counter
	broadcastFailures metric.Int64Counter
)

func initMeter() {
	meter := otel.Meter(meterName)

	var err error

	if sessionsActive, err = meter.Int64UpDownCounter(
		metricSessionsActive,
		metric.WithDescription("Headset connections currently open"),
	); err != nil {
		otel.Handle(err)
	}

	if messagesReceived, err = meter.Int64Counter(
		metricMessagesReceived,
		metric.WithDescription("Decoded messages received from headsets"),
	); err != nil {
		otel.Handle(err)
	}

	if decodeErrors, err = meter.Int64Counter(
		metricDecodeErrors,
		metric.WithDescription("Read chunks dropped because a message failed to decode"),
	); err != nil {
		otel.Handle(err)
	}

	if commandsSent, err = meter.Int64Counter(
		metricCommandsSent,
		metric.WithDescription("Commands written to headsets"),
	); err != nil {
		otel.Handle(err)
	}

	if broadcastFailures, err = meter.Int64Counter(
		metricBroadcastFailures,
		metric.WithDescription("Per-device send failures during broadcasts"),
	); err != nil {
		otel.Handle(err)
	}
}

func recordSessionDelta(ctx context.Context, delta int64) {
	meterOnce.Do(initMeter)
	if sessionsActive == nil {
		return
	}

	sessionsActive.Add(ctx, delta)
}

func recordMessage(ctx context.Context, t protocol.MessageType) {
	meterOnce.Do(initMeter)
	if messagesReceived == nil {
		return
	}

	messagesReceived.Add(ctx, 1, metric.WithAttributes(attribute.String("type", t.String())))
}

func recordDecodeError(ctx context.Context) {
	meterOnce.Do(initMeter)
	if decodeErrors == nil {
		return
	}

	decodeErrors.Add(ctx, 1)
}

func recordCommandSent(ctx context.Context, t protocol.MessageType, ok bool) {
	meterOnce.Do(initMeter)
	if commandsSent == nil {
		return
	}

	commandsSent.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", t.String()),
		attribute.Bool("success", ok),
	))
}

func recordBroadcastFailures(ctx context.Context, t protocol.MessageType, failed int) {
	meterOnce.Do(initMeter)
	if broadcastFailures == nil || failed == 0 {
		return
	}

	broadcastFailures.Add(ctx, int64(failed), metric.WithAttributes(attribute.String("type", t.String())))
}
