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

package events

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName                = "github.com/carverauto/arceus/pkg/events"
	metricPublishedTotal     = "arceus_events_published_total"
	metricHandlerFailedTotal = "arceus_event_handler_failures_total"
)

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	meterOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	publishedCounter metric.Int64Counter
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	failedCounter metric.Int64Counter
)

func initMeter() {
	meter := otel.Meter(meterName)

	published, err := meter.Int64Counter(
		metricPublishedTotal,
		metric.WithDescription("Total events published on the in-process bus"),
	)
	if err != nil {
		otel.Handle(err)
	}
	publishedCounter = published

	failed, err := meter.Int64Counter(
		metricHandlerFailedTotal,
		metric.WithDescription("Total event handler invocations that returned an error or panicked"),
	)
	if err != nil {
		otel.Handle(err)
	}
	failedCounter = failed
}

func recordPublish(ctx context.Context, topic string) {
	meterOnce.Do(initMeter)
	if publishedCounter == nil {
		return
	}

	publishedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}

func recordHandlerFailure(ctx context.Context, topic string) {
	meterOnce.Do(initMeter)
	if failedCounter == nil {
		return
	}

	failedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}
