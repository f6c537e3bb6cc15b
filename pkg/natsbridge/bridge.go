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

// Package natsbridge republishes coordinator events as CloudEvents on NATS
// JetStream so other systems can follow the fleet.
package natsbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/carverauto/arceus/pkg/events"
	"github.com/carverauto/arceus/pkg/fleet"
	"github.com/carverauto/arceus/pkg/logger"
	"github.com/carverauto/arceus/pkg/models"
)

const (
	eventSource      = "arceus/coordinator"
	eventTypePrefix  = "com.carverauto.arceus."
	defaultQueueSize = 1024
	publishTimeout   = 5 * time.Second
)

type outbound struct {
	subject string
	data    []byte
}

// Bridge subscribes to every topic on a bus and exports each publication.
// Encoding happens on the publishing goroutine; delivery happens on a single
// worker so a slow NATS server never blocks a device handler.
type Bridge struct {
	pub      Publisher
	prefix   string
	encoding string
	logger   logger.Logger
	now      func() time.Time

	queue   chan outbound
	dropped atomic.Uint64

	mu     sync.Mutex
	sub    *events.Subscription
	cancel context.CancelFunc
	done   chan struct{}
}

// NewBridge builds a bridge. cfg must already be validated.
func NewBridge(pub Publisher, cfg models.EventsConfig, log logger.Logger) (*Bridge, error) {
	switch cfg.Encoding {
	case "", models.EncodingJSON:
		cfg.Encoding = models.EncodingJSON
	case models.EncodingCBOR:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, cfg.Encoding)
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = models.DefaultSubjectPrefix
	}

	return &Bridge{
		pub:      pub,
		prefix:   prefix,
		encoding: cfg.Encoding,
		logger:   log,
		now:      time.Now,
		queue:    make(chan outbound, defaultQueueSize),
	}, nil
}

// Attach subscribes the bridge to every topic on b.
func (b *Bridge) Attach(bus *events.Bus) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sub != nil {
		b.sub.Unsubscribe()
	}

	b.sub = bus.SubscribeAll(b.enqueue)
}

// Start runs the delivery worker until ctx is done or Stop is called.
func (b *Bridge) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done != nil {
		return
	}

	ctx, b.cancel = context.WithCancel(ctx)
	b.done = make(chan struct{})

	go b.run(ctx, b.done)
}

// Stop detaches from the bus, flushes what is queued and stops the worker.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if b.sub != nil {
		b.sub.Unsubscribe()
		b.sub = nil
	}

	cancel, done := b.cancel, b.done
	b.cancel, b.done = nil, nil
	b.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

// Dropped reports how many events were discarded because the queue was full.
func (b *Bridge) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Bridge) enqueue(topic string, payload any) error {
	data, err := b.encode(topic, payload)
	if err != nil {
		return err
	}

	select {
	case b.queue <- outbound{subject: b.prefix + "." + topic, data: data}:
		return nil
	default:
		b.dropped.Add(1)

		return fmt.Errorf("%w: dropping %s", ErrQueueFull, topic)
	}
}

func (b *Bridge) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case msg := <-b.queue:
			b.deliver(msg)
		case <-ctx.Done():
			b.drain()

			return
		}
	}
}

func (b *Bridge) drain() {
	for {
		select {
		case msg := <-b.queue:
			b.deliver(msg)
		default:
			return
		}
	}
}

func (b *Bridge) deliver(msg outbound) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := b.pub.Publish(ctx, msg.subject, msg.data); err != nil {
		b.logger.Warn().Err(err).Str("subject", msg.subject).Msg("Failed to export event")
	}
}

func (b *Bridge) encode(topic string, payload any) ([]byte, error) {
	now := b.now()

	ev := models.CloudEvent{
		SpecVersion: "1.0",
		ID:          uuid.New().String(),
		Source:      eventSource,
		Type:        eventTypePrefix + topic,
		Subject:     b.prefix + "." + topic,
		Time:        &now,
		Data:        fleet.Export(topic, payload),
	}

	if b.encoding == models.EncodingCBOR {
		ev.DataContentType = "application/cbor"

		data, err := cbor.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s event as cbor: %w", topic, err)
		}

		return data, nil
	}

	ev.DataContentType = "application/json"

	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event as json: %w", topic, err)
	}

	return data, nil
}
