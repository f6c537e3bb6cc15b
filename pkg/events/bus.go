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

// Package events is an in-process publish/subscribe fabric. Publish runs
// every handler registered for a topic synchronously, in registration order,
// on the publishing goroutine. A failing handler is logged and skipped.
package events

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/carverauto/arceus/pkg/logger"
)

// Handler receives the payload published on a topic.
type Handler func(payload any) error

// WildcardHandler receives every publication together with its topic name.
type WildcardHandler func(topic string, payload any) error

// Bus is an explicit pub/sub instance; there is no package-level default.
type Bus struct {
	mu       sync.RWMutex
	subs     map[string][]*Subscription
	wildcard []*Subscription
	nextID   uint64
	logger   logger.Logger
}

// Subscription identifies one registered handler.
type Subscription struct {
	bus      *Bus
	id       uint64
	topic    string
	handler  Handler
	wildcard WildcardHandler
	once     sync.Once
}

// NewBus returns an empty bus that reports handler failures to log.
func NewBus(log logger.Logger) *Bus {
	return &Bus{
		subs:   make(map[string][]*Subscription),
		logger: log,
	}
}

// Subscribe registers h for topic and returns a handle for removing it.
func (b *Bus) Subscribe(topic string, h Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++

	sub := &Subscription{bus: b, id: b.nextID, topic: topic, handler: h}
	b.subs[topic] = append(b.subs[topic], sub)

	return sub
}

// SubscribeAll registers h for every topic. It is ordered against topic
// handlers by registration time like any other subscription.
func (b *Bus) SubscribeAll(h WildcardHandler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++

	sub := &Subscription{bus: b, id: b.nextID, wildcard: h}
	b.wildcard = append(b.wildcard, sub)

	return sub
}

// Unsubscribe removes the handler. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.remove(s)
	})
}

func (b *Bus) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s.wildcard != nil {
		b.wildcard = without(b.wildcard, s.id)

		return
	}

	remaining := without(b.subs[s.topic], s.id)
	if len(remaining) == 0 {
		delete(b.subs, s.topic)

		return
	}

	b.subs[s.topic] = remaining
}

func without(subs []*Subscription, id uint64) []*Subscription {
	out := make([]*Subscription, 0, len(subs))

	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}

	return out
}

// Publish invokes every handler registered for topic and returns once all of
// them have run. The bus lock is not held while handlers execute, so a handler
// may subscribe, unsubscribe or publish.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	handlers := mergeByID(b.subs[topic], b.wildcard)
	b.mu.RUnlock()

	recordPublish(context.Background(), topic)

	for _, sub := range handlers {
		if err := sub.invoke(topic, payload); err != nil {
			recordHandlerFailure(context.Background(), topic)

			if b.logger != nil {
				b.logger.Error().
					Err(err).
					Str("topic", topic).
					Uint64("subscription", sub.id).
					Msg("Event handler failed")
			}
		}
	}
}

// mergeByID interleaves two id-ordered lists into one registration-ordered copy.
func mergeByID(a, b []*Subscription) []*Subscription {
	out := make([]*Subscription, 0, len(a)+len(b))

	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if a[i].id < b[j].id {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}

	out = append(out, a[i:]...)

	return append(out, b[j:]...)
}

// HandlerCount returns how many handlers would receive a publication on topic.
func (b *Bus) HandlerCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subs[topic]) + len(b.wildcard)
}

func (s *Subscription) invoke(topic string, payload any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrHandlerPanic, r, debug.Stack())
		}
	}()

	if s.wildcard != nil {
		return s.wildcard(topic, payload)
	}

	return s.handler(payload)
}
