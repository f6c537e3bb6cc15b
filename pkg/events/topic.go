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

import "fmt"

// Topic binds a topic name to the payload type published on it.
type Topic[T any] struct {
	name string
}

// NewTopic declares a typed topic.
func NewTopic[T any](name string) Topic[T] {
	return Topic[T]{name: name}
}

// Name returns the topic's wire name.
func (t Topic[T]) Name() string {
	return t.name
}

// On subscribes a typed handler to t. A payload of the wrong type is reported
// as a handler failure.
func On[T any](b *Bus, t Topic[T], h func(T) error) *Subscription {
	return b.Subscribe(t.name, func(payload any) error {
		v, ok := payload.(T)
		if !ok {
			return fmt.Errorf("%w: topic %s got %T", ErrPayloadType, t.name, payload)
		}

		return h(v)
	})
}

// Emit publishes payload on t.
func Emit[T any](b *Bus, t Topic[T], payload T) {
	b.Publish(t.name, payload)
}
