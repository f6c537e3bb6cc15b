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
	"sort"
	"sync"

	"github.com/carverauto/arceus/pkg/device"
)

// Registry maps keys to live sessions. A key is the remote address until the
// device registers, then its serial. The lock is held only for map access.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*device.Session
	sealed   bool
}

// NewRegistry returns an empty, unsealed registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*device.Session)}
}

// Add inserts s under key. It fails once the registry is sealed for shutdown.
func (r *Registry) Add(key string, s *device.Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return false
	}

	r.sessions[key] = s

	return true
}

// Rekey moves s from oldKey to newKey. A different session already under
// newKey is displaced and returned so the caller can close it outside the lock.
func (r *Registry) Rekey(oldKey, newKey string, s *device.Session) (displaced *device.Session, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return nil, false
	}

	if cur, found := r.sessions[oldKey]; found && cur == s {
		delete(r.sessions, oldKey)
	}

	if cur, found := r.sessions[newKey]; found && cur != s {
		displaced = cur
	}

	r.sessions[newKey] = s

	return displaced, true
}

// Remove deletes key only if it still maps to s, so a displaced session
// reaping itself cannot evict its replacement.
func (r *Registry) Remove(key string, s *device.Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, found := r.sessions[key]; found && cur == s {
		delete(r.sessions, key)

		return true
	}

	return false
}

// Get returns the session under key.
func (r *Registry) Get(key string) (*device.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[key]

	return s, ok
}

// List returns the sessions present at the time of the call, ordered by key.
func (r *Registry) List() []*device.Session {
	entries := r.entries()

	out := make([]*device.Session, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.session)
	}

	return out
}

type registryEntry struct {
	key     string
	session *device.Session
}

// entries snapshots key and session pairs under one read lock, ordered by key.
func (r *Registry) entries() []registryEntry {
	r.mu.RLock()
	out := make([]registryEntry, 0, len(r.sessions))
	for k, s := range r.sessions {
		out = append(out, registryEntry{key: k, session: s})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })

	return out
}

// Keys returns the registered keys, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.sessions))
	for k := range r.sessions {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sessions)
}

// Seal stops further inserts and returns the sessions present at that moment.
// Sessions stay in the map until their handlers remove them.
func (r *Registry) Seal() []*device.Session {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()

	return r.List()
}

// Unseal allows inserts again after a restart.
func (r *Registry) Unseal() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sealed = false
}

// Broadcast calls send for every session concurrently and reports, per
// registry key captured with the session, whether it succeeded. A failing
// session never stops the others.
func (r *Registry) Broadcast(send func(*device.Session) error) map[string]bool {
	entries := r.entries()
	results := make(map[string]bool, len(entries))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, e := range entries {
		wg.Add(1)

		go func() {
			defer wg.Done()

			err := send(e.session)

			mu.Lock()
			results[e.key] = err == nil
			mu.Unlock()
		}()
	}

	wg.Wait()

	return results
}
