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

// Package names persists operator-assigned device names in a JSON file
// keyed by serial.
package names

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/carverauto/arceus/pkg/logger"
)

var errEmptySerial = errors.New("serial is required")

// Store is a serial → name map mirrored to disk on every change.
type Store struct {
	mu     sync.RWMutex
	path   string
	names  map[string]string
	logger logger.Logger
}

// Open loads path, treating a missing file as empty. An empty path gives an
// in-memory store.
func Open(path string, log logger.Logger) (*Store, error) {
	s := &Store{
		path:   path,
		names:  make(map[string]string),
		logger: log,
	}

	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read names file %s: %w", path, err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return s, nil
	}

	if err := json.Unmarshal(data, &s.names); err != nil {
		return nil, fmt.Errorf("failed to parse names file %s: %w", path, err)
	}

	// a literal null decodes to a nil map
	if s.names == nil {
		s.names = make(map[string]string)
	}

	return s, nil
}

// Lookup implements device.NameResolver.
func (s *Store) Lookup(serial string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	name, ok := s.names[serial]

	return name, ok
}

// Set assigns name to serial. A blank name removes the entry. The change is
// visible only once it has been written to disk.
func (s *Store) Set(serial, name string) error {
	if serial == "" {
		return errEmptySerial
	}

	name = strings.TrimSpace(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]string, len(s.names)+1)
	for k, v := range s.names {
		next[k] = v
	}

	if name == "" {
		delete(next, serial)
	} else {
		next[serial] = name
	}

	if err := s.save(next); err != nil {
		return err
	}

	s.names = next

	return nil
}

// Remove deletes serial's name.
func (s *Store) Remove(serial string) error {
	return s.Set(serial, "")
}

// All returns a copy of every assignment.
func (s *Store) All() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.names))
	for k, v := range s.names {
		out[k] = v
	}

	return out
}

// save writes names through a temp file and rename so readers never see a
// partial document.
func (s *Store) save(names map[string]string) error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(names, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode names: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".names-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp names file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to write names file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to close names file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("failed to replace names file: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug().Str("path", s.path).Int("count", len(names)).Msg("Saved device names")
	}

	return nil
}

// Get returns serial's name, or "" when none is assigned.
func (s *Store) Get(serial string) string {
	name, _ := s.Lookup(serial)

	return name
}
