// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package prefs

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/ollamamobile/ollama-mobile/internal/util"
)

// Store is a small named key-value file (<dir>/<name>.toml).
//
// Every read goes to disk so edits made by another process or by hand are
// picked up without a restart. Writes replace the file atomically with 0600
// permissions.
type Store struct {
	name string
	path string
	mu   sync.Mutex
}

// Open returns the store called name inside dir. The file is created lazily
// on the first write.
func Open(dir, name string) *Store {
	return &Store{
		name: name,
		path: filepath.Join(dir, name+".toml"),
	}
}

// Name returns the store name.
func (s *Store) Name() string { return s.name }

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// load reads the whole file. A missing file is an empty store.
func (s *Store) load() (map[string]interface{}, error) {
	values := make(map[string]interface{})

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.name, err)
	}
	if _, err := toml.Decode(string(data), &values); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.name, err)
	}
	return values, nil
}

func (s *Store) save(values map[string]interface{}) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(values); err != nil {
		return fmt.Errorf("encode %s: %w", s.name, err)
	}
	if err := util.AtomicWriteFile(s.path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("write %s: %w", s.name, err)
	}
	return nil
}

// GetString returns the string stored under key, or def when the key is
// missing, not a string, or the file cannot be read.
func (s *Store) GetString(key, def string) string {
	s.mu.Lock()
	values, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return def
	}
	if v, ok := values[key].(string); ok {
		return v
	}
	return def
}

// GetBool returns the bool stored under key, or def.
func (s *Store) GetBool(key string, def bool) bool {
	s.mu.Lock()
	values, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return def
	}
	if v, ok := values[key].(bool); ok {
		return v
	}
	return def
}

// Put merges the given values into the store in one write.
func (s *Store) Put(updates map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		// An unreadable file is replaced rather than left blocking every save.
		values = make(map[string]interface{})
	}
	for k, v := range updates {
		values[k] = v
	}
	return s.save(values)
}

// PutString stores a single string value.
func (s *Store) PutString(key, value string) error {
	return s.Put(map[string]interface{}{key: value})
}

// PutBool stores a single bool value.
func (s *Store) PutBool(key string, value bool) error {
	return s.Put(map[string]interface{}{key: value})
}
