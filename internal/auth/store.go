// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/jeranaias/campustour-tui/internal/util"
)

// TokenStore persists the current session.
// Load returns (nil, nil) when nothing is stored.
type TokenStore interface {
	Load() (*Session, error)
	Save(s *Session) error
	Clear() error
}

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore keeps the session as JSON in a single 0600 file, encrypted
// when a Sealer is attached.
type FileStore struct {
	path   string
	sealer *Sealer
	mu     sync.Mutex
}

// NewFileStore returns a plaintext store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// NewSealedFileStore returns a store that encrypts the session with s.
// A plaintext file left by an older version is still read and is
// encrypted on the next Save.
func NewSealedFileStore(path string, s *Sealer) *FileStore {
	return &FileStore{path: path, sealer: s}
}

// Path returns the backing file.
func (f *FileStore) Path() string { return f.path }

// Load reads the stored session.
func (f *FileStore) Load() (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if IsSealed(data) {
		if f.sealer == nil {
			return nil, ErrSealed
		}
		if data, err = f.sealer.Open(data); err != nil {
			return nil, err
		}
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}
	return &s, nil
}

// Save writes s, replacing any previous session.
func (f *FileStore) Save(s *Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if f.sealer != nil {
		if data, err = f.sealer.Seal(data); err != nil {
			return fmt.Errorf("encrypt session: %w", err)
		}
	}
	if err := util.AtomicWriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Clear removes the stored session. Clearing an empty store is not an error.
func (f *FileStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// =============================================================================
// MEMORY STORE
// =============================================================================

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu sync.Mutex
	s  *Session
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// Load returns a copy of the stored session.
func (m *MemoryStore) Load() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s == nil {
		return nil, nil
	}
	cp := *m.s
	return &cp, nil
}

// Save stores a copy of s.
func (m *MemoryStore) Save(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.s = &cp
	return nil
}

// Clear forgets the stored session.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = nil
	return nil
}
