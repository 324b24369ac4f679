// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/pbkdf2"

	"github.com/jeranaias/campustour-tui/internal/util"
)

// =============================================================================
// AT-REST ENCRYPTION
// =============================================================================

// SealedPrefix marks an encrypted session file.
const SealedPrefix = "ENC:"

const (
	keySize          = 32
	saltSize         = 32
	secretSize       = 32
	pbkdf2Iterations = 600000
)

var (
	// ErrSealed is returned when an encrypted session is read without a key.
	ErrSealed = errors.New("session file is encrypted")

	// ErrUnseal is returned when a session file fails authentication.
	ErrUnseal = errors.New("session file could not be decrypted")
)

// Sealer encrypts session files with AES-256-GCM under a PBKDF2-SHA-256
// key derived from a local key file.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer derives the file key from secret and salt.
func NewSealer(secret, salt []byte) (*Sealer, error) {
	key := pbkdf2.Key(secret, salt, pbkdf2Iterations, keySize, sha256.New)
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// LoadOrCreateSealer reads the salt and secret from keyPath, creating the
// file with mode 0600 on first use.
func LoadOrCreateSealer(keyPath string) (*Sealer, error) {
	data, err := os.ReadFile(keyPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		data = make([]byte, saltSize+secretSize)
		if _, err := io.ReadFull(rand.Reader, data); err != nil {
			return nil, fmt.Errorf("generate session key: %w", err)
		}
		if err := util.AtomicWriteFile(keyPath, data, 0600); err != nil {
			return nil, fmt.Errorf("write session key: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("read session key: %w", err)
	case len(data) != saltSize+secretSize:
		return nil, fmt.Errorf("session key %s is corrupt: %d bytes", keyPath, len(data))
	}
	defer zero(data)
	return NewSealer(data[saltSize:], data[:saltSize])
}

// Seal returns SealedPrefix + base64(nonce || ciphertext || tag).
func (s *Sealer) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	sealed := s.aead.Seal(nonce, nonce, plaintext, nil)
	out := make([]byte, 0, len(SealedPrefix)+base64.StdEncoding.EncodedLen(len(sealed)))
	out = append(out, SealedPrefix...)
	return base64.StdEncoding.AppendEncode(out, sealed), nil
}

// Open reverses Seal.
func (s *Sealer) Open(data []byte) ([]byte, error) {
	if !IsSealed(data) {
		return nil, fmt.Errorf("%w: missing %s prefix", ErrUnseal, SealedPrefix)
	}
	raw, err := base64.StdEncoding.DecodeString(string(bytes.TrimSpace(data[len(SealedPrefix):])))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnseal, err)
	}
	n := s.aead.NonceSize()
	if len(raw) < n {
		return nil, ErrUnseal
	}
	plaintext, err := s.aead.Open(nil, raw[:n], raw[n:], nil)
	if err != nil {
		return nil, ErrUnseal
	}
	return plaintext, nil
}

// IsSealed reports whether data was produced by Seal.
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(data, []byte(SealedPrefix))
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
