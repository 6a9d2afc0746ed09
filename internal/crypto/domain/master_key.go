// Package domain defines the key material and errors for envelope encryption of rooms.
//
// The hierarchy has two tiers: a single process-wide master key wraps one random key per
// room, and each room key encrypts that room's message bodies and attachment filenames.
package domain

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// MasterKey is the process-wide key that wraps every room key.
//
// It is loaded once at startup, held for the lifetime of the process and passed
// explicitly to the key vault. It is never persisted next to room data and never logged.
type MasterKey struct {
	ID  string
	Key []byte
}

// NewMasterKey copies key into a new MasterKey after checking its size.
func NewMasterKey(id string, key []byte) (*MasterKey, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: master key %s must be %d bytes, got %d", ErrInvalidKeySize, id, KeySize, len(key))
	}
	buf := make([]byte, KeySize)
	copy(buf, key)
	return &MasterKey{ID: id, Key: buf}, nil
}

// ParseMasterKey decodes a base64 master key. Standard and URL-safe alphabets are accepted,
// with or without padding.
func ParseMasterKey(id, encoded string) (*MasterKey, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, ErrMasterKeyNotSet
	}

	raw, err := decodeBase64(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w for %s", ErrInvalidMasterKeyBase64, id)
	}
	defer Zero(raw)

	return NewMasterKey(id, raw)
}

// UnwrapMasterKey decrypts a base64 KMS ciphertext into a MasterKey using keeper.
func UnwrapMasterKey(ctx context.Context, keeper KMSKeeper, id, encoded string) (*MasterKey, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, ErrMasterKeyNotSet
	}

	ciphertext, err := decodeBase64(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w for %s", ErrInvalidMasterKeyBase64, id)
	}

	raw, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt master key %s with KMS: %w", id, err)
	}
	defer Zero(raw)

	return NewMasterKey(id, raw)
}

// Close zeroes the key material.
func (m *MasterKey) Close() {
	if m == nil {
		return
	}
	Zero(m.Key)
}

func decodeBase64(s string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}

	var lastErr error
	for _, enc := range encodings {
		raw, err := enc.DecodeString(s)
		if err == nil {
			return raw, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
