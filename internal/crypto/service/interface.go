// Package service implements envelope encryption for rooms.
//
// KeyVault wraps room keys under the master key and MessageCipher encrypts message bodies
// and attachment filenames under a room key. Both are built on the AEAD ciphers in this package.
package service

import (
	cryptoDomain "github.com/tnptm/next-djchat/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and a fresh nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// KeyVault wraps and unwraps room keys under the master key.
type KeyVault interface {
	// GenerateRoomKey returns a fresh random 32-byte room key for the configured algorithm.
	GenerateRoomKey() (*cryptoDomain.RoomKey, error)

	// Wrap encrypts a room key under the master key and returns the opaque envelope.
	Wrap(roomKey *cryptoDomain.RoomKey) ([]byte, error)

	// Unwrap authenticates and decrypts an envelope produced by Wrap.
	// Any failure is reported as cryptoDomain.ErrKeyIntegrity.
	Unwrap(envelope []byte) (*cryptoDomain.RoomKey, error)
}

// MessageCipher encrypts message bodies and filenames under a room key.
type MessageCipher interface {
	// Encrypt returns the ciphertext (tag appended) and the random nonce used for it.
	Encrypt(roomKey *cryptoDomain.RoomKey, plaintext []byte) (ciphertext, nonce []byte, err error)

	// Decrypt returns the plaintext or cryptoDomain.ErrDecryptionFailed.
	Decrypt(roomKey *cryptoDomain.RoomKey, ciphertext, nonce []byte) ([]byte, error)
}
