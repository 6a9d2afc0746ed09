package domain

import (
	"github.com/tnptm/next-djchat/internal/errors"
)

// Configuration errors. They are raised while the process starts and abort startup.
var (
	// ErrMasterKeyNotSet indicates neither MASTER_KEY nor a KMS-wrapped key was configured.
	ErrMasterKeyNotSet = errors.Wrap(errors.ErrConfiguration, "master key not set")

	// ErrInvalidMasterKeyBase64 indicates the configured master key is not valid base64.
	ErrInvalidMasterKeyBase64 = errors.Wrap(errors.ErrConfiguration, "invalid master key base64")

	// ErrInvalidKeySize indicates a key is not exactly 32 bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrConfiguration, "invalid key size")

	// ErrUnsupportedAlgorithm indicates an unknown AEAD algorithm name.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrConfiguration, "unsupported algorithm")

	// ErrMasterKeyNotConfigured is returned by the key vault when it was built without a master key.
	ErrMasterKeyNotConfigured = errors.Wrap(errors.ErrConfiguration, "master key not configured")
)

// Integrity errors. Never retried and never carry key material, plaintext or nonces.
var (
	// ErrKeyIntegrity indicates a room key envelope failed authentication: it was tampered
	// with, or it was wrapped under a different master key.
	ErrKeyIntegrity = errors.Wrap(errors.ErrIntegrity, "room key envelope failed authentication")

	// ErrDecryptionFailed indicates a message body or filename failed authentication.
	// The cause (wrong key, corrupted ciphertext, mismatched nonce) is never disclosed.
	ErrDecryptionFailed = errors.Wrap(errors.ErrIntegrity, "decryption failed")
)
