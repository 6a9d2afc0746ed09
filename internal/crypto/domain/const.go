package domain

// Algorithm represents the AEAD construction used for room keys and message bodies.
//
// Both supported algorithms take a 256-bit key, a 12-byte nonce and append a 16-byte
// authentication tag to the ciphertext, so envelopes and message rows have the same
// layout regardless of the algorithm.
type Algorithm string

const (
	// AESGCM is AES-256-GCM. Preferred on CPUs with AES-NI.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 is ChaCha20-Poly1305. Preferred where AES hardware support is missing.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

const (
	// KeySize is the size in bytes of master keys and room keys.
	KeySize = 32

	// NonceSize is the size in bytes of every AEAD nonce produced by this package.
	NonceSize = 12
)

// ParseAlgorithm converts a configuration value into an Algorithm.
func ParseAlgorithm(value string) (Algorithm, error) {
	switch Algorithm(value) {
	case AESGCM:
		return AESGCM, nil
	case ChaCha20:
		return ChaCha20, nil
	default:
		return "", ErrUnsupportedAlgorithm
	}
}
