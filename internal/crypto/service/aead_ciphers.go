package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	cryptoDomain "github.com/tnptm/next-djchat/internal/crypto/domain"
)

// sealer adapts a cipher.AEAD with a 12-byte nonce to the AEAD interface. Every Encrypt
// draws a fresh nonce from crypto/rand and the 16-byte tag is appended to the ciphertext.
// A sealer is stateless and safe for concurrent use.
type sealer struct {
	name string
	aead cipher.AEAD
}

// AESGCMCipher is AES-256-GCM.
type AESGCMCipher struct{ sealer }

// ChaCha20Poly1305Cipher is ChaCha20-Poly1305 (RFC 8439), for hosts without AES-NI.
type ChaCha20Poly1305Cipher struct{ sealer }

// NewAESGCM creates an AES-256-GCM cipher from a 32-byte key.
func NewAESGCM(key []byte) (*AESGCMCipher, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &AESGCMCipher{sealer{name: string(cryptoDomain.AESGCM), aead: aead}}, nil
}

// NewChaCha20Poly1305 creates a ChaCha20-Poly1305 cipher from a 32-byte key.
func NewChaCha20Poly1305(key []byte) (*ChaCha20Poly1305Cipher, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create ChaCha20-Poly1305 cipher: %w", err)
	}
	return &ChaCha20Poly1305Cipher{sealer{name: string(cryptoDomain.ChaCha20), aead: aead}}, nil
}

// Encrypt seals plaintext under a fresh random nonce.
func (s sealer) Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate %s nonce: %w", s.name, err)
	}
	return s.aead.Seal(nil, nonce, plaintext, aad), nonce, nil
}

// Decrypt opens ciphertext. A nonce of the wrong length is rejected before opening.
func (s sealer) Decrypt(ciphertext, nonce, aad []byte) ([]byte, error) {
	if len(nonce) != s.aead.NonceSize() {
		return nil, fmt.Errorf("invalid %s nonce size: %d", s.name, len(nonce))
	}
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt with %s: %w", s.name, err)
	}
	return plaintext, nil
}
