package service

import (
	cryptoDomain "github.com/tnptm/next-djchat/internal/crypto/domain"
)

// supportedAlgorithm pairs an algorithm with the code stored in envelope headers.
// Codes are persisted next to every room, so an existing code must never be reassigned.
type supportedAlgorithm struct {
	algorithm cryptoDomain.Algorithm
	code      byte
	newCipher func(key []byte) (AEAD, error)
}

var supportedAlgorithms = []supportedAlgorithm{
	{
		algorithm: cryptoDomain.AESGCM,
		code:      1,
		newCipher: func(key []byte) (AEAD, error) { return NewAESGCM(key) },
	},
	{
		algorithm: cryptoDomain.ChaCha20,
		code:      2,
		newCipher: func(key []byte) (AEAD, error) { return NewChaCha20Poly1305(key) },
	},
}

func lookupAlgorithm(alg cryptoDomain.Algorithm) (supportedAlgorithm, bool) {
	for _, s := range supportedAlgorithms {
		if s.algorithm == alg {
			return s, true
		}
	}
	return supportedAlgorithm{}, false
}

func algorithmFromCode(code byte) (cryptoDomain.Algorithm, bool) {
	for _, s := range supportedAlgorithms {
		if s.code == code {
			return s.algorithm, true
		}
	}
	return "", false
}

// AEADManagerService builds the AEAD for a key and algorithm.
type AEADManagerService struct{}

// NewAEADManager creates a new AEADManagerService.
func NewAEADManager() *AEADManagerService {
	return &AEADManagerService{}
}

// CreateCipher returns ErrInvalidKeySize if key is not 32 bytes and ErrUnsupportedAlgorithm
// if alg is unknown.
func (am *AEADManagerService) CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	s, ok := lookupAlgorithm(alg)
	if !ok {
		return nil, cryptoDomain.ErrUnsupportedAlgorithm
	}
	return s.newCipher(key)
}
