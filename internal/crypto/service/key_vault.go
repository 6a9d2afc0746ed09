package service

import (
	"crypto/rand"
	"fmt"

	cryptoDomain "github.com/tnptm/next-djchat/internal/crypto/domain"
)

// Envelope layout: version(1) || algorithm(1) || nonce(12) || ciphertext+tag.
// The two header bytes are authenticated as associated data.
const (
	envelopeVersion   byte = 1
	envelopeHeaderLen      = 2
	envelopeMinLen         = envelopeHeaderLen + cryptoDomain.NonceSize + 16
)

// KeyVaultService implements KeyVault with the master key passed at construction.
type KeyVaultService struct {
	aeadManager AEADManager
	masterKey   *cryptoDomain.MasterKey
	algorithm   cryptoDomain.Algorithm
}

// NewKeyVault creates a KeyVaultService. New room keys use algorithm; existing envelopes
// carry their own algorithm and unwrap regardless of it.
func NewKeyVault(
	aeadManager AEADManager,
	masterKey *cryptoDomain.MasterKey,
	algorithm cryptoDomain.Algorithm,
) *KeyVaultService {
	return &KeyVaultService{
		aeadManager: aeadManager,
		masterKey:   masterKey,
		algorithm:   algorithm,
	}
}

// GenerateRoomKey returns a fresh random room key.
func (v *KeyVaultService) GenerateRoomKey() (*cryptoDomain.RoomKey, error) {
	if _, ok := lookupAlgorithm(v.algorithm); !ok {
		return nil, cryptoDomain.ErrUnsupportedAlgorithm
	}

	key := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate room key: %w", err)
	}
	return &cryptoDomain.RoomKey{Algorithm: v.algorithm, Key: key}, nil
}

// Wrap encrypts roomKey under the master key.
func (v *KeyVaultService) Wrap(roomKey *cryptoDomain.RoomKey) ([]byte, error) {
	if v.masterKey == nil || len(v.masterKey.Key) == 0 {
		return nil, cryptoDomain.ErrMasterKeyNotConfigured
	}
	if roomKey == nil || len(roomKey.Key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	supported, ok := lookupAlgorithm(roomKey.Algorithm)
	if !ok {
		return nil, cryptoDomain.ErrUnsupportedAlgorithm
	}

	cipher, err := v.aeadManager.CreateCipher(v.masterKey.Key, roomKey.Algorithm)
	if err != nil {
		return nil, err
	}

	header := []byte{envelopeVersion, supported.code}
	ciphertext, nonce, err := cipher.Encrypt(roomKey.Key, header)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap room key: %w", err)
	}

	envelope := make([]byte, 0, envelopeHeaderLen+len(nonce)+len(ciphertext))
	envelope = append(envelope, header...)
	envelope = append(envelope, nonce...)
	envelope = append(envelope, ciphertext...)
	return envelope, nil
}

// Unwrap decrypts an envelope. Malformed envelopes and authentication failures both
// return ErrKeyIntegrity.
func (v *KeyVaultService) Unwrap(envelope []byte) (*cryptoDomain.RoomKey, error) {
	if v.masterKey == nil || len(v.masterKey.Key) == 0 {
		return nil, cryptoDomain.ErrMasterKeyNotConfigured
	}
	if len(envelope) < envelopeMinLen || envelope[0] != envelopeVersion {
		return nil, cryptoDomain.ErrKeyIntegrity
	}

	alg, ok := algorithmFromCode(envelope[1])
	if !ok {
		return nil, cryptoDomain.ErrKeyIntegrity
	}

	cipher, err := v.aeadManager.CreateCipher(v.masterKey.Key, alg)
	if err != nil {
		return nil, err
	}

	header := envelope[:envelopeHeaderLen]
	nonce := envelope[envelopeHeaderLen : envelopeHeaderLen+cryptoDomain.NonceSize]
	ciphertext := envelope[envelopeHeaderLen+cryptoDomain.NonceSize:]

	key, err := cipher.Decrypt(ciphertext, nonce, header)
	if err != nil {
		return nil, cryptoDomain.ErrKeyIntegrity
	}
	if len(key) != cryptoDomain.KeySize {
		cryptoDomain.Zero(key)
		return nil, cryptoDomain.ErrKeyIntegrity
	}

	return &cryptoDomain.RoomKey{Algorithm: alg, Key: key}, nil
}
