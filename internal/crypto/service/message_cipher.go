package service

import (
	cryptoDomain "github.com/tnptm/next-djchat/internal/crypto/domain"
)

// MessageCipherService implements MessageCipher. Associated data is always empty.
type MessageCipherService struct {
	aeadManager AEADManager
}

// NewMessageCipher creates a MessageCipherService.
func NewMessageCipher(aeadManager AEADManager) *MessageCipherService {
	return &MessageCipherService{aeadManager: aeadManager}
}

// Encrypt seals plaintext under roomKey with a fresh 12-byte nonce.
func (m *MessageCipherService) Encrypt(
	roomKey *cryptoDomain.RoomKey,
	plaintext []byte,
) (ciphertext, nonce []byte, err error) {
	if roomKey == nil {
		return nil, nil, cryptoDomain.ErrInvalidKeySize
	}

	cipher, err := m.aeadManager.CreateCipher(roomKey.Key, roomKey.Algorithm)
	if err != nil {
		return nil, nil, err
	}

	return cipher.Encrypt(plaintext, nil)
}

// Decrypt opens ciphertext with roomKey. Every failure is reported as ErrDecryptionFailed.
func (m *MessageCipherService) Decrypt(
	roomKey *cryptoDomain.RoomKey,
	ciphertext, nonce []byte,
) ([]byte, error) {
	if roomKey == nil || len(nonce) != cryptoDomain.NonceSize {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	cipher, err := m.aeadManager.CreateCipher(roomKey.Key, roomKey.Algorithm)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	plaintext, err := cipher.Decrypt(ciphertext, nonce, nil)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return plaintext, nil
}
