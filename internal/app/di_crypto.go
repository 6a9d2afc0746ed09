package app

import (
	"fmt"
	"log/slog"

	cryptoDomain "github.com/tnptm/next-djchat/internal/crypto/domain"
	cryptoService "github.com/tnptm/next-djchat/internal/crypto/service"
)

type cryptoComponents struct {
	kmsService    lazy[cryptoService.KMSService]
	masterKey     lazy[*cryptoDomain.MasterKey]
	keyVault      lazy[cryptoService.KeyVault]
	messageCipher lazy[cryptoService.MessageCipher]
}

// KMSService returns the service opening gocloud.dev/secrets keepers.
func (c *Container) KMSService() cryptoService.KMSService {
	service, _ := c.kmsService.get(func() (cryptoService.KMSService, error) {
		return cryptoService.NewKMSService(), nil
	})
	return service
}

// MasterKey returns the master key, unwrapped through KMS when KMS_KEY_URI is set.
// A missing or malformed key is a configuration error and must stop startup.
func (c *Container) MasterKey() (*cryptoDomain.MasterKey, error) {
	return c.masterKey.get(func() (*cryptoDomain.MasterKey, error) {
		masterKey, err := cryptoService.LoadMasterKey(
			c.ctx,
			c.KMSService(),
			c.config.MasterKeyID,
			c.config.MasterKey,
			c.config.KMSKeyURI,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load master key: %w", err)
		}
		c.Logger().Info("master key loaded",
			slog.String("master_key_id", masterKey.ID),
			slog.String("kms_provider", c.config.KMSProvider),
			slog.Bool("kms", c.config.KMSKeyURI != ""),
		)
		return masterKey, nil
	})
}

// KeyVault returns the vault wrapping room keys under the master key.
func (c *Container) KeyVault() (cryptoService.KeyVault, error) {
	return c.keyVault.get(func() (cryptoService.KeyVault, error) {
		masterKey, err := c.MasterKey()
		if err != nil {
			return nil, err
		}
		algorithm, err := cryptoDomain.ParseAlgorithm(c.config.AEADAlgorithm)
		if err != nil {
			return nil, fmt.Errorf("invalid AEAD_ALGORITHM: %w", err)
		}
		return cryptoService.NewKeyVault(cryptoService.NewAEADManager(), masterKey, algorithm), nil
	})
}

// MessageCipher returns the cipher for message bodies and attachment filenames.
func (c *Container) MessageCipher() cryptoService.MessageCipher {
	cipher, _ := c.messageCipher.get(func() (cryptoService.MessageCipher, error) {
		return cryptoService.NewMessageCipher(cryptoService.NewAEADManager()), nil
	})
	return cipher
}

// PreviousKeyVault builds a vault for a retired master key, used only to re-wrap room
// keys after rotation. The caller closes the returned key.
func (c *Container) PreviousKeyVault(id, encodedKey string) (cryptoService.KeyVault, *cryptoDomain.MasterKey, error) {
	previous, err := cryptoService.LoadMasterKey(c.ctx, c.KMSService(), id, encodedKey, c.config.KMSKeyURI)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load previous master key: %w", err)
	}
	algorithm, err := cryptoDomain.ParseAlgorithm(c.config.AEADAlgorithm)
	if err != nil {
		previous.Close()
		return nil, nil, fmt.Errorf("invalid AEAD_ALGORITHM: %w", err)
	}
	return cryptoService.NewKeyVault(cryptoService.NewAEADManager(), previous, algorithm), previous, nil
}
