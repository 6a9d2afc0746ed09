package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/tnptm/next-djchat/internal/crypto/domain"

	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// KMSService opens the gocloud.dev/secrets keeper protecting the master key at rest.
type KMSService interface {
	// OpenKeeper opens a keeper for keyURI (gcpkms://, awskms://, azurekeyvault://,
	// hashivault:// or base64key://).
	OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error)
}

type kmsService struct{}

// NewKMSService creates a new KMS service instance.
func NewKMSService() KMSService {
	return &kmsService{}
}

func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}

// withKeeper opens the keeper for keyURI, runs fn and closes the keeper again. Keepers
// are only needed at startup and during key commands, so none is held open.
func withKeeper(
	ctx context.Context,
	kms KMSService,
	keyURI string,
	fn func(keeper cryptoDomain.KMSKeeper) error,
) error {
	keeper, err := kms.OpenKeeper(ctx, keyURI)
	if err != nil {
		return err
	}
	defer func() {
		_ = keeper.Close()
	}()
	return fn(keeper)
}

// LoadMasterKey resolves the master key from configuration. Without kmsKeyURI the value
// is the base64 key itself; with it the value is base64 KMS ciphertext.
func LoadMasterKey(
	ctx context.Context,
	kms KMSService,
	id, value, kmsKeyURI string,
) (*cryptoDomain.MasterKey, error) {
	if kmsKeyURI == "" {
		return cryptoDomain.ParseMasterKey(id, value)
	}

	var masterKey *cryptoDomain.MasterKey
	err := withKeeper(ctx, kms, kmsKeyURI, func(keeper cryptoDomain.KMSKeeper) error {
		var err error
		masterKey, err = cryptoDomain.UnwrapMasterKey(ctx, keeper, id, value)
		return err
	})
	return masterKey, err
}

// EncryptMasterKey wraps raw key bytes with the keeper for kmsKeyURI and returns base64
// ciphertext suitable for MASTER_KEY.
func EncryptMasterKey(ctx context.Context, kms KMSService, kmsKeyURI string, key []byte) (string, error) {
	var encoded string
	err := withKeeper(ctx, kms, kmsKeyURI, func(keeper cryptoDomain.KMSKeeper) error {
		ciphertext, err := keeper.Encrypt(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to encrypt master key with KMS: %w", err)
		}
		encoded = base64.StdEncoding.EncodeToString(ciphertext)
		return nil
	})
	return encoded, err
}
