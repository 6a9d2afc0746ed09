package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"time"

	cryptoDomain "github.com/tnptm/next-djchat/internal/crypto/domain"
	cryptoService "github.com/tnptm/next-djchat/internal/crypto/service"
)

// RunCreateMasterKey generates a 32-byte master key and writes the environment variables
// that configure it. When kmsKeyURI is set the key is wrapped by that KMS key before it is
// printed; otherwise the raw key is printed base64 encoded, which is only suitable for
// local development. Key material is zeroed once encoded.
//
// If keyID is empty a default ID in the format "master-key-YYYY-MM-DD" is used.
func RunCreateMasterKey(
	ctx context.Context,
	kmsService cryptoService.KMSService,
	logger *slog.Logger,
	writer io.Writer,
	keyID string,
	kmsProvider string,
	kmsKeyURI string,
) error {
	if keyID == "" {
		keyID = fmt.Sprintf("master-key-%s", time.Now().Format("2006-01-02"))
	}

	masterKey := make([]byte, cryptoDomain.KeySize)
	defer cryptoDomain.Zero(masterKey)
	if _, err := rand.Read(masterKey); err != nil {
		return fmt.Errorf("failed to generate master key: %w", err)
	}

	if kmsKeyURI == "" {
		logger.Warn("printing an unwrapped master key, use --kms-key-uri outside local development")

		writeComment(writer, "Master Key Configuration (plaintext)")
		writeComment(writer, "Copy these environment variables to your .env file or secrets manager")
		writeComment(writer, "")
		writeEnv(writer, "MASTER_KEY_ID", keyID)
		writeEnv(writer, "MASTER_KEY", base64.StdEncoding.EncodeToString(masterKey))
		return nil
	}

	logger.Info("encrypting master key with KMS",
		slog.String("master_key_id", keyID),
		slog.String("kms_provider", kmsProvider),
	)

	encodedKey, err := cryptoService.EncryptMasterKey(ctx, kmsService, kmsKeyURI, masterKey)
	if err != nil {
		return fmt.Errorf("failed to wrap master key: %w", err)
	}

	writeComment(writer, "Master Key Configuration (KMS Mode)")
	writeComment(writer, "Copy these environment variables to your .env file or secrets manager")
	writeComment(writer, "")
	if kmsProvider != "" {
		writeEnv(writer, "KMS_PROVIDER", kmsProvider)
	}
	writeEnv(writer, "KMS_KEY_URI", kmsKeyURI)
	writeEnv(writer, "MASTER_KEY_ID", keyID)
	writeEnv(writer, "MASTER_KEY", encodedKey)
	writeComment(writer, "")
	writeComment(writer, "When replacing an existing key, re-wrap the rooms with the old value afterwards:")
	writeComment(writer, "djchat rewrap-room-keys --previous-key-id=<old id> --previous-master-key=<old MASTER_KEY>")
	return nil
}
