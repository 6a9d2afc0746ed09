package config

import (
	"fmt"
	"net/url"
	"strings"

	validation "github.com/jellydator/validation"
)

// kmsSchemes maps each KMS_PROVIDER to the gocloud.dev/secrets URL scheme it accepts.
var kmsSchemes = map[string]string{
	"google": "gcpkms",
	"aws":    "awskms",
	"azure":  "azurekeyvault",
	"vault":  "hashivault",
	"local":  "base64key",
}

// Validate checks the settings the server cannot start without. The master key itself
// is parsed later by the container, which knows whether it must be unwrapped first.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ServerPort, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.DBDriver, validation.Required, validation.In("postgres", "mysql")),
		validation.Field(&c.DBConnectionString, validation.Required),
		validation.Field(&c.MasterKey, validation.Required),
		validation.Field(&c.AEADAlgorithm, validation.Required, validation.In("aes-gcm", "chacha20-poly1305")),
		validation.Field(&c.JWTSigningKey, validation.Required),
		validation.Field(&c.BroadcastDriver, validation.Required, validation.In("memory", "redis", "nats")),
		validation.Field(&c.BroadcastChannelPrefix, validation.Required),
		validation.Field(&c.RedisURL, validation.When(c.BroadcastDriver == "redis", validation.Required)),
		validation.Field(&c.NATSURL, validation.When(c.BroadcastDriver == "nats", validation.Required)),
		validation.Field(&c.BlobBucketURL, validation.Required),
		validation.Field(&c.MaxAttachmentSize, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.WSSendBuffer, validation.Required, validation.Min(1)),
		validation.Field(&c.KMSKeyURI, validation.By(c.validateKMSKeyURI)),
		validation.Field(&c.MetricsPort,
			validation.When(c.MetricsEnabled, validation.Required, validation.NotIn(c.ServerPort)),
		),
	)
}

// validateKMSKeyURI requires the URI scheme to match KMS_PROVIDER when both are set.
func (c *Config) validateKMSKeyURI(value any) error {
	uri, _ := value.(string)
	if uri == "" {
		return nil
	}

	parsed, err := url.Parse(uri)
	if err != nil || parsed.Scheme == "" {
		return validation.NewError("validation_kms_uri", "must be a gocloud.dev/secrets URL")
	}
	if c.KMSProvider == "" {
		return nil
	}

	scheme, ok := kmsSchemes[strings.ToLower(c.KMSProvider)]
	if !ok {
		return validation.NewError("validation_kms_provider", fmt.Sprintf("unknown KMS_PROVIDER %q", c.KMSProvider))
	}
	if parsed.Scheme != scheme {
		return validation.NewError(
			"validation_kms_scheme",
			fmt.Sprintf("must use the %s:// scheme for KMS_PROVIDER %q", scheme, c.KMSProvider),
		)
	}
	return nil
}
