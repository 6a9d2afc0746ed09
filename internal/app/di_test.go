package app

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tnptm/next-djchat/internal/config"
	cryptoDomain "github.com/tnptm/next-djchat/internal/crypto/domain"
	"github.com/tnptm/next-djchat/internal/metrics"
	"github.com/tnptm/next-djchat/internal/notify"
)

func testConfig() *config.Config {
	return &config.Config{
		LogLevel:               "error",
		DBDriver:               "invalid_driver",
		MasterKeyID:            "test",
		MasterKey:              base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", cryptoDomain.KeySize))),
		AEADAlgorithm:          "aes-gcm",
		BroadcastDriver:        "memory",
		BroadcastChannelPrefix: "test",
		BlobBucketURL:          "mem://",
		MetricsNamespace:       "test",
	}
}

func newTestContainer(t *testing.T, cfg *config.Config) *Container {
	t.Helper()
	container := NewContainer(cfg)
	t.Cleanup(func() {
		assert.NoError(t, container.Shutdown(context.Background()))
	})
	return container
}

func TestNewContainer(t *testing.T) {
	cfg := testConfig()
	container := newTestContainer(t, cfg)

	assert.Same(t, cfg, container.Config())
	assert.Same(t, container.Logger(), container.Logger())
}

func TestContainer_LoggerLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		cfg := testConfig()
		cfg.LogLevel = level
		assert.NotNil(t, newTestContainer(t, cfg).Logger(), level)
	}
}

func TestContainer_UnsupportedDatabaseDriver(t *testing.T) {
	container := newTestContainer(t, testConfig())

	_, err := container.DB()
	require.Error(t, err)

	_, err = container.RoomRepository()
	assert.Error(t, err)
	_, err = container.MessageRepository()
	assert.Error(t, err)
	_, err = container.RoomUseCase()
	assert.Error(t, err)
	_, err = container.HTTPServer()
	assert.Error(t, err)

	_, err = container.DB()
	assert.Error(t, err)
}

func TestContainer_KeyVault(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		container := newTestContainer(t, testConfig())

		vault, err := container.KeyVault()
		require.NoError(t, err)

		roomKey, err := vault.GenerateRoomKey()
		require.NoError(t, err)
		defer roomKey.Close()

		envelope, err := vault.Wrap(roomKey)
		require.NoError(t, err)
		unwrapped, err := vault.Unwrap(envelope)
		require.NoError(t, err)
		defer unwrapped.Close()
		assert.Equal(t, roomKey.Key, unwrapped.Key)

		again, err := container.KeyVault()
		require.NoError(t, err)
		assert.Same(t, vault, again)
	})

	t.Run("missing master key", func(t *testing.T) {
		cfg := testConfig()
		cfg.MasterKey = ""
		_, err := newTestContainer(t, cfg).KeyVault()
		assert.ErrorIs(t, err, cryptoDomain.ErrMasterKeyNotSet)
	})

	t.Run("short master key", func(t *testing.T) {
		cfg := testConfig()
		cfg.MasterKey = base64.StdEncoding.EncodeToString([]byte("short"))
		_, err := newTestContainer(t, cfg).KeyVault()
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeySize)
	})

	t.Run("unknown algorithm", func(t *testing.T) {
		cfg := testConfig()
		cfg.AEADAlgorithm = "rot13"
		_, err := newTestContainer(t, cfg).KeyVault()
		assert.ErrorIs(t, err, cryptoDomain.ErrUnsupportedAlgorithm)
	})
}

func TestContainer_PreviousKeyVault(t *testing.T) {
	container := newTestContainer(t, testConfig())
	previousKey := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("p", cryptoDomain.KeySize)))

	previous, masterKey, err := container.PreviousKeyVault("old", previousKey)
	require.NoError(t, err)
	defer masterKey.Close()

	current, err := container.KeyVault()
	require.NoError(t, err)

	roomKey, err := previous.GenerateRoomKey()
	require.NoError(t, err)
	defer roomKey.Close()
	envelope, err := previous.Wrap(roomKey)
	require.NoError(t, err)

	_, err = current.Unwrap(envelope)
	assert.ErrorIs(t, err, cryptoDomain.ErrKeyIntegrity)
}

func TestContainer_Broadcaster(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		container := newTestContainer(t, testConfig())
		broadcaster, err := container.Broadcaster()
		require.NoError(t, err)
		assert.IsType(t, &notify.MemoryBroadcaster{}, broadcaster)

		bus, err := container.NotificationBus()
		require.NoError(t, err)
		assert.NotNil(t, bus)
	})

	t.Run("unsupported", func(t *testing.T) {
		cfg := testConfig()
		cfg.BroadcastDriver = "carrier-pigeon"
		_, err := newTestContainer(t, cfg).NotificationBus()
		assert.Error(t, err)
	})

	t.Run("bad redis url", func(t *testing.T) {
		cfg := testConfig()
		cfg.BroadcastDriver = "redis"
		cfg.RedisURL = "not-a-url"
		_, err := newTestContainer(t, cfg).Broadcaster()
		assert.Error(t, err)
	})
}

func TestContainer_BlobStore(t *testing.T) {
	cfg := testConfig()
	cfg.BlobPublicBaseURL = "https://chat.example"
	container := newTestContainer(t, cfg)

	store, err := container.BlobStore()
	require.NoError(t, err)
	assert.Equal(t, "https://chat.example/v1/attachments/abc", store.URL("abc"))

	cfg = testConfig()
	cfg.BlobBucketURL = "nosuchscheme://bucket"
	_, err = newTestContainer(t, cfg).BlobStore()
	assert.Error(t, err)
}

func TestContainer_Metrics(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		container := newTestContainer(t, testConfig())

		provider, err := container.MetricsProvider()
		require.NoError(t, err)
		assert.Nil(t, provider)

		business, err := container.BusinessMetrics()
		require.NoError(t, err)
		assert.IsType(t, &metrics.NoOpBusinessMetrics{}, business)

		server, err := container.MetricsServer()
		require.NoError(t, err)
		assert.Nil(t, server)
	})

	t.Run("enabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.MetricsEnabled = true
		cfg.MetricsNamespace = "di_test"
		container := newTestContainer(t, cfg)

		provider, err := container.MetricsProvider()
		require.NoError(t, err)
		require.NotNil(t, provider)

		_, err = container.RealtimeMetrics()
		require.NoError(t, err)

		server, err := container.MetricsServer()
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestContainer_TokenVerifierRequiresSigningKey(t *testing.T) {
	_, err := newTestContainer(t, testConfig()).TokenVerifier()
	assert.ErrorContains(t, err, "JWT_SIGNING_KEY")
}

func TestContainer_ShutdownWithoutComponents(t *testing.T) {
	container := NewContainer(testConfig())
	assert.NoError(t, container.Shutdown(context.Background()))
}
