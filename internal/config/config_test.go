package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "load default configuration",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0", cfg.ServerHost)
				assert.Equal(t, 8080, cfg.ServerPort)
				assert.Equal(t, 10*time.Second, cfg.ServerShutdownTimeout)
				assert.Equal(t, "postgres", cfg.DBDriver)
				assert.Equal(t, 25, cfg.DBMaxOpenConnections)
				assert.Equal(t, 5, cfg.DBMaxIdleConnections)
				assert.Equal(t, 5*time.Minute, cfg.DBConnMaxLifetime)
				assert.Equal(t, "info", cfg.LogLevel)
				assert.Equal(t, "", cfg.MasterKey)
				assert.Equal(t, "default", cfg.MasterKeyID)
				assert.Equal(t, "aes-gcm", cfg.AEADAlgorithm)
				assert.Equal(t, "memory", cfg.BroadcastDriver)
				assert.Equal(t, "djchat", cfg.BroadcastChannelPrefix)
				assert.Equal(t, "mem://", cfg.BlobBucketURL)
				assert.Equal(t, int64(10<<20), cfg.MaxAttachmentSize)
				assert.Equal(t, 60*time.Second, cfg.WSIdleTimeout)
				assert.Equal(t, 10*time.Second, cfg.WSWriteTimeout)
				assert.Equal(t, 64, cfg.WSSendBuffer)
				assert.True(t, cfg.RateLimitEnabled)
				assert.False(t, cfg.CORSEnabled)
				assert.True(t, cfg.MetricsEnabled)
				assert.Equal(t, 8081, cfg.MetricsPort)
			},
		},
		{
			name: "load custom server configuration",
			envVars: map[string]string{
				"SERVER_HOST": "localhost",
				"SERVER_PORT": "9090",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "localhost", cfg.ServerHost)
				assert.Equal(t, 9090, cfg.ServerPort)
			},
		},
		{
			name: "load custom database configuration",
			envVars: map[string]string{
				"DB_DRIVER":               "mysql",
				"DB_CONNECTION_STRING":    "user:password@tcp(localhost:3306)/testdb",
				"DB_MAX_OPEN_CONNECTIONS": "50",
				"DB_MAX_IDLE_CONNECTIONS": "10",
				"DB_CONN_MAX_LIFETIME":    "10",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "mysql", cfg.DBDriver)
				assert.Equal(t, "user:password@tcp(localhost:3306)/testdb", cfg.DBConnectionString)
				assert.Equal(t, 50, cfg.DBMaxOpenConnections)
				assert.Equal(t, 10, cfg.DBMaxIdleConnections)
				assert.Equal(t, 10*time.Minute, cfg.DBConnMaxLifetime)
			},
		},
		{
			name: "load encryption configuration",
			envVars: map[string]string{
				"MASTER_KEY":     "c2VjcmV0",
				"MASTER_KEY_ID":  "2026-10",
				"KMS_PROVIDER":   "local",
				"KMS_KEY_URI":    "base64key://abc",
				"AEAD_ALGORITHM": "chacha20-poly1305",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "c2VjcmV0", cfg.MasterKey)
				assert.Equal(t, "2026-10", cfg.MasterKeyID)
				assert.Equal(t, "local", cfg.KMSProvider)
				assert.Equal(t, "base64key://abc", cfg.KMSKeyURI)
				assert.Equal(t, "chacha20-poly1305", cfg.AEADAlgorithm)
			},
		},
		{
			name: "load notification and websocket configuration",
			envVars: map[string]string{
				"BROADCAST_DRIVER":         "redis",
				"BROADCAST_CHANNEL_PREFIX": "chat",
				"REDIS_URL":                "redis://cache:6379/1",
				"WS_IDLE_TIMEOUT_SECONDS":  "30",
				"WS_SEND_BUFFER":           "8",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "redis", cfg.BroadcastDriver)
				assert.Equal(t, "chat", cfg.BroadcastChannelPrefix)
				assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
				assert.Equal(t, 30*time.Second, cfg.WSIdleTimeout)
				assert.Equal(t, 8, cfg.WSSendBuffer)
			},
		},
		{
			name: "load custom log level",
			envVars: map[string]string{
				"LOG_LEVEL": "debug",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.LogLevel)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()

			for key, value := range tt.envVars {
				err := os.Setenv(key, value)
				require.NoError(t, err)
			}

			cfg := Load()

			tt.validate(t, cfg)
		})
	}
}

func TestGetGinMode(t *testing.T) {
	assert.Equal(t, "debug", (&Config{LogLevel: "debug"}).GetGinMode())
	assert.Equal(t, "release", (&Config{LogLevel: "info"}).GetGinMode())
	assert.Equal(t, "release", (&Config{LogLevel: "bogus"}).GetGinMode())
}
