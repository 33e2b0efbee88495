package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:        "8480",
		JWTSecret:   "dev-secret",
		DBPassword:  "password",
		BlobBackend: "local",
		Env:         "development",
	}
}

func TestValidate_Development(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate_MissingRequired(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Port = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.JWTSecret = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_BlobBackend(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.BlobBackend = "s3"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.BlobBackend = "minio"
	assert.Error(t, cfg.Validate(), "minio backend requires credentials")

	cfg.MinioAccessKey = "access"
	cfg.MinioSecretKey = "secret"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ProductionStrictness(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Env = "production"
	cfg.JWTSecret = "your-secret-key-change-in-production"
	assert.Error(t, cfg.Validate(), "default secret rejected in production")

	cfg.JWTSecret = "short"
	assert.Error(t, cfg.Validate(), "short secret rejected in production")

	cfg.JWTSecret = "a-very-long-production-secret-value-1234"
	cfg.DBPassword = "password"
	assert.Error(t, cfg.Validate(), "default DB password rejected in production")

	cfg.DBPassword = "sufficiently-strong"
	assert.NoError(t, cfg.Validate())
}
