package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("DB_HOST", "test-host")
	t.Setenv("DB_MAX_OPEN_CONNS", "20")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("CACHE_TTL", "5m")
	t.Setenv("ALLOWED_CONTENT_TYPES", "application/pdf, image/png")

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.Storage.MinIO.UseSSL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, []string{"application/pdf", "image/png"}, cfg.Storage.AllowedContentTypes)
}

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"CACHE_TTL", "MAX_UPLOAD_SIZE", "ALLOWED_CONTENT_TYPES", "STORAGE_DRIVER", "JWT_EXPIRATION"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, int64(10485760), cfg.Storage.MaxUploadSize)
	assert.Equal(t, []string{"application/pdf", "image/png", "image/jpeg"}, cfg.Storage.AllowedContentTypes)
	assert.Equal(t, "fs", cfg.Storage.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Auth.JWTExpiration)
	assert.Contains(t, cfg.Auth.PublicPaths, "/auth/")
}

func TestValidate(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		cfg := &AppConfig{
			Cache:   CacheConfig{Driver: "memory"},
			Storage: StorageConfig{Driver: "fs", MaxUploadSize: 1},
			Auth:    AuthConfig{JWTExpiration: time.Hour},
		}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_SECRET")
	})

	t.Run("bad drivers", func(t *testing.T) {
		cfg := &AppConfig{
			Cache:   CacheConfig{Driver: "memcached"},
			Storage: StorageConfig{Driver: "nfs", MaxUploadSize: 1},
			Auth:    AuthConfig{JWTSecret: "s", JWTExpiration: time.Hour},
		}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CACHE_DRIVER")
		assert.Contains(t, err.Error(), "STORAGE_DRIVER")
	})

	t.Run("admin without password", func(t *testing.T) {
		cfg := &AppConfig{
			Cache:   CacheConfig{Driver: "redis"},
			Storage: StorageConfig{Driver: "fs", MaxUploadSize: 1},
			Auth: AuthConfig{
				JWTSecret:     "s",
				JWTExpiration: time.Hour,
				Admin:         AdminConfig{Username: "root"},
			},
		}
		assert.ErrorContains(t, cfg.Validate(), "ADMIN_PASSWORD")
	})

	t.Run("valid", func(t *testing.T) {
		cfg := &AppConfig{
			Cache:   CacheConfig{Driver: "redis"},
			Storage: StorageConfig{Driver: "minio", MaxUploadSize: 1},
			Auth:    AuthConfig{JWTSecret: "s", JWTExpiration: time.Hour},
		}
		assert.NoError(t, cfg.Validate())
		assert.Nil(t, cfg.Admin())
	})
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}

func TestGetEnvList(t *testing.T) {
	key := "TEST_LIST_VAR"
	def := []string{"a"}

	t.Setenv(key, " x ,, y ")
	assert.Equal(t, []string{"x", "y"}, getEnvList(key, def))

	t.Setenv(key, " , ")
	assert.Equal(t, def, getEnvList(key, def))
}
