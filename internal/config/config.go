package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// CacheConfig selects and configures the document cache backend.
type CacheConfig struct {
	Driver        string // "redis" or "memory"
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
	MemorySize    int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// StorageConfig holds blob storage settings and upload limits.
type StorageConfig struct {
	Driver              string // "fs" or "minio"
	Root                string
	MaxUploadSize       int64
	AllowedContentTypes []string
	MinIO               MinIOConfig
}

// AdminConfig describes an optional administrator account created at startup.
type AdminConfig struct {
	Username string
	Email    string
	Password string
}

// AuthConfig holds token signing and gate settings.
type AuthConfig struct {
	JWTSecret     string
	JWTExpiration time.Duration
	JWTIssuer     string
	PublicPaths   []string
	Admin         AdminConfig
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	LogLevel string
	Timezone string
	Database DatabaseConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Auth     AuthConfig
	CORS     CORSConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:  getEnv("APP_HOST", "localhost:8080"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Timezone: getEnv("TZ", "UTC"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Cache: CacheConfig{
			Driver:        getEnv("CACHE_DRIVER", "redis"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
			TTL:           getEnvDuration("CACHE_TTL", 10*time.Minute),
			MemorySize:    getEnvInt("CACHE_MEMORY_SIZE", 1024),
		},
		Storage: StorageConfig{
			Driver:        getEnv("STORAGE_DRIVER", "fs"),
			Root:          getEnv("STORAGE_ROOT", "./uploads"),
			MaxUploadSize: int64(getEnvInt("MAX_UPLOAD_SIZE", 10<<20)),
			AllowedContentTypes: getEnvList("ALLOWED_CONTENT_TYPES",
				[]string{"application/pdf", "image/png", "image/jpeg"}),
			MinIO: MinIOConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", ""),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			JWTExpiration: getEnvDuration("JWT_EXPIRATION", 24*time.Hour),
			JWTIssuer:     getEnv("JWT_ISSUER", "docvault"),
			PublicPaths: getEnvList("PUBLIC_PATHS",
				[]string{"/auth/", "/health", "/healthz", "/metrics", "/swagger"}),
			Admin: AdminConfig{
				Username: getEnv("ADMIN_USERNAME", ""),
				Email:    getEnv("ADMIN_EMAIL", ""),
				Password: getEnv("ADMIN_PASSWORD", ""),
			},
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS",
				[]string{"http://localhost:4200", "http://localhost:3000", "http://localhost:5173"}),
		},
	}
}

// Validate reports settings the service cannot start without.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.JWTExpiration <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION must be positive"))
	}
	switch c.Cache.Driver {
	case "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("unsupported CACHE_DRIVER %q", c.Cache.Driver))
	}
	switch c.Storage.Driver {
	case "fs", "minio":
	default:
		errs = append(errs, fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver))
	}
	if c.Storage.MaxUploadSize <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_SIZE must be positive"))
	}
	if c.Admin() != nil && c.Auth.Admin.Password == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD is required when ADMIN_USERNAME is set"))
	}
	return errors.Join(errs...)
}

// Admin returns the bootstrap administrator, or nil when none is configured.
func (c *AppConfig) Admin() *AdminConfig {
	if c.Auth.Admin.Username == "" {
		return nil
	}
	return &c.Auth.Admin
}

// Location resolves the configured timezone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
