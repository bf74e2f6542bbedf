// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sofra/media/internal/category"
)

// Storage driver selection values for STORAGE_DRIVER.
const (
	DriverMinio = "minio"
	DriverLocal = "local"
)

// Config holds all runtime configuration for the service.
type Config struct {
	Port   string
	AppEnv string

	// Object storage. The minio driver talks to any S3-compatible backend;
	// the local driver keeps objects on the server's filesystem.
	StorageDriver     string
	StorageEndpoint   string
	StorageAccessKey  string
	StorageSecretKey  string
	StorageUseSSL     bool
	StoragePublicBase string // browser-accessible base URL, e.g. "http://localhost:9000"
	LocalStorageDir   string
	LocalPublicBase   string

	// Per-category bucket overrides; categories absent from the map keep
	// their built-in names.
	Buckets map[category.Category]string
}

// Load reads configuration from a .env file (if present) and environment
// variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading from environment")
	}

	return &Config{
		Port:   getEnv("PORT", "8080"),
		AppEnv: getEnv("APP_ENV", "development"),

		StorageDriver:     getEnv("STORAGE_DRIVER", DriverMinio),
		StorageEndpoint:   getEnv("STORAGE_ENDPOINT", "localhost:9000"),
		StorageAccessKey:  os.Getenv("STORAGE_ACCESS_KEY"),
		StorageSecretKey:  os.Getenv("STORAGE_SECRET_KEY"),
		StorageUseSSL:     getEnv("STORAGE_USE_SSL", "false") == "true",
		StoragePublicBase: getEnv("STORAGE_PUBLIC_BASE", "http://localhost:9000"),
		LocalStorageDir:   getEnv("LOCAL_STORAGE_DIR", "uploads"),
		LocalPublicBase:   getEnv("LOCAL_PUBLIC_BASE", "/uploads"),

		Buckets: bucketOverrides(),
	}
}

// HasCredentials reports whether the S3 backend is configured. Without
// credentials the service starts anyway and answers 503 on image
// operations.
func (c *Config) HasCredentials() bool {
	return c.StorageAccessKey != "" && c.StorageSecretKey != ""
}

// IsProduction returns true when the app is running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// bucketOverrides reads BUCKET_<CATEGORY> variables, e.g.
// BUCKET_MENUITEMS=menu-item-images.
func bucketOverrides() map[category.Category]string {
	buckets := make(map[category.Category]string)
	for _, c := range category.All() {
		key := "BUCKET_" + strings.ToUpper(string(c))
		if v := os.Getenv(key); v != "" {
			buckets[c] = v
		}
	}
	return buckets
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
