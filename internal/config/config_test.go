package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:              "development",
		Port:             "8080",
		JWTSecret:        "secure-secret-at-least-32-chars-long",
		DBDriver:         "postgres",
		DBPassword:       "secure-password",
		DBSSLMode:        "require",
		StorageDriver:    "local",
		StorageLocalRoot: "/tmp/uploads",
		ViewCacheTTL:     time.Minute,
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateDrivers(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"sqlite store", func(c *Config) { c.DBDriver = "sqlite" }, false},
		{"unknown store", func(c *Config) { c.DBDriver = "mongo" }, true},
		{"s3 without bucket", func(c *Config) { c.StorageDriver = "s3" }, true},
		{"s3 with bucket", func(c *Config) { c.StorageDriver = "s3"; c.S3Bucket = "witwaves" }, false},
		{"local without root", func(c *Config) { c.StorageLocalRoot = "" }, true},
		{"unknown storage", func(c *Config) { c.StorageDriver = "ftp" }, true},
		{"negative ttl", func(c *Config) { c.ViewCacheTTL = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ProductionRejectsDefaultSecret(t *testing.T) {
	c := validConfig()
	c.Env = "production"
	c.JWTSecret = "your-secret-key-change-in-production"
	assert.Error(t, c.Validate())
}

func TestLoadConfig_Normalization(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer os.Unsetenv("STORAGE_DRIVER")
	defer os.Unsetenv("VIEW_CACHE_TTL")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")
	os.Setenv("STORAGE_DRIVER", " Local ")
	os.Setenv("VIEW_CACHE_TTL", "90s")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "local", c.StorageDriver)
	assert.Equal(t, 90*time.Second, c.ViewCacheTTL)
	assert.Equal(t, "8375", c.Port)
}
