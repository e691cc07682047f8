package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PASETO_KEY", testKey)
	t.Setenv("ADMINS", "Admin@Meet-OS.com, second@meet-os.com")
	t.Setenv("SESSION_DURATION", "60")
	t.Setenv("BASE_URL", "https://meet-os.com/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Server.IsDevelopment())
	assert.Equal(t, []string{"admin@meet-os.com", "second@meet-os.com"}, cfg.App.Admins)
	assert.Equal(t, time.Minute, cfg.Auth.SessionDuration)
	assert.Equal(t, "https://meet-os.com", cfg.App.BaseURL)
	assert.Equal(t, "Meet-OS", cfg.Public.SiteName)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoad_PublicYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("PASETO_KEY", testKey)

	yamlBody := "site_name: Rust Meet\ngoogle_analytics: G-123\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yamlBody), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Rust Meet", cfg.Public.SiteName)
	assert.Equal(t, "G-123", cfg.Public.GoogleAnalytics)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Driver: "memory"},
			Auth:     AuthConfig{TokenFormat: "paseto", PasetoKey: []byte(testKey)},
			Email:    EmailConfig{Mode: "folder", Folder: "x"},
			App:      AppConfig{BaseURL: "http://localhost"},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"valid", func(c *Config) {}, true},
		{"short paseto key", func(c *Config) { c.Auth.PasetoKey = []byte("short") }, false},
		{"jwt short secret", func(c *Config) { c.Auth.TokenFormat = "jwt"; c.Auth.JWTSecret = []byte("x") }, false},
		{"jwt ok", func(c *Config) { c.Auth.TokenFormat = "jwt"; c.Auth.JWTSecret = []byte(testKey) }, true},
		{"unknown token format", func(c *Config) { c.Auth.TokenFormat = "cbor" }, false},
		{"smtp without host", func(c *Config) { c.Email.Mode = "smtp" }, false},
		{"unknown mail mode", func(c *Config) { c.Email.Mode = "pigeon" }, false},
		{"unknown driver", func(c *Config) { c.Database.Driver = "surreal" }, false},
		{"no base url", func(c *Config) { c.App.BaseURL = "" }, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(c)
			err := c.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestConnectionString(t *testing.T) {
	c := DatabaseConfig{Host: "h", Port: "1", User: "u", Password: "p", DBName: "d", SSLMode: "disable", ChannelBinding: "require"}
	assert.Equal(t, "host=h port=1 user=u password=p dbname=d sslmode=disable channel_binding=require", c.ConnectionString())
}
