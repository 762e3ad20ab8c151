package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, DriverMemory, cfg.Sessions.Driver)
	assert.Equal(t, 1000, cfg.Engine.MaxSteps)
	assert.NoError(t, cfg.Validate())
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "botflow.yaml")

	original := DefaultConfig()
	original.Server.Port = 8080
	original.Store.Driver = DriverSQLite
	original.Store.SQLitePath = "data/flows.db"
	original.Sessions.Driver = DriverFile
	original.Engine.MaxSteps = 50

	require.NoError(t, original.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, loaded.Server.Port)
	assert.Equal(t, DriverSQLite, loaded.Store.Driver)
	assert.Equal(t, "data/flows.db", loaded.Store.SQLitePath)
	assert.Equal(t, DriverFile, loaded.Sessions.Driver)
	assert.Equal(t, 50, loaded.Engine.MaxSteps)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err, "a missing file falls back to defaults")
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "botflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sessions:\n  ttl: 90s\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Sessions.TTL)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultConfig().Sessions.Dir, cfg.Sessions.Dir)
}

func TestLoadEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "botflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7000\n"), 0644))

	t.Setenv("BOTFLOW_SERVER_PORT", "9000")
	t.Setenv("BOTFLOW_STORE_SQLITE_PATH", "/tmp/x.db")
	t.Setenv("BOTFLOW_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port, "env wins over the file")
	assert.Equal(t, "/tmp/x.db", cfg.Store.SQLitePath)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "botflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"unknown flow driver", func(c *Config) { c.Store.Driver = "postgres" }},
		{"file is not a flow driver", func(c *Config) { c.Store.Driver = DriverFile }},
		{"sqlite without path", func(c *Config) { c.Store.Driver = DriverSQLite; c.Store.SQLitePath = "" }},
		{"sqlite is not a session driver", func(c *Config) { c.Sessions.Driver = DriverSQLite }},
		{"file sessions without dir", func(c *Config) { c.Sessions.Driver = DriverFile; c.Sessions.Dir = "" }},
		{"negative ttl", func(c *Config) { c.Sessions.TTL = -time.Second }},
		{"redis without addr", func(c *Config) { c.Store.Driver = DriverRedis; c.Redis.Addr = "" }},
		{"zero max steps", func(c *Config) { c.Engine.MaxSteps = 0 }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"key not base64", func(c *Config) { c.Sessions.EncryptionKey = "not base64!" }},
		{"short key", func(c *Config) { c.Sessions.EncryptionKey = base64.StdEncoding.EncodeToString([]byte("short")) }},
		{"fallback without key", func(c *Config) { c.Sessions.FallbackKeys = []string{testKey} }},
		{"bad redact pattern", func(c *Config) { c.Sessions.Redact = []string{"("} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

var testKey = base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

func TestSessionsEncryption(t *testing.T) {
	s := DefaultConfig().Sessions
	enc, err := s.Encryption()
	require.NoError(t, err)
	assert.Nil(t, enc, "encryption is off without a key")

	s.EncryptionKey = testKey
	s.FallbackKeys = []string{testKey}
	enc, err = s.Encryption()
	require.NoError(t, err)
	require.NotNil(t, enc)
	assert.Equal(t, []byte("0123456789abcdef0123456789abcdef"), enc.ActiveKey)
	assert.Len(t, enc.FallbackKeys, 1)
}
