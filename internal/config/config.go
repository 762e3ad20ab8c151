package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/botflow/internal/logging"
	"github.com/aretw0/botflow/pkg/persistence/middleware"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BOTFLOW_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (BOTFLOW_SERVER_PORT -> server.port).
// A missing file is not an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envKey maps BOTFLOW_STORE_SQLITE_PATH to store.sqlite_path: the first
// segment is the section, the rest is the key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validFlowDrivers = map[Driver]bool{
	DriverMemory: true,
	DriverSQLite: true,
	DriverRedis:  true,
}

var validSessionDrivers = map[Driver]bool{
	DriverMemory: true,
	DriverRedis:  true,
	DriverFile:   true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", c.Server.Port)
	}

	if !validFlowDrivers[c.Store.Driver] {
		return fmt.Errorf("invalid store.driver %q: must be one of memory, sqlite, redis", c.Store.Driver)
	}
	if c.Store.Driver == DriverSQLite && c.Store.SQLitePath == "" {
		return fmt.Errorf("store.sqlite_path is required for the sqlite driver")
	}

	if !validSessionDrivers[c.Sessions.Driver] {
		return fmt.Errorf("invalid sessions.driver %q: must be one of memory, redis, file", c.Sessions.Driver)
	}
	if c.Sessions.Driver == DriverFile && c.Sessions.Dir == "" {
		return fmt.Errorf("sessions.dir is required for the file driver")
	}
	if c.Sessions.TTL < 0 {
		return fmt.Errorf("sessions.ttl must be non-negative")
	}
	if _, err := c.Sessions.Encryption(); err != nil {
		return err
	}
	if _, err := middleware.NewPIIMiddleware(c.Sessions.Redact); err != nil {
		return fmt.Errorf("invalid sessions.redact: %w", err)
	}

	if (c.Store.Driver == DriverRedis || c.Sessions.Driver == DriverRedis) && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required for the redis driver")
	}

	if c.Engine.MaxSteps < 1 {
		return fmt.Errorf("engine.max_steps must be positive")
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}
	switch logging.Format(c.Log.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("invalid log.format %q: must be text or json", c.Log.Format)
	}

	return nil
}

// Encryption decodes the session keys. It returns nil when encryption is off.
func (s SessionsConfig) Encryption() (*middleware.EncryptionConfig, error) {
	if s.EncryptionKey == "" {
		if len(s.FallbackKeys) > 0 {
			return nil, fmt.Errorf("sessions.fallback_keys requires sessions.encryption_key")
		}
		return nil, nil
	}

	active, err := base64.StdEncoding.DecodeString(s.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("invalid sessions.encryption_key: %w", err)
	}
	enc := &middleware.EncryptionConfig{ActiveKey: active}
	for i, k := range s.FallbackKeys {
		key, err := base64.StdEncoding.DecodeString(k)
		if err != nil {
			return nil, fmt.Errorf("invalid sessions.fallback_keys[%d]: %w", i, err)
		}
		enc.FallbackKeys = append(enc.FallbackKeys, key)
	}
	if err := enc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sessions encryption keys: %w", err)
	}
	return enc, nil
}
