package config

import "time"

// Driver names a storage backend.
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverSQLite Driver = "sqlite"
	DriverRedis  Driver = "redis"
	DriverFile   Driver = "file"
)

// Config is the top-level botflow configuration, corresponding to botflow.yaml.
type Config struct {
	Server   ServerConfig   `yaml:"server" koanf:"server"`
	Store    StoreConfig    `yaml:"store" koanf:"store"`
	Sessions SessionsConfig `yaml:"sessions" koanf:"sessions"`
	Redis    RedisConfig    `yaml:"redis" koanf:"redis"`
	Engine   EngineConfig   `yaml:"engine" koanf:"engine"`
	Log      LogConfig      `yaml:"log" koanf:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// StoreConfig selects the flow store.
type StoreConfig struct {
	Driver      Driver `yaml:"driver" koanf:"driver"`
	SQLitePath  string `yaml:"sqlite_path" koanf:"sqlite_path"`
	RedisPrefix string `yaml:"redis_prefix" koanf:"redis_prefix"`
}

// SessionsConfig selects the session store used by the server and the CLI.
type SessionsConfig struct {
	Driver Driver        `yaml:"driver" koanf:"driver"`
	Dir    string        `yaml:"dir" koanf:"dir"`
	TTL    time.Duration `yaml:"ttl" koanf:"ttl"`

	// EncryptionKey is a base64 AES-256 key. When set, sessions are sealed
	// before they reach the store. FallbackKeys still open older sessions.
	EncryptionKey string   `yaml:"encryption_key,omitempty" koanf:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys,omitempty" koanf:"fallback_keys"`

	// RedactPII masks answers to email questions and to the questions whose
	// node id matches one of Redact.
	RedactPII bool     `yaml:"redact_pii,omitempty" koanf:"redact_pii"`
	Redact    []string `yaml:"redact,omitempty" koanf:"redact"`
}

// RedisConfig is shared by every redis-backed component.
type RedisConfig struct {
	Addr     string `yaml:"addr" koanf:"addr"`
	Password string `yaml:"password" koanf:"password"`
	DB       int    `yaml:"db" koanf:"db"`
}

// EngineConfig tunes the execution engine.
type EngineConfig struct {
	MaxSteps int `yaml:"max_steps" koanf:"max_steps"`
}

// LogConfig configures internal/logging.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}
