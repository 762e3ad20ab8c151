package config

import (
	"github.com/aretw0/botflow/internal/runtime"
	"github.com/aretw0/botflow/pkg/adapters/file"
	"github.com/aretw0/botflow/pkg/adapters/redis"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "botflow.yaml"

// DefaultPort matches the port the editor front end expects.
const DefaultPort = 5000

// DefaultConfig returns a Config with sensible defaults: everything in
// memory, listening on DefaultPort.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: DefaultPort,
		},
		Store: StoreConfig{
			Driver:      DriverMemory,
			SQLitePath:  ".botflow/flows.db",
			RedisPrefix: redis.DefaultFlowPrefix,
		},
		Sessions: SessionsConfig{
			Driver: DriverMemory,
			Dir:    file.DefaultDir,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Engine: EngineConfig{
			MaxSteps: runtime.DefaultMaxSteps,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
