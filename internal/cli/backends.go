package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/botflow"
	"github.com/aretw0/botflow/internal/config"
	"github.com/aretw0/botflow/internal/metrics"
	"github.com/aretw0/botflow/internal/runtime"
	"github.com/aretw0/botflow/pkg/adapters/file"
	"github.com/aretw0/botflow/pkg/adapters/memory"
	"github.com/aretw0/botflow/pkg/adapters/redis"
	"github.com/aretw0/botflow/pkg/adapters/sqlite"
	"github.com/aretw0/botflow/pkg/persistence/middleware"
	"github.com/aretw0/botflow/pkg/ports"
	"github.com/aretw0/botflow/pkg/session"
	backend "github.com/redis/go-redis/v9"
)

// Backends bundles the stores selected by the configuration.
type Backends struct {
	Flows    ports.FlowStore
	Sessions ports.SessionStore

	// Locker is set when sessions live in redis, so that several server
	// replicas serialize turns of the same session.
	Locker ports.DistributedLocker

	closers []func() error
}

// OpenBackends opens the flow store, the session store and, for redis, the
// distributed locker. A single redis client is shared by all of them.
func OpenBackends(cfg *config.Config, logger *slog.Logger) (*Backends, error) {
	b := &Backends{}

	var client *backend.Client
	redisClient := func() *backend.Client {
		if client == nil {
			client = redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
			b.closers = append(b.closers, client.Close)
		}
		return client
	}

	switch cfg.Store.Driver {
	case config.DriverMemory:
		b.Flows = memory.NewFlowStore()
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.Store.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		db, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		store := sqlite.NewFlowStore(db)
		b.Flows = store
		b.closers = append(b.closers, store.Close)
	case config.DriverRedis:
		b.Flows = redis.NewFlowStore(redisClient(), redis.WithFlowPrefix(cfg.Store.RedisPrefix))
	default:
		return nil, fmt.Errorf("unsupported flow store driver %q", cfg.Store.Driver)
	}

	switch cfg.Sessions.Driver {
	case config.DriverMemory:
		b.Sessions = memory.NewStore()
	case config.DriverFile:
		b.Sessions = file.New(cfg.Sessions.Dir)
	case config.DriverRedis:
		opts := []redis.Option{redis.WithPrefix(cfg.Store.RedisPrefix + "session:")}
		if cfg.Sessions.TTL > 0 {
			opts = append(opts, redis.WithTTL(cfg.Sessions.TTL))
		}
		b.Sessions = redis.NewFromClient(redisClient(), opts...)
		b.Locker = redis.NewLocker(redisClient(), cfg.Store.RedisPrefix)
	default:
		_ = b.Close()
		return nil, fmt.Errorf("unsupported session store driver %q", cfg.Sessions.Driver)
	}

	if err := b.protectSessions(cfg.Sessions); err != nil {
		_ = b.Close()
		return nil, err
	}

	logger.Debug("Backends opened",
		"flow_store", cfg.Store.Driver,
		"session_store", cfg.Sessions.Driver,
		"locker", b.Locker != nil,
		"encrypted", cfg.Sessions.EncryptionKey != "",
		"redact_pii", cfg.Sessions.RedactPII,
	)
	return b, nil
}

// protectSessions wraps the session store with redaction and encryption.
// Redaction runs first so that the sealed envelope holds masked answers.
func (b *Backends) protectSessions(cfg config.SessionsConfig) error {
	var mws []middleware.Middleware
	if cfg.RedactPII {
		pii, err := middleware.NewPIIMiddleware(cfg.Redact)
		if err != nil {
			return err
		}
		mws = append(mws, pii)
	}

	enc, err := cfg.Encryption()
	if err != nil {
		return err
	}
	if enc != nil {
		mw, err := middleware.NewEncryptionMiddleware(*enc)
		if err != nil {
			return err
		}
		mws = append(mws, mw)
	}

	b.Sessions = middleware.Chain(b.Sessions, mws...)
	return nil
}

// Close releases every connection opened by OpenBackends.
func (b *Backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// Workspace wraps the flow store for the editor-facing operations.
func (b *Backends) Workspace() *botflow.Workspace {
	return botflow.NewWorkspace(b.Flows)
}

// SessionManager builds a manager over the session store, wired to the
// locker when there is one.
func (b *Backends) SessionManager(engine ports.StatelessEngine, logger *slog.Logger) *session.Manager {
	opts := []session.Option{session.WithLogger(logger)}
	if b.Locker != nil {
		opts = append(opts, session.WithLocker(b.Locker))
	}
	return session.NewManager(b.Sessions, engine, opts...)
}

// NewEngine builds the execution engine from the configuration. Debug hooks
// are always attached; metrics hooks when m is not nil.
func NewEngine(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *runtime.Engine {
	hooks := DebugHooks(logger)
	if m != nil {
		hooks = MergeHooks(hooks, m.Hooks())
	}
	return runtime.NewEngine(
		runtime.WithMaxSteps(cfg.Engine.MaxSteps),
		runtime.WithLifecycleHooks(hooks),
		runtime.WithLogger(logger),
	)
}
