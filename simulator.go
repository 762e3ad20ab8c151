package botflow

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/botflow/internal/runtime"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/google/uuid"
)

// Simulator is the stateful test bot: it owns exactly one conversation at a
// time and is safe for concurrent use.
type Simulator struct {
	mu      sync.Mutex
	engine  *runtime.Engine
	session *domain.Session

	sessionID   string
	runtimeOpts []runtime.EngineOption
	logger      *slog.Logger
}

// Option defines a functional option for configuring the Simulator.
type Option func(*Simulator)

// WithMaxSteps overrides the traversal ceiling of each run.
func WithMaxSteps(n int) Option {
	return func(s *Simulator) {
		s.runtimeOpts = append(s.runtimeOpts, runtime.WithMaxSteps(n))
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Simulator) {
		s.runtimeOpts = append(s.runtimeOpts, runtime.WithLifecycleHooks(hooks))
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) {
		s.logger = logger
		s.runtimeOpts = append(s.runtimeOpts, runtime.WithLogger(logger))
	}
}

// WithSessionID fixes the ID of the simulated session (default: random UUID).
func WithSessionID(id string) Option {
	return func(s *Simulator) {
		s.sessionID = id
	}
}

// NewSimulator creates an idle simulator.
func NewSimulator(opts ...Option) *Simulator {
	s := &Simulator{}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = runtime.NewEngine(s.runtimeOpts...)
	return s
}

// Start discards the current conversation and runs flow from its start node.
// The returned session is a snapshot; later calls do not change it.
func (s *Simulator) Start(ctx context.Context, flow domain.Flow) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.sessionID
	if id == "" {
		id = uuid.NewString()
	}

	next, err := s.engine.Start(ctx, id, flow)
	s.session = next
	return next.Snapshot(), err
}

// Submit answers the pending question. Without a conversation awaiting input
// it returns domain.ErrNotAwaitingInput and changes nothing.
func (s *Simulator) Submit(ctx context.Context, text string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.engine.Submit(ctx, s.session, text)
	if next != nil {
		s.session = next
	}
	return s.session.Snapshot(), err
}

// Reset drops the current conversation.
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
}

// State returns the status of the current conversation; idle before Start.
func (s *Simulator) State() domain.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return domain.StatusIdle
	}
	return s.session.Status
}

// Session returns a snapshot of the current conversation, or nil before Start.
func (s *Simulator) Session() *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Snapshot()
}

// Transcript returns a copy of the messages exchanged so far.
func (s *Simulator) Transcript() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return []domain.ChatMessage{}
	}
	out := make([]domain.ChatMessage, len(s.session.Messages))
	copy(out, s.session.Messages)
	return out
}

// Responses returns a copy of the stored answers, keyed by question node ID.
func (s *Simulator) Responses() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string)
	if s.session == nil {
		return out
	}
	for k, v := range s.session.Responses {
		out[k] = v
	}
	return out
}

// Engine exposes the underlying stateless engine.
func (s *Simulator) Engine() *runtime.Engine {
	return s.engine
}
