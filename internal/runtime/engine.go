package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/botflow/internal/logging"
	"github.com/aretw0/botflow/pkg/domain"
)

// DefaultMaxSteps bounds the node executions of a single run to suspension.
const DefaultMaxSteps = 1000

// Engine is the flow execution state machine.
// It holds no session state: every call takes a snapshot and returns a new one.
type Engine struct {
	maxSteps int
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	now      func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxSteps overrides the traversal ceiling. Values below 1 are ignored.
func WithMaxSteps(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxSteps = n
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock replaces the time source used for event timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine with the given options.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		maxSteps: DefaultMaxSteps,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxSteps returns the configured traversal ceiling.
func (e *Engine) MaxSteps() int {
	return e.maxSteps
}

// Start begins a fresh conversation over a snapshot of flow.
//
// A flow without a start node yields an idle session with an empty
// transcript. Otherwise the start node runs and execution continues until a
// question suspends it or the flow completes.
func (e *Engine) Start(ctx context.Context, sessionID string, flow domain.Flow) (*domain.Session, error) {
	s := domain.NewSession(sessionID, flow)

	start, ok := s.Flow.StartNode()
	if !ok {
		e.logger.DebugContext(ctx, "flow has no start node", "session_id", sessionID)
		return s, nil
	}

	s.Status = domain.StatusRunning
	e.emitSessionStart(ctx, s)
	return e.execute(ctx, s, start.ID)
}

// Submit answers the question the session is suspended on.
//
// It is only valid in the awaiting_input state; any other state returns the
// session unchanged together with domain.ErrNotAwaitingInput. Blank input
// returns domain.ErrEmptyInput. The given session is never mutated.
func (e *Engine) Submit(ctx context.Context, current *domain.Session, input string) (*domain.Session, error) {
	if !current.Awaiting() {
		return current, domain.ErrNotAwaitingInput
	}
	if strings.TrimSpace(input) == "" {
		return current, domain.ErrEmptyInput
	}

	s := current.Snapshot()
	e.appendMessage(ctx, s, domain.RoleUser, input, "")

	if node, ok := s.Flow.Node(s.CurrentNodeID); ok && node.Data.StoreResponse {
		s.Responses[node.ID] = input
	}

	s.Status = domain.StatusRunning
	edge, ok := s.Flow.NextEdge(s.CurrentNodeID)
	if !ok {
		e.endOfConversation(ctx, s)
		return s, nil
	}
	return e.execute(ctx, s, edge.Target)
}

// execute runs nodes starting at nodeID until the session suspends or completes.
func (e *Engine) execute(ctx context.Context, s *domain.Session, nodeID string) (*domain.Session, error) {
	steps := 0
	for {
		node, ok := s.Flow.Node(nodeID)
		if !ok {
			e.logger.WarnContext(ctx, "edge points to a missing node",
				"session_id", s.ID, "from", s.CurrentNodeID, "target", nodeID)
			e.complete(ctx, s, domain.HaltDanglingEdge)
			return s, nil
		}

		if steps >= e.maxSteps {
			e.logger.WarnContext(ctx, "traversal limit reached",
				"session_id", s.ID, "node_id", node.ID, "limit", e.maxSteps)
			e.complete(ctx, s, domain.HaltTraversalLimit)
			return s, &domain.TraversalLimitError{NodeID: node.ID, Limit: e.maxSteps}
		}
		steps++
		s.Steps++
		s.CurrentNodeID = node.ID
		e.emitNodeEnter(ctx, s, node)

		switch node.Type {
		case domain.NodeKindMessage:
			if node.HasText() {
				e.appendMessage(ctx, s, domain.RoleBot, node.Text(), node.ID)
			}
		case domain.NodeKindQuestion:
			// A question without text has nothing to ask and falls through.
			if node.HasText() {
				e.appendMessage(ctx, s, domain.RoleBot, node.Text(), node.ID)
				s.Status = domain.StatusAwaitingInput
				return s, nil
			}
		}

		edge, ok := s.Flow.NextEdge(node.ID)
		if !ok {
			e.endOfConversation(ctx, s)
			return s, nil
		}
		nodeID = edge.Target
	}
}

func (e *Engine) endOfConversation(ctx context.Context, s *domain.Session) {
	e.appendMessage(ctx, s, domain.RoleBot, domain.EndOfConversationText, domain.SystemNodeID)
	e.complete(ctx, s, domain.HaltNone)
}

func (e *Engine) complete(ctx context.Context, s *domain.Session, reason domain.HaltReason) {
	s.Status = domain.StatusCompleted
	s.Halt = reason
	e.logger.DebugContext(ctx, "session completed",
		"session_id", s.ID, "steps", s.Steps, "halt", string(reason))
	e.emitSessionEnd(ctx, s)
}

func (e *Engine) appendMessage(ctx context.Context, s *domain.Session, role domain.Role, text, nodeID string) {
	msg := domain.ChatMessage{
		ID:     fmt.Sprintf("msg-%d", len(s.Messages)+1),
		Type:   role,
		Text:   text,
		NodeID: nodeID,
	}
	s.Messages = append(s.Messages, msg)
	e.emitMessage(ctx, s, msg)
}
