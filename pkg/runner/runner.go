package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/botflow/internal/logging"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/aretw0/botflow/pkg/ports"
)

// Runner drives one simulated conversation over an IOHandler: it prints the
// bot's lines, reads answers while the session awaits input and stops when
// the session completes or the input source is exhausted.
type Runner struct {
	// Engine executes the flow. Required.
	Engine ports.StatelessEngine

	// Handler is the strategy for IO. Defaults to a TextHandler on stdio.
	Handler IOHandler

	// Store persists every snapshot when set, so that a session can be
	// inspected or resumed later.
	Store ports.SessionStore

	// Policy filters raw input before it reaches the engine.
	Policy InputPolicy

	// Logger is used for internal debug logging.
	Logger *slog.Logger
}

// NewRunner creates a Runner for engine with the given options.
func NewRunner(engine ports.StatelessEngine, opts ...Option) *Runner {
	r := &Runner{
		Engine: engine,
		Policy: DefaultInputPolicy(),
		Logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(nil, nil)
	}
	return r
}

// Run starts flow under sessionID and converses until the end.
// The final snapshot is returned even when err is not nil.
func (r *Runner) Run(ctx context.Context, sessionID string, flow domain.Flow) (*domain.Session, error) {
	if r.Engine == nil {
		return nil, errors.New("runner: nil engine")
	}

	current, err := r.Engine.Start(ctx, sessionID, flow)
	if current != nil {
		if saveErr := r.commit(ctx, nil, current); saveErr != nil {
			return current, saveErr
		}
	}
	if err != nil {
		return current, err
	}
	return r.converse(ctx, current)
}

// Resume continues a previously persisted session. Its transcript is
// replayed first so the user sees where the conversation stands.
func (r *Runner) Resume(ctx context.Context, session *domain.Session) (*domain.Session, error) {
	if r.Engine == nil {
		return nil, errors.New("runner: nil engine")
	}
	if session == nil {
		return nil, domain.ErrSessionNotFound
	}
	if err := r.Handler.Output(ctx, session.Messages); err != nil {
		return session, fmt.Errorf("output error: %w", err)
	}
	return r.converse(ctx, session)
}

func (r *Runner) converse(ctx context.Context, current *domain.Session) (*domain.Session, error) {
	for current.Awaiting() {
		raw, err := r.Handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.Logger.Debug("input closed", "session_id", current.ID)
				return current, nil
			}
			return current, err
		}

		input, err := r.Policy.Sanitize(raw)
		if err != nil {
			r.Logger.Warn("input rejected", "session_id", current.ID, "err", err)
			continue
		}

		next, err := r.Engine.Submit(ctx, current, input)
		if errors.Is(err, domain.ErrEmptyInput) {
			continue
		}
		if next != nil {
			if saveErr := r.commit(ctx, current, next); saveErr != nil {
				return next, saveErr
			}
			current = next
		}
		if err != nil {
			return current, err
		}
	}
	return current, nil
}

// commit prints what changed between two snapshots and persists the new one.
func (r *Runner) commit(ctx context.Context, prev, next *domain.Session) error {
	if diff := domain.Diff(prev, next); diff != nil && len(diff.Appended) > 0 {
		if err := r.Handler.Output(ctx, diff.Appended); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
	}

	if r.Store == nil {
		return nil
	}
	if err := r.Store.Save(ctx, next); err != nil {
		return fmt.Errorf("critical persistence error: %w", err)
	}
	r.Logger.Debug("session saved", "session_id", next.ID, "node_id", next.CurrentNodeID, "status", next.Status)
	return nil
}
