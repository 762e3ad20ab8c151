package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/botflow/internal/presentation/tui"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/aretw0/botflow/pkg/ports"
	"github.com/aretw0/botflow/pkg/runner"
	"github.com/google/uuid"
	"golang.org/x/term"
)

// ChatOptions configures a terminal conversation with a flow.
type ChatOptions struct {
	Source FlowSource

	// SessionID names the session. With Persist, an existing session of that
	// id is resumed instead of started.
	SessionID string
	Persist   bool

	// JSON switches to JSON lines on both ends (one message per line out,
	// one answer per line in).
	JSON bool

	TypingDelay time.Duration

	// Styled enables the banner, colours and markdown rendering.
	Styled bool

	In  io.Reader
	Out io.Writer
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// RunChat converses with the flow named by opts.Source until it completes or
// input runs out. Interruptions are not errors.
func RunChat(ctx context.Context, b *Backends, engine ports.StatelessEngine, opts ChatOptions, logger *slog.Logger) error {
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	quiet := opts.JSON

	ropts := []runner.Option{
		runner.WithLogger(logger),
		runner.WithInputHandler(newChatHandler(opts)),
	}
	if opts.Persist {
		ropts = append(ropts, runner.WithStore(b.Sessions))
	}
	r := runner.NewRunner(engine, ropts...)

	if opts.Styled && !quiet {
		tui.PrintBanner(opts.Out)
	}

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	var (
		final *domain.Session
		err   error
	)
	existing, loadErr := loadExisting(ctx, b, opts, sessionID)
	switch {
	case loadErr != nil:
		return loadErr
	case existing != nil:
		logger.Info("Session Resumed", "session_id", sessionID, "node", existing.CurrentNodeID)
		if !quiet {
			printSystemMessage(opts.Out, "Resuming session '%s' at '%s' node...", sessionID, existing.CurrentNodeID)
		}
		final, err = r.Resume(ctx, existing)
	default:
		sf, resolveErr := ResolveFlow(ctx, b.Workspace(), opts.Source)
		if resolveErr != nil {
			return resolveErr
		}
		logger.Info("Session Created", "session_id", sessionID, "flow", sf.Name)
		if !quiet && opts.Persist {
			printSystemMessage(opts.Out, "Session '%s' active.", sessionID)
		}
		final, err = r.Run(ctx, sessionID, sf.FlowData)
	}

	if !quiet {
		logCompletion(opts.Out, final, err)
	}
	return handleExecutionError(err)
}

func loadExisting(ctx context.Context, b *Backends, opts ChatOptions, sessionID string) (*domain.Session, error) {
	if !opts.Persist || opts.SessionID == "" {
		return nil, nil
	}
	s, err := b.Sessions.Load(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %q: %w", sessionID, err)
	}
	if s.Done() {
		return nil, fmt.Errorf("session %q already completed", sessionID)
	}
	return s, nil
}

func newChatHandler(opts ChatOptions) runner.IOHandler {
	if opts.JSON {
		return runner.NewJSONHandler(opts.In, opts.Out)
	}
	renderer := runner.ContentRenderer(tui.PlainRenderer)
	if opts.Styled {
		renderer = runner.ContentRenderer(tui.NewRenderer())
	}
	return runner.NewTextHandler(opts.In, opts.Out,
		runner.WithTextHandlerRenderer(renderer),
		runner.WithTypingDelay(opts.TypingDelay),
		runner.WithPrefix(func(role domain.Role) string {
			return tui.Speaker(role, opts.Styled)
		}),
	)
}

func logCompletion(w io.Writer, s *domain.Session, err error) {
	if s == nil {
		return
	}
	switch {
	case err != nil && isInterrupted(err):
		fmt.Fprintln(w)
		printSystemMessage(w, "Interrupted at '%s' node.", s.CurrentNodeID)
	case s.Halt == domain.HaltTraversalLimit:
		printSystemMessage(w, "Stopped at '%s' node: the flow loops without asking anything.", s.CurrentNodeID)
	case err != nil:
	case s.Done():
		printSystemMessage(w, "Conversation finished.")
	case s.Awaiting():
		printSystemMessage(w, "Input closed while waiting at '%s' node.", s.CurrentNodeID)
	default:
		printSystemMessage(w, "Nothing to run: the flow has no start node.")
	}
}
