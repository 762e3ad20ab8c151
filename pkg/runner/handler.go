package runner

import (
	"context"

	"github.com/aretw0/botflow/pkg/domain"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (terminal) and JSON (structured) modes.
type IOHandler interface {
	// Output presents new transcript lines, in order.
	Output(ctx context.Context, messages []domain.ChatMessage) error

	// Input reads the next answer. It returns io.EOF when the user is gone.
	Input(ctx context.Context) (string, error)
}

// ContentRenderer transforms block text before it is printed.
// This allows markdown rendering without coupling the runner to a TUI library.
type ContentRenderer func(string) (string, error)
