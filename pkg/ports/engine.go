package ports

import (
	"context"

	"github.com/aretw0/botflow/pkg/domain"
)

// StatelessEngine defines the flow execution core as seen by adapters that
// keep sessions externally (HTTP, MCP, session.Manager).
type StatelessEngine interface {
	// Start begins a new session over a snapshot of flow.
	Start(ctx context.Context, sessionID string, flow domain.Flow) (*domain.Session, error)

	// Submit answers the pending question and returns the next snapshot.
	Submit(ctx context.Context, session *domain.Session, input string) (*domain.Session, error)
}
