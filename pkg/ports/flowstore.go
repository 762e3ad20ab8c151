package ports

import (
	"context"

	"github.com/aretw0/botflow/pkg/domain"
)

// FlowStore persists flow documents.
//
// IDs are assigned by the store, start at 1, increase by one per Create and
// are never reused. "Latest" is the flow with the highest ID. Every read
// returns a copy that the caller may mutate freely.
type FlowStore interface {
	// Get returns the flow with the given ID or domain.ErrFlowNotFound.
	Get(ctx context.Context, id int64) (*domain.StoredFlow, error)

	// Latest returns the most recently created flow or domain.ErrFlowNotFound
	// when the store is empty.
	Latest(ctx context.Context) (*domain.StoredFlow, error)

	// Create stores a new flow. An empty name becomes domain.DefaultFlowName.
	Create(ctx context.Context, name string, flow domain.Flow) (*domain.StoredFlow, error)

	// Update merges patch into the flow with the given ID and returns the result.
	// Returns domain.ErrFlowNotFound if the ID does not exist.
	Update(ctx context.Context, id int64, patch domain.FlowPatch) (*domain.StoredFlow, error)

	// List returns every flow, highest ID first.
	List(ctx context.Context) ([]domain.StoredFlow, error)
}
