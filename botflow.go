package botflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/botflow/pkg/domain"
	"github.com/aretw0/botflow/pkg/ports"
)

// Workspace implements the editor's "one working document" policy on top of
// a FlowStore: reads return the latest flow, saves overwrite it.
type Workspace struct {
	store ports.FlowStore
	// mu makes the latest-or-create decision atomic within this process, so
	// two first saves cannot both create a record.
	mu sync.Mutex
}

// NewWorkspace wraps a flow store.
func NewWorkspace(store ports.FlowStore) *Workspace {
	return &Workspace{store: store}
}

// Store returns the underlying flow store.
func (w *Workspace) Store() ports.FlowStore {
	return w.store
}

// Current returns the latest stored flow, or DefaultFlow wrapped in an
// unsaved record (ID 0) when the store is empty.
func (w *Workspace) Current(ctx context.Context) (*domain.StoredFlow, error) {
	sf, err := w.store.Latest(ctx)
	if errors.Is(err, domain.ErrFlowNotFound) {
		return &domain.StoredFlow{Name: domain.DefaultFlowName, FlowData: domain.DefaultFlow()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest flow: %w", err)
	}
	return sf, nil
}

// Save replaces the flow data of the latest stored flow in place, or creates
// the first record when the store is empty. The name of an existing record is
// kept unless name is non-nil.
func (w *Workspace) Save(ctx context.Context, name *string, flow domain.Flow) (*domain.StoredFlow, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	latest, err := w.store.Latest(ctx)
	switch {
	case errors.Is(err, domain.ErrFlowNotFound):
		n := ""
		if name != nil {
			n = *name
		}
		sf, err := w.store.Create(ctx, n, flow)
		if err != nil {
			return nil, fmt.Errorf("failed to create flow: %w", err)
		}
		return sf, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load latest flow: %w", err)
	}

	sf, err := w.store.Update(ctx, latest.ID, domain.FlowPatch{Name: name, FlowData: &flow})
	if err != nil {
		return nil, fmt.Errorf("failed to update flow %d: %w", latest.ID, err)
	}
	return sf, nil
}
