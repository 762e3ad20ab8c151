package memory

import (
	"context"
	"sync"

	"github.com/aretw0/botflow/pkg/domain"
)

// FlowStore implements ports.FlowStore in memory.
// IDs come from a counter guarded by the same mutex as the records, so
// concurrent creates never share an ID.
type FlowStore struct {
	mu     sync.RWMutex
	flows  map[int64]domain.StoredFlow
	nextID int64
}

// NewFlowStore creates an empty flow store. The first ID it assigns is 1.
func NewFlowStore() *FlowStore {
	return &FlowStore{
		flows:  make(map[int64]domain.StoredFlow),
		nextID: 1,
	}
}

// Get returns a copy of the flow with the given ID.
func (s *FlowStore) Get(ctx context.Context, id int64) (*domain.StoredFlow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sf, ok := s.flows[id]
	if !ok {
		return nil, domain.ErrFlowNotFound
	}
	out := sf.Clone()
	return &out, nil
}

// Latest returns a copy of the flow with the highest ID.
func (s *FlowStore) Latest(ctx context.Context) (*domain.StoredFlow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Records are never deleted, so the latest flow is the last ID issued.
	sf, ok := s.flows[s.nextID-1]
	if !ok {
		return nil, domain.ErrFlowNotFound
	}
	out := sf.Clone()
	return &out, nil
}

// Create stores a copy of flow under the next ID.
func (s *FlowStore) Create(ctx context.Context, name string, flow domain.Flow) (*domain.StoredFlow, error) {
	if name == "" {
		name = domain.DefaultFlowName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sf := domain.StoredFlow{ID: s.nextID, Name: name, FlowData: flow.Clone()}
	s.flows[sf.ID] = sf
	s.nextID++

	out := sf.Clone()
	return &out, nil
}

// Update merges patch into an existing flow.
func (s *FlowStore) Update(ctx context.Context, id int64, patch domain.FlowPatch) (*domain.StoredFlow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sf, ok := s.flows[id]
	if !ok {
		return nil, domain.ErrFlowNotFound
	}
	updated := patch.Apply(sf)
	s.flows[id] = updated

	out := updated.Clone()
	return &out, nil
}

// List returns copies of every flow, highest ID first.
func (s *FlowStore) List(ctx context.Context) ([]domain.StoredFlow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.StoredFlow, 0, len(s.flows))
	for id := s.nextID - 1; id >= 1; id-- {
		if sf, ok := s.flows[id]; ok {
			out = append(out, sf.Clone())
		}
	}
	return out, nil
}
