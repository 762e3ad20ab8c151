package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/aretw0/botflow/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultFlowPrefix namespaces flow keys.
const DefaultFlowPrefix = "botflow:"

// maxUpdateRetries bounds optimistic retries when a WATCHed flow changes under us.
const maxUpdateRetries = 10

// ErrUpdateConflict is returned when an update keeps losing the optimistic race.
var ErrUpdateConflict = errors.New("flow update conflict")

// FlowStore implements ports.FlowStore using Redis.
//
// Layout: INCR <prefix>flow:seq issues IDs, <prefix>flow:<id> holds the JSON
// record and the ZSET <prefix>flows indexes IDs by their own value.
type FlowStore struct {
	client *backend.Client
	prefix string
}

type FlowOption func(*FlowStore)

// WithFlowPrefix sets the key prefix for flows.
func WithFlowPrefix(prefix string) FlowOption {
	return func(s *FlowStore) {
		s.prefix = prefix
	}
}

// NewFlowStore creates a Redis flow store from an existing client.
func NewFlowStore(client *backend.Client, opts ...FlowOption) *FlowStore {
	s := &FlowStore{client: client, prefix: DefaultFlowPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FlowStore) seqKey() string   { return s.prefix + "flow:seq" }
func (s *FlowStore) indexKey() string { return s.prefix + "flows" }
func (s *FlowStore) key(id int64) string {
	return s.prefix + "flow:" + strconv.FormatInt(id, 10)
}

func decodeFlow(raw []byte) (*domain.StoredFlow, error) {
	var sf domain.StoredFlow
	if err := json.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow: %w", err)
	}
	return &sf, nil
}

// Get returns the flow with the given ID.
func (s *FlowStore) Get(ctx context.Context, id int64) (*domain.StoredFlow, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrFlowNotFound
		}
		return nil, fmt.Errorf("failed to get flow %d: %w", id, err)
	}
	return decodeFlow(raw)
}

// Latest returns the flow with the highest ID.
func (s *FlowStore) Latest(ctx context.Context) (*domain.StoredFlow, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read flow index: %w", err)
	}
	if len(ids) == 0 {
		return nil, domain.ErrFlowNotFound
	}
	id, err := strconv.ParseInt(ids[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt flow index entry %q: %w", ids[0], err)
	}
	return s.Get(ctx, id)
}

// Create issues the next ID with INCR and writes the record and index entry
// in one MULTI/EXEC.
func (s *FlowStore) Create(ctx context.Context, name string, flow domain.Flow) (*domain.StoredFlow, error) {
	if name == "" {
		name = domain.DefaultFlowName
	}

	id, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate flow id: %w", err)
	}

	sf := domain.StoredFlow{ID: id, Name: name, FlowData: flow.Clone()}
	data, err := json.Marshal(sf)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal flow: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Set(ctx, s.key(id), data, 0)
		pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: float64(id), Member: strconv.FormatInt(id, 10)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save flow %d: %w", id, err)
	}
	return &sf, nil
}

// Update applies patch under WATCH so concurrent writers never lose updates.
func (s *FlowStore) Update(ctx context.Context, id int64, patch domain.FlowPatch) (*domain.StoredFlow, error) {
	key := s.key(id)
	var updated domain.StoredFlow

	txf := func(tx *backend.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, backend.Nil) {
				return domain.ErrFlowNotFound
			}
			return fmt.Errorf("failed to get flow %d: %w", id, err)
		}
		current, err := decodeFlow(raw)
		if err != nil {
			return err
		}

		updated = patch.Apply(*current)
		data, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("failed to marshal flow: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return &updated, nil
		}
		if errors.Is(err, backend.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("failed to update flow %d: %w", id, ErrUpdateConflict)
}

// List returns every flow, highest ID first.
func (s *FlowStore) List(ctx context.Context) ([]domain.StoredFlow, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read flow index: %w", err)
	}
	if len(ids) == 0 {
		return []domain.StoredFlow{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.prefix + "flow:" + id
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load flows: %w", err)
	}

	out := make([]domain.StoredFlow, 0, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// Indexed but the record is gone.
			continue
		}
		sf, err := decodeFlow([]byte(str))
		if err != nil {
			return nil, fmt.Errorf("flow %s: %w", ids[i], err)
		}
		out = append(out, *sf)
	}
	return out, nil
}

// Close closes the redis client.
func (s *FlowStore) Close() error {
	return s.client.Close()
}
