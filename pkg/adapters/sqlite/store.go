package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/botflow/pkg/domain"
)

// FlowStore implements ports.FlowStore on the flows table.
// AUTOINCREMENT keeps IDs monotonic and never reused.
type FlowStore struct {
	db *sql.DB
	// mu serialises writers; SQLite allows a single writer anyway and this
	// avoids SQLITE_BUSY on read-modify-write updates.
	mu sync.Mutex
}

// NewFlowStore wraps an opened and migrated database.
func NewFlowStore(db *sql.DB) *FlowStore {
	return &FlowStore{db: db}
}

// Close releases the underlying database.
func (s *FlowStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanFlow(row rowScanner) (*domain.StoredFlow, error) {
	var (
		sf   domain.StoredFlow
		data string
	)
	if err := row.Scan(&sf.ID, &sf.Name, &data); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &sf.FlowData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow %d: %w", sf.ID, err)
	}
	return &sf, nil
}

func queryOne(ctx context.Context, q querier, query string, args ...any) (*domain.StoredFlow, error) {
	sf, err := scanFlow(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrFlowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read flow: %w", err)
	}
	return sf, nil
}

// Get returns the flow with the given ID.
func (s *FlowStore) Get(ctx context.Context, id int64) (*domain.StoredFlow, error) {
	return queryOne(ctx, s.db, `SELECT id, name, flow_data FROM flows WHERE id = ?`, id)
}

// Latest returns the flow with the highest ID.
func (s *FlowStore) Latest(ctx context.Context) (*domain.StoredFlow, error) {
	return queryOne(ctx, s.db, `SELECT id, name, flow_data FROM flows ORDER BY id DESC LIMIT 1`)
}

// Create inserts a new flow row.
func (s *FlowStore) Create(ctx context.Context, name string, flow domain.Flow) (*domain.StoredFlow, error) {
	if name == "" {
		name = domain.DefaultFlowName
	}
	data, err := json.Marshal(flow)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal flow: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `INSERT INTO flows (name, flow_data) VALUES (?, ?)`, name, string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to insert flow: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted id: %w", err)
	}

	return &domain.StoredFlow{ID: id, Name: name, FlowData: flow.Clone()}, nil
}

// Update applies patch to an existing row inside a transaction.
func (s *FlowStore) Update(ctx context.Context, id int64, patch domain.FlowPatch) (*domain.StoredFlow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	current, err := queryOne(ctx, tx, `SELECT id, name, flow_data FROM flows WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}

	updated := patch.Apply(*current)
	data, err := json.Marshal(updated.FlowData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal flow: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE flows SET name = ?, flow_data = ? WHERE id = ?`,
		updated.Name, string(data), id); err != nil {
		return nil, fmt.Errorf("failed to update flow %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit flow %d: %w", id, err)
	}
	return &updated, nil
}

// List returns every flow, highest ID first.
func (s *FlowStore) List(ctx context.Context) ([]domain.StoredFlow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, flow_data FROM flows ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list flows: %w", err)
	}
	defer rows.Close()

	result := []domain.StoredFlow{}
	for rows.Next() {
		sf, err := scanFlow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow: %w", err)
		}
		result = append(result, *sf)
	}
	return result, rows.Err()
}
