package ports

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/botflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunFlowStoreContract runs a suite of tests to verify that a FlowStore
// implementation adheres to the defined interface contract.
// newStore must return an empty store on every call.
func RunFlowStoreContract(t *testing.T, newStore func(t *testing.T) FlowStore) {
	ctx := context.Background()

	greeting := domain.Flow{
		Nodes: []domain.Node{
			{ID: "start-node-1", Type: domain.NodeKindStart, Position: domain.Position{X: 100, Y: 50}},
			{ID: "message-node-1", Type: domain.NodeKindMessage, Position: domain.Position{X: 100, Y: 200},
				Data: domain.NodeData{Text: domain.StringPtr("Hello")}},
			{ID: "question-node-1", Type: domain.NodeKindQuestion,
				Data: domain.NodeData{Text: domain.StringPtr(""), InputType: domain.InputEmail, StoreResponse: true}},
		},
		Edges: []domain.Edge{
			{ID: "edge-start-node-1-message-node-1", Source: "start-node-1", Target: "message-node-1", SourceHandle: "b"},
		},
	}

	t.Run("Empty Store", func(t *testing.T) {
		store := newStore(t)

		_, err := store.Latest(ctx)
		assert.ErrorIs(t, err, domain.ErrFlowNotFound)

		_, err = store.Get(ctx, 1)
		assert.ErrorIs(t, err, domain.ErrFlowNotFound)

		_, err = store.Update(ctx, 1, domain.FlowPatch{Name: domain.StringPtr("x")})
		assert.ErrorIs(t, err, domain.ErrFlowNotFound)

		flows, err := store.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, flows)
	})

	t.Run("Create and Get", func(t *testing.T) {
		store := newStore(t)

		created, err := store.Create(ctx, "", greeting)
		require.NoError(t, err)
		assert.Equal(t, int64(1), created.ID)
		assert.Equal(t, domain.DefaultFlowName, created.Name)

		loaded, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, *created, *loaded)
		assert.Equal(t, greeting, loaded.FlowData, "flow data must survive the round trip")
		assert.Nil(t, loaded.FlowData.Nodes[0].Data.Text)
		require.NotNil(t, loaded.FlowData.Nodes[2].Data.Text)
	})

	t.Run("Sequential IDs and Latest", func(t *testing.T) {
		store := newStore(t)

		for i := int64(1); i <= 3; i++ {
			sf, err := store.Create(ctx, "flow", domain.DefaultFlow())
			require.NoError(t, err)
			assert.Equal(t, i, sf.ID)
		}

		latest, err := store.Latest(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), latest.ID)

		flows, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, flows, 3)
		assert.Equal(t, []int64{3, 2, 1}, []int64{flows[0].ID, flows[1].ID, flows[2].ID})
	})

	t.Run("Update In Place", func(t *testing.T) {
		store := newStore(t)

		created, err := store.Create(ctx, "Original", domain.DefaultFlow())
		require.NoError(t, err)

		updated, err := store.Update(ctx, created.ID, domain.FlowPatch{FlowData: &greeting})
		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "Original", updated.Name, "name is kept when the patch has none")
		assert.Equal(t, greeting, updated.FlowData)

		renamed, err := store.Update(ctx, created.ID, domain.FlowPatch{Name: domain.StringPtr("Renamed")})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", renamed.Name)
		assert.Equal(t, greeting, renamed.FlowData)

		flows, err := store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, flows, 1, "update must not create a record")

		next, err := store.Create(ctx, "", domain.DefaultFlow())
		require.NoError(t, err)
		assert.Equal(t, int64(2), next.ID)
	})

	t.Run("Returned Values Are Copies", func(t *testing.T) {
		store := newStore(t)

		created, err := store.Create(ctx, "flow", greeting)
		require.NoError(t, err)
		*created.FlowData.Nodes[1].Data.Text = "mutated"
		created.FlowData.Edges[0].Target = "elsewhere"

		loaded, err := store.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Hello", loaded.FlowData.Nodes[1].Text())
		assert.Equal(t, "message-node-1", loaded.FlowData.Edges[0].Target)
	})

	t.Run("Concurrent Creates", func(t *testing.T) {
		store := newStore(t)
		const n = 20

		var wg sync.WaitGroup
		ids := make([]int64, n)
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				sf, err := store.Create(ctx, "", domain.DefaultFlow())
				errs[i] = err
				if err == nil {
					ids[i] = sf.ID
				}
			}(i)
		}
		wg.Wait()

		for _, err := range errs {
			require.NoError(t, err)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for i, id := range ids {
			assert.Equal(t, int64(i+1), id)
		}
	})
}

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	newSession := func(id string) *domain.Session {
		s := domain.NewSession(id, domain.DefaultFlow())
		s.Status = domain.StatusAwaitingInput
		s.CurrentNodeID = "question-node-1"
		s.Messages = append(s.Messages, domain.ChatMessage{ID: "msg-1", Type: domain.RoleBot, Text: "Name?", NodeID: "question-node-1"})
		s.Responses["question-node-0"] = "Alice"
		s.Steps = 3
		return s
	}

	t.Run("Save and Load", func(t *testing.T) {
		session := newSession(sessionID)

		err := store.Save(ctx, session)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, session.ID, loaded.ID)
		assert.Equal(t, session.Status, loaded.Status)
		assert.Equal(t, session.CurrentNodeID, loaded.CurrentNodeID)
		assert.Equal(t, session.Messages, loaded.Messages)
		assert.Equal(t, session.Responses, loaded.Responses)
		assert.Equal(t, session.Steps, loaded.Steps)
		assert.Equal(t, session.Flow.Nodes, loaded.Flow.Nodes)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		session := newSession(sessionID)
		session.Status = domain.StatusCompleted
		require.NoError(t, store.Save(ctx, session))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, loaded.Status)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newSession(sessionID)))

		err := store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, newSession(id1)))
		require.NoError(t, store.Save(ctx, newSession(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
