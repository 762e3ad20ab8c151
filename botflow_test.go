package botflow_test

import (
	"context"
	"sync"
	"testing"

	"github.com/aretw0/botflow"
	"github.com/aretw0/botflow/internal/testutils"
	"github.com/aretw0/botflow/pkg/adapters/memory"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspace_CurrentOnEmptyStore(t *testing.T) {
	ws := botflow.NewWorkspace(memory.NewFlowStore())

	sf, err := ws.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), sf.ID)
	assert.Equal(t, domain.DefaultFlow(), sf.FlowData)
}

func TestWorkspace_SaveOverwritesLatest(t *testing.T) {
	ctx := context.Background()
	store := memory.NewFlowStore()
	ws := botflow.NewWorkspace(store)

	first, err := ws.Save(ctx, nil, domain.DefaultFlow())
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, domain.DefaultFlowName, first.Name)

	second, err := ws.Save(ctx, nil, testutils.Greeting())
	require.NoError(t, err)
	assert.Equal(t, int64(1), second.ID)
	assert.Equal(t, testutils.Greeting(), second.FlowData)

	flows, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, flows, 1)

	current, err := ws.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, testutils.Greeting(), current.FlowData)
}

func TestWorkspace_SaveTargetsHighestID(t *testing.T) {
	ctx := context.Background()
	store := memory.NewFlowStore()
	_, err := store.Create(ctx, "old", domain.DefaultFlow())
	require.NoError(t, err)
	_, err = store.Create(ctx, "new", domain.DefaultFlow())
	require.NoError(t, err)

	sf, err := botflow.NewWorkspace(store).Save(ctx, domain.StringPtr("renamed"), testutils.Greeting())
	require.NoError(t, err)
	assert.Equal(t, int64(2), sf.ID)
	assert.Equal(t, "renamed", sf.Name)

	old, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "old", old.Name)
	assert.Equal(t, domain.DefaultFlow(), old.FlowData)
}

func TestWorkspace_ConcurrentFirstSaves(t *testing.T) {
	ctx := context.Background()
	store := memory.NewFlowStore()
	ws := botflow.NewWorkspace(store)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ws.Save(ctx, nil, domain.DefaultFlow())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	flows, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, flows, 1)
}
