package dsl

import (
	"context"
	"testing"

	"github.com/aretw0/botflow/internal/runtime"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SimpleFlow(t *testing.T) {
	b := New()

	b.Add("start").Start().
		Then("welcome").Message("Hello, DSL!").
		Then("ask_name").Question("What is your name?").Input(domain.InputText).Required().Store().
		Then("end").Message("Goodbye!")

	flow, err := b.Build()
	require.NoError(t, err)

	require.Len(t, flow.Nodes, 4)
	ids := make([]string, len(flow.Nodes))
	for i, n := range flow.Nodes {
		ids[i] = n.ID
	}
	assert.Equal(t, []string{"start", "welcome", "ask_name", "end"}, ids, "insertion order is kept")

	ask, ok := flow.Node("ask_name")
	require.True(t, ok)
	assert.Equal(t, domain.NodeKindQuestion, ask.Type)
	assert.Equal(t, "What is your name?", ask.Text())
	assert.True(t, ask.Data.Required)
	assert.True(t, ask.Data.StoreResponse)

	start, ok := flow.Node("start")
	require.True(t, ok)
	assert.Nil(t, start.Data.Text)

	assert.Equal(t, []domain.Edge{
		{ID: "edge-start-welcome", Source: "start", Target: "welcome"},
		{ID: "edge-welcome-ask_name", Source: "welcome", Target: "ask_name"},
		{ID: "edge-ask_name-end", Source: "ask_name", Target: "end"},
	}, flow.Edges)
}

func TestBuilder_RunsOnEngine(t *testing.T) {
	b := New()
	b.Add("start").Start().
		Then("ask").Question("Name?").Store().
		Then("bye").Message("Bye!")
	flow, err := b.Build()
	require.NoError(t, err)

	engine := runtime.NewEngine()
	s, err := engine.Start(context.Background(), "s1", flow)
	require.NoError(t, err)
	require.True(t, s.Awaiting())

	s, err = engine.Submit(context.Background(), s, "Ada")
	require.NoError(t, err)
	assert.True(t, s.Done())
	assert.Equal(t, "Ada", s.Responses["ask"])
}

func TestBuilder_Layout(t *testing.T) {
	b := New()
	b.Add("a").Start()
	b.Add("b").Message("x")
	b.Add("c").Message("y").At(400, 20)

	flow, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, domain.Position{X: 100, Y: 50}, flow.Nodes[0].Position)
	assert.Equal(t, domain.Position{X: 100, Y: 200}, flow.Nodes[1].Position)
	assert.Equal(t, domain.Position{X: 400, Y: 20}, flow.Nodes[2].Position)
}

func TestBuilder_AddReturnsExisting(t *testing.T) {
	b := New()
	first := b.Add("n").Message("one")
	assert.Same(t, first, b.Add("n"))

	flow, err := b.Build()
	require.NoError(t, err)
	assert.Len(t, flow.Nodes, 1)
}

func TestBuilder_Terminal(t *testing.T) {
	b := New()
	b.Add("start").Start().Go("a").Go("b")
	b.Add("a").Message("a")
	b.Add("b").Message("b")
	b.Add("start").Terminal()

	flow, err := b.Build()
	require.NoError(t, err)
	assert.Empty(t, flow.Edges)
}

func TestBuilder_Errors(t *testing.T) {
	b := New()
	b.Add("start").Start()
	b.Add("blank")
	_, err := b.Build()
	assert.ErrorIs(t, err, ErrUntypedNode)

	b = New()
	b.Add("start").Start().Go("nowhere")
	_, err = b.Build()
	assert.ErrorIs(t, err, ErrUnknownTarget)
}
