package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/botflow/internal/logging"
	"github.com/aretw0/botflow/internal/testutils"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/aretw0/botflow/pkg/flowfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryBackends(t *testing.T) *Backends {
	t.Helper()
	b, err := OpenBackends(memoryConfig(), logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func chat(t *testing.T, b *Backends, opts ChatOptions) (string, error) {
	t.Helper()
	var out bytes.Buffer
	opts.Out = &out
	err := RunChat(context.Background(), b, NewEngine(memoryConfig(), logging.NewNop(), nil), opts, logging.NewNop())
	return out.String(), err
}

func TestRunChat_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "greeting.yaml")
	require.NoError(t, flowfile.Save(path, domain.StoredFlow{Name: "Greeting", FlowData: testutils.Greeting()}))

	b := newMemoryBackends(t)
	out, err := chat(t, b, ChatOptions{
		Source: FlowSource{Path: path},
		In:     strings.NewReader("Alice\n"),
	})
	require.NoError(t, err)

	assert.Contains(t, out, "bot> Welcome!")
	assert.Contains(t, out, "bot> What is your name?")
	assert.Contains(t, out, "bot> "+domain.EndOfConversationText)
	assert.Contains(t, out, ">>> Conversation finished.")
}

func TestRunChat_FromStoredFlow(t *testing.T) {
	b := newMemoryBackends(t)
	ctx := context.Background()
	first, err := b.Flows.Create(ctx, "One", testutils.Chain(testutils.Start("s"), testutils.Message("m", "first flow")))
	require.NoError(t, err)
	_, err = b.Flows.Create(ctx, "Two", testutils.Chain(testutils.Start("s"), testutils.Message("m", "second flow")))
	require.NoError(t, err)

	out, err := chat(t, b, ChatOptions{Source: FlowSource{ID: first.ID}, In: strings.NewReader("")})
	require.NoError(t, err)
	assert.Contains(t, out, "first flow")

	out, err = chat(t, b, ChatOptions{In: strings.NewReader("")})
	require.NoError(t, err)
	assert.Contains(t, out, "second flow", "no source means the latest flow")
}

func TestRunChat_EmptyWorkspace(t *testing.T) {
	b := newMemoryBackends(t)
	out, err := chat(t, b, ChatOptions{In: strings.NewReader("")})
	require.NoError(t, err)
	// The default document is a lone start node.
	assert.Contains(t, out, domain.EndOfConversationText)
}

func TestRunChat_PersistAndResume(t *testing.T) {
	b := newMemoryBackends(t)
	ctx := context.Background()
	_, err := b.Flows.Create(ctx, "", testutils.Questions(2))
	require.NoError(t, err)

	out, err := chat(t, b, ChatOptions{SessionID: "demo", Persist: true, In: strings.NewReader("one\n")})
	require.NoError(t, err)
	assert.Contains(t, out, ">>> Session 'demo' active.")
	assert.Contains(t, out, "Input closed while waiting at 'q2' node.")

	saved, err := b.Sessions.Load(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, "q2", saved.CurrentNodeID)

	out, err = chat(t, b, ChatOptions{SessionID: "demo", Persist: true, In: strings.NewReader("two\n")})
	require.NoError(t, err)
	assert.Contains(t, out, "Resuming session 'demo' at 'q2' node...")
	assert.Contains(t, out, "bot> Question 1?", "the transcript is replayed")
	assert.Contains(t, out, ">>> Conversation finished.")

	_, err = chat(t, b, ChatOptions{SessionID: "demo", Persist: true, In: strings.NewReader("")})
	assert.ErrorContains(t, err, "already completed")
}

func TestRunChat_JSONLines(t *testing.T) {
	b := newMemoryBackends(t)
	_, err := b.Flows.Create(context.Background(), "", testutils.Greeting())
	require.NoError(t, err)

	out, err := chat(t, b, ChatOptions{JSON: true, In: strings.NewReader(`"Alice"` + "\n")})
	require.NoError(t, err)
	assert.NotContains(t, out, ">>>")

	var texts []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var msg domain.ChatMessage
		require.NoError(t, json.Unmarshal([]byte(line), &msg), line)
		texts = append(texts, msg.Text)
	}
	assert.Equal(t, []string{"Welcome!", "Hi there", "What is your name?", "Alice", domain.EndOfConversationText}, texts)
}

func TestRunChat_TraversalLimit(t *testing.T) {
	b := newMemoryBackends(t)
	loop := testutils.Chain(testutils.Start("s"), testutils.Message("a", "again"))
	loop.Edges = append(loop.Edges, testutils.Edge("a", "a"))
	_, err := b.Flows.Create(context.Background(), "", loop)
	require.NoError(t, err)

	out, err := chat(t, b, ChatOptions{In: strings.NewReader("")})
	var limitErr *domain.TraversalLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Contains(t, out, "the flow loops without asking anything")
}

func TestRunChat_AmbiguousSource(t *testing.T) {
	b := newMemoryBackends(t)
	_, err := chat(t, b, ChatOptions{Source: FlowSource{Path: "x.json", ID: 1}, In: strings.NewReader("")})
	assert.ErrorIs(t, err, ErrAmbiguousSource)
}

func TestRunChat_UnknownID(t *testing.T) {
	b := newMemoryBackends(t)
	_, err := chat(t, b, ChatOptions{Source: FlowSource{ID: 7}, In: strings.NewReader("")})
	assert.ErrorIs(t, err, domain.ErrFlowNotFound)
}
