package mcp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/aretw0/botflow"
	"github.com/aretw0/botflow/internal/runtime"
	"github.com/aretw0/botflow/internal/testutils"
	mcpadapter "github.com/aretw0/botflow/pkg/adapters/mcp"
	"github.com/aretw0/botflow/pkg/adapters/memory"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/aretw0/botflow/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcClient struct {
	t      *testing.T
	server *mcpadapter.Server
	nextID int
}

func newClient(t *testing.T) *rpcClient {
	t.Helper()
	workspace := botflow.NewWorkspace(memory.NewFlowStore())
	manager := session.NewManager(memory.NewStore(), runtime.NewEngine())
	c := &rpcClient{t: t, server: mcpadapter.NewServer(workspace, manager)}

	c.call("initialize", map[string]any{
		"protocolVersion": "2024-11-05",
		"clientInfo":      map[string]any{"name": "test", "version": "0"},
		"capabilities":    map[string]any{},
	})
	return c
}

// call sends one JSON-RPC request and returns the raw result object.
func (c *rpcClient) call(method string, params any) map[string]any {
	c.t.Helper()
	c.nextID++
	msg, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      c.nextID,
		"method":  method,
		"params":  params,
	})
	require.NoError(c.t, err)

	resp := c.server.MCPServer().HandleMessage(context.Background(), msg)
	data, err := json.Marshal(resp)
	require.NoError(c.t, err)

	var envelope struct {
		Result map[string]any `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(c.t, json.Unmarshal(data, &envelope))
	require.Nil(c.t, envelope.Error, "rpc error: %s", data)
	return envelope.Result
}

// tool calls a tool and returns its text content and error flag.
func (c *rpcClient) tool(name string, args map[string]any) (string, bool) {
	c.t.Helper()
	result := c.call("tools/call", map[string]any{"name": name, "arguments": args})
	content, ok := result["content"].([]any)
	require.True(c.t, ok, "missing content: %v", result)
	require.NotEmpty(c.t, content)
	first := content[0].(map[string]any)
	isError, _ := result["isError"].(bool)
	return first["text"].(string), isError
}

func toolJSON[T any](c *rpcClient, name string, args map[string]any) T {
	c.t.Helper()
	text, isError := c.tool(name, args)
	require.False(c.t, isError, text)
	var v T
	require.NoError(c.t, json.Unmarshal([]byte(text), &v), text)
	return v
}

func flowJSON(t *testing.T, f domain.Flow) string {
	data, err := json.Marshal(f)
	require.NoError(t, err)
	return string(data)
}

func TestTools_Listed(t *testing.T) {
	c := newClient(t)
	result := c.call("tools/list", map[string]any{})

	var names []string
	for _, tool := range result["tools"].([]any) {
		names = append(names, tool.(map[string]any)["name"].(string))
	}
	assert.ElementsMatch(t, []string{
		"get_flow", "list_flows", "save_flow", "start_session", "submit_input", "get_session",
	}, names)
}

func TestGetFlow_DefaultThenSaved(t *testing.T) {
	c := newClient(t)

	sf := toolJSON[domain.StoredFlow](c, "get_flow", nil)
	assert.Zero(t, sf.ID)
	assert.Equal(t, domain.DefaultFlow(), sf.FlowData)

	saved := toolJSON[domain.StoredFlow](c, "save_flow", map[string]any{
		"flow": flowJSON(t, testutils.Greeting()),
		"name": "Greeting",
	})
	assert.Equal(t, int64(1), saved.ID)
	assert.Equal(t, "Greeting", saved.Name)

	again := toolJSON[domain.StoredFlow](c, "save_flow", map[string]any{"flow": flowJSON(t, testutils.Questions(1))})
	assert.Equal(t, int64(1), again.ID)
	assert.Equal(t, "Greeting", again.Name)

	byID := toolJSON[domain.StoredFlow](c, "get_flow", map[string]any{"id": 1})
	assert.Equal(t, testutils.Questions(1), byID.FlowData)

	flows := toolJSON[[]domain.StoredFlow](c, "list_flows", nil)
	assert.Len(t, flows, 1)

	text, isError := c.tool("get_flow", map[string]any{"id": 42})
	assert.True(t, isError)
	assert.Contains(t, text, domain.ErrFlowNotFound.Error())
}

func TestSaveFlow_Rejections(t *testing.T) {
	c := newClient(t)

	for _, raw := range []string{`{"nodes":[]}`, `not json`} {
		_, isError := c.tool("save_flow", map[string]any{"flow": raw})
		assert.True(t, isError, raw)
	}
	flows := toolJSON[[]domain.StoredFlow](c, "list_flows", nil)
	assert.Empty(t, flows)
}

func TestSessionTools_Conversation(t *testing.T) {
	c := newClient(t)
	toolJSON[domain.StoredFlow](c, "save_flow", map[string]any{"flow": flowJSON(t, testutils.Greeting())})

	started := toolJSON[domain.Session](c, "start_session", nil)
	assert.Equal(t, domain.StatusAwaitingInput, started.Status)

	_, isError := c.tool("submit_input", map[string]any{"session_id": started.ID, "text": "  "})
	assert.True(t, isError, "blank answers are rejected")

	done := toolJSON[domain.Session](c, "submit_input", map[string]any{"session_id": started.ID, "text": "Alice"})
	assert.Equal(t, domain.StatusCompleted, done.Status)
	assert.Equal(t, "Alice", done.Responses["question-node-1"])

	text, isError := c.tool("submit_input", map[string]any{"session_id": started.ID, "text": "more"})
	assert.True(t, isError)
	assert.Contains(t, text, domain.ErrNotAwaitingInput.Error())

	loaded := toolJSON[domain.Session](c, "get_session", map[string]any{"session_id": started.ID})
	assert.Equal(t, done, loaded)

	_, isError = c.tool("get_session", map[string]any{"session_id": "missing"})
	assert.True(t, isError)
}

func TestStartSession_InlineAndByID(t *testing.T) {
	c := newClient(t)

	inline := toolJSON[domain.Session](c, "start_session", map[string]any{"flow": flowJSON(t, testutils.Questions(2))})
	assert.Equal(t, "q1", inline.CurrentNodeID)

	toolJSON[domain.StoredFlow](c, "save_flow", map[string]any{"flow": flowJSON(t, testutils.Greeting())})
	byID := toolJSON[domain.Session](c, "start_session", map[string]any{"flow_id": 1})
	assert.Equal(t, "question-node-1", byID.CurrentNodeID)

	_, isError := c.tool("start_session", map[string]any{"flow_id": 5})
	assert.True(t, isError)
}

func TestLatestFlowResource(t *testing.T) {
	c := newClient(t)
	toolJSON[domain.StoredFlow](c, "save_flow", map[string]any{"flow": flowJSON(t, testutils.Greeting())})

	result := c.call("resources/read", map[string]any{"uri": mcpadapter.LatestFlowURI})
	contents := result["contents"].([]any)
	require.Len(t, contents, 1)
	entry := contents[0].(map[string]any)
	assert.Equal(t, "application/json", entry["mimeType"])

	var flow domain.Flow
	require.NoError(t, json.Unmarshal([]byte(fmt.Sprint(entry["text"])), &flow))
	assert.Equal(t, testutils.Greeting(), flow)
}
