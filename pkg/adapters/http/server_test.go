package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/botflow"
	"github.com/aretw0/botflow/internal/metrics"
	"github.com/aretw0/botflow/internal/runtime"
	"github.com/aretw0/botflow/internal/testutils"
	httpadapter "github.com/aretw0/botflow/pkg/adapters/http"
	"github.com/aretw0/botflow/pkg/adapters/memory"
	"github.com/aretw0/botflow/pkg/domain"
	"github.com/aretw0/botflow/pkg/runner"
	"github.com/aretw0/botflow/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	handler   http.Handler
	server    *httpadapter.Server
	workspace *botflow.Workspace
	metrics   *metrics.Metrics
}

func newFixture(t *testing.T, opts ...httpadapter.Option) *fixture {
	t.Helper()
	workspace := botflow.NewWorkspace(memory.NewFlowStore())
	manager := session.NewManager(memory.NewStore(), runtime.NewEngine(runtime.WithMaxSteps(20)))
	m := metrics.New()

	srv := httpadapter.NewServer(workspace, manager, append([]httpadapter.Option{httpadapter.WithMetrics(m)}, opts...)...)
	return &fixture{handler: srv.Handler(), server: srv, workspace: workspace, metrics: m}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	return decode[map[string]string](t, rec)["message"]
}

func TestGetFlow_EmptyStoreServesDefaultDocument(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/flow", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"nodes":[{"id":"start-node-1","type":"start","position":{"x":100,"y":50},"data":{}}],"edges":[]}`,
		rec.Body.String())

	flows := decode[[]domain.StoredFlow](t, f.do(t, http.MethodGet, "/api/flows", nil))
	assert.Empty(t, flows, "reading the default must not persist it")
}

func TestSaveFlow_CreatesThenUpdatesInPlace(t *testing.T) {
	f := newFixture(t)

	first := f.do(t, http.MethodPost, "/api/flow", testutils.Greeting())
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	resp := decode[struct {
		Success bool              `json:"success"`
		Flow    domain.StoredFlow `json:"flow"`
	}](t, first)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(1), resp.Flow.ID)
	assert.Equal(t, domain.DefaultFlowName, resp.Flow.Name)

	second := f.do(t, http.MethodPost, "/api/flow", testutils.Questions(1))
	require.Equal(t, http.StatusOK, second.Code)
	resp2 := decode[struct {
		Flow domain.StoredFlow `json:"flow"`
	}](t, second)
	assert.Equal(t, int64(1), resp2.Flow.ID, "the latest flow is updated, not duplicated")

	flows := decode[[]domain.StoredFlow](t, f.do(t, http.MethodGet, "/api/flows", nil))
	require.Len(t, flows, 1)
	assert.Equal(t, testutils.Questions(1), flows[0].FlowData)

	latest := decode[domain.Flow](t, f.do(t, http.MethodGet, "/api/flow", nil))
	assert.Equal(t, testutils.Questions(1), latest)
}

func TestSaveFlow_KeepsNameUnlessGiven(t *testing.T) {
	f := newFixture(t)

	f.do(t, http.MethodPost, "/api/flow", `{"name":"Onboarding","nodes":[],"edges":[]}`)
	f.do(t, http.MethodPost, "/api/flow", `{"nodes":[],"edges":[]}`)

	flows := decode[[]domain.StoredFlow](t, f.do(t, http.MethodGet, "/api/flows", nil))
	require.Len(t, flows, 1)
	assert.Equal(t, "Onboarding", flows[0].Name)
}

func TestSaveFlow_RequiresNodesAndEdges(t *testing.T) {
	f := newFixture(t)

	for _, body := range []string{
		`{"nodes":[]}`,
		`{"edges":[]}`,
		`{}`,
		`{"nodes":null,"edges":[]}`,
		`not json`,
	} {
		rec := f.do(t, http.MethodPost, "/api/flow", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "Invalid flow data: nodes and edges required", errorMessage(t, rec), body)
	}

	rec := f.do(t, http.MethodPost, "/api/flow", `{"nodes":[],"edges":[]}`)
	assert.Equal(t, http.StatusOK, rec.Code, "empty arrays are accepted")
}

func TestGetFlowByID(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/flow", testutils.Greeting())

	rec := f.do(t, http.MethodGet, "/api/flow/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testutils.Greeting(), decode[domain.Flow](t, rec))

	for _, path := range []string{"/api/flow/2", "/api/flow/abc", "/api/flow/0", "/api/flow/-1"} {
		rec := f.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "Flow not found", errorMessage(t, rec), path)
	}
}

func TestGetFlowMermaid(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/flow", testutils.Greeting())

	rec := f.do(t, http.MethodGet, "/api/flow/1/mermaid", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "graph TD"))
	assert.Contains(t, rec.Body.String(), "What is your name?")

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/flow/9/mermaid", nil).Code)
}

func TestSessions_EndToEnd(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/flow", testutils.Greeting())

	rec := f.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	started := decode[domain.Session](t, rec)
	assert.Equal(t, domain.StatusAwaitingInput, started.Status)
	require.Len(t, started.Messages, 3)

	rec = f.do(t, http.MethodPost, "/api/sessions/"+started.ID+"/input", map[string]string{"text": "Alice"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	done := decode[domain.Session](t, rec)
	assert.Equal(t, domain.StatusCompleted, done.Status)
	assert.Equal(t, "Alice", done.Responses["question-node-1"])
	assert.Equal(t, domain.EndOfConversationText, done.Messages[len(done.Messages)-1].Text)

	rec = f.do(t, http.MethodPost, "/api/sessions/"+started.ID+"/input", map[string]string{"text": "again"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	loaded := decode[domain.Session](t, f.do(t, http.MethodGet, "/api/sessions/"+started.ID, nil))
	assert.Equal(t, done, loaded)

	ids := decode[[]string](t, f.do(t, http.MethodGet, "/api/sessions", nil))
	assert.Equal(t, []string{started.ID}, ids)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/sessions/"+started.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/sessions/"+started.ID, nil).Code)
}

func TestStartSession_FlowSelection(t *testing.T) {
	f := newFixture(t)

	// Empty store: the default document has only a start node.
	rec := f.do(t, http.MethodPost, "/api/sessions", `{}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, domain.StatusCompleted, decode[domain.Session](t, rec).Status)

	rec = f.do(t, http.MethodPost, "/api/sessions", map[string]any{"flow": testutils.Questions(2)})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "q1", decode[domain.Session](t, rec).CurrentNodeID)

	f.do(t, http.MethodPost, "/api/flow", testutils.Greeting())
	rec = f.do(t, http.MethodPost, "/api/sessions", `{"flowId":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "question-node-1", decode[domain.Session](t, rec).CurrentNodeID)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/api/sessions", `{"flowId":7}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/sessions", `{"flow":{"nodes":[]}}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/sessions", `{"flowId":0}`).Code)
}

func TestStartSession_TraversalLimitStillCreated(t *testing.T) {
	f := newFixture(t)
	loop := domain.Flow{
		Nodes: []domain.Node{testutils.Start("a"), testutils.Message("b", "again")},
		Edges: []domain.Edge{testutils.Edge("a", "b"), testutils.Edge("b", "a")},
	}

	rec := f.do(t, http.MethodPost, "/api/sessions", map[string]any{"flow": loop})
	require.Equal(t, http.StatusCreated, rec.Code)
	s := decode[domain.Session](t, rec)
	assert.Equal(t, domain.HaltTraversalLimit, s.Halt)
	assert.Equal(t, domain.StatusCompleted, s.Status)
}

func TestSubmitInput_Rejections(t *testing.T) {
	f := newFixture(t, httpadapter.WithInputPolicy(runner.InputPolicy{MaxBytes: 8}))
	started := decode[domain.Session](t, f.do(t, http.MethodPost, "/api/sessions", map[string]any{"flow": testutils.Questions(1)}))
	path := "/api/sessions/" + started.ID + "/input"

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, path, `{"text":"   "}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, path, `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, path, `{"text":"far too long for the limit"}`).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/api/sessions/nope/input", `{"text":"x"}`).Code)

	after := decode[domain.Session](t, f.do(t, http.MethodGet, "/api/sessions/"+started.ID, nil))
	assert.Equal(t, started, after, "rejected input leaves the session untouched")
}

func TestInternalErrorBody(t *testing.T) {
	store := &failingFlowStore{}
	manager := session.NewManager(memory.NewStore(), runtime.NewEngine())
	h := httpadapter.NewServer(botflow.NewWorkspace(store), manager).Handler()

	for _, path := range []string{"/api/flow", "/api/flows", "/api/flow/1"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		assert.JSONEq(t, `{"message":"Internal server error"}`, rec.Body.String(), path)
	}
}

func TestAuxiliaryRoutes(t *testing.T) {
	f := newFixture(t)

	assert.JSONEq(t, `{"status":"ok"}`, f.do(t, http.MethodGet, "/healthz", nil).Body.String())

	info := decode[map[string]string](t, f.do(t, http.MethodGet, "/info", nil))
	assert.Equal(t, "botflow", info["app"])
	assert.Equal(t, "0.1.0", info["api_version"])

	spec := f.do(t, http.MethodGet, "/openapi.yaml", nil)
	assert.Equal(t, http.StatusOK, spec.Code)
	assert.Contains(t, spec.Body.String(), "openapi: 3.0.3")

	f.do(t, http.MethodGet, "/api/flow", nil)
	body := f.do(t, http.MethodGet, "/metrics", nil).Body.String()
	assert.Contains(t, body, `botflow_http_requests_total{code="200",route="/api/flow"} 1`)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/nope", nil).Code)
}

func TestCORS(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/flow", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestConcurrentFirstSaves(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.do(t, http.MethodPost, "/api/flow", testutils.Greeting())
		}()
	}
	wg.Wait()

	flows := decode[[]domain.StoredFlow](t, f.do(t, http.MethodGet, "/api/flows", nil))
	assert.Len(t, flows, 1)
}

func TestSubscribeSession_StreamsDiffs(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	started := decode[domain.Session](t, f.do(t, http.MethodPost, "/api/sessions", map[string]any{"flow": testutils.Questions(1)}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/sessions/"+started.ID+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readData := func() domain.SessionDiff {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if payload, ok := strings.CutPrefix(line, "data: "); ok && !strings.HasPrefix(payload, "connected") {
				var diff domain.SessionDiff
				require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(payload)), &diff))
				return diff
			}
		}
	}

	initial := readData()
	assert.Equal(t, started.ID, initial.SessionID)
	require.Len(t, initial.Appended, 1)

	require.Eventually(t, func() bool { return f.server.Streams().Subscribers(started.ID) == 1 }, time.Second, 10*time.Millisecond)
	f.do(t, http.MethodPost, "/api/sessions/"+started.ID+"/input", map[string]string{"text": "yes"})

	update := readData()
	require.NotNil(t, update.Status)
	assert.Equal(t, domain.StatusCompleted, *update.Status)
	require.Len(t, update.Appended, 2)
	assert.Equal(t, "yes", update.Appended[0].Text)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/sessions/nope/events", nil).Code)
}

func TestSpecCoversEveryRoute(t *testing.T) {
	doc, err := httpadapter.Spec()
	require.NoError(t, err)

	for _, path := range []string{
		"/api/flow", "/api/flows", "/api/flow/{id}", "/api/flow/{id}/mermaid",
		"/api/sessions", "/api/sessions/{id}", "/api/sessions/{id}/input",
		"/api/sessions/{id}/events", "/healthz", "/info", "/metrics", "/openapi.yaml",
	} {
		assert.NotNil(t, doc.Paths.Value(path), path)
	}
}

type failingFlowStore struct{}

var errBroken = assert.AnError

func (failingFlowStore) Get(context.Context, int64) (*domain.StoredFlow, error) { return nil, errBroken }
func (failingFlowStore) Latest(context.Context) (*domain.StoredFlow, error)      { return nil, errBroken }
func (failingFlowStore) Create(context.Context, string, domain.Flow) (*domain.StoredFlow, error) {
	return nil, errBroken
}
func (failingFlowStore) Update(context.Context, int64, domain.FlowPatch) (*domain.StoredFlow, error) {
	return nil, errBroken
}
func (failingFlowStore) List(context.Context) ([]domain.StoredFlow, error) { return nil, errBroken }
