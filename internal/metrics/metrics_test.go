package metrics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/botflow/internal/metrics"
	"github.com/aretw0/botflow/internal/runtime"
	"github.com/aretw0/botflow/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestHooksCountEngineActivity(t *testing.T) {
	m := metrics.New()
	engine := runtime.NewEngine(runtime.WithLifecycleHooks(m.Hooks()))
	ctx := context.Background()

	s, err := engine.Start(ctx, "s1", testutils.Greeting())
	require.NoError(t, err)
	_, err = engine.Submit(ctx, s, "Alice")
	require.NoError(t, err)

	body := scrape(t, m)
	assert.Contains(t, body, "botflow_sessions_started_total 1")
	assert.Contains(t, body, `botflow_sessions_completed_total{halt="none"} 1`)
	assert.Contains(t, body, `botflow_node_visits_total{type="start"} 1`)
	assert.Contains(t, body, `botflow_node_visits_total{type="message"} 2`)
	assert.Contains(t, body, `botflow_node_visits_total{type="question"} 1`)
	assert.Contains(t, body, `botflow_messages_total{type="bot"} 4`)
	assert.Contains(t, body, `botflow_messages_total{type="user"} 1`)
}

func TestHooksLabelHaltReason(t *testing.T) {
	m := metrics.New()
	engine := runtime.NewEngine(runtime.WithLifecycleHooks(m.Hooks()))

	flow := testutils.Greeting()
	flow.Edges[0].Target = "missing"
	_, err := engine.Start(context.Background(), "s1", flow)
	require.NoError(t, err)

	assert.Contains(t, scrape(t, m), `botflow_sessions_completed_total{halt="dangling_edge"} 1`)
}

func TestHandlerExposesRequestCounter(t *testing.T) {
	m := metrics.New()
	m.ObserveRequest("/api/flow", http.StatusOK)
	m.ObserveRequest("", http.StatusNotFound)

	body := scrape(t, m)
	assert.Contains(t, body, `botflow_http_requests_total{code="200",route="/api/flow"} 1`)
	assert.Contains(t, body, `botflow_http_requests_total{code="404",route="unmatched"} 1`)
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := metrics.New(), metrics.New()
	a.SessionsStarted.Inc()
	assert.Contains(t, scrape(t, b), "botflow_sessions_started_total 0")
}
