package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/voxflow/voxflow/capability"
	"github.com/voxflow/voxflow/emr"
	"github.com/voxflow/voxflow/internal/metrics"
	"github.com/voxflow/voxflow/internal/session"
	"github.com/voxflow/voxflow/orchestrator"
)

func newTestServer(t *testing.T) (*httptest.Server, *emr.Fake) {
	t.Helper()

	fake := emr.NewFake()
	reg := capability.NewRegistry(zap.NewNop())
	require.NoError(t, emr.RegisterAll(reg, fake, zap.NewNop()))

	promReg := prometheus.NewRegistry()
	collector := metrics.NewCollector("voxflow", promReg, zap.NewNop())
	engine := orchestrator.NewEngine(reg, orchestrator.DefaultConfig(), zap.NewNop(),
		orchestrator.WithMetrics(collector),
		orchestrator.WithSessionStore(session.NewMemoryStore(time.Minute)))

	handler := NewHandler(engine, reg, collector, zap.NewNop())
	srv := httptest.NewServer(NewRouter(handler, promReg))
	t.Cleanup(srv.Close)
	return srv, fake
}

func postCommand(t *testing.T, srv *httptest.Server, body string) (*http.Response, Response) {
	t.Helper()

	resp, err := http.Post(srv.URL+"/v1/command", "application/json",
		bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var envelope Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp, envelope
}

func TestHandleCommand_Success(t *testing.T) {
	t.Parallel()
	srv, fake := newTestServer(t)

	resp, envelope := postCommand(t, srv, `{"text": "order CBC for patient 123"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, envelope.Success)

	data, ok := envelope.Data.(map[string]any)
	require.True(t, ok, "data is %T", envelope.Data)
	assert.Equal(t, "succeeded", data["status"])
	assert.Contains(t, data["summary"], "Complete Blood Count")

	orders, err := fake.ListOrders(t.Context(), "123")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestHandleCommand_AmbiguousIsUnprocessable(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	resp, envelope := postCommand(t, srv, `{"text": "do the thing over there"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "CLASSIFICATION_AMBIGUOUS", string(envelope.Error.Code))
	assert.Contains(t, envelope.Error.Message, "rephrase")
}

func TestHandleCommand_InvalidBody(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed JSON", body: `{"text": `},
		{name: "unknown field", body: `{"text": "order CBC", "shout": true}`},
		{name: "empty text", body: `{"text": ""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp, envelope := postCommand(t, srv, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			require.NotNil(t, envelope.Error)
			assert.Equal(t, "INVALID_PARAMETER", string(envelope.Error.Code))
		})
	}
}

func TestHandleCommand_RequiresJSONContentType(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/v1/command", "text/plain",
		bytes.NewBufferString(`{"text": "order CBC for patient 123"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleCommand_RejectsGet(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/command")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, http.MethodPost, resp.Header.Get("Allow"))

	var envelope Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
}

func TestHandleCapabilities(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/v1/capabilities")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Success bool             `json:"success"`
		Data    []CapabilityInfo `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.True(t, envelope.Success)

	names := make([]string, 0, len(envelope.Data))
	for _, info := range envelope.Data {
		names = append(names, info.Name)
		assert.NotNil(t, info.Schema, "capability %s has no schema", info.Name)
	}
	assert.Contains(t, names, "patient.search")
	assert.Contains(t, names, "order.lab")
	assert.Len(t, names, 8)
}

func TestHandleMetricsSnapshot(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	_, envelope := postCommand(t, srv, `{"text": "order CBC for patient 123"}`)
	require.True(t, envelope.Success)

	resp, err := http.Get(srv.URL + "/v1/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snapshot struct {
		Data struct {
			Commands map[string]int64 `json:"commands"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snapshot))
	assert.Equal(t, int64(1), snapshot.Data.Commands["succeeded"])
}

func TestMetricsExposition(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	_, envelope := postCommand(t, srv, `{"text": "order CBC for patient 123"}`)
	require.True(t, envelope.Success)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "voxflow_commands_total")
	assert.Contains(t, string(body), "voxflow_capability_invocations_total")
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var status map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "healthy", status["status"])
}
