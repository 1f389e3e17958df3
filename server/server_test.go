package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vishal2612200/websocket-relay/broadcast"
	"github.com/vishal2612200/websocket-relay/bus"
	"github.com/vishal2612200/websocket-relay/registry"
	"github.com/vishal2612200/websocket-relay/session"
)

type serverFixture struct {
	handler  http.Handler
	store    *session.MemoryStore
	registry *registry.Registry
	ready    *Readiness
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := session.NewMemoryStore(logger)
	reg := registry.New()
	broadcaster := broadcast.New(bus.New(logger), store, reg, nil, "relay:broadcast", "server-test", time.Hour, logger)
	ready := &Readiness{}

	wsStub := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}

	srv := New(8080, 15*time.Second, 15*time.Second, wsStub, store, broadcaster, ready, logger)
	return &serverFixture{
		handler:  srv.Handler(),
		store:    store,
		registry: reg,
		ready:    ready,
	}
}

func (f *serverFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz_TracksFlag(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	f.ready.Set(true)
	rec = f.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	f.ready.Set(false)
	rec = f.do(t, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "relay_")
}

func TestGetSession(t *testing.T) {
	f := newServerFixture(t)
	require.NoError(t, f.store.Put(context.Background(), "s1",
		&session.State{Count: 7, LastActivity: 1700000000.5}, time.Hour))

	rec := f.do(t, http.MethodGet, "/api/sessions/s1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(7), data["count"])
	assert.Greater(t, data["remaining_ttl"], float64(0))
}

func TestGetSession_NotFound(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodGet, "/api/sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])
}

func TestExtendSession(t *testing.T) {
	f := newServerFixture(t)
	require.NoError(t, f.store.Put(context.Background(), "s1",
		&session.State{Count: 1}, 10*time.Second))

	rec := f.do(t, http.MethodPost, "/api/sessions/s1/extend", map[string]any{"ttl": 7200})
	require.Equal(t, http.StatusOK, rec.Code)

	info, err := f.store.Info(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Greater(t, info.RemainingTTL, time.Hour)
}

func TestExtendSession_DefaultTTL(t *testing.T) {
	f := newServerFixture(t)
	require.NoError(t, f.store.Put(context.Background(), "s1",
		&session.State{Count: 1}, 10*time.Second))

	rec := f.do(t, http.MethodPost, "/api/sessions/s1/extend", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	info, err := f.store.Info(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Greater(t, info.RemainingTTL, 30*time.Minute)
}

func TestExtendSession_NotFound(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodPost, "/api/sessions/missing/extend", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteSession(t *testing.T) {
	f := newServerFixture(t)
	require.NoError(t, f.store.Put(context.Background(), "s1",
		&session.State{Count: 1}, time.Hour))

	rec := f.do(t, http.MethodDelete, "/api/sessions/s1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	state, err := f.store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, state)

	rec = f.do(t, http.MethodDelete, "/api/sessions/s1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListMessages_SortedByTimestamp(t *testing.T) {
	f := newServerFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.AppendMessage(ctx, "s1",
		session.Message{Content: "later", Timestamp: 200}, time.Hour))
	require.NoError(t, f.store.AppendMessage(ctx, "s1",
		session.Message{Content: "earlier", Timestamp: 100}, time.Hour))

	rec := f.do(t, http.MethodGet, "/api/sessions/s1/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, float64(2), body["count"])
	messages := body["messages"].([]any)
	first := messages[0].(map[string]any)
	assert.Equal(t, "earlier", first["content"])
}

func TestListMessages_EmptyIsArray(t *testing.T) {
	f := newServerFixture(t)
	rec := f.do(t, http.MethodGet, "/api/sessions/nobody/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, float64(0), body["count"])
	assert.NotNil(t, body["messages"], "empty history must be an array, not null")
}

func TestBroadcastEndpoint(t *testing.T) {
	f := newServerFixture(t)
	f.registry.Add("s1")

	rec := f.do(t, http.MethodPost, "/api/broadcast",
		map[string]any{"message": "deploy", "title": "Ops", "level": "warning"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(1), data["sessions_updated"])

	msgs, err := f.store.ListMessages(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "[Ops] deploy", msgs[0].Content)
}

func TestBroadcastEndpoint_Validation(t *testing.T) {
	f := newServerFixture(t)

	rec := f.do(t, http.MethodPost, "/api/broadcast", map[string]any{"title": "no message"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/broadcast",
		map[string]any{"message": "x", "level": "debug"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/broadcast", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
