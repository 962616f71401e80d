package graphql

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	cfg := Config{BindAddress: ":8080"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/graphql", cfg.Path)
	assert.Equal(t, 30*time.Second, cfg.Timeout)

	empty := Config{}
	assert.Error(t, empty.Validate())
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	r, _ := newTestResolver(t)
	srv, err := NewServer(Config{BindAddress: ":0"}, r,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return srv
}

func TestHandleGraphQL_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handleGraphQL(rec, httptest.NewRequest(http.MethodGet, "/graphql", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestHandleGraphQL_MalformedBody(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handleGraphQL(rec, httptest.NewRequest(http.MethodPost, "/graphql",
		strings.NewReader("{not json")))

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0].Message, "malformed request body")
}

func TestHandleGraphQL_QueryRequired(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handleGraphQL(rec, httptest.NewRequest(http.MethodPost, "/graphql",
		strings.NewReader(`{"variables":{}}`)))

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0].Message, "query is required")
}

func TestHandleGraphQL_RoundTrip(t *testing.T) {
	srv := newTestServer(t)

	body := `{"query":"mutation { createLabel(input: {fields: {name: [\"over http\"]}}) { name } }"}`
	rec := httptest.NewRecorder()
	srv.handleGraphQL(rec, httptest.NewRequest(http.MethodPost, "/graphql",
		strings.NewReader(body)))

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Errors)
	node := resp.Data["createLabel"].(map[string]any)
	assert.Equal(t, "over http", node["name"])
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCORSMiddleware(t *testing.T) {
	handler := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/graphql", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/graphql", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
