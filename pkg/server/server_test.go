package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adfharrison1/go-analytics/pkg/api"
	"github.com/adfharrison1/go-analytics/pkg/domain"
)

// blockingStore never answers FetchAll before its context is done.
type blockingStore struct {
	*api.MockStorageEngine
}

func (b blockingStore) FetchAll(ctx context.Context, collName string) ([]domain.Document, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	previous := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = previous })
	return &buf
}

func newTestServer(store api.Store, options ...Option) *Server {
	return NewServer("127.0.0.1:0", api.NewHandler(store, nil), options...)
}

func TestServer_RequestID(t *testing.T) {
	srv := newTestServer(api.NewMockStorageEngine())

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestServer_JSONErrorsForUnknownRoutes(t *testing.T) {
	srv := newTestServer(api.NewMockStorageEngine())

	tests := []struct {
		method string
		path   string
		status int
	}{
		{"GET", "/nowhere", http.StatusNotFound},
		{"DELETE", "/products/stats", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.Router().ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			require.Equal(t, tt.status, w.Code)

			var resp api.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.status, resp.Code)
		})
	}
}

func TestServer_RequestTimeout(t *testing.T) {
	srv := newTestServer(blockingStore{api.NewMockStorageEngine()}, WithRequestTimeout(20*time.Millisecond))

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/products/stats", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestServer_LogsRequests(t *testing.T) {
	logs := captureLogs(t)
	srv := newTestServer(api.NewMockStorageEngine())

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/collections/missing/find", nil))
	require.Equal(t, http.StatusNotFound, w.Code)

	var entry map[string]interface{}
	for _, line := range bytes.Split(bytes.TrimSpace(logs.Bytes()), []byte("\n")) {
		var candidate map[string]interface{}
		require.NoError(t, json.Unmarshal(line, &candidate))
		if candidate["message"] == "Request completed" {
			entry = candidate
		}
	}
	require.NotNil(t, entry, logs.String())
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/collections/missing/find", entry["path"])
	assert.Equal(t, float64(http.StatusNotFound), entry["status"])
}

func TestRecoveryMiddleware(t *testing.T) {
	captureLogs(t)
	handler := recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestStatusWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := newStatusWriter(rec)
	sw.WriteHeader(http.StatusCreated)
	sw.WriteHeader(http.StatusTeapot)
	_, err := sw.Write([]byte("ok"))
	require.NoError(t, err)
	sw.Flush()

	assert.Equal(t, http.StatusCreated, sw.status)
	assert.True(t, rec.Flushed)
}

func TestServer_ServeAndShutdown(t *testing.T) {
	captureLogs(t)
	srv := newTestServer(api.NewMockStorageEngine(), WithTimeouts(time.Second, time.Second, time.Second))

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(listener) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-done)
}
