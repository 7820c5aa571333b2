package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s1natex/todos-api-GO/internal/config"
	"github.com/s1natex/todos-api-GO/internal/todos"
)

func testRouter(t *testing.T, store todos.Store) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return newRouter(store, logger, config.Default())
}

func TestHealthEndpoint(t *testing.T) {
	r := testRouter(t, todos.NewMemoryStore())

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	expected := `{"status":"ok"}`
	if strings.TrimSpace(w.Body.String()) != expected {
		t.Errorf("expected body %s, got %s", expected, w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := testRouter(t, todos.WithMetrics(todos.NewMemoryStore()))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/todos/zzz", nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `todos_store_operations_total{op="get_by_id",result="not_found"}`)
	assert.Contains(t, rec.Body.String(), `route="/todos/{id}"`)
}

func TestRouter_CRUDFlow(t *testing.T) {
	r := testRouter(t, todos.NewMemoryStore())

	send := func(method, path, body string) *httptest.ResponseRecorder {
		var rdr io.Reader
		if body != "" {
			rdr = bytes.NewBufferString(body)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, path, rdr))
		return rec
	}

	rec := send("POST", "/todos", `{"title":"buy milk","description":"2 litres"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = send("PUT", "/todos/"+created.ID, `{"completed":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t,
		`{"id":"`+created.ID+`","title":"buy milk","description":"2 litres","completed":true}`,
		rec.Body.String())

	rec = send("DELETE", "/todos/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Todo deleted successfully"}`, rec.Body.String())

	rec = send("GET", "/todos/"+created.ID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Todo not found with id `+created.ID+`"}`, rec.Body.String())
}

func TestRouter_CORSPreflight(t *testing.T) {
	r := testRouter(t, todos.NewMemoryStore())

	req := httptest.NewRequest("OPTIONS", "/todos", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestOpenStore_Backends(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	ctx := context.Background()
	dir := t.TempDir()

	file := filepath.Join(dir, "todos.json")
	require.NoError(t, os.WriteFile(file, []byte("[]"), 0o644))

	cases := map[string]config.StoreConfig{
		config.StoreFile:   {Backend: config.StoreFile, File: file},
		config.StoreSQLite: {Backend: config.StoreSQLite, SQLitePath: filepath.Join(dir, "db", "todos.db")},
		config.StoreMemory: {Backend: config.StoreMemory},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			store, closeFn, err := openStore(ctx, cfg, logger)
			require.NoError(t, err)
			t.Cleanup(func() { _ = closeFn() })

			require.NoError(t, store.Append(ctx, todos.Todo{ID: "a", Title: "t", Description: "d"}))
			all, err := store.ListAll(ctx)
			require.NoError(t, err)
			assert.Len(t, all, 1)
		})
	}

	_, _, err := openStore(ctx, config.StoreConfig{Backend: "redis"}, logger)
	assert.Error(t, err)
}

func TestOpenStore_MissingFileWarns(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	path := filepath.Join(t.TempDir(), "absent.json")

	_, _, err := openStore(context.Background(), config.StoreConfig{Backend: config.StoreFile, File: path}, logger)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "store_file_unavailable")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger("warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"
	cfg.Store.Backend = config.StoreMemory

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	require.NoError(t, run(ctx, cfg, &buf))
	assert.Contains(t, buf.String(), "server_shutdown")
}
