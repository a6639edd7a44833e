package actions

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/autocrud/internal/orm/schema"
	"github.com/conduit-lang/autocrud/internal/orm/schema/schematest"
	"github.com/conduit-lang/autocrud/internal/orm/store"
	"github.com/conduit-lang/autocrud/internal/web/router"
)

type testServer struct {
	t        *testing.T
	handler  http.Handler
	registry *schema.Registry
	store    *store.Memory
}

func newTestServer(t *testing.T, cfg MountConfig) *testServer {
	t.Helper()
	return newTestServerWith(t, schematest.Registry(t), cfg)
}

func newTestServerWith(t *testing.T, registry *schema.Registry, cfg MountConfig) *testServer {
	t.Helper()
	mem := store.NewMemory()
	cfg.Store = mem

	r := router.NewRouter()
	_, err := Mount(r, registry, cfg)
	require.NoError(t, err)

	return &testServer{t: t, handler: r, registry: registry, store: mem}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func (s *testServer) mustDo(method, path, body string, status int) *httptest.ResponseRecorder {
	s.t.Helper()
	w := s.do(method, path, body)
	require.Equal(s.t, status, w.Code, "%s %s: %s", method, path, w.Body.String())
	return w
}

type detail struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func decodeDetails(t *testing.T, w *httptest.ResponseRecorder) []detail {
	t.Helper()
	var body struct {
		Detail []detail `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Detail
}
