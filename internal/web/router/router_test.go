package router

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/autocrud/internal/web/middleware"
)

func okHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, body)
	}
}

func TestRouterHTTPMethods(t *testing.T) {
	tests := []struct {
		name   string
		method string
		setup  func(*Router, http.HandlerFunc) *Route
	}{
		{"GET route", http.MethodGet, func(r *Router, h http.HandlerFunc) *Route { return r.Get("/test", h) }},
		{"POST route", http.MethodPost, func(r *Router, h http.HandlerFunc) *Route { return r.Post("/test", h) }},
		{"PUT route", http.MethodPut, func(r *Router, h http.HandlerFunc) *Route { return r.Put("/test", h) }},
		{"PATCH route", http.MethodPatch, func(r *Router, h http.HandlerFunc) *Route { return r.Patch("/test", h) }},
		{"DELETE route", http.MethodDelete, func(r *Router, h http.HandlerFunc) *Route { return r.Delete("/test", h) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := NewRouter()
			route := tt.setup(router, okHandler("success"))
			assert.Equal(t, "/test", route.Pattern)
			assert.Equal(t, tt.method, route.Method)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, "/test", nil))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "success", w.Body.String())
		})
	}
}

func TestRouterNotFound(t *testing.T) {
	router := NewRouter()
	router.Get("/test", okHandler("ok"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"msg":"Not found","type":"not_found"}`, w.Body.String())
}

func TestRouterMethodNotAllowed(t *testing.T) {
	router := NewRouter()
	router.Get("/test", okHandler("ok"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/test", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), "method_not_allowed")
}

func TestRouterUse(t *testing.T) {
	router := NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Test", "applied")
			next.ServeHTTP(w, r)
		})
	}, middleware.RequestID())
	router.Get("/test", okHandler("ok"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, "applied", w.Header().Get("X-Test"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestNamedRoutes(t *testing.T) {
	router := NewRouter()
	route := router.Get("/test_model/{pk}", okHandler("ok"))
	require.NoError(t, router.Named(route, "test_model_retrieve"))

	got, err := router.GetRoute("test_model_retrieve")
	require.NoError(t, err)
	assert.Same(t, route, got)

	err = router.Named(router.Get("/other", okHandler("ok")), "test_model_retrieve")
	assert.Error(t, err)

	_, err = router.GetRoute("missing")
	assert.Error(t, err)
}

func TestURL(t *testing.T) {
	router := NewRouter()
	require.NoError(t, router.Named(router.Get("/test_model/{pk}", okHandler("ok")), "test_model_retrieve"))

	url, err := router.URL("test_model_retrieve", map[string]string{"pk": "7"})
	require.NoError(t, err)
	assert.Equal(t, "/test_model/7", url)

	_, err = router.URL("test_model_retrieve", nil)
	assert.Error(t, err)
}
