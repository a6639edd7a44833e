package router

import (
	"net/http"

	"github.com/conduit-lang/autocrud/internal/web/response"
)

// NotFoundHandler returns a handler for 404 Not Found errors
func NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.RenderNotFound(w, "Not found")
	}
}

// MethodNotAllowedHandler returns a handler for 405 Method Not Allowed errors
func MethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.RenderMethodNotAllowed(w, nil)
	}
}
