// Package response writes JSON response bodies and the error envelopes
// returned by the CRUD endpoints.
package response

import (
	"net/http"

	"github.com/goccy/go-json"
)

const contentTypeJSON = "application/json; charset=utf-8"

// RenderJSON writes v as a JSON body with the given status code.
func RenderJSON(w http.ResponseWriter, statusCode int, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Internal Server Error"))
		return err
	}

	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_, err = w.Write(data)
	return err
}

// RenderNoContent writes an empty 204 response.
func RenderNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
