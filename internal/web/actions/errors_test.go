package actions

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/conduit-lang/autocrud/internal/orm/store"
	"github.com/conduit-lang/autocrud/internal/orm/validation"
)

func handle(h *ErrorHandlers, err error) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.Handle(w, httptest.NewRequest(http.MethodGet, "/test_model/1", nil), err)
	return w
}

func TestDefaultErrorHandlers(t *testing.T) {
	h := DefaultErrorHandlers(nil)

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", fmt.Errorf("TestModel 1: %w", store.ErrNotFound), http.StatusNotFound},
		{"invalid key", fmt.Errorf("%w: \"x\"", store.ErrInvalidKey), http.StatusBadRequest},
		{"unique", store.ErrUniqueViolation, http.StatusConflict},
		{"foreign key", store.ErrForeignKeyViolation, http.StatusConflict},
		{"not null", store.ErrNotNullViolation, http.StatusConflict},
		{"check", store.ErrCheckViolation, http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, handle(h, tt.err).Code)
		})
	}
}

func TestErrorHandlers_NotFoundBody(t *testing.T) {
	w := handle(DefaultErrorHandlers(nil), store.ErrNotFound)
	assert.JSONEq(t, `{"msg":"Instance not found","type":"not_found"}`, w.Body.String())
}

func TestErrorHandlers_Validation(t *testing.T) {
	verrs := validation.NewValidationErrors()
	verrs.AddFieldError(validation.NewFieldError("text", "field required", validation.TypeMissing))

	w := handle(NewErrorHandlers(nil), fmt.Errorf("create: %w", verrs))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"detail":[{"loc":["body","text"],"msg":"field required","type":"value_error.missing"}]}`, w.Body.String())
}

func TestErrorHandlers_Override(t *testing.T) {
	h := DefaultErrorHandlers(nil)
	h.Register(store.ErrNotFound, Status(http.StatusGone, "gone", "gone"))

	w := handle(h, store.ErrNotFound)
	assert.Equal(t, http.StatusGone, w.Code)
	assert.JSONEq(t, `{"msg":"gone","type":"gone"}`, w.Body.String())
}
