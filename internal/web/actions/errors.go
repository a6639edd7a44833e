package actions

import (
	"errors"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/conduit-lang/autocrud/internal/orm/store"
	"github.com/conduit-lang/autocrud/internal/orm/validation"
	"github.com/conduit-lang/autocrud/internal/web/request"
	"github.com/conduit-lang/autocrud/internal/web/response"
)

// Responder renders err as an HTTP response.
type Responder func(w http.ResponseWriter, r *http.Request, err error)

type errorEntry struct {
	target  error
	respond Responder
}

// ErrorHandlers translates errors raised by actions into responses. Entries
// are matched with errors.Is, most recently registered first. Validation
// errors always render as 422 and unmatched errors as 500.
type ErrorHandlers struct {
	mu      sync.RWMutex
	entries []errorEntry
	logger  *zap.Logger
}

// NewErrorHandlers returns an empty registry.
func NewErrorHandlers(logger *zap.Logger) *ErrorHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorHandlers{logger: logger}
}

// DefaultErrorHandlers registers the standard translations.
func DefaultErrorHandlers(logger *zap.Logger) *ErrorHandlers {
	h := NewErrorHandlers(logger)
	h.Register(store.ErrNotFound, Status(http.StatusNotFound, "Instance not found", "not_found"))
	h.Register(store.ErrInvalidKey, func(w http.ResponseWriter, r *http.Request, err error) {
		response.RenderError(w, http.StatusBadRequest, err.Error(), "invalid_key")
	})
	for _, target := range []error{
		store.ErrUniqueViolation,
		store.ErrForeignKeyViolation,
		store.ErrNotNullViolation,
		store.ErrCheckViolation,
	} {
		h.Register(target, func(w http.ResponseWriter, r *http.Request, err error) {
			response.RenderError(w, http.StatusConflict, err.Error(), "integrity_error")
		})
	}
	h.Register(request.ErrBodyTooLarge, Status(http.StatusRequestEntityTooLarge, "Request body too large", ""))
	h.Register(request.ErrUnsupportedMediaType, Status(http.StatusUnsupportedMediaType, "Content-Type must be application/json", ""))
	return h
}

// Status returns a responder writing a fixed message.
func Status(statusCode int, message, code string) Responder {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		response.RenderError(w, statusCode, message, code)
	}
}

// Register adds or overrides the translation for target.
func (h *ErrorHandlers) Register(target error, respond Responder) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, errorEntry{target: target, respond: respond})
}

// Handle renders err.
func (h *ErrorHandlers) Handle(w http.ResponseWriter, r *http.Request, err error) {
	var verrs *validation.ValidationErrors
	if errors.As(err, &verrs) {
		response.RenderValidationError(w, verrs)
		return
	}

	h.mu.RLock()
	for i := len(h.entries) - 1; i >= 0; i-- {
		entry := h.entries[i]
		if errors.Is(err, entry.target) {
			h.mu.RUnlock()
			entry.respond(w, r, err)
			return
		}
	}
	h.mu.RUnlock()

	h.logger.Error("unhandled action error",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	response.RenderInternalError(w)
}
