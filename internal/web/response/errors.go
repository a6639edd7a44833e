package response

import (
	"net/http"
	"strings"

	"github.com/conduit-lang/autocrud/internal/orm/validation"
)

// ErrorResponse is the body of a non-validation error.
type ErrorResponse struct {
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// ValidationDetail is one entry of a validation error response.
type ValidationDetail struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationErrorResponse is the 422 body: {"detail": [...]}.
type ValidationErrorResponse struct {
	Detail []ValidationDetail `json:"detail"`
}

// NewValidationErrorResponse lists every field error of verrs. Locations
// start with "body" for request payloads.
func NewValidationErrorResponse(verrs *validation.ValidationErrors, root string) *ValidationErrorResponse {
	resp := &ValidationErrorResponse{Detail: make([]ValidationDetail, 0, len(verrs.Errors))}
	for _, fe := range verrs.Errors {
		loc := fe.Loc()
		if root != "" && (len(loc) == 0 || loc[0] != root) {
			loc = append([]string{root}, loc...)
		}
		resp.Detail = append(resp.Detail, ValidationDetail{
			Loc:  loc,
			Msg:  fe.Message,
			Type: fe.Type,
		})
	}
	return resp
}

// RenderError renders {"msg": message, "type": code}. An empty code is
// derived from the status.
func RenderError(w http.ResponseWriter, statusCode int, message, code string) {
	if code == "" {
		code = ErrorCodeFromStatus(statusCode)
	}
	_ = RenderJSON(w, statusCode, &ErrorResponse{Msg: message, Type: code})
}

// RenderValidationError renders a 422 with one detail entry per field error.
func RenderValidationError(w http.ResponseWriter, verrs *validation.ValidationErrors) {
	_ = RenderJSON(w, http.StatusUnprocessableEntity, NewValidationErrorResponse(verrs, "body"))
}

// RenderBadRequest renders a 400 Bad Request error
func RenderBadRequest(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Bad request"
	}
	RenderError(w, http.StatusBadRequest, message, "")
}

// RenderUnauthorized renders a 401 Unauthorized error
func RenderUnauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Authentication required"
	}
	w.Header().Set("WWW-Authenticate", "Bearer")
	RenderError(w, http.StatusUnauthorized, message, "")
}

// RenderNotFound renders a 404 Not Found error
func RenderNotFound(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Not found"
	}
	RenderError(w, http.StatusNotFound, message, "")
}

// RenderMethodNotAllowed renders a 405 Method Not Allowed error
func RenderMethodNotAllowed(w http.ResponseWriter, allowedMethods []string) {
	if len(allowedMethods) > 0 {
		w.Header().Set("Allow", strings.Join(allowedMethods, ", "))
	}
	RenderError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
}

// RenderConflict renders a 409 Conflict error
func RenderConflict(w http.ResponseWriter, message string) {
	RenderError(w, http.StatusConflict, message, "")
}

// RenderInternalError renders a 500 without exposing err.
func RenderInternalError(w http.ResponseWriter) {
	RenderError(w, http.StatusInternalServerError, "Internal server error", "")
}

// ErrorCodeFromStatus maps HTTP status codes to error type codes
func ErrorCodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusConflict:
		return "conflict"
	case http.StatusRequestEntityTooLarge:
		return "request_too_large"
	case http.StatusUnsupportedMediaType:
		return "unsupported_media_type"
	case http.StatusUnprocessableEntity:
		return "unprocessable_entity"
	case http.StatusInternalServerError:
		return "internal_error"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	default:
		return "error"
	}
}
