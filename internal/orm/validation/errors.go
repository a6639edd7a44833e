package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// ErrMissingRequiredValue matches any ValidationErrors that reports a
// required field without a value.
var ErrMissingRequiredValue = errors.New("missing required value")

// Error types reported per field.
const (
	TypeMissing        = "value_error.missing"
	TypeExtra          = "value_error.extra"
	TypeNoneNotAllowed = "type_error.none.not_allowed"
	TypeTypeError      = "type_error"
	TypeEnum           = "type_error.enum"
	TypeValueError     = "value_error"
)

// ValidationErrors contains every validation error for one payload or record
type ValidationErrors struct {
	Fields map[string][]string `json:"fields"`
	Errors []FieldError        `json:"-"`
}

// NewValidationErrors creates a new ValidationErrors instance
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Fields: make(map[string][]string),
	}
}

// Add adds a generic value error for a specific field
func (ve *ValidationErrors) Add(field, message string) {
	ve.AddFieldError(NewFieldError(field, message, TypeValueError))
}

// AddFieldError adds a FieldError to the validation errors
func (ve *ValidationErrors) AddFieldError(err FieldError) {
	if ve.Fields == nil {
		ve.Fields = make(map[string][]string)
	}
	ve.Fields[err.Field] = append(ve.Fields[err.Field], err.Message)
	ve.Errors = append(ve.Errors, err)
}

// Merge adds other's errors with their field paths prefixed.
func (ve *ValidationErrors) Merge(prefix string, other *ValidationErrors) {
	for _, err := range other.Errors {
		if prefix != "" {
			err.Field = prefix + "." + err.Field
		}
		ve.AddFieldError(err)
	}
}

// HasErrors returns true if there are any validation errors
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Errors) > 0
}

// Count returns the total number of validation errors across all fields
func (ve *ValidationErrors) Count() int {
	return len(ve.Errors)
}

// HasType reports whether any error has the given type.
func (ve *ValidationErrors) HasType(typ string) bool {
	for _, err := range ve.Errors {
		if err.Type == typ {
			return true
		}
	}
	return false
}

// Is lets errors.Is(err, ErrMissingRequiredValue) find missing values.
func (ve *ValidationErrors) Is(target error) bool {
	return target == ErrMissingRequiredValue && ve.HasType(TypeMissing)
}

// Error implements the error interface
func (ve *ValidationErrors) Error() string {
	if !ve.HasErrors() {
		return "validation failed"
	}

	messages := make([]string, 0, len(ve.Errors))
	for _, err := range ve.Errors {
		messages = append(messages, fmt.Sprintf("  - %s: %s", err.Field, err.Message))
	}

	if len(messages) == 1 {
		return fmt.Sprintf("validation failed: %s", strings.TrimPrefix(messages[0], "  - "))
	}

	return fmt.Sprintf("validation failed:\n%s", strings.Join(messages, "\n"))
}

// MarshalJSON implements json.Marshaler for custom JSON serialization
func (ve *ValidationErrors) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Error  string              `json:"error"`
		Fields map[string][]string `json:"fields"`
	}{
		Error:  "validation_failed",
		Fields: ve.Fields,
	})
}

// FieldError represents a validation error on a specific field. Field is a
// dotted path for nested values.
type FieldError struct {
	Field   string
	Message string
	Type    string
}

// Error implements the error interface
func (fe FieldError) Error() string {
	return fmt.Sprintf("%s: %s", fe.Field, fe.Message)
}

// Loc splits the field path into its segments.
func (fe FieldError) Loc() []string {
	if fe.Field == "" {
		return nil
	}
	return strings.Split(fe.Field, ".")
}

// NewFieldError creates a new FieldError
func NewFieldError(field, message, typ string) FieldError {
	return FieldError{
		Field:   field,
		Message: message,
		Type:    typ,
	}
}
