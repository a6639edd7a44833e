package validation

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationErrors_AddAndCount(t *testing.T) {
	verrs := NewValidationErrors()
	assert.False(t, verrs.HasErrors())
	assert.Equal(t, "validation failed", verrs.Error())

	verrs.Add("text", "too short")
	verrs.AddFieldError(NewFieldError("text", "field required", TypeMissing))
	verrs.AddFieldError(NewFieldError("number", "not an integer", TypeTypeError))

	assert.True(t, verrs.HasErrors())
	assert.Equal(t, 3, verrs.Count())
	assert.Equal(t, []string{"too short", "field required"}, verrs.Fields["text"])
	assert.Equal(t, TypeValueError, verrs.Errors[0].Type)
	assert.Equal(t, "validation failed:\n  - text: too short\n  - text: field required\n  - number: not an integer", verrs.Error())
}

func TestValidationErrors_SingleErrorMessage(t *testing.T) {
	verrs := NewValidationErrors()
	verrs.Add("title", "too long")
	assert.Equal(t, "validation failed: title: too long", verrs.Error())
}

func TestValidationErrors_IsMissingRequired(t *testing.T) {
	verrs := NewValidationErrors()
	verrs.AddFieldError(NewFieldError("number", "bad", TypeTypeError))
	assert.False(t, errors.Is(verrs, ErrMissingRequiredValue))

	verrs.AddFieldError(NewFieldError("text", "field required", TypeMissing))
	var err error = verrs
	assert.True(t, errors.Is(err, ErrMissingRequiredValue))
}

func TestValidationErrors_Merge(t *testing.T) {
	nested := NewValidationErrors()
	nested.AddFieldError(NewFieldError("text", "field required", TypeMissing))

	verrs := NewValidationErrors()
	verrs.Merge("related", nested)
	verrs.Merge("", nested)

	require.Len(t, verrs.Errors, 2)
	assert.Equal(t, "related.text", verrs.Errors[0].Field)
	assert.Equal(t, []string{"related", "text"}, verrs.Errors[0].Loc())
	assert.Equal(t, "text", verrs.Errors[1].Field)
}

func TestValidationErrors_MarshalJSON(t *testing.T) {
	verrs := NewValidationErrors()
	verrs.Add("text", "too short")

	data, err := json.Marshal(verrs)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"validation_failed","fields":{"text":["too short"]}}`, string(data))
}

func TestFieldError_Error(t *testing.T) {
	fe := NewFieldError("related.text", "field required", TypeMissing)
	assert.Equal(t, "related.text: field required", fe.Error())
	assert.Nil(t, FieldError{}.Loc())
}
