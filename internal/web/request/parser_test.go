package request

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/autocrud/internal/orm/validation"
)

func newRequest(body, contentType string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/test_model", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}

func TestParseObject(t *testing.T) {
	p := NewParser()
	w := httptest.NewRecorder()

	obj, err := p.ParseObject(w, newRequest(`{"text":"a","number":12345678901234}`, "application/json"))
	require.NoError(t, err)
	assert.Equal(t, "a", obj["text"])
	assert.Equal(t, json.Number("12345678901234"), obj["number"])
}

func TestParseObject_EmptyBody(t *testing.T) {
	p := NewParser()
	obj, err := p.ParseObject(httptest.NewRecorder(), newRequest("", ""))
	require.NoError(t, err)
	assert.Empty(t, obj)
}

func TestParseObject_ContentTypeWithCharset(t *testing.T) {
	p := NewParser()
	_, err := p.ParseObject(httptest.NewRecorder(), newRequest(`{}`, "application/json; charset=utf-8"))
	assert.NoError(t, err)
}

func TestParseObject_UnsupportedMediaType(t *testing.T) {
	p := NewParser()
	_, err := p.ParseObject(httptest.NewRecorder(), newRequest(`a=b`, "application/x-www-form-urlencoded"))
	assert.ErrorIs(t, err, ErrUnsupportedMediaType)
}

func TestParseObject_Malformed(t *testing.T) {
	p := NewParser()
	_, err := p.ParseObject(httptest.NewRecorder(), newRequest(`{"text":`, "application/json"))
	require.Error(t, err)

	var verrs *validation.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "body", verrs.Errors[0].Field)
}

func TestParseObject_NotAnObject(t *testing.T) {
	p := NewParser()
	_, err := p.ParseObject(httptest.NewRecorder(), newRequest(`[1,2]`, "application/json"))
	var verrs *validation.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestParseObject_TooLarge(t *testing.T) {
	p := NewParserWithMaxSize(16)
	_, err := p.ParseObject(httptest.NewRecorder(), newRequest(`{"text":"`+strings.Repeat("x", 64)+`"}`, "application/json"))
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestNewParserWithMaxSize_NonPositive(t *testing.T) {
	assert.Equal(t, DefaultMaxBodySize, NewParserWithMaxSize(0).MaxBodySize())
	assert.Equal(t, int64(64), NewParserWithMaxSize(64).MaxBodySize())
}
