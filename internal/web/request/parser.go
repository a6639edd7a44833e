// Package request reads JSON request bodies for the CRUD endpoints.
package request

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/conduit-lang/autocrud/internal/orm/validation"
)

var (
	// ErrBodyTooLarge is returned when the body exceeds the parser limit.
	ErrBodyTooLarge = errors.New("request body too large")

	// ErrUnsupportedMediaType is returned for non-JSON content types.
	ErrUnsupportedMediaType = errors.New("unsupported content type")
)

// DefaultMaxBodySize caps request bodies at 10MB.
const DefaultMaxBodySize int64 = 10 << 20

// Parser handles parsing of HTTP request bodies
type Parser struct {
	maxBodySize int64
}

// NewParser creates a new request parser with default settings
func NewParser() *Parser {
	return &Parser{maxBodySize: DefaultMaxBodySize}
}

// NewParserWithMaxSize creates a parser with a custom max body size
func NewParserWithMaxSize(maxBytes int64) *Parser {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodySize
	}
	return &Parser{maxBodySize: maxBytes}
}

// MaxBodySize returns the configured body limit in bytes.
func (p *Parser) MaxBodySize() int64 {
	return p.maxBodySize
}

// ParseObject reads the body as a JSON object. Numbers stay json.Number so
// integer fields keep their precision. An empty body yields an empty object;
// malformed JSON yields *validation.ValidationErrors located at "body".
func (p *Parser) ParseObject(w http.ResponseWriter, r *http.Request) (map[string]interface{}, error) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, ct)
		}
	}
	if r.Body == nil {
		return map[string]interface{}{}, nil
	}

	body := http.MaxBytesReader(w, r.Body, p.maxBodySize)
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, ErrBodyTooLarge
		}
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	return validation.DecodeObject(data)
}
