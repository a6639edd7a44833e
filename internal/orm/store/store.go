// Package store defines how actions read and write records and provides an
// in-memory implementation. Records are keyed by field name; foreign keys
// hold the referenced primary key under the relation field's name.
package store

import (
	"context"
	"errors"

	"github.com/conduit-lang/autocrud/internal/orm/derive"
	"github.com/conduit-lang/autocrud/internal/orm/schema"
)

var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("record not found")

	// ErrInvalidKey is returned when a primary key cannot be parsed
	ErrInvalidKey = errors.New("invalid primary key")

	// ErrUniqueViolation is returned when a unique constraint is violated
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrForeignKeyViolation is returned when a foreign key constraint is violated
	ErrForeignKeyViolation = errors.New("foreign key constraint violation")

	// ErrNotNullViolation is returned when a NOT NULL constraint is violated
	ErrNotNullViolation = errors.New("not null constraint violation")

	// ErrCheckViolation is returned when a check constraint is violated
	ErrCheckViolation = errors.New("check constraint violation")
)

// IsConstraintViolation reports whether err is any constraint violation.
func IsConstraintViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation) ||
		errors.Is(err, ErrForeignKeyViolation) ||
		errors.Is(err, ErrNotNullViolation) ||
		errors.Is(err, ErrCheckViolation)
}

// Store persists records of linked definitions. It also serves relation
// lookups for record views.
type Store interface {
	derive.Relations

	Find(ctx context.Context, def *schema.ResourceSchema, key interface{}) (Record, error)
	FindAll(ctx context.Context, def *schema.ResourceSchema) (derive.Rows, error)
	Create(ctx context.Context, def *schema.ResourceSchema, values map[string]interface{}) (Record, error)
	Update(ctx context.Context, def *schema.ResourceSchema, key interface{}, values map[string]interface{}) (Record, error)
	Delete(ctx context.Context, def *schema.ResourceSchema, key interface{}) error
}

// Record is a stored record keyed by field name.
type Record map[string]interface{}

// Value implements derive.Record.
func (r Record) Value(field string) (interface{}, bool) {
	v, ok := r[field]
	return v, ok
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	cp := make(Record, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}

// SliceRows iterates over an in-memory list of records.
type SliceRows struct {
	records []Record
	pos     int
	closed  bool
}

// NewSliceRows creates rows over records.
func NewSliceRows(records []Record) *SliceRows {
	return &SliceRows{records: records}
}

// Next advances to the next record.
func (r *SliceRows) Next() bool {
	if r.closed || r.pos >= len(r.records) {
		return false
	}
	r.pos++
	return true
}

// Record returns the current record.
func (r *SliceRows) Record() derive.Record { return r.records[r.pos-1] }

// Err always returns nil.
func (r *SliceRows) Err() error { return nil }

// Close stops iteration.
func (r *SliceRows) Close() error {
	r.closed = true
	return nil
}

// Collect drains rows into records and closes them.
func Collect(rows derive.Rows) ([]Record, error) {
	defer rows.Close()

	var out []Record
	for rows.Next() {
		switch rec := rows.Record().(type) {
		case Record:
			out = append(out, rec)
		default:
			return nil, errors.New("store: unexpected record type")
		}
	}
	return out, rows.Err()
}
