package derive

import (
	"context"
	"errors"
	"fmt"

	"github.com/conduit-lang/autocrud/internal/orm/schema"
)

// ErrNoRelations is returned when a nested field is read from a view that
// was built without a Relations source.
var ErrNoRelations = errors.New("no relation source for nested field")

// ErrRelatedNotFound is returned when a relation source finds no record for
// a non-null foreign key.
var ErrRelatedNotFound = errors.New("related record not found")

// Record is a stored (or not yet stored) record. Value reports false when
// the record holds no value for the field, which is different from a null.
type Record interface {
	Value(field string) (interface{}, bool)
}

// Rows is a single-pass cursor over records.
type Rows interface {
	Next() bool
	Record() Record
	Err() error
	Close() error
}

// Relations loads the other side of a relation. Implementations own
// timeouts, retries and cancellation through ctx.
type Relations interface {
	// Related fetches the record referenced by key through a belongs_to rel.
	Related(ctx context.Context, rel *schema.Relationship, key interface{}) (Record, error)
	// Backref queries the records whose foreign key named by the has_many
	// rel equals key.
	Backref(ctx context.Context, rel *schema.Relationship, key interface{}) (Rows, error)
}

// RecordView is a read-only, lazy name to value mapping of a record
// restricted to a schema.
type RecordView struct {
	record    Record
	schema    *Schema
	relations Relations
}

// View wraps rec. Nothing is loaded until a nested field is read.
func View(rec Record, s *Schema, relations Relations) *RecordView {
	return &RecordView{record: rec, schema: s, relations: relations}
}

// Schema returns the schema the view is restricted to.
func (v *RecordView) Schema() *Schema { return v.schema }

// Record returns the wrapped record.
func (v *RecordView) Record() Record { return v.record }

// Names returns the readable field names in schema order.
func (v *RecordView) Names() []string { return v.schema.Names() }

// Get reads one field. ok is false when the name is not in the schema or the
// record holds no value for it.
//
// Scalar and key-only fields are returned as stored. A nested outgoing
// relation is returned as a *RecordView (nil for a null key). A nested
// back-relation is returned as a *Sequence backed by a query executed by
// this call.
func (v *RecordView) Get(ctx context.Context, name string) (value interface{}, ok bool, err error) {
	field, ok := v.schema.Field(name)
	if !ok {
		return nil, false, nil
	}

	switch field.Shape {
	case ShapeNested:
		return v.getRelated(ctx, field)
	case ShapeNestedSeq:
		return v.getBackref(ctx, field)
	default:
		value, ok := v.record.Value(name)
		return value, ok, nil
	}
}

func (v *RecordView) getRelated(ctx context.Context, field SchemaField) (interface{}, bool, error) {
	key, ok := v.record.Value(field.Name)
	if !ok {
		return nil, false, nil
	}
	if key == nil {
		return nil, true, nil
	}
	if loaded, isRecord := key.(Record); isRecord {
		return View(loaded, field.Nested, v.relations), true, nil
	}
	if v.relations == nil {
		return nil, false, fmt.Errorf("%s.%s: %w", v.schema.Name(), field.Name, ErrNoRelations)
	}

	related, err := v.relations.Related(ctx, field.Relation, key)
	if err != nil {
		return nil, false, fmt.Errorf("%s.%s: %w", v.schema.Name(), field.Name, err)
	}
	if related == nil {
		return nil, false, fmt.Errorf("%s.%s = %v: %w", v.schema.Name(), field.Name, key, ErrRelatedNotFound)
	}
	return View(related, field.Nested, v.relations), true, nil
}

func (v *RecordView) getBackref(ctx context.Context, field SchemaField) (interface{}, bool, error) {
	pk, err := v.schema.Resource().PrimaryKey()
	if err != nil {
		return nil, false, err
	}
	key, ok := v.record.Value(pk.Name)
	if !ok || key == nil {
		// Nothing can reference a record without a key yet.
		return &Sequence{schema: field.Nested, relations: v.relations}, true, nil
	}
	if v.relations == nil {
		return nil, false, fmt.Errorf("%s.%s: %w", v.schema.Name(), field.Name, ErrNoRelations)
	}

	rows, err := v.relations.Backref(ctx, field.Relation, key)
	if err != nil {
		return nil, false, fmt.Errorf("%s.%s: %w", v.schema.Name(), field.Name, err)
	}
	return &Sequence{rows: rows, schema: field.Nested, relations: v.relations}, true, nil
}

// Sequence yields the views of a back-relation. It is single-pass and must
// be closed.
type Sequence struct {
	rows      Rows
	schema    *Schema
	relations Relations
	current   *RecordView
}

// Next advances to the next record.
func (s *Sequence) Next() bool {
	if s.rows == nil || !s.rows.Next() {
		s.current = nil
		return false
	}
	s.current = View(s.rows.Record(), s.schema, s.relations)
	return true
}

// View returns the current record's view.
func (s *Sequence) View() *RecordView { return s.current }

// Schema returns the schema applied to every element.
func (s *Sequence) Schema() *Schema { return s.schema }

// Err returns the error that stopped iteration, if any.
func (s *Sequence) Err() error {
	if s.rows == nil {
		return nil
	}
	return s.rows.Err()
}

// Close releases the underlying cursor.
func (s *Sequence) Close() error {
	if s.rows == nil {
		return nil
	}
	return s.rows.Close()
}
