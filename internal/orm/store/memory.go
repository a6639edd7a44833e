package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/conduit-lang/autocrud/internal/orm/derive"
	"github.com/conduit-lang/autocrud/internal/orm/schema"
)

// Memory is an in-memory Store. It enforces primary key and unique
// constraints, foreign keys and on_delete actions. It is safe for concurrent
// use; reads return copies.
type Memory struct {
	mu     sync.RWMutex
	tables map[string]*table
}

type table struct {
	rows  map[interface{}]Record
	order []interface{}
	seq   int64
}

// NewMemory creates an empty store
func NewMemory() *Memory {
	return &Memory{tables: make(map[string]*table)}
}

var _ Store = (*Memory)(nil)

// table returns the table for def, creating it. Callers hold the write lock.
func (m *Memory) table(def *schema.ResourceSchema) *table {
	t, ok := m.tables[def.Name]
	if !ok {
		t = &table{rows: make(map[interface{}]Record)}
		m.tables[def.Name] = t
	}
	return t
}

// lookup returns the table for def without creating it. The returned table
// must not be modified.
func (m *Memory) lookup(def *schema.ResourceSchema) *table {
	if t, ok := m.tables[def.Name]; ok {
		return t
	}
	return &table{}
}

// Find retrieves a record by its primary key
func (m *Memory) Find(ctx context.Context, def *schema.ResourceSchema, key interface{}) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.lookup(def).rows[normalizeKey(key)]
	if !ok {
		return nil, fmt.Errorf("%s %v: %w", def.Name, key, ErrNotFound)
	}
	return rec.Clone(), nil
}

// FindAll returns a snapshot of every record in insertion order.
func (m *Memory) FindAll(ctx context.Context, def *schema.ResourceSchema) (derive.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	t := m.lookup(def)
	records := make([]Record, 0, len(t.order))
	for _, key := range t.order {
		records = append(records, t.rows[key].Clone())
	}
	return NewSliceRows(records), nil
}

// Create inserts a record. Absent fields take their declared default or
// null; auto primary keys are generated.
func (m *Memory) Create(ctx context.Context, def *schema.ResourceSchema, values map[string]interface{}) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pk, err := def.PrimaryKey()
	if err != nil {
		return nil, err
	}
	t := m.table(def)

	rec := make(Record, len(def.Fields))
	for _, field := range def.Fields {
		if v, ok := values[field.Name]; ok {
			rec[field.Name] = normalizeValue(v)
			continue
		}
		if field.Type != nil && field.Type.HasDefault {
			rec[field.Name] = field.Type.Default
			continue
		}
		rec[field.Name] = nil
	}

	if rec[pk.Name] == nil {
		if !pk.Auto {
			return nil, fmt.Errorf("%w: %s.%s", ErrNotNullViolation, def.Name, pk.Name)
		}
		if pk.Type.BaseType == schema.TypeUUID {
			rec[pk.Name] = uuid.NewString()
		} else {
			t.seq++
			rec[pk.Name] = t.seq
		}
	} else if n, ok := normalizeKey(rec[pk.Name]).(int64); ok && n > t.seq {
		t.seq = n
	}

	key := normalizeKey(rec[pk.Name])
	if _, exists := t.rows[key]; exists {
		return nil, fmt.Errorf("%w: %s.%s = %v", ErrUniqueViolation, def.Name, pk.Name, rec[pk.Name])
	}
	if err := m.checkConstraints(def, rec, key); err != nil {
		return nil, err
	}

	t.rows[key] = rec
	t.order = append(t.order, key)
	return rec.Clone(), nil
}

// Update merges values into the record with the given key. The primary key
// cannot be changed.
func (m *Memory) Update(ctx context.Context, def *schema.ResourceSchema, key interface{}, values map[string]interface{}) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pk, err := def.PrimaryKey()
	if err != nil {
		return nil, err
	}
	t := m.table(def)
	nk := normalizeKey(key)

	existing, ok := t.rows[nk]
	if !ok {
		return nil, fmt.Errorf("%s %v: %w", def.Name, key, ErrNotFound)
	}

	rec := existing.Clone()
	for _, field := range def.Fields {
		if field.Primary {
			continue
		}
		if v, ok := values[field.Name]; ok {
			rec[field.Name] = normalizeValue(v)
		}
	}
	rec[pk.Name] = existing[pk.Name]

	if err := m.checkConstraints(def, rec, nk); err != nil {
		return nil, err
	}

	t.rows[nk] = rec
	return rec.Clone(), nil
}

// Delete removes a record and applies the on_delete action of every
// back-relation pointing at it.
func (m *Memory) Delete(ctx context.Context, def *schema.ResourceSchema, key interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	nk := normalizeKey(key)
	if _, ok := m.lookup(def).rows[nk]; !ok {
		return fmt.Errorf("%s %v: %w", def.Name, key, ErrNotFound)
	}
	if err := m.checkDelete(def, nk, make(map[string]bool)); err != nil {
		return err
	}
	return m.delete(def, nk)
}

// checkDelete reports the first restrict back-relation that would block
// deleting key, following cascades. Nothing is modified.
func (m *Memory) checkDelete(def *schema.ResourceSchema, key interface{}, seen map[string]bool) error {
	id := fmt.Sprintf("%s/%v", def.Name, key)
	if seen[id] {
		return nil
	}
	seen[id] = true

	for _, rel := range def.Backrefs {
		field, ok := rel.Target.Field(rel.Inverse)
		if !ok {
			continue
		}
		referencing := m.referencing(rel, key)
		if len(referencing) == 0 {
			continue
		}

		switch field.Relation.OnDelete {
		case schema.CascadeCascade:
			pk, err := rel.Target.PrimaryKey()
			if err != nil {
				return err
			}
			for _, rec := range referencing {
				if err := m.checkDelete(rel.Target, normalizeKey(rec[pk.Name]), seen); err != nil {
					return err
				}
			}
		case schema.CascadeSetNull:
		default:
			return fmt.Errorf("%w: %s %v is referenced by %s.%s",
				ErrForeignKeyViolation, def.Name, key, rel.TargetResource, rel.Inverse)
		}
	}
	return nil
}

// delete removes key and applies cascade and set_null. checkDelete must have
// passed for key.
func (m *Memory) delete(def *schema.ResourceSchema, key interface{}) error {
	t := m.table(def)
	if _, ok := t.rows[key]; !ok {
		// already removed through another cascade path
		return nil
	}
	delete(t.rows, key)
	for i, k := range t.order {
		if k == key {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}

	for _, rel := range def.Backrefs {
		field, ok := rel.Target.Field(rel.Inverse)
		if !ok {
			continue
		}
		referencing := m.referencing(rel, key)

		switch field.Relation.OnDelete {
		case schema.CascadeCascade:
			pk, err := rel.Target.PrimaryKey()
			if err != nil {
				return err
			}
			for _, rec := range referencing {
				if err := m.delete(rel.Target, normalizeKey(rec[pk.Name])); err != nil {
					return err
				}
			}
		case schema.CascadeSetNull:
			for _, rec := range referencing {
				rec[rel.Inverse] = nil
			}
		}
	}
	return nil
}

// Related fetches the record referenced through a belongs_to relation.
func (m *Memory) Related(ctx context.Context, rel *schema.Relationship, key interface{}) (derive.Record, error) {
	if rel.Target == nil {
		return nil, fmt.Errorf("relation %s is not linked", rel.FieldName)
	}
	return m.Find(ctx, rel.Target, key)
}

// Backref returns the records of rel.Target whose foreign key equals key.
func (m *Memory) Backref(ctx context.Context, rel *schema.Relationship, key interface{}) (derive.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rel.Target == nil {
		return nil, fmt.Errorf("back-relation %s is not linked", rel.FieldName)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := m.referencing(rel, normalizeKey(key))
	records := make([]Record, len(matches))
	for i, rec := range matches {
		records[i] = rec.Clone()
	}
	return NewSliceRows(records), nil
}

// referencing returns the stored (not copied) records referencing key.
func (m *Memory) referencing(rel *schema.Relationship, key interface{}) []Record {
	t := m.lookup(rel.Target)
	var out []Record
	for _, k := range t.order {
		rec := t.rows[k]
		if v := rec[rel.Inverse]; v != nil && normalizeKey(v) == key {
			out = append(out, rec)
		}
	}
	return out
}

func (m *Memory) checkConstraints(def *schema.ResourceSchema, rec Record, key interface{}) error {
	t := m.lookup(def)

	for _, field := range def.Fields {
		value := rec[field.Name]

		if value == nil {
			if field.Type != nil && !field.Type.Nullable && !field.Primary {
				return fmt.Errorf("%w: %s.%s", ErrNotNullViolation, def.Name, field.Name)
			}
			continue
		}

		if field.Type != nil && field.Type.BaseType == schema.TypeEnum && !contains(field.Type.EnumValues, value) {
			return fmt.Errorf("%w: %s.%s = %v", ErrCheckViolation, def.Name, field.Name, value)
		}

		if field.Unique {
			for k, other := range t.rows {
				if k != key && other[field.Name] == value {
					return fmt.Errorf("%w: %s.%s = %v", ErrUniqueViolation, def.Name, field.Name, value)
				}
			}
		}

		if field.IsForeignKey() && field.Relation.Target != nil {
			target := m.lookup(field.Relation.Target)
			if _, ok := target.rows[normalizeKey(value)]; !ok {
				return fmt.Errorf("%w: %s.%s references missing %s %v",
					ErrForeignKeyViolation, def.Name, field.Name, field.Relation.TargetResource, value)
			}
		}
	}
	return nil
}

func contains(values []string, v interface{}) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	for _, candidate := range values {
		if candidate == s {
			return true
		}
	}
	return false
}

// normalizeValue stores integers as int64 so records compare and encode
// the same way regardless of the caller's integer type.
func normalizeValue(v interface{}) interface{} {
	switch x := v.(type) {
	case int, int32, uint:
		return normalizeKey(x)
	case uuid.UUID:
		return x.String()
	default:
		return v
	}
}
