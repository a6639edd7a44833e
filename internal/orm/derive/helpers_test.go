package derive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/autocrud/internal/orm/schema"
	"github.com/conduit-lang/autocrud/internal/orm/schema/schematest"
)

type fixtures struct {
	parent *schema.ResourceSchema
	test   *schema.ResourceSchema
	child  *schema.ResourceSchema
}

func loadFixtures(t *testing.T) fixtures {
	t.Helper()
	registry := schematest.Registry(t)
	return fixtures{
		parent: schematest.Resource(t, registry, "ParentTestModel"),
		test:   schematest.Resource(t, registry, "TestModel"),
		child:  schematest.Resource(t, registry, "ChildTestModel"),
	}
}

func mustDerive(t *testing.T, def *schema.ResourceSchema, cfg Config) *Schema {
	t.Helper()
	s, err := Derive(def, cfg)
	require.NoError(t, err)
	return s
}

func mustField(t *testing.T, s *Schema, name string) SchemaField {
	t.Helper()
	f, ok := s.Field(name)
	require.True(t, ok, "schema %s has no field %s", s.Name(), name)
	return f
}

type mapRecord map[string]interface{}

func (r mapRecord) Value(name string) (interface{}, bool) {
	v, ok := r[name]
	return v, ok
}

type sliceRows struct {
	records []Record
	pos     int
	closed  bool
	err     error
}

func (r *sliceRows) Next() bool {
	if r.err != nil || r.pos >= len(r.records) {
		return false
	}
	r.pos++
	return true
}

func (r *sliceRows) Record() Record { return r.records[r.pos-1] }
func (r *sliceRows) Err() error     { return r.err }
func (r *sliceRows) Close() error {
	r.closed = true
	return nil
}

// countingRelations serves related records by key and counts queries.
type countingRelations struct {
	related  map[interface{}]Record
	backrefs map[string]map[interface{}][]Record

	relatedCalls int
	backrefCalls int
	lastRows     *sliceRows
	err          error
}

func (c *countingRelations) Related(_ context.Context, rel *schema.Relationship, key interface{}) (Record, error) {
	c.relatedCalls++
	if c.err != nil {
		return nil, c.err
	}
	return c.related[key], nil
}

func (c *countingRelations) Backref(_ context.Context, rel *schema.Relationship, key interface{}) (Rows, error) {
	c.backrefCalls++
	if c.err != nil {
		return nil, c.err
	}
	c.lastRows = &sliceRows{records: c.backrefs[rel.FieldName][key]}
	return c.lastRows, nil
}

func loadEnumRegistry(t *testing.T) *schema.ResourceSchema {
	t.Helper()
	registry := schematest.Load(t, `
resources:
  - name: Article
    fields:
      - {name: id, type: uuid, primary: true, auto: true}
      - {name: title, type: string, length: 20}
      - {name: status, type: enum, values: [draft, live], nullable: true}
      - {name: created_at, type: timestamp}
`)
	return schematest.Resource(t, registry, "Article")
}
