package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/autocrud/internal/orm/derive"
	"github.com/conduit-lang/autocrud/internal/orm/schema"
	"github.com/conduit-lang/autocrud/internal/orm/schema/schematest"
)

func testModel(t *testing.T) *schema.ResourceSchema {
	t.Helper()
	return schematest.Resource(t, schematest.Registry(t), "TestModel")
}

func articleModel(t *testing.T) *schema.ResourceSchema {
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

func mustDerive(t *testing.T, def *schema.ResourceSchema, cfg derive.Config) *derive.Schema {
	t.Helper()
	s, err := derive.Derive(def, cfg)
	require.NoError(t, err)
	return s
}

func requireValidationErrors(t *testing.T, err error) *ValidationErrors {
	t.Helper()
	require.Error(t, err)
	verrs, ok := err.(*ValidationErrors)
	require.True(t, ok, "expected *ValidationErrors, got %T", err)
	return verrs
}

func errorTypes(verrs *ValidationErrors) map[string]string {
	types := make(map[string]string, len(verrs.Errors))
	for _, fe := range verrs.Errors {
		types[fe.Field] = fe.Type
	}
	return types
}

type mapRecord map[string]interface{}

func (r mapRecord) Value(name string) (interface{}, bool) {
	v, ok := r[name]
	return v, ok
}

type listRows struct {
	records []derive.Record
	pos     int
	closed  bool
}

func (r *listRows) Next() bool {
	if r.pos >= len(r.records) {
		return false
	}
	r.pos++
	return true
}

func (r *listRows) Record() derive.Record { return r.records[r.pos-1] }
func (r *listRows) Err() error            { return nil }
func (r *listRows) Close() error {
	r.closed = true
	return nil
}

type fakeRelations struct {
	related  map[interface{}]derive.Record
	backrefs map[interface{}][]derive.Record
	rows     []*listRows
}

func (f *fakeRelations) Related(_ context.Context, _ *schema.Relationship, key interface{}) (derive.Record, error) {
	return f.related[key], nil
}

func (f *fakeRelations) Backref(_ context.Context, _ *schema.Relationship, key interface{}) (derive.Rows, error) {
	rows := &listRows{records: f.backrefs[key]}
	f.rows = append(f.rows, rows)
	return rows, nil
}
