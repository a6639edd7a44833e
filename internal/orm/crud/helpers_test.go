package crud

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/autocrud/internal/orm/codegen"
	"github.com/conduit-lang/autocrud/internal/orm/schema"
	"github.com/conduit-lang/autocrud/internal/orm/schema/schematest"
)

type fixtures struct {
	registry *schema.Registry
	parent   *schema.ResourceSchema
	test     *schema.ResourceSchema
	child    *schema.ResourceSchema
}

func loadFixtures(t *testing.T) fixtures {
	t.Helper()
	registry := schematest.Registry(t)
	return fixtures{
		registry: registry,
		parent:   schematest.Resource(t, registry, "ParentTestModel"),
		test:     schematest.Resource(t, registry, "TestModel"),
		child:    schematest.Resource(t, registry, "ChildTestModel"),
	}
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db, codegen.Postgres), mock
}
