// Package schematest provides record definitions shared by tests.
package schematest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/autocrud/internal/orm/schema"
)

// Definitions declares ParentTestModel <- TestModel <- ChildTestModel.
const Definitions = `
resources:
  - name: ParentTestModel
    fields:
      - {name: id, type: int, primary: true, auto: true}
      - {name: text, type: text}
  - name: TestModel
    fields:
      - {name: id, type: int, primary: true, auto: true}
      - {name: text, type: text}
      - {name: number, type: int, nullable: true}
      - {name: is_test, type: bool, default: true}
      - {name: related, references: ParentTestModel, backref: test_models}
  - name: ChildTestModel
    fields:
      - {name: id, type: int, primary: true, auto: true}
      - {name: test, references: TestModel, backref: childs}
`

// Registry loads Definitions into a linked registry.
func Registry(t testing.TB) *schema.Registry {
	t.Helper()
	return Load(t, Definitions)
}

// Load loads arbitrary YAML definitions into a linked registry.
func Load(t testing.TB, definitions string) *schema.Registry {
	t.Helper()
	registry, err := schema.Load(strings.NewReader(definitions))
	require.NoError(t, err)
	return registry
}

// Resource returns a definition from the registry, failing the test if absent.
func Resource(t testing.TB, registry *schema.Registry, name string) *schema.ResourceSchema {
	t.Helper()
	res, ok := registry.Get(name)
	require.True(t, ok, "resource %s not registered", name)
	return res
}
