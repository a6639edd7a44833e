package commands

import (
	"context"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaCommand_ReadTable(t *testing.T) {
	path := writeDefinitions(t)

	out, _, err := execute(context.Background(), "schema", "TestModel", "--schema", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2+2+5)
	assert.Equal(t, "TestModel", lines[0])
	assert.True(t, strings.HasPrefix(lines[4], "id "))
	assert.True(t, strings.HasPrefix(lines[8], "related "))
	assert.Contains(t, lines[6], "int?")
	assert.Contains(t, lines[7], "true")
	assert.Contains(t, lines[8], "key_only")
}

func TestSchemaCommand_WriteExcludesPrimaryKey(t *testing.T) {
	path := writeDefinitions(t)

	out, _, err := execute(context.Background(), "schema", "TestModel", "--schema", path, "--config", "write")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "TestModelWrite\n"))
	assert.NotContains(t, out, "\nid ")
}

func TestSchemaCommand_NestBackrefs(t *testing.T) {
	path := writeDefinitions(t)

	out, _, err := execute(context.Background(), "schema", "ParentTestModel", "--schema", path, "--nest-backrefs")
	require.NoError(t, err)

	assert.Contains(t, out, "test_models")
	assert.Contains(t, out, "nested_seq")
	assert.Contains(t, out, "[]TestModel")
}

func TestSchemaCommand_AllResources(t *testing.T) {
	path := writeDefinitions(t)

	out, _, err := execute(context.Background(), "schema", "--schema", path)
	require.NoError(t, err)

	for _, name := range []string{"ParentTestModel\n", "TestModel\n", "ChildTestModel\n"} {
		assert.Contains(t, out, name)
	}
}

func TestSchemaCommand_JSONSchema(t *testing.T) {
	path := writeDefinitions(t)

	out, _, err := execute(context.Background(), "schema", "TestModel", "--schema", path, "--config", "partial", "--json-schema")
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "TestModelPartialUpdate", doc["title"])
	assert.Equal(t, "object", doc["type"])

	properties, ok := doc["properties"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, properties, "text")
	assert.NotContains(t, properties, "id")
}

func TestSchemaCommand_Errors(t *testing.T) {
	path := writeDefinitions(t)

	_, stderr, err := execute(context.Background(), "schema", "TestModl", "--schema", path)
	require.Error(t, err)
	assert.Contains(t, stderr, "Did you mean: TestModel?")

	_, _, err = execute(context.Background(), "schema", "TestModel", "--schema", path, "--config", "upsert")
	assert.ErrorContains(t, err, "unknown schema config")
}
