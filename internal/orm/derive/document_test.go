package derive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentOrder(t *testing.T) {
	doc := NewDocument()
	doc.Set("zeta", 1)
	doc.Set("alpha", "a")
	doc.Set("mid", nil)
	doc.Set("zeta", 2)

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, doc.Keys())
	assert.Equal(t, 3, doc.Len())

	v, ok := doc.Get("zeta")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	data, err := doc.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":2,"alpha":"a","mid":null}`, string(data))
}

func TestDocumentNested(t *testing.T) {
	child := NewDocument()
	child.Set("id", 10)

	doc := NewDocument()
	doc.Set("id", 1)
	doc.Set("parent", child)
	doc.Set("childs", []*Document{child})

	data, err := doc.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"id":1,"parent":{"id":10},"childs":[{"id":10}]}`, string(data))

	assert.Equal(t, map[string]interface{}{
		"id":     1,
		"parent": map[string]interface{}{"id": 10},
		"childs": []interface{}{map[string]interface{}{"id": 10}},
	}, doc.Map())
}

func TestDocumentEmpty(t *testing.T) {
	data, err := NewDocument().MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}
