package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResource(t *testing.T, name string, fields ...*Field) *ResourceSchema {
	t.Helper()
	res := NewResourceSchema(name)
	for _, f := range fields {
		require.NoError(t, res.AddField(f))
	}
	return res
}

func intPK() *Field {
	return &Field{Name: "id", Type: &TypeSpec{BaseType: TypeInt}, Primary: true, Auto: true}
}

func belongsTo(name, target, backref string, nullable bool) *Field {
	return &Field{
		Name: name,
		Type: &TypeSpec{Nullable: nullable},
		Relation: &Relationship{
			Type:           RelationshipBelongsTo,
			TargetResource: target,
			Backref:        backref,
		},
	}
}

func TestRegistry(t *testing.T) {
	t.Run("register and get schema", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(newResource(t, "Post", intPK())))

		retrieved, exists := registry.Get("Post")
		require.True(t, exists)
		assert.Equal(t, "Post", retrieved.Name)
		assert.True(t, registry.Exists("Post"))
		assert.Equal(t, 1, registry.Count())
	})

	t.Run("duplicate registration", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(newResource(t, "Post", intPK())))
		assert.Error(t, registry.Register(newResource(t, "Post", intPK())))
	})

	t.Run("missing primary key rejected", func(t *testing.T) {
		registry := NewRegistry()
		err := registry.Register(newResource(t, "Post", &Field{Name: "title", Type: &TypeSpec{BaseType: TypeString}}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing primary key")
	})

	t.Run("list keeps registration order", func(t *testing.T) {
		registry := NewRegistry()
		for _, name := range []string{"User", "Post", "Comment"} {
			require.NoError(t, registry.Register(newResource(t, name, intPK())))
		}
		assert.Equal(t, []string{"User", "Post", "Comment"}, registry.List())

		all := registry.All()
		require.Len(t, all, 3)
		assert.Equal(t, "Comment", all[2].Name)

		registry.Clear()
		assert.Equal(t, 0, registry.Count())
	})
}

func TestRegistryLink(t *testing.T) {
	t.Run("synthesizes back-relations", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(newResource(t, "Author", intPK())))
		require.NoError(t, registry.Register(newResource(t, "Post", intPK(), belongsTo("author", "Author", "posts", false))))
		require.NoError(t, registry.Register(newResource(t, "Comment", intPK(), belongsTo("post", "Post", "", true))))

		require.NoError(t, registry.Link())
		assert.True(t, registry.Linked())

		author, _ := registry.Get("Author")
		require.Len(t, author.Backrefs, 1)
		back := author.Backrefs[0]
		assert.Equal(t, "posts", back.FieldName)
		assert.Equal(t, RelationshipHasMany, back.Type)
		assert.Equal(t, "Post", back.TargetResource)
		assert.Equal(t, "author", back.Inverse)
		assert.Equal(t, "author_id", back.ForeignKey)

		post, _ := registry.Get("Post")
		require.Len(t, post.Backrefs, 1)
		assert.Equal(t, "comment_set", post.Backrefs[0].FieldName)

		fk, _ := post.Field("author")
		assert.Same(t, author, fk.Relation.Target)
		assert.Equal(t, TypeInt, fk.Type.BaseType)
		assert.True(t, post.HasField("comment_set"))
	})

	t.Run("link is idempotent", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(newResource(t, "Author", intPK())))
		require.NoError(t, registry.Register(newResource(t, "Post", intPK(), belongsTo("author", "Author", "posts", false))))

		require.NoError(t, registry.Link())
		require.NoError(t, registry.Link())

		author, _ := registry.Get("Author")
		assert.Len(t, author.Backrefs, 1)
	})

	t.Run("undefined target", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(newResource(t, "Post", intPK(), belongsTo("author", "Author", "", false))))

		err := registry.Link()
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "author", verr.Field)
		assert.Contains(t, verr.Message, "undefined resource Author")
	})

	t.Run("backref collides with field", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(newResource(t, "Author", intPK(),
			&Field{Name: "posts", Type: &TypeSpec{BaseType: TypeInt}})))
		require.NoError(t, registry.Register(newResource(t, "Post", intPK(), belongsTo("author", "Author", "posts", false))))

		err := registry.Link()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "collides")
	})

	t.Run("self reference", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.Register(newResource(t, "Node", intPK(), belongsTo("parent", "Node", "children", true))))
		require.NoError(t, registry.Link())

		node, _ := registry.Get("Node")
		require.Len(t, node.Backrefs, 1)
		assert.Same(t, node, node.Backrefs[0].Target)
	})
}

func TestRegistryDependencyOrder(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(newResource(t, "Comment", intPK(), belongsTo("post", "Post", "", false))))
	require.NoError(t, registry.Register(newResource(t, "Post", intPK(), belongsTo("author", "Author", "", false))))
	require.NoError(t, registry.Register(newResource(t, "Author", intPK(), belongsTo("mentor", "Author", "mentees", true))))
	require.NoError(t, registry.ValidateAll())

	order, err := registry.DependencyOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"Author", "Post", "Comment"}, order)
}

func TestRelationshipGraphCycle(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(newResource(t, "A", intPK(), belongsTo("b", "B", "as", true))))
	require.NoError(t, registry.Register(newResource(t, "B", intPK(), belongsTo("a", "A", "bs", true))))
	require.NoError(t, registry.Link())

	_, err := registry.DependencyOrder()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular dependency detected")
	assert.Contains(t, err.Error(), "A -> B -> A")
}

func TestRegistryGraphDependencies(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(newResource(t, "Comment", intPK(),
		belongsTo("post", "Post", "", false), belongsTo("reply_to", "Comment", "replies", true))))
	require.NoError(t, registry.Register(newResource(t, "Post", intPK(), belongsTo("author", "Author", "", false))))
	require.NoError(t, registry.Register(newResource(t, "Author", intPK())))

	graph := registry.Graph()
	tests := []struct {
		resource string
		want     []string
	}{
		{"Comment", []string{"Post"}},
		{"Post", []string{"Author"}},
		{"Author", nil},
	}
	for _, tt := range tests {
		t.Run(tt.resource, func(t *testing.T) {
			assert.Equal(t, tt.want, graph.Dependencies(tt.resource))
		})
	}
}
