package schema

import (
	"fmt"
	"sync"
)

// Registry manages all record definitions of an application. Definitions are
// registered first and then linked, which resolves relation targets and
// synthesizes back-relations.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*ResourceSchema
	order   []string
	linked  bool
}

// NewRegistry creates a new schema registry
func NewRegistry() *Registry {
	return &Registry{
		schemas: make(map[string]*ResourceSchema),
		order:   make([]string, 0),
	}
}

// Register adds a schema to the registry after structural validation.
// Relation targets may be registered later; they are checked by Link.
func (r *Registry) Register(schema *ResourceSchema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[schema.Name]; exists {
		return fmt.Errorf("schema %s already registered", schema.Name)
	}

	validator := NewSchemaValidator()
	if err := validator.ValidateStructural(schema); err != nil {
		return fmt.Errorf("invalid schema %s: %w", schema.Name, err)
	}

	r.schemas[schema.Name] = schema
	r.order = append(r.order, schema.Name)
	r.linked = false

	return nil
}

// Get retrieves a schema by name
func (r *Registry) Get(name string) (*ResourceSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schema, exists := r.schemas[name]
	return schema, exists
}

// All returns all registered schemas in registration order
func (r *Registry) All() []*ResourceSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*ResourceSchema, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.schemas[name])
	}
	return result
}

// List returns the names of all registered schemas in registration order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Count returns the number of registered schemas
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.schemas)
}

// Exists checks if a schema exists in the registry
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.schemas[name]
	return exists
}

// Linked reports whether Link has run since the last registration.
func (r *Registry) Linked() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.linked
}

// Link resolves every belongs_to target and attaches the inverse has_many
// back-relation to the referenced definition. Linking is idempotent.
func (r *Registry) Link() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range r.order {
		r.schemas[name].Backrefs = r.schemas[name].Backrefs[:0]
	}

	for _, name := range r.order {
		schema := r.schemas[name]
		for _, field := range schema.Fields {
			if field.Relation == nil {
				continue
			}
			rel := field.Relation
			if rel.Type != RelationshipBelongsTo {
				return &ValidationError{
					Resource: schema.Name,
					Field:    field.Name,
					Message:  fmt.Sprintf("fields can only declare belongs_to relations, got %s", rel.Type),
				}
			}

			target, exists := r.schemas[rel.TargetResource]
			if !exists {
				return &ValidationError{
					Resource: schema.Name,
					Field:    field.Name,
					Message:  fmt.Sprintf("references undefined resource %s", rel.TargetResource),
					Hint:     "register the target resource before linking",
				}
			}
			pk, err := target.PrimaryKey()
			if err != nil {
				return &ValidationError{Resource: schema.Name, Field: field.Name, Message: err.Error()}
			}
			if field.Type == nil {
				field.Type = &TypeSpec{}
			}
			// A foreign key stores the referenced primary key.
			field.Type.BaseType = pk.Type.BaseType
			field.Type.Length = pk.Type.Length

			rel.Target = target
			rel.FieldName = field.Name
			rel.Nullable = field.Type.Nullable
			if rel.ForeignKey == "" {
				rel.ForeignKey = field.Name + "_id"
			}
			if rel.Backref == "" {
				rel.Backref = SnakeCase(schema.Name) + "_set"
			}

			if _, clash := target.Field(rel.Backref); clash {
				return &ValidationError{
					Resource: target.Name,
					Field:    rel.Backref,
					Message:  fmt.Sprintf("back-relation from %s.%s collides with a declared field", schema.Name, field.Name),
					Hint:     "set an explicit backref name",
				}
			}
			if _, clash := target.Backref(rel.Backref); clash {
				return &ValidationError{
					Resource: target.Name,
					Field:    rel.Backref,
					Message:  fmt.Sprintf("back-relation from %s.%s is declared twice", schema.Name, field.Name),
					Hint:     "set an explicit backref name",
				}
			}

			target.Backrefs = append(target.Backrefs, &Relationship{
				Type:           RelationshipHasMany,
				TargetResource: schema.Name,
				FieldName:      rel.Backref,
				ForeignKey:     rel.ForeignKey,
				Inverse:        field.Name,
				Target:         schema,
			})
		}
	}

	r.linked = true
	return nil
}

// ValidateAll links the registry and validates every schema including
// cross-resource checks.
func (r *Registry) ValidateAll() error {
	if err := r.Link(); err != nil {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	validator := NewSchemaValidator()
	for _, name := range r.order {
		if err := validator.Validate(r.schemas[name], r.schemas); err != nil {
			return fmt.Errorf("validation failed for %s: %w", name, err)
		}
	}

	return nil
}

// DependencyOrder returns resource names ordered so that every resource
// comes after the resources it references.
func (r *Registry) DependencyOrder() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	graph := NewRelationshipGraph(r.schemas, r.order)
	return graph.TopologicalSort()
}

// Graph returns the belongs_to dependency graph of the registered resources.
func (r *Registry) Graph() *RelationshipGraph {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return NewRelationshipGraph(r.schemas, append([]string(nil), r.order...))
}

// Clear removes all schemas from the registry
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.schemas = make(map[string]*ResourceSchema)
	r.order = make([]string, 0)
	r.linked = false
}
