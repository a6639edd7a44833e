package derive

import (
	"errors"
	"fmt"

	"github.com/conduit-lang/autocrud/internal/orm/schema"
)

// ErrUnknownFieldReference is returned when a Config includes or excludes
// a field the definition does not have.
var ErrUnknownFieldReference = errors.New("unknown field reference")

// SchemaField is one entry of a derived schema.
type SchemaField struct {
	Name    string
	Kind    FieldKind
	Shape   Shape
	Primary bool

	// Type is nil for nested shapes.
	Type     *schema.TypeSpec
	Nullable bool

	Required   bool
	Default    interface{}
	HasDefault bool

	Nested   *Schema
	Relation *schema.Relationship
}

// Schema is a derived validation schema. It is immutable and safe for
// concurrent use.
type Schema struct {
	name     string
	resource *schema.ResourceSchema
	fields   []SchemaField
	index    map[string]int
	options  ValidatorOptions
}

// Name returns the resource name followed by the config name.
func (s *Schema) Name() string { return s.name }

// Resource returns the definition the schema was derived from.
func (s *Schema) Resource() *schema.ResourceSchema { return s.resource }

// Options returns the validator pass-through options.
func (s *Schema) Options() ValidatorOptions { return s.options }

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.fields) }

// Fields returns a copy of the fields in order.
func (s *Schema) Fields() []SchemaField {
	out := make([]SchemaField, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field returns the named field.
func (s *Schema) Field(name string) (SchemaField, bool) {
	i, ok := s.index[name]
	if !ok {
		return SchemaField{}, false
	}
	return s.fields[i], true
}

// Has reports whether the schema contains the named field.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Names returns field names in order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Derive produces the schema of def under cfg. It performs no I/O and
// depends on nothing but its arguments.
func Derive(def *schema.ResourceSchema, cfg Config) (*Schema, error) {
	descriptors, err := Classify(def)
	if err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(descriptors))
	for _, fd := range descriptors {
		known[fd.Name] = true
	}
	included, err := nameSet(def.Name, "include", cfg.Include, known)
	if err != nil {
		return nil, err
	}
	excluded, err := nameSet(def.Name, "exclude", cfg.Exclude, known)
	if err != nil {
		return nil, err
	}

	s := &Schema{
		name:     def.Name + cfg.Name,
		resource: def,
		fields:   make([]SchemaField, 0, len(descriptors)),
		index:    make(map[string]int, len(descriptors)),
		options:  cfg.Options,
	}

	for _, fd := range descriptors {
		if len(included) > 0 && !included[fd.Name] {
			continue
		}
		if excluded[fd.Name] {
			continue
		}
		if cfg.ExcludePrimaryKey && fd.Primary {
			continue
		}

		shape, omit, err := ResolveShape(fd, cfg)
		if err != nil {
			return nil, err
		}
		if omit {
			continue
		}

		field := SchemaField{
			Name:     fd.Name,
			Kind:     fd.Kind,
			Shape:    shape.Shape,
			Primary:  fd.Primary,
			Type:     shape.Type,
			Nullable: fd.Nullable(),
			Nested:   shape.Nested,
			Relation: fd.Relation,
		}
		field.Required, field.Default, field.HasDefault = optionality(fd, cfg)

		s.index[field.Name] = len(s.fields)
		s.fields = append(s.fields, field)
	}

	return s, nil
}

// optionality applies, first match wins: forced optional, declared default,
// required unless nullable.
func optionality(fd FieldDescriptor, cfg Config) (required bool, def interface{}, hasDefault bool) {
	def, hasDefault = fd.Default()
	switch {
	case cfg.AllOptional:
		return false, def, hasDefault
	case hasDefault:
		return false, def, true
	default:
		return !fd.Nullable(), nil, false
	}
}

func nameSet(resource, option string, names []string, known map[string]bool) (map[string]bool, error) {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		if !known[name] {
			return nil, fmt.Errorf("%w: %s has no field %q (%s)", ErrUnknownFieldReference, resource, name, option)
		}
		set[name] = true
	}
	return set, nil
}
