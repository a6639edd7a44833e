package schema

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is the YAML layout of a definitions file:
//
//	resources:
//	  - name: TestModel
//	    fields:
//	      - {name: id, type: int, primary: true, auto: true}
//	      - {name: number, type: int, nullable: true}
//	      - {name: is_test, type: bool, default: true}
//	      - {name: related, references: ParentTestModel, backref: test_models}
type Document struct {
	Resources []ResourceDoc `yaml:"resources"`
}

// ResourceDoc declares one record definition.
type ResourceDoc struct {
	Name    string     `yaml:"name"`
	Table   string     `yaml:"table"`
	Actions []string   `yaml:"actions"`
	Fields  []FieldDoc `yaml:"fields"`
}

// FieldDoc declares one field. A field with References is a foreign key.
type FieldDoc struct {
	Name       string    `yaml:"name"`
	Type       string    `yaml:"type"`
	Primary    bool      `yaml:"primary"`
	Auto       bool      `yaml:"auto"`
	Unique     bool      `yaml:"unique"`
	Nullable   bool      `yaml:"nullable"`
	Default    yaml.Node `yaml:"default"`
	Values     []string  `yaml:"values"`
	Length     *int      `yaml:"length"`
	Precision  *int      `yaml:"precision"`
	Scale      *int      `yaml:"scale"`
	References string    `yaml:"references"`
	Relation   string    `yaml:"relation"`
	Column     string    `yaml:"column"`
	Backref    string    `yaml:"backref"`
	OnDelete   string    `yaml:"on_delete"`
}

// LoadFile reads a definitions file and returns a linked, validated registry.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definitions: %w", err)
	}
	return Load(bytes.NewReader(data))
}

// Load decodes definitions from r and returns a linked, validated registry.
func Load(r io.Reader) (*Registry, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse definitions: %w", err)
	}

	registry := NewRegistry()
	for _, res := range doc.Resources {
		schema, err := res.Build()
		if err != nil {
			return nil, err
		}
		if err := registry.Register(schema); err != nil {
			return nil, err
		}
	}

	if err := registry.ValidateAll(); err != nil {
		return nil, err
	}
	return registry, nil
}

// Build converts the declaration into an unlinked ResourceSchema.
func (d ResourceDoc) Build() (*ResourceSchema, error) {
	if d.Name == "" {
		return nil, &ValidationError{Message: "resource without a name"}
	}

	schema := NewResourceSchema(d.Name)
	if d.Table != "" {
		schema.TableName = d.Table
	}
	schema.Actions = d.Actions

	for _, fd := range d.Fields {
		field, err := fd.build(d.Name)
		if err != nil {
			return nil, err
		}
		if err := schema.AddField(field); err != nil {
			return nil, err
		}
	}
	return schema, nil
}

func (fd FieldDoc) build(resource string) (*Field, error) {
	field := &Field{
		Name:    fd.Name,
		Primary: fd.Primary,
		Auto:    fd.Auto,
		Unique:  fd.Unique,
		Type: &TypeSpec{
			Nullable:   fd.Nullable,
			EnumValues: fd.Values,
			Length:     fd.Length,
			Precision:  fd.Precision,
			Scale:      fd.Scale,
		},
	}

	if !fd.Default.IsZero() {
		var value interface{}
		if err := fd.Default.Decode(&value); err != nil {
			return nil, &ValidationError{Resource: resource, Field: fd.Name, Message: fmt.Sprintf("invalid default: %v", err)}
		}
		field.Type.Default = value
		field.Type.HasDefault = true
	}

	if fd.References != "" {
		relType, err := ParseRelationType(fd.Relation)
		if err != nil {
			return nil, &ValidationError{Resource: resource, Field: fd.Name, Message: err.Error()}
		}
		onDelete, err := ParseCascadeAction(fd.OnDelete)
		if err != nil {
			return nil, &ValidationError{Resource: resource, Field: fd.Name, Message: err.Error()}
		}
		field.Relation = &Relationship{
			Type:           relType,
			TargetResource: fd.References,
			FieldName:      fd.Name,
			ForeignKey:     fd.Column,
			Backref:        fd.Backref,
			Nullable:       fd.Nullable,
			OnDelete:       onDelete,
		}
		return field, nil
	}

	base, err := ParsePrimitiveType(fd.Type)
	if err != nil {
		return nil, &ValidationError{Resource: resource, Field: fd.Name, Message: err.Error()}
	}
	field.Type.BaseType = base
	return field, nil
}
