// Package derive turns record definitions into validation schemas.
//
// A definition is first classified into scalar, outgoing-relation and
// back-relation fields. Derive then applies a Config (inclusion, exclusion,
// primary-key exclusion, relation nesting, optionality) and produces an
// immutable Schema. RecordView bridges a stored record to a Schema, loading
// relations only when a nested field is read.
package derive

import (
	"errors"
	"fmt"

	"github.com/conduit-lang/autocrud/internal/orm/schema"
)

// ErrUnsupportedFieldKind is returned when a declared field cannot be mapped
// to a scalar, an outgoing relation or a back-relation.
var ErrUnsupportedFieldKind = errors.New("unsupported field kind")

// FieldKind partitions the fields of a definition.
type FieldKind int

const (
	KindScalar FieldKind = iota
	KindOutgoing
	KindBackRelation
)

// String returns the string representation of the field kind
func (k FieldKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindOutgoing:
		return "outgoing"
	case KindBackRelation:
		return "back_relation"
	default:
		return "unknown"
	}
}

// FieldDescriptor is the classified view of one field.
type FieldDescriptor struct {
	Name    string
	Kind    FieldKind
	Type    *schema.TypeSpec
	Primary bool

	// Related is the definition on the other side of a relation.
	Related  *schema.ResourceSchema
	Relation *schema.Relationship
}

// Nullable reports whether the stored value may be null. Back-relations
// are never null; an unreferenced record has an empty back-relation.
func (d FieldDescriptor) Nullable() bool {
	if d.Kind == KindBackRelation || d.Type == nil {
		return false
	}
	return d.Type.Nullable && !d.Primary
}

// Default returns the declared default, if any.
func (d FieldDescriptor) Default() (interface{}, bool) {
	if d.Type == nil || !d.Type.HasDefault {
		return nil, false
	}
	return d.Type.Default, true
}

// Classify enumerates the fields of def in declaration order followed by its
// back-relations in registration order.
func Classify(def *schema.ResourceSchema) ([]FieldDescriptor, error) {
	descriptors := make([]FieldDescriptor, 0, len(def.Fields)+len(def.Backrefs))

	for _, field := range def.Fields {
		fd, err := classifyField(def, field)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, fd)
	}

	for _, rel := range def.Backrefs {
		if rel.Type != schema.RelationshipHasMany {
			return nil, unsupported(def.Name, rel.FieldName, "%s back-relations are not supported", rel.Type)
		}
		if rel.Target == nil {
			return nil, unsupported(def.Name, rel.FieldName, "unresolved back-relation source %s", rel.TargetResource)
		}
		descriptors = append(descriptors, FieldDescriptor{
			Name:     rel.FieldName,
			Kind:     KindBackRelation,
			Related:  rel.Target,
			Relation: rel,
		})
	}

	return descriptors, nil
}

func classifyField(def *schema.ResourceSchema, field *schema.Field) (FieldDescriptor, error) {
	fd := FieldDescriptor{
		Name:    field.Name,
		Type:    field.Type,
		Primary: field.Primary,
	}

	if field.Relation != nil {
		rel := field.Relation
		if rel.Type != schema.RelationshipBelongsTo {
			return fd, unsupported(def.Name, field.Name, "%s relations cannot be declared on a field", rel.Type)
		}
		if rel.Target == nil {
			return fd, unsupported(def.Name, field.Name, "unresolved relation target %s", rel.TargetResource)
		}
		if _, err := rel.Target.PrimaryKey(); err != nil {
			return fd, unsupported(def.Name, field.Name, "%v", err)
		}
		fd.Kind = KindOutgoing
		fd.Related = rel.Target
		fd.Relation = rel
		return fd, nil
	}

	if field.Type == nil || field.Type.BaseType == schema.TypeUnknown {
		return fd, unsupported(def.Name, field.Name, "field has no known type")
	}

	fd.Kind = KindScalar
	return fd, nil
}

func unsupported(resource, field, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s.%s: %s", ErrUnsupportedFieldKind, resource, field, fmt.Sprintf(format, args...))
}
