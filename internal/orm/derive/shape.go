package derive

import (
	"github.com/conduit-lang/autocrud/internal/orm/schema"
)

// Shape is how a field is represented in a derived schema.
type Shape int

const (
	// ShapeScalar carries the field's own type.
	ShapeScalar Shape = iota
	// ShapeKeyOnly carries the related record's primary-key value.
	ShapeKeyOnly
	// ShapeNested carries the related record shaped by its own schema.
	ShapeNested
	// ShapeNestedSeq carries every referencing record, each shaped by its
	// own schema. Reading it runs a query.
	ShapeNestedSeq
)

// String returns the string representation of the shape
func (s Shape) String() string {
	switch s {
	case ShapeScalar:
		return "scalar"
	case ShapeKeyOnly:
		return "key_only"
	case ShapeNested:
		return "nested"
	case ShapeNestedSeq:
		return "nested_seq"
	default:
		return "unknown"
	}
}

// FieldShape is the resolved representation of one field.
type FieldShape struct {
	Shape Shape

	// Type is set for ShapeScalar and ShapeKeyOnly.
	Type *schema.TypeSpec

	// Nested is set for ShapeNested and ShapeNestedSeq.
	Nested *Schema
}

// nestedConfig is used for every nested derivation. It never nests, which
// bounds expansion to one level even across relation cycles.
func nestedConfig() Config {
	return DefaultConfig()
}

// ResolveShape decides how fd is represented under cfg. omit is true for a
// back-relation that cfg does not nest; such fields do not appear at all.
func ResolveShape(fd FieldDescriptor, cfg Config) (shape FieldShape, omit bool, err error) {
	switch fd.Kind {
	case KindOutgoing:
		if !cfg.NestOutgoing {
			pk, err := fd.Related.PrimaryKey()
			if err != nil {
				return FieldShape{}, false, unsupported(fd.Relation.TargetResource, fd.Name, "%v", err)
			}
			return FieldShape{Shape: ShapeKeyOnly, Type: pk.Type.WithNullable(fd.Nullable())}, false, nil
		}
		nested, err := Derive(fd.Related, nestedConfig())
		if err != nil {
			return FieldShape{}, false, err
		}
		return FieldShape{Shape: ShapeNested, Nested: nested}, false, nil

	case KindBackRelation:
		if !cfg.NestBackrefs {
			return FieldShape{}, true, nil
		}
		nested, err := Derive(fd.Related, nestedConfig())
		if err != nil {
			return FieldShape{}, false, err
		}
		return FieldShape{Shape: ShapeNestedSeq, Nested: nested}, false, nil

	default:
		return FieldShape{Shape: ShapeScalar, Type: fd.Type}, false, nil
	}
}
