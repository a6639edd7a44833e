// Package schema defines record definitions: the ordered field inventory,
// primary key, outgoing relations and the back-relations other definitions
// declare against them. Definitions are read-only once a Registry is linked.
package schema

import (
	"fmt"
	"strings"
	"unicode"
)

// PrimitiveType represents the built-in field types
type PrimitiveType int

const (
	TypeUnknown PrimitiveType = iota

	// Text types
	TypeString
	TypeText

	// Numeric types
	TypeInt
	TypeBigInt
	TypeFloat
	TypeDecimal

	// Boolean
	TypeBool

	// Time types
	TypeTimestamp
	TypeDate
	TypeTime

	TypeUUID
	TypeJSON
	TypeEnum
)

// String returns the string representation of the primitive type
func (p PrimitiveType) String() string {
	switch p {
	case TypeString:
		return "string"
	case TypeText:
		return "text"
	case TypeInt:
		return "int"
	case TypeBigInt:
		return "bigint"
	case TypeFloat:
		return "float"
	case TypeDecimal:
		return "decimal"
	case TypeBool:
		return "bool"
	case TypeTimestamp:
		return "timestamp"
	case TypeDate:
		return "date"
	case TypeTime:
		return "time"
	case TypeUUID:
		return "uuid"
	case TypeJSON:
		return "json"
	case TypeEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// ParsePrimitiveType converts a string to a PrimitiveType
func ParsePrimitiveType(s string) (PrimitiveType, error) {
	switch strings.ToLower(s) {
	case "string", "varchar", "char":
		return TypeString, nil
	case "text":
		return TypeText, nil
	case "int", "integer":
		return TypeInt, nil
	case "bigint":
		return TypeBigInt, nil
	case "float", "double":
		return TypeFloat, nil
	case "decimal", "numeric":
		return TypeDecimal, nil
	case "bool", "boolean":
		return TypeBool, nil
	case "timestamp", "datetime":
		return TypeTimestamp, nil
	case "date":
		return TypeDate, nil
	case "time":
		return TypeTime, nil
	case "uuid":
		return TypeUUID, nil
	case "json":
		return TypeJSON, nil
	case "enum":
		return TypeEnum, nil
	default:
		return TypeUnknown, fmt.Errorf("unknown primitive type: %s", s)
	}
}

// TypeSpec is the declared type of a field together with its nullability
// and default.
type TypeSpec struct {
	BaseType   PrimitiveType
	Nullable   bool
	Default    interface{}
	HasDefault bool
	EnumValues []string

	// Type parameters (e.g., string(50), decimal(10,2))
	Length    *int
	Precision *int
	Scale     *int
}

// String returns a string representation of the TypeSpec
func (t *TypeSpec) String() string {
	var s string

	switch {
	case t.BaseType == TypeEnum && len(t.EnumValues) > 0:
		s = fmt.Sprintf("enum%v", t.EnumValues)
	default:
		s = t.BaseType.String()
		if t.Length != nil {
			s = fmt.Sprintf("%s(%d)", s, *t.Length)
		}
		if t.Precision != nil && t.Scale != nil {
			s = fmt.Sprintf("%s(%d,%d)", s, *t.Precision, *t.Scale)
		}
	}

	if t.Nullable {
		s += "?"
	} else {
		s += "!"
	}

	return s
}

// IsNumeric returns true if the type is a numeric type
func (t *TypeSpec) IsNumeric() bool {
	return t.IsInteger() ||
		t.BaseType == TypeFloat ||
		t.BaseType == TypeDecimal
}

// IsInteger returns true for int and bigint
func (t *TypeSpec) IsInteger() bool {
	return t.BaseType == TypeInt || t.BaseType == TypeBigInt
}

// IsText returns true if the type is a text type
func (t *TypeSpec) IsText() bool {
	return t.BaseType == TypeString || t.BaseType == TypeText
}

// WithNullable returns a copy of the spec with the given nullability.
func (t *TypeSpec) WithNullable(nullable bool) *TypeSpec {
	cp := *t
	cp.Nullable = nullable
	return &cp
}

// Field is a declared column of a record definition. A field carrying a
// belongs_to Relation is a foreign key; its value is the related record's key.
type Field struct {
	Name     string
	Type     *TypeSpec
	Primary  bool
	Auto     bool
	Unique   bool
	Relation *Relationship
}

// IsForeignKey reports whether the field references another definition.
func (f *Field) IsForeignKey() bool {
	return f.Relation != nil && f.Relation.Type == RelationshipBelongsTo
}

// Column returns the storage column name for the field.
func (f *Field) Column() string {
	if f.IsForeignKey() && f.Relation.ForeignKey != "" {
		return f.Relation.ForeignKey
	}
	return f.Name
}

// RelationType represents the type of relationship
type RelationType int

const (
	RelationshipBelongsTo RelationType = iota
	RelationshipHasMany
	RelationshipHasManyThrough
	RelationshipHasOne
)

// String returns the string representation of the relationship type
func (r RelationType) String() string {
	switch r {
	case RelationshipBelongsTo:
		return "belongs_to"
	case RelationshipHasMany:
		return "has_many"
	case RelationshipHasManyThrough:
		return "has_many_through"
	case RelationshipHasOne:
		return "has_one"
	default:
		return "unknown"
	}
}

// ParseRelationType converts a string to a RelationType
func ParseRelationType(s string) (RelationType, error) {
	switch s {
	case "belongs_to", "":
		return RelationshipBelongsTo, nil
	case "has_many":
		return RelationshipHasMany, nil
	case "has_many_through":
		return RelationshipHasManyThrough, nil
	case "has_one":
		return RelationshipHasOne, nil
	default:
		return 0, fmt.Errorf("unknown relationship type: %s", s)
	}
}

// CascadeAction represents cascade actions for foreign keys
type CascadeAction int

const (
	CascadeRestrict CascadeAction = iota
	CascadeCascade
	CascadeSetNull
	CascadeNoAction
)

// String returns the string representation of the cascade action
func (c CascadeAction) String() string {
	switch c {
	case CascadeRestrict:
		return "restrict"
	case CascadeCascade:
		return "cascade"
	case CascadeSetNull:
		return "set_null"
	case CascadeNoAction:
		return "no_action"
	default:
		return "unknown"
	}
}

// SQL returns the referential action keyword.
func (c CascadeAction) SQL() string {
	return strings.ToUpper(strings.ReplaceAll(c.String(), "_", " "))
}

// ParseCascadeAction converts a string to a CascadeAction
func ParseCascadeAction(s string) (CascadeAction, error) {
	switch s {
	case "restrict", "":
		return CascadeRestrict, nil
	case "cascade":
		return CascadeCascade, nil
	case "set_null":
		return CascadeSetNull, nil
	case "no_action":
		return CascadeNoAction, nil
	default:
		return 0, fmt.Errorf("unknown cascade action: %s", s)
	}
}

// Relationship describes one side of a reference between two definitions.
//
// A belongs_to relationship hangs off the foreign-key Field that declares it.
// A has_many relationship is the inverse accessor synthesized by
// Registry.Link on the referenced definition: FieldName is the back-relation
// name, TargetResource is the referencing definition and Inverse names the
// foreign-key field on it.
type Relationship struct {
	Type           RelationType
	TargetResource string
	FieldName      string
	ForeignKey     string
	Backref        string
	Nullable       bool
	OnDelete       CascadeAction
	Inverse        string

	// Target is resolved by Registry.Link.
	Target *ResourceSchema
}

// ResourceSchema is a complete record definition.
type ResourceSchema struct {
	Name      string
	TableName string

	// Fields in declaration order
	Fields []*Field

	// Back-relations in registration order
	Backrefs []*Relationship

	// Actions exposed over HTTP; empty means all
	Actions []string

	index map[string]*Field
}

// NewResourceSchema creates a new ResourceSchema
func NewResourceSchema(name string) *ResourceSchema {
	return &ResourceSchema{
		Name:      name,
		TableName: SnakeCase(name),
		Fields:    make([]*Field, 0),
		Backrefs:  make([]*Relationship, 0),
		index:     make(map[string]*Field),
	}
}

// AddField appends a field, keeping declaration order.
func (r *ResourceSchema) AddField(f *Field) error {
	if r.index == nil {
		r.index = make(map[string]*Field)
	}
	if _, exists := r.index[f.Name]; exists {
		return fmt.Errorf("resource %s: duplicate field %s", r.Name, f.Name)
	}
	r.Fields = append(r.Fields, f)
	r.index[f.Name] = f
	return nil
}

// Field returns the declared field with the given name.
func (r *ResourceSchema) Field(name string) (*Field, bool) {
	if r.index == nil {
		for _, f := range r.Fields {
			if f.Name == name {
				return f, true
			}
		}
		return nil, false
	}
	f, ok := r.index[name]
	return f, ok
}

// Backref returns the back-relation with the given name.
func (r *ResourceSchema) Backref(name string) (*Relationship, bool) {
	for _, rel := range r.Backrefs {
		if rel.FieldName == name {
			return rel, true
		}
	}
	return nil, false
}

// HasField returns true if the resource declares a field or back-relation
// with the given name
func (r *ResourceSchema) HasField(name string) bool {
	if _, ok := r.Field(name); ok {
		return true
	}
	_, ok := r.Backref(name)
	return ok
}

// PrimaryKey returns the primary key field
func (r *ResourceSchema) PrimaryKey() (*Field, error) {
	for _, field := range r.Fields {
		if field.Primary {
			return field, nil
		}
	}
	return nil, fmt.Errorf("resource %s has no primary key", r.Name)
}

// ForeignKeys returns the belongs_to fields in declaration order.
func (r *ResourceSchema) ForeignKeys() []*Field {
	var fks []*Field
	for _, f := range r.Fields {
		if f.IsForeignKey() {
			fks = append(fks, f)
		}
	}
	return fks
}

// ExposesAction reports whether the named HTTP action is enabled.
func (r *ResourceSchema) ExposesAction(action string) bool {
	if len(r.Actions) == 0 {
		return true
	}
	for _, a := range r.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// SnakeCase converts a CamelCase name to snake_case ("TestModel" -> "test_model",
// "HTTPServer" -> "http_server").
func SnakeCase(s string) string {
	var b strings.Builder
	runes := []rune(s)

	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteRune('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
