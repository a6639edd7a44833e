package schema

import (
	"fmt"
	"strings"
)

// ValidationError represents a schema validation error with context
type ValidationError struct {
	Resource string
	Field    string
	Message  string
	Hint     string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	var b strings.Builder

	if e.Resource != "" {
		b.WriteString(e.Resource)
		if e.Field != "" {
			b.WriteString(".")
			b.WriteString(e.Field)
		}
		b.WriteString(": ")
	}

	b.WriteString(e.Message)

	if e.Hint != "" {
		b.WriteString("\n  hint: ")
		b.WriteString(e.Hint)
	}

	return b.String()
}

// SchemaValidator validates record definitions
type SchemaValidator struct {
	schemas map[string]*ResourceSchema
	errors  []*ValidationError
}

// NewSchemaValidator creates a new schema validator
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{
		schemas: make(map[string]*ResourceSchema),
		errors:  make([]*ValidationError, 0),
	}
}

// ValidateStructural validates a single definition without cross-resource
// checks, so forward references are allowed during registration.
func (v *SchemaValidator) ValidateStructural(schema *ResourceSchema) error {
	v.errors = make([]*ValidationError, 0)

	v.validatePrimaryKey(schema)
	v.validateFields(schema)
	v.validateDefaults(schema)

	return v.result()
}

// Validate validates a single definition against the full set of definitions
func (v *SchemaValidator) Validate(schema *ResourceSchema, registry map[string]*ResourceSchema) error {
	v.schemas = registry
	v.errors = make([]*ValidationError, 0)

	v.validatePrimaryKey(schema)
	v.validateFields(schema)
	v.validateDefaults(schema)
	v.validateRelationships(schema)

	return v.result()
}

// Errors returns all validation errors from the last run
func (v *SchemaValidator) Errors() []*ValidationError {
	return v.errors
}

func (v *SchemaValidator) result() error {
	if len(v.errors) == 0 {
		return nil
	}
	if len(v.errors) == 1 {
		return v.errors[0]
	}

	msgs := make([]string, 0, len(v.errors))
	for _, err := range v.errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("schema validation failed with %d errors:\n%s",
		len(v.errors), strings.Join(msgs, "\n"))
}

func (v *SchemaValidator) addError(resource, field, message, hint string) {
	v.errors = append(v.errors, &ValidationError{
		Resource: resource,
		Field:    field,
		Message:  message,
		Hint:     hint,
	})
}

func (v *SchemaValidator) validatePrimaryKey(schema *ResourceSchema) {
	var primaries []*Field
	for _, field := range schema.Fields {
		if field.Primary {
			primaries = append(primaries, field)
		}
	}

	switch len(primaries) {
	case 0:
		v.addError(schema.Name, "", "missing primary key", "mark exactly one field with primary: true")
		return
	case 1:
	default:
		v.addError(schema.Name, primaries[1].Name, "multiple primary keys", "composite keys are not supported")
		return
	}

	pk := primaries[0]
	if pk.Type != nil && pk.Type.Nullable {
		v.addError(schema.Name, pk.Name, "primary key cannot be nullable", "")
	}
	if pk.IsForeignKey() {
		v.addError(schema.Name, pk.Name, "primary key cannot be a relation", "")
	}
	if pk.Auto && pk.Type != nil && !pk.Type.IsInteger() && pk.Type.BaseType != TypeUUID {
		v.addError(schema.Name, pk.Name, "auto primary keys must be int, bigint or uuid", "")
	}
}

func (v *SchemaValidator) validateFields(schema *ResourceSchema) {
	columns := make(map[string]string)
	for _, field := range schema.Fields {
		if field.Name == "" {
			v.addError(schema.Name, "", "field without a name", "")
			continue
		}
		if field.Type == nil && !field.IsForeignKey() {
			v.addError(schema.Name, field.Name, "field has no type", "")
			continue
		}
		if field.Type != nil && field.Type.BaseType == TypeEnum && len(field.Type.EnumValues) == 0 {
			v.addError(schema.Name, field.Name, "enum field has no values", "list the allowed values under values:")
		}

		col := field.Column()
		if other, dup := columns[col]; dup {
			v.addError(schema.Name, field.Name, fmt.Sprintf("column %s already used by %s", col, other), "")
			continue
		}
		columns[col] = field.Name
	}
}

func (v *SchemaValidator) validateDefaults(schema *ResourceSchema) {
	for _, field := range schema.Fields {
		if field.Type == nil || !field.Type.HasDefault {
			continue
		}
		if field.Type.Default == nil {
			if !field.Type.Nullable {
				v.addError(schema.Name, field.Name, "null default on a non-nullable field", "")
			}
			continue
		}
		if err := checkTypeMatch(field.Type, field.Type.Default); err != nil {
			v.addError(schema.Name, field.Name, fmt.Sprintf("invalid default: %v", err), "")
		}
	}
}

func (v *SchemaValidator) validateRelationships(schema *ResourceSchema) {
	for _, field := range schema.ForeignKeys() {
		rel := field.Relation
		target, exists := v.schemas[rel.TargetResource]
		if !exists {
			v.addError(schema.Name, field.Name,
				fmt.Sprintf("references undefined resource %s", rel.TargetResource), "")
			continue
		}
		if _, err := target.PrimaryKey(); err != nil {
			v.addError(schema.Name, field.Name, err.Error(), "")
		}
		if rel.OnDelete == CascadeSetNull && (field.Type == nil || !field.Type.Nullable) {
			v.addError(schema.Name, field.Name, "on_delete set_null requires a nullable relation",
				"add nullable: true to the field")
		}
	}
}

// checkTypeMatch validates a value matches a type specification. Values come
// from YAML so integers may arrive as int and floats as float64.
func checkTypeMatch(typeSpec *TypeSpec, value interface{}) error {
	switch typeSpec.BaseType {
	case TypeInt, TypeBigInt:
		switch value.(type) {
		case int, int32, int64:
		default:
			return fmt.Errorf("expected int, got %T", value)
		}
	case TypeFloat, TypeDecimal:
		switch value.(type) {
		case float64, float32, int, int64:
		default:
			return fmt.Errorf("expected float, got %T", value)
		}
	case TypeBool:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
	case TypeString, TypeText, TypeUUID, TypeDate, TypeTime:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case TypeEnum:
		strVal, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string for enum, got %T", value)
		}
		for _, enumVal := range typeSpec.EnumValues {
			if enumVal == strVal {
				return nil
			}
		}
		return fmt.Errorf("value %s not in enum values %v", strVal, typeSpec.EnumValues)
	}

	return nil
}
