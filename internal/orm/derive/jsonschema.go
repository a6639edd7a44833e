package derive

import (
	"github.com/conduit-lang/autocrud/internal/orm/schema"
)

// JSONSchemaDraft is the dialect emitted by JSONSchema.
const JSONSchemaDraft = "http://json-schema.org/draft-07/schema#"

// JSONSchema renders s as a JSON Schema document. Properties keep no order
// in JSON Schema; use Schema.Names for the declared order.
func JSONSchema(s *Schema) map[string]interface{} {
	doc := objectSchema(s)
	doc["$schema"] = JSONSchemaDraft
	if s.options.Description != "" {
		doc["description"] = s.options.Description
	}
	return doc
}

func objectSchema(s *Schema) map[string]interface{} {
	properties := make(map[string]interface{}, len(s.fields))
	required := make([]string, 0)

	for _, f := range s.fields {
		properties[f.Name] = fieldSchema(f)
		if f.Required {
			required = append(required, f.Name)
		}
	}

	title := s.options.Title
	if title == "" {
		title = s.name
	}

	doc := map[string]interface{}{
		"title":                title,
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": s.options.AllowExtra,
	}
	if len(required) > 0 {
		doc["required"] = required
	}
	return doc
}

func fieldSchema(f SchemaField) map[string]interface{} {
	var out map[string]interface{}

	switch f.Shape {
	case ShapeNested:
		out = objectSchema(f.Nested)
	case ShapeNestedSeq:
		out = map[string]interface{}{
			"type":  "array",
			"items": objectSchema(f.Nested),
		}
	default:
		out = typeSchema(f.Type)
	}

	if f.Nullable {
		allowNull(out)
	}
	if f.HasDefault {
		out["default"] = f.Default
	}
	return out
}

func typeSchema(t *schema.TypeSpec) map[string]interface{} {
	out := make(map[string]interface{})

	switch {
	case t.IsText():
		out["type"] = "string"
		if t.Length != nil {
			out["maxLength"] = *t.Length
		}
	case t.IsInteger():
		out["type"] = "integer"
	case t.IsNumeric():
		out["type"] = "number"
	case t.BaseType == schema.TypeBool:
		out["type"] = "boolean"
	case t.BaseType == schema.TypeTimestamp:
		out["type"] = "string"
		out["format"] = "date-time"
	case t.BaseType == schema.TypeDate:
		out["type"] = "string"
		out["format"] = "date"
	case t.BaseType == schema.TypeTime:
		out["type"] = "string"
		out["format"] = "time"
	case t.BaseType == schema.TypeUUID:
		out["type"] = "string"
		out["format"] = "uuid"
	case t.BaseType == schema.TypeEnum:
		out["type"] = "string"
		values := make([]interface{}, len(t.EnumValues))
		for i, v := range t.EnumValues {
			values[i] = v
		}
		out["enum"] = values
	case t.BaseType == schema.TypeJSON:
		// any JSON value
	}

	return out
}

func allowNull(out map[string]interface{}) {
	if typ, ok := out["type"].(string); ok {
		out["type"] = []interface{}{typ, "null"}
	}
	if values, ok := out["enum"].([]interface{}); ok {
		out["enum"] = append(values, nil)
	}
}
