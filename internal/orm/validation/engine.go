// Package validation checks payloads against derived schemas and serializes
// record views. Schemas are compiled to JSON Schema validators once per
// derived schema and reused.
package validation

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"github.com/conduit-lang/autocrud/internal/orm/derive"
	"github.com/conduit-lang/autocrud/internal/orm/schema"
)

// ValidateOptions tunes a single Validate call.
type ValidateOptions struct {
	// Partial keeps only the supplied fields; defaults are not applied.
	Partial bool
}

// Engine validates payloads against derived schemas.
type Engine struct {
	compiled sync.Map // *derive.Schema -> *gojsonschema.Schema
}

// NewEngine creates a new validation engine
func NewEngine() *Engine {
	return &Engine{}
}

// Compile returns the JSON Schema validator for s, compiling it on first use.
func (e *Engine) Compile(s *derive.Schema) (*gojsonschema.Schema, error) {
	if cached, ok := e.compiled.Load(s); ok {
		return cached.(*gojsonschema.Schema), nil
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(derive.JSONSchema(s)))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", s.Name(), err)
	}

	actual, _ := e.compiled.LoadOrStore(s, compiled)
	return actual.(*gojsonschema.Schema), nil
}

// Validate checks payload against s and returns the coerced document in
// schema field order. Unknown fields are rejected unless the schema allows
// extras, in which case they are dropped. A *ValidationErrors is returned
// when the payload does not conform.
func (e *Engine) Validate(s *derive.Schema, payload map[string]interface{}, opts ValidateOptions) (*derive.Document, error) {
	if payload == nil {
		payload = map[string]interface{}{}
	}

	compiled, err := e.Compile(s)
	if err != nil {
		return nil, err
	}

	result, err := compiled.Validate(gojsonschema.NewGoLoader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to validate %s: %w", s.Name(), err)
	}
	if !result.Valid() {
		return nil, translate(result.Errors())
	}

	verrs := NewValidationErrors()
	doc := build(s, payload, opts.Partial, "", verrs)
	if verrs.HasErrors() {
		return nil, verrs
	}
	return doc, nil
}

// ValidateJSON decodes data as a JSON object and validates it.
func (e *Engine) ValidateJSON(s *derive.Schema, data []byte, opts ValidateOptions) (*derive.Document, error) {
	payload, err := DecodeObject(data)
	if err != nil {
		return nil, err
	}
	return e.Validate(s, payload, opts)
}

// DecodeObject decodes a JSON object keeping numbers as json.Number. An
// empty body decodes to an empty object.
func DecodeObject(data []byte) (map[string]interface{}, error) {
	payload := map[string]interface{}{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return payload, nil
	}

	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		verrs := NewValidationErrors()
		verrs.AddFieldError(NewFieldError("body", fmt.Sprintf("invalid JSON object: %v", err), TypeTypeError))
		return nil, verrs
	}
	return payload, nil
}

// Serialize walks view in schema order and produces a document. Nested
// relations are loaded through the view; sequences are drained and closed.
// Absent optional fields take their default or null; absent required fields
// are reported as missing.
func (e *Engine) Serialize(ctx context.Context, view *derive.RecordView) (*derive.Document, error) {
	verrs := NewValidationErrors()
	doc, err := serialize(ctx, view, verrs)
	if err != nil {
		return nil, err
	}
	if verrs.HasErrors() {
		return nil, verrs
	}
	return doc, nil
}

func serialize(ctx context.Context, view *derive.RecordView, verrs *ValidationErrors) (*derive.Document, error) {
	doc := derive.NewDocument()

	for _, field := range view.Schema().Fields() {
		value, ok, err := view.Get(ctx, field.Name)
		if err != nil {
			return nil, err
		}

		if !ok {
			if field.Required {
				verrs.AddFieldError(NewFieldError(field.Name, "field required", TypeMissing))
				continue
			}
			if field.HasDefault {
				doc.Set(field.Name, field.Default)
			} else {
				doc.Set(field.Name, nil)
			}
			continue
		}

		switch v := value.(type) {
		case *derive.RecordView:
			nestedErrs := NewValidationErrors()
			nested, err := serialize(ctx, v, nestedErrs)
			if err != nil {
				return nil, err
			}
			verrs.Merge(field.Name, nestedErrs)
			doc.Set(field.Name, nested)

		case *derive.Sequence:
			items, err := drain(ctx, field.Name, v, verrs)
			if err != nil {
				return nil, err
			}
			doc.Set(field.Name, items)

		default:
			if value == nil && field.Required && !field.Nullable {
				verrs.AddFieldError(NewFieldError(field.Name, "none is not an allowed value", TypeNoneNotAllowed))
				continue
			}
			doc.Set(field.Name, value)
		}
	}

	return doc, nil
}

func drain(ctx context.Context, name string, seq *derive.Sequence, verrs *ValidationErrors) ([]*derive.Document, error) {
	defer seq.Close()

	items := make([]*derive.Document, 0)
	for i := 0; seq.Next(); i++ {
		itemErrs := NewValidationErrors()
		item, err := serialize(ctx, seq.View(), itemErrs)
		if err != nil {
			return nil, err
		}
		verrs.Merge(fmt.Sprintf("%s.%d", name, i), itemErrs)
		items = append(items, item)
	}
	if err := seq.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return items, nil
}

// translate maps JSON Schema results onto field errors.
func translate(results []gojsonschema.ResultError) *ValidationErrors {
	verrs := NewValidationErrors()

	for _, re := range results {
		field := re.Field()
		if field == "(root)" {
			field = ""
		}

		switch re.Type() {
		case "required":
			verrs.AddFieldError(NewFieldError(join(field, property(re)), "field required", TypeMissing))
		case "additional_property_not_allowed":
			verrs.AddFieldError(NewFieldError(join(field, property(re)), "extra fields not permitted", TypeExtra))
		case "invalid_type":
			if given, _ := re.Details()["given"].(string); given == "null" {
				verrs.AddFieldError(NewFieldError(field, "none is not an allowed value", TypeNoneNotAllowed))
				continue
			}
			verrs.AddFieldError(NewFieldError(field, re.Description(), TypeTypeError))
		case "enum":
			verrs.AddFieldError(NewFieldError(field, re.Description(), TypeEnum))
		default:
			verrs.AddFieldError(NewFieldError(field, re.Description(), TypeValueError))
		}
	}

	return verrs
}

func property(re gojsonschema.ResultError) string {
	name, _ := re.Details()["property"].(string)
	return name
}

func join(prefix, name string) string {
	switch {
	case prefix == "":
		return name
	case name == "":
		return prefix
	default:
		return prefix + "." + name
	}
}

// build assembles the validated payload in schema order.
func build(s *derive.Schema, payload map[string]interface{}, partial bool, prefix string, verrs *ValidationErrors) *derive.Document {
	doc := derive.NewDocument()

	for _, field := range s.Fields() {
		raw, supplied := payload[field.Name]
		if !supplied {
			if partial {
				continue
			}
			if field.HasDefault {
				doc.Set(field.Name, field.Default)
			} else if !field.Required {
				doc.Set(field.Name, nil)
			}
			continue
		}

		value, err := coerce(field, raw, join(prefix, field.Name), verrs)
		if err != nil {
			verrs.AddFieldError(NewFieldError(join(prefix, field.Name), err.Error(), TypeTypeError))
			continue
		}
		doc.Set(field.Name, value)
	}

	return doc
}

func coerce(field derive.SchemaField, raw interface{}, path string, verrs *ValidationErrors) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}

	switch field.Shape {
	case derive.ShapeNested:
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("expected object, got %T", raw)
		}
		return build(field.Nested, obj, false, path, verrs), nil

	case derive.ShapeNestedSeq:
		list, ok := raw.([]interface{})
		if !ok {
			return nil, fmt.Errorf("expected array, got %T", raw)
		}
		items := make([]*derive.Document, 0, len(list))
		for i, item := range list {
			obj, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("item %d: expected object, got %T", i, item)
			}
			items = append(items, build(field.Nested, obj, false, fmt.Sprintf("%s.%d", path, i), verrs))
		}
		return items, nil
	}

	return CoerceScalar(field.Type, raw)
}

// CoerceScalar converts a decoded JSON value to the Go representation of t:
// int64 for integers, float64 for floats and decimals, time.Time for
// timestamps and a canonical string for uuids. Other values pass through.
func CoerceScalar(t *schema.TypeSpec, raw interface{}) (interface{}, error) {
	if raw == nil || t == nil {
		return raw, nil
	}

	switch {
	case t.IsInteger():
		return toInt64(raw)
	case t.IsNumeric():
		return toFloat64(raw)
	case t.BaseType == schema.TypeTimestamp:
		return toTime(raw)
	case t.BaseType == schema.TypeUUID:
		str, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected uuid string, got %T", raw)
		}
		id, err := uuid.Parse(str)
		if err != nil {
			return nil, fmt.Errorf("invalid uuid: %w", err)
		}
		return id.String(), nil
	}
	return raw, nil
}

func toInt64(raw interface{}) (int64, error) {
	switch v := raw.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid integer %q", v.String())
		}
		return floatToInt64(f)
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return floatToInt64(v)
	default:
		return 0, fmt.Errorf("expected integer, got %T", raw)
	}
}

func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("value is not a valid integer")
	}
	return int64(f), nil
}

func toFloat64(raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", v.String())
		}
		return f, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", raw)
	}
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func toTime(raw interface{}) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("invalid timestamp %q", v)
	default:
		return time.Time{}, fmt.Errorf("expected timestamp string, got %T", raw)
	}
}
