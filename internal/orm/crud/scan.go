package crud

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/conduit-lang/autocrud/internal/orm/derive"
	"github.com/conduit-lang/autocrud/internal/orm/schema"
	"github.com/conduit-lang/autocrud/internal/orm/store"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans one row selected with selectList(def).
func scanRecord(row scanner, def *schema.ResourceSchema) (store.Record, error) {
	values := make([]interface{}, len(def.Fields))
	valuePtrs := make([]interface{}, len(def.Fields))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	if err := row.Scan(valuePtrs...); err != nil {
		return nil, err
	}

	rec := make(store.Record, len(def.Fields))
	for i, field := range def.Fields {
		value, err := normalizeValue(field.Type, values[i])
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", def.Name, field.Name, err)
		}
		rec[field.Name] = value
	}
	return rec, nil
}

// rows adapts *sql.Rows to derive.Rows.
type rows struct {
	rows    *sql.Rows
	def     *schema.ResourceSchema
	current store.Record
	err     error
}

func newRows(r *sql.Rows, def *schema.ResourceSchema) *rows {
	return &rows{rows: r, def: def}
}

func (r *rows) Next() bool {
	if r.err != nil || !r.rows.Next() {
		r.current = nil
		return false
	}
	rec, err := scanRecord(r.rows, r.def)
	if err != nil {
		r.err = err
		r.current = nil
		return false
	}
	r.current = rec
	return true
}

func (r *rows) Record() derive.Record { return r.current }

func (r *rows) Err() error {
	if r.err != nil {
		return r.err
	}
	return ConvertDBError(r.rows.Err())
}

func (r *rows) Close() error { return r.rows.Close() }

// normalizeValue converts what a driver returns into the value types
// validation produces: int64, float64, bool, string, time.Time.
func normalizeValue(t *schema.TypeSpec, value interface{}) (interface{}, error) {
	if value == nil || t == nil {
		return value, nil
	}

	switch {
	case t.IsInteger():
		switch v := value.(type) {
		case int64:
			return v, nil
		case int32:
			return int64(v), nil
		case []byte:
			return strconv.ParseInt(string(v), 10, 64)
		case string:
			return strconv.ParseInt(v, 10, 64)
		}

	case t.IsNumeric():
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case []byte:
			return strconv.ParseFloat(string(v), 64)
		case string:
			return strconv.ParseFloat(v, 64)
		}

	case t.BaseType == schema.TypeBool:
		switch v := value.(type) {
		case bool:
			return v, nil
		case int64:
			return v != 0, nil
		case []byte:
			return strconv.ParseBool(string(v))
		case string:
			return strconv.ParseBool(v)
		}

	case t.BaseType == schema.TypeUUID:
		switch v := value.(type) {
		case [16]byte:
			return uuid.UUID(v).String(), nil
		case []byte:
			if id, err := uuid.FromBytes(v); err == nil {
				return id.String(), nil
			}
			return string(v), nil
		case string:
			return v, nil
		}

	case t.BaseType == schema.TypeTimestamp:
		switch v := value.(type) {
		case time.Time:
			return v, nil
		case []byte:
			return parseTimestamp(string(v))
		case string:
			return parseTimestamp(v)
		}

	case t.BaseType == schema.TypeJSON:
		var raw []byte
		switch v := value.(type) {
		case []byte:
			raw = v
		case string:
			raw = []byte(v)
		default:
			return v, nil
		}
		var decoded interface{}
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return nil, fmt.Errorf("invalid json column: %w", err)
		}
		return decoded, nil

	default:
		switch v := value.(type) {
		case []byte:
			return string(v), nil
		case time.Time:
			if t.BaseType == schema.TypeDate {
				return v.Format("2006-01-02"), nil
			}
			if t.BaseType == schema.TypeTime {
				return v.Format("15:04:05"), nil
			}
		}
		return value, nil
	}

	return nil, fmt.Errorf("cannot read %T as %s", value, t.BaseType)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// bindValue converts a validated value into a driver argument.
func bindValue(field *schema.Field, value interface{}) (interface{}, error) {
	if value == nil || field.Type == nil {
		return value, nil
	}

	switch field.Type.BaseType {
	case schema.TypeJSON:
		data, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	case schema.TypeUUID:
		if id, ok := value.(uuid.UUID); ok {
			return id.String(), nil
		}
	}

	if doc, ok := value.(*derive.Document); ok {
		return nil, fmt.Errorf("nested value %v cannot be stored in a column", doc.Keys())
	}
	return value, nil
}
