package store

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/conduit-lang/autocrud/internal/orm/schema"
)

// ParseKey converts a primary key taken from a URL path to the Go type of
// the key field.
func ParseKey(def *schema.ResourceSchema, raw string) (interface{}, error) {
	pk, err := def.PrimaryKey()
	if err != nil {
		return nil, err
	}

	switch {
	case pk.Type.IsInteger():
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidKey, raw)
		}
		return n, nil
	case pk.Type.BaseType == schema.TypeUUID:
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a uuid", ErrInvalidKey, raw)
		}
		return id.String(), nil
	case raw == "":
		return nil, fmt.Errorf("%w: empty key", ErrInvalidKey)
	default:
		return raw, nil
	}
}

// normalizeKey maps equal keys of different Go types onto one comparable
// value: every integer becomes int64, uuids become their canonical string.
func normalizeKey(key interface{}) interface{} {
	switch k := key.(type) {
	case int:
		return int64(k)
	case int32:
		return int64(k)
	case int64:
		return k
	case uint:
		return int64(k)
	case float64:
		if k == float64(int64(k)) {
			return int64(k)
		}
		return k
	case uuid.UUID:
		return k.String()
	case []byte:
		return string(k)
	default:
		return key
	}
}
