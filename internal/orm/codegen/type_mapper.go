// Package codegen generates DDL for record definitions in the postgres and
// sqlite dialects.
package codegen

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/autocrud/internal/orm/schema"
)

// TypeMapper maps field types to column types
type TypeMapper struct {
	dialect Dialect
}

// NewTypeMapper creates a new TypeMapper
func NewTypeMapper(dialect Dialect) *TypeMapper {
	return &TypeMapper{dialect: dialect}
}

// MapType converts a TypeSpec to a column type
func (tm *TypeMapper) MapType(typeSpec *schema.TypeSpec) (string, error) {
	if typeSpec == nil {
		return "", fmt.Errorf("type spec cannot be nil")
	}
	if tm.dialect == SQLite {
		return tm.mapSQLiteType(typeSpec)
	}
	return tm.mapPostgresType(typeSpec)
}

func (tm *TypeMapper) mapPostgresType(typeSpec *schema.TypeSpec) (string, error) {
	switch typeSpec.BaseType {
	case schema.TypeString:
		if typeSpec.Length != nil {
			return fmt.Sprintf("VARCHAR(%d)", *typeSpec.Length), nil
		}
		return "VARCHAR(255)", nil // Default length

	case schema.TypeText:
		return "TEXT", nil

	case schema.TypeInt:
		return "INTEGER", nil

	case schema.TypeBigInt:
		return "BIGINT", nil

	case schema.TypeFloat:
		return "DOUBLE PRECISION", nil

	case schema.TypeDecimal:
		if typeSpec.Precision != nil && typeSpec.Scale != nil {
			return fmt.Sprintf("NUMERIC(%d,%d)", *typeSpec.Precision, *typeSpec.Scale), nil
		}
		return "NUMERIC", nil

	case schema.TypeBool:
		return "BOOLEAN", nil

	case schema.TypeTimestamp:
		return "TIMESTAMP WITH TIME ZONE", nil

	case schema.TypeDate:
		return "DATE", nil

	case schema.TypeTime:
		return "TIME", nil

	case schema.TypeUUID:
		return "UUID", nil

	case schema.TypeJSON:
		return "JSONB", nil

	case schema.TypeEnum:
		// Enforced with a CHECK constraint rather than a CREATE TYPE.
		return "VARCHAR(64)", nil

	default:
		return "", fmt.Errorf("unsupported type: %s", typeSpec.BaseType)
	}
}

// go-sqlite3 returns time.Time for DATETIME and TIMESTAMP columns and
// bool for BOOLEAN, so declared type names are kept where they matter.
func (tm *TypeMapper) mapSQLiteType(typeSpec *schema.TypeSpec) (string, error) {
	switch typeSpec.BaseType {
	case schema.TypeString:
		if typeSpec.Length != nil {
			return fmt.Sprintf("VARCHAR(%d)", *typeSpec.Length), nil
		}
		return "TEXT", nil
	case schema.TypeText, schema.TypeUUID, schema.TypeEnum, schema.TypeDate, schema.TypeTime, schema.TypeJSON:
		return "TEXT", nil
	case schema.TypeInt, schema.TypeBigInt:
		return "INTEGER", nil
	case schema.TypeFloat:
		return "REAL", nil
	case schema.TypeDecimal:
		return "NUMERIC", nil
	case schema.TypeBool:
		return "BOOLEAN", nil
	case schema.TypeTimestamp:
		return "DATETIME", nil
	default:
		return "", fmt.Errorf("unsupported type: %s", typeSpec.BaseType)
	}
}

// MapNullability returns the NULL/NOT NULL constraint for a type
func (tm *TypeMapper) MapNullability(typeSpec *schema.TypeSpec) string {
	if typeSpec.Nullable {
		return "NULL"
	}
	return "NOT NULL"
}

// MapDefault generates the DEFAULT expression for a field, or "" when it
// declares none. A declared null default maps to NULL.
func (tm *TypeMapper) MapDefault(typeSpec *schema.TypeSpec) (string, error) {
	if !typeSpec.HasDefault {
		return "", nil
	}
	if typeSpec.Default == nil {
		return "NULL", nil
	}
	return tm.formatDefaultValue(typeSpec, typeSpec.Default)
}

// formatDefaultValue formats a default value for SQL
func (tm *TypeMapper) formatDefaultValue(typeSpec *schema.TypeSpec, value interface{}) (string, error) {
	switch typeSpec.BaseType {
	case schema.TypeString, schema.TypeText, schema.TypeEnum, schema.TypeUUID, schema.TypeDate, schema.TypeTime:
		if str, ok := value.(string); ok {
			return QuoteLiteral(str), nil
		}
		return "", fmt.Errorf("expected string for %s type, got %T", typeSpec.BaseType, value)

	case schema.TypeInt, schema.TypeBigInt:
		switch v := value.(type) {
		case int:
			return fmt.Sprintf("%d", v), nil
		case int64:
			return fmt.Sprintf("%d", v), nil
		}
		return "", fmt.Errorf("expected int for integer type, got %T", value)

	case schema.TypeFloat, schema.TypeDecimal:
		switch v := value.(type) {
		case float64:
			return fmt.Sprintf("%g", v), nil
		case int:
			return fmt.Sprintf("%d", v), nil
		case int64:
			return fmt.Sprintf("%d", v), nil
		default:
			return "", fmt.Errorf("expected numeric for float/decimal type, got %T", value)
		}

	case schema.TypeBool:
		b, ok := value.(bool)
		if !ok {
			return "", fmt.Errorf("expected bool for boolean type, got %T", value)
		}
		switch {
		case tm.dialect == SQLite && b:
			return "1", nil
		case tm.dialect == SQLite:
			return "0", nil
		case b:
			return "TRUE", nil
		default:
			return "FALSE", nil
		}

	case schema.TypeTimestamp:
		if str, ok := value.(string); ok {
			if strings.EqualFold(str, "now()") || strings.EqualFold(str, "CURRENT_TIMESTAMP") {
				return "CURRENT_TIMESTAMP", nil
			}
			return QuoteLiteral(str), nil
		}
		return "", fmt.Errorf("expected string for timestamp type, got %T", value)

	default:
		return "", fmt.Errorf("unsupported default value type: %s", typeSpec.BaseType)
	}
}
