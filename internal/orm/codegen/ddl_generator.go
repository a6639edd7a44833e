package codegen

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/autocrud/internal/orm/schema"
)

// DDLGenerator generates DDL statements from record definitions
type DDLGenerator struct {
	dialect    Dialect
	typeMapper *TypeMapper
}

// NewDDLGenerator creates a new DDL generator
func NewDDLGenerator(dialect Dialect) *DDLGenerator {
	return &DDLGenerator{
		dialect:    dialect,
		typeMapper: NewTypeMapper(dialect),
	}
}

// GenerateCreateTable generates a CREATE TABLE statement for a linked
// resource. Columns keep declaration order.
func (g *DDLGenerator) GenerateCreateTable(resource *schema.ResourceSchema) (string, error) {
	if resource == nil {
		return "", fmt.Errorf("resource cannot be nil")
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n", QuoteIdentifier(resource.TableName)))

	columnDefs := make([]string, 0, len(resource.Fields))
	for _, field := range resource.Fields {
		columnDef, err := g.generateColumnDefinition(field)
		if err != nil {
			return "", fmt.Errorf("%s.%s: %w", resource.Name, field.Name, err)
		}
		columnDefs = append(columnDefs, columnDef)
	}

	for i, def := range columnDefs {
		b.WriteString("  ")
		b.WriteString(def)
		if i < len(columnDefs)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}

	b.WriteString(");")
	return b.String(), nil
}

// generateColumnDefinition generates a column definition for a field
func (g *DDLGenerator) generateColumnDefinition(field *schema.Field) (string, error) {
	column := QuoteIdentifier(field.Column())

	if field.Primary && field.Auto && field.Type.IsInteger() {
		if g.dialect == SQLite {
			return column + " INTEGER PRIMARY KEY AUTOINCREMENT", nil
		}
		if field.Type.BaseType == schema.TypeBigInt {
			return column + " BIGSERIAL PRIMARY KEY", nil
		}
		return column + " SERIAL PRIMARY KEY", nil
	}

	columnType, err := g.typeMapper.MapType(field.Type)
	if err != nil {
		return "", fmt.Errorf("mapping type: %w", err)
	}
	parts := []string{column, columnType, g.typeMapper.MapNullability(field.Type)}

	if field.Primary && field.Auto && field.Type.BaseType == schema.TypeUUID && g.dialect == Postgres {
		parts = append(parts, "DEFAULT gen_random_uuid()")
	} else {
		defaultValue, err := g.typeMapper.MapDefault(field.Type)
		if err != nil {
			return "", fmt.Errorf("mapping default value: %w", err)
		}
		if defaultValue != "" {
			parts = append(parts, "DEFAULT "+defaultValue)
		}
	}

	if field.Primary {
		parts = append(parts, "PRIMARY KEY")
	} else if field.Unique {
		parts = append(parts, "UNIQUE")
	}

	if field.Type.BaseType == schema.TypeEnum && len(field.Type.EnumValues) > 0 {
		values := make([]string, len(field.Type.EnumValues))
		for i, v := range field.Type.EnumValues {
			values[i] = QuoteLiteral(v)
		}
		parts = append(parts, fmt.Sprintf("CHECK (%s IN (%s))", column, strings.Join(values, ", ")))
	}

	if field.IsForeignKey() && field.Relation.Target != nil {
		pk, err := field.Relation.Target.PrimaryKey()
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("REFERENCES %s (%s) ON DELETE %s",
			QuoteIdentifier(field.Relation.Target.TableName),
			QuoteIdentifier(pk.Column()),
			field.Relation.OnDelete.SQL(),
		))
	}

	return strings.Join(parts, " "), nil
}

// GenerateSchema generates CREATE TABLE statements for every resource in
// the registry, referenced tables first.
func (g *DDLGenerator) GenerateSchema(registry *schema.Registry) ([]string, error) {
	order, err := registry.DependencyOrder()
	if err != nil {
		return nil, err
	}

	statements := make([]string, 0, len(order))
	for _, name := range order {
		resource, _ := registry.Get(name)
		stmt, err := g.GenerateCreateTable(resource)
		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
	return statements, nil
}

// GenerateDropTable generates a DROP TABLE statement
func (g *DDLGenerator) GenerateDropTable(resource *schema.ResourceSchema) string {
	if g.dialect == SQLite {
		return fmt.Sprintf("DROP TABLE IF EXISTS %s;", QuoteIdentifier(resource.TableName))
	}
	return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE;", QuoteIdentifier(resource.TableName))
}
