package codegen

import (
	"testing"

	"github.com/conduit-lang/autocrud/internal/orm/schema"
)

func intPtr(i int) *int { return &i }

func TestTypeMapper_MapType(t *testing.T) {
	tests := []struct {
		name     string
		typeSpec *schema.TypeSpec
		postgres string
		sqlite   string
	}{
		{"string", &schema.TypeSpec{BaseType: schema.TypeString}, "VARCHAR(255)", "TEXT"},
		{"string with length", &schema.TypeSpec{BaseType: schema.TypeString, Length: intPtr(50)}, "VARCHAR(50)", "VARCHAR(50)"},
		{"text", &schema.TypeSpec{BaseType: schema.TypeText}, "TEXT", "TEXT"},
		{"int", &schema.TypeSpec{BaseType: schema.TypeInt}, "INTEGER", "INTEGER"},
		{"bigint", &schema.TypeSpec{BaseType: schema.TypeBigInt}, "BIGINT", "INTEGER"},
		{"float", &schema.TypeSpec{BaseType: schema.TypeFloat}, "DOUBLE PRECISION", "REAL"},
		{"decimal", &schema.TypeSpec{BaseType: schema.TypeDecimal, Precision: intPtr(10), Scale: intPtr(2)}, "NUMERIC(10,2)", "NUMERIC"},
		{"bool", &schema.TypeSpec{BaseType: schema.TypeBool}, "BOOLEAN", "BOOLEAN"},
		{"timestamp", &schema.TypeSpec{BaseType: schema.TypeTimestamp}, "TIMESTAMP WITH TIME ZONE", "DATETIME"},
		{"date", &schema.TypeSpec{BaseType: schema.TypeDate}, "DATE", "TEXT"},
		{"uuid", &schema.TypeSpec{BaseType: schema.TypeUUID}, "UUID", "TEXT"},
		{"json", &schema.TypeSpec{BaseType: schema.TypeJSON}, "JSONB", "TEXT"},
	}

	pg := NewTypeMapper(Postgres)
	lite := NewTypeMapper(SQLite)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pg.MapType(tt.typeSpec)
			if err != nil {
				t.Fatalf("postgres MapType() error = %v", err)
			}
			if got != tt.postgres {
				t.Errorf("postgres MapType() = %v, want %v", got, tt.postgres)
			}

			got, err = lite.MapType(tt.typeSpec)
			if err != nil {
				t.Fatalf("sqlite MapType() error = %v", err)
			}
			if got != tt.sqlite {
				t.Errorf("sqlite MapType() = %v, want %v", got, tt.sqlite)
			}
		})
	}

	if _, err := pg.MapType(nil); err == nil {
		t.Error("MapType(nil) should fail")
	}
	if _, err := pg.MapType(&schema.TypeSpec{}); err == nil {
		t.Error("MapType(unknown) should fail")
	}
}

func TestTypeMapper_MapDefault(t *testing.T) {
	tests := []struct {
		name     string
		typeSpec *schema.TypeSpec
		want     string
		wantErr  bool
	}{
		{"none", &schema.TypeSpec{BaseType: schema.TypeInt}, "", false},
		{"null", &schema.TypeSpec{BaseType: schema.TypeInt, Nullable: true, HasDefault: true}, "NULL", false},
		{"int", &schema.TypeSpec{BaseType: schema.TypeInt, HasDefault: true, Default: 3}, "3", false},
		{"float", &schema.TypeSpec{BaseType: schema.TypeFloat, HasDefault: true, Default: 1.5}, "1.5", false},
		{"quoted string", &schema.TypeSpec{BaseType: schema.TypeText, HasDefault: true, Default: "it's"}, "'it''s'", false},
		{"now", &schema.TypeSpec{BaseType: schema.TypeTimestamp, HasDefault: true, Default: "now()"}, "CURRENT_TIMESTAMP", false},
		{"wrong type", &schema.TypeSpec{BaseType: schema.TypeInt, HasDefault: true, Default: "x"}, "", true},
	}

	tm := NewTypeMapper(Postgres)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tm.MapDefault(tt.typeSpec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MapDefault() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("MapDefault() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDialect(t *testing.T) {
	if got := Postgres.Placeholder(3); got != "$3" {
		t.Errorf("Postgres.Placeholder(3) = %s", got)
	}
	if got := SQLite.Placeholder(3); got != "?" {
		t.Errorf("SQLite.Placeholder(3) = %s", got)
	}

	for driver, want := range map[string]Dialect{"pgx": Postgres, "postgres": Postgres, "sqlite3": SQLite} {
		got, err := DialectForDriver(driver)
		if err != nil || got != want {
			t.Errorf("DialectForDriver(%s) = %v, %v", driver, got, err)
		}
	}
	if _, err := DialectForDriver("mysql"); err == nil {
		t.Error("DialectForDriver(mysql) should fail")
	}

	if got := QuoteIdentifier(`we"ird`); got != `"we""ird"` {
		t.Errorf("QuoteIdentifier() = %s", got)
	}
}
