package crud

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/conduit-lang/autocrud/internal/orm/codegen"
	"github.com/conduit-lang/autocrud/internal/orm/derive"
	"github.com/conduit-lang/autocrud/internal/orm/schema"
	"github.com/conduit-lang/autocrud/internal/orm/store"
)

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Find retrieves a record by its primary key
func (s *Store) Find(ctx context.Context, def *schema.ResourceSchema, key interface{}) (store.Record, error) {
	return s.findByKey(ctx, s.db, def, key)
}

func (s *Store) findByKey(ctx context.Context, db queryRower, def *schema.ResourceSchema, key interface{}) (store.Record, error) {
	pk, err := def.PrimaryKey()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		selectList(def),
		codegen.QuoteIdentifier(def.TableName),
		codegen.QuoteIdentifier(pk.Column()),
		s.dialect.Placeholder(1),
	)

	rec, err := scanRecord(db.QueryRowContext(ctx, query, key), def)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s %v: %w", def.Name, key, ConvertDBError(err))
	}
	return rec, nil
}

// FindAll returns every record ordered by primary key
func (s *Store) FindAll(ctx context.Context, def *schema.ResourceSchema) (derive.Rows, error) {
	pk, err := def.PrimaryKey()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		selectList(def),
		codegen.QuoteIdentifier(def.TableName),
		codegen.QuoteIdentifier(pk.Column()),
	)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", def.Name, ConvertDBError(err))
	}
	return newRows(rows, def), nil
}

// Related fetches the record referenced through a belongs_to relation.
func (s *Store) Related(ctx context.Context, rel *schema.Relationship, key interface{}) (derive.Record, error) {
	if rel.Target == nil {
		return nil, fmt.Errorf("relation %s is not linked", rel.FieldName)
	}
	return s.Find(ctx, rel.Target, key)
}

// Backref queries the records of rel.Target whose foreign key equals key.
func (s *Store) Backref(ctx context.Context, rel *schema.Relationship, key interface{}) (derive.Rows, error) {
	def := rel.Target
	if def == nil {
		return nil, fmt.Errorf("back-relation %s is not linked", rel.FieldName)
	}
	pk, err := def.PrimaryKey()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s ORDER BY %s",
		selectList(def),
		codegen.QuoteIdentifier(def.TableName),
		codegen.QuoteIdentifier(rel.ForeignKey),
		s.dialect.Placeholder(1),
		codegen.QuoteIdentifier(pk.Column()),
	)

	rows, err := s.db.QueryContext(ctx, query, key)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s.%s: %w", def.Name, rel.Inverse, ConvertDBError(err))
	}
	return newRows(rows, def), nil
}
