package crud

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/conduit-lang/autocrud/internal/orm/codegen"
	"github.com/conduit-lang/autocrud/internal/orm/schema"
	"github.com/conduit-lang/autocrud/internal/orm/store"
)

// Create inserts a record and returns it as stored. Absent fields take the
// column default.
func (s *Store) Create(ctx context.Context, def *schema.ResourceSchema, values map[string]interface{}) (store.Record, error) {
	var result store.Record

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rec, err := s.insertRecord(ctx, tx, def, values)
		if err != nil {
			return err
		}
		result = rec
		return nil
	})
	return result, err
}

func (s *Store) insertRecord(ctx context.Context, tx *sql.Tx, def *schema.ResourceSchema, values map[string]interface{}) (store.Record, error) {
	var columns []string
	var args []interface{}

	for _, field := range def.Fields {
		value, ok := values[field.Name]
		if !ok && field.Primary && field.Auto && field.Type.BaseType == schema.TypeUUID {
			// Generated here so sqlite gets one too.
			value, ok = uuid.NewString(), true
		}
		if !ok {
			continue
		}
		arg, err := bindValue(field, value)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", def.Name, field.Name, err)
		}
		columns = append(columns, codegen.QuoteIdentifier(field.Column()))
		args = append(args, arg)
	}

	var query string
	if len(columns) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s",
			codegen.QuoteIdentifier(def.TableName),
			selectList(def),
		)
	} else {
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			codegen.QuoteIdentifier(def.TableName),
			strings.Join(columns, ", "),
			strings.Join(s.dialect.Placeholders(1, len(columns)), ", "),
			selectList(def),
		)
	}

	rec, err := scanRecord(tx.QueryRowContext(ctx, query, args...), def)
	if err != nil {
		return nil, fmt.Errorf("failed to insert %s: %w", def.Name, ConvertDBError(err))
	}
	return rec, nil
}

// Update sets the supplied fields of the record with the given key and
// returns the record as stored. The primary key is never updated.
func (s *Store) Update(ctx context.Context, def *schema.ResourceSchema, key interface{}, values map[string]interface{}) (store.Record, error) {
	var result store.Record

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rec, err := s.updateRecord(ctx, tx, def, key, values)
		if err != nil {
			return err
		}
		result = rec
		return nil
	})
	return result, err
}

func (s *Store) updateRecord(ctx context.Context, tx *sql.Tx, def *schema.ResourceSchema, key interface{}, values map[string]interface{}) (store.Record, error) {
	pk, err := def.PrimaryKey()
	if err != nil {
		return nil, err
	}

	var sets []string
	var args []interface{}
	for _, field := range def.Fields {
		value, ok := values[field.Name]
		if !ok || field.Primary {
			continue
		}
		arg, err := bindValue(field, value)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", def.Name, field.Name, err)
		}
		args = append(args, arg)
		sets = append(sets, fmt.Sprintf("%s = %s",
			codegen.QuoteIdentifier(field.Column()),
			s.dialect.Placeholder(len(args)),
		))
	}

	if len(sets) == 0 {
		return s.findByKey(ctx, tx, def, key)
	}

	args = append(args, key)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s RETURNING %s",
		codegen.QuoteIdentifier(def.TableName),
		strings.Join(sets, ", "),
		codegen.QuoteIdentifier(pk.Column()),
		s.dialect.Placeholder(len(args)),
		selectList(def),
	)

	rec, err := scanRecord(tx.QueryRowContext(ctx, query, args...), def)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s %v: %w", def.Name, key, ConvertDBError(err))
	}
	return rec, nil
}

// Delete deletes a record by its primary key
func (s *Store) Delete(ctx context.Context, def *schema.ResourceSchema, key interface{}) error {
	pk, err := def.PrimaryKey()
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		query := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
			codegen.QuoteIdentifier(def.TableName),
			codegen.QuoteIdentifier(pk.Column()),
			s.dialect.Placeholder(1),
		)

		result, err := tx.ExecContext(ctx, query, key)
		if err != nil {
			return fmt.Errorf("failed to delete %s %v: %w", def.Name, key, ConvertDBError(err))
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%s %v: %w", def.Name, key, ErrNotFound)
		}
		return nil
	})
}
