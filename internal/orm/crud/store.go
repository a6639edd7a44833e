// Package crud implements the record store over database/sql. Postgres is
// reached through pgx ("pgx") or lib/pq ("postgres"), sqlite through
// go-sqlite3 ("sqlite3").
package crud

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/conduit-lang/autocrud/internal/orm/codegen"
	"github.com/conduit-lang/autocrud/internal/orm/schema"
	"github.com/conduit-lang/autocrud/internal/orm/store"
)

// Store is a store.Store backed by a SQL database
type Store struct {
	db      *sql.DB
	dialect codegen.Dialect
}

var _ store.Store = (*Store)(nil)

// NewStore creates a store over an open database
func NewStore(db *sql.DB, dialect codegen.Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Open opens a database with a registered driver and checks the connection.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	dialect, err := codegen.DialectForDriver(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return NewStore(db, dialect), nil
}

// DB returns the database connection
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the SQL dialect
func (s *Store) Dialect() codegen.Dialect {
	return s.dialect
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// AutoMigrate creates the tables of every resource, referenced tables first.
func (s *Store) AutoMigrate(ctx context.Context, registry *schema.Registry) error {
	statements, err := codegen.NewDDLGenerator(s.dialect).GenerateSchema(registry)
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create table: %w", err)
			}
		}
		return nil
	})
}

// withTx runs fn in a transaction, committing only when fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// selectList returns the quoted columns of def in declaration order.
func selectList(def *schema.ResourceSchema) string {
	cols := make([]string, len(def.Fields))
	for i, field := range def.Fields {
		cols[i] = codegen.QuoteIdentifier(field.Column())
	}
	return strings.Join(cols, ", ")
}
