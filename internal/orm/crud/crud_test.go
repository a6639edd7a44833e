package crud

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/autocrud/internal/orm/store"
)

func TestCreate(t *testing.T) {
	fx := loadFixtures(t)
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		`INSERT INTO "test_model" ("text", "related_id") VALUES ($1, $2) RETURNING "id", "text", "number", "is_test", "related_id"`)).
		WithArgs("hello", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "text", "number", "is_test", "related_id"}).
			AddRow(int64(7), "hello", nil, true, int64(1)))
	mock.ExpectCommit()

	rec, err := st.Create(context.Background(), fx.test, map[string]interface{}{
		"text":    "hello",
		"related": int64(1),
	})
	require.NoError(t, err)

	assert.Equal(t, store.Record{
		"id":      int64(7),
		"text":    "hello",
		"number":  nil,
		"is_test": true,
		"related": int64(1),
	}, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDefaultValues(t *testing.T) {
	fx := loadFixtures(t)
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "parent_test_model" DEFAULT VALUES RETURNING "id", "text"`)).
		WillReturnError(&pgconn.PgError{Code: "23502", ColumnName: "text"})
	mock.ExpectRollback()

	_, err := st.Create(context.Background(), fx.parent, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotNullViolation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUniqueViolation(t *testing.T) {
	fx := loadFixtures(t)
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "parent_test_model"`).
		WithArgs("dup").
		WillReturnError(&pgconn.PgError{Code: "23505", Detail: "Key (text)=(dup) already exists."})
	mock.ExpectRollback()

	_, err := st.Create(context.Background(), fx.parent, map[string]interface{}{"text": "dup"})
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.True(t, store.IsConstraintViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFind(t *testing.T) {
	fx := loadFixtures(t)
	st, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "text" FROM "parent_test_model" WHERE "id" = $1`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "text"}).AddRow(int64(1), []byte("parent")))

	rec, err := st.Find(context.Background(), fx.parent, int64(1))
	require.NoError(t, err)
	assert.Equal(t, "parent", rec["text"])

	mock.ExpectQuery(`SELECT .* FROM "parent_test_model"`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "text"}))

	_, err = st.Find(context.Background(), fx.parent, int64(2))
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindAll(t *testing.T) {
	fx := loadFixtures(t)
	st, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "text" FROM "parent_test_model" ORDER BY "id"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "text"}).
			AddRow(int64(1), "a").
			AddRow(int64(2), "b"))

	rows, err := st.FindAll(context.Background(), fx.parent)
	require.NoError(t, err)

	records, err := store.Collect(rows)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "b", records[1]["text"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackrefAndRelated(t *testing.T) {
	fx := loadFixtures(t)
	st, mock := newMockStore(t)
	ctx := context.Background()

	childs, ok := fx.test.Backref("childs")
	require.True(t, ok)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "test_id" FROM "child_test_model" WHERE "test_id" = $1 ORDER BY "id"`)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "test_id"}).AddRow(int64(10), int64(3)))

	rows, err := st.Backref(ctx, childs, int64(3))
	require.NoError(t, err)
	records, err := store.Collect(rows)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(3), records[0]["test"])

	related, _ := fx.test.Field("related")
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "text" FROM "parent_test_model" WHERE "id" = $1`)).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "text"}).AddRow(int64(5), "p"))

	rec, err := st.Related(ctx, related.Relation, int64(5))
	require.NoError(t, err)
	text, _ := rec.Value("text")
	assert.Equal(t, "p", text)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdate(t *testing.T) {
	fx := loadFixtures(t)
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(
		`UPDATE "test_model" SET "number" = $1, "is_test" = $2 WHERE "id" = $3 RETURNING "id", "text", "number", "is_test", "related_id"`)).
		WithArgs(int64(4), false, int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "text", "number", "is_test", "related_id"}).
			AddRow(int64(1), "t", int64(4), false, int64(1)))
	mock.ExpectCommit()

	rec, err := st.Update(context.Background(), fx.test, int64(1), map[string]interface{}{
		"id":      int64(99),
		"number":  int64(4),
		"is_test": false,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), rec["number"])
	assert.Equal(t, false, rec["is_test"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateNotFound(t *testing.T) {
	fx := loadFixtures(t)
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE "parent_test_model" SET`).
		WithArgs("x", int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "text"}))
	mock.ExpectRollback()

	_, err := st.Update(context.Background(), fx.parent, int64(9), map[string]interface{}{"text": "x"})
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateWithoutChangesReadsRecord(t *testing.T) {
	fx := loadFixtures(t)
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id", "text" FROM "parent_test_model" WHERE "id" = $1`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "text"}).AddRow(int64(1), "same"))
	mock.ExpectCommit()

	rec, err := st.Update(context.Background(), fx.parent, int64(1), map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, "same", rec["text"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	fx := loadFixtures(t)
	st, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "parent_test_model" WHERE "id" = $1`)).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, st.Delete(ctx, fx.parent, int64(1)))

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "parent_test_model"`).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	assert.True(t, IsNotFound(st.Delete(ctx, fx.parent, int64(2))))

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "parent_test_model"`).
		WithArgs(int64(3)).
		WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectRollback()
	assert.True(t, IsForeignKeyViolation(st.Delete(ctx, fx.parent, int64(3))))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAutoMigrate(t *testing.T) {
	fx := loadFixtures(t)
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "parent_test_model"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "test_model"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "child_test_model"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, st.AutoMigrate(context.Background(), fx.registry))
	assert.NoError(t, mock.ExpectationsWereMet())
}
