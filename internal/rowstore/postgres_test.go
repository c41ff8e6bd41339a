package rowstore

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(sqlx.NewDb(db, "postgres")), mock
}

func TestPostgresListRows(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT cells FROM sheet_rows`).
		WithArgs(CollectionSettings).
		WillReturnRows(sqlmock.NewRows([]string{"cells"}).
			AddRow(`{salt,abc}`).
			AddRow(`{siteTitle,storybook}`))

	rows, err := store.ListRows(context.Background(), CollectionSettings)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"salt", "abc"}, rows[0])
	assert.Equal(t, []string{"siteTitle", "storybook"}, rows[1])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAppendRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO sheet_rows`).
		WithArgs(CollectionSettings, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.AppendRow(context.Background(), CollectionSettings, []string{"salt", "abc"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresWriteCellMissingRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE sheet_rows SET cells`).
		WithArgs(CollectionSettings, 7, 2, "value").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.WriteCell(context.Background(), CollectionSettings, 7, 2, "value")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 7 not found")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteRowShiftsInOneTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM sheet_rows`).
		WithArgs(CollectionStudents, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE sheet_rows SET row_index = row_index - 1`).
		WithArgs(CollectionStudents, 2).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err := store.DeleteRow(context.Background(), CollectionStudents, 2)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteRowMissingRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM sheet_rows`).
		WithArgs(CollectionStudents, 9).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.DeleteRow(context.Background(), CollectionStudents, 9)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresEnsureCollectionUnknown(t *testing.T) {
	store, _ := newMockStore(t)
	err := store.EnsureCollection(context.Background(), "not-a-collection")
	require.Error(t, err)
}
