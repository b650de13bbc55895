package api

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockConn(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestRunMigrations_MigratorErrorKeepsCause(t *testing.T) {
	conn, mock := newMockConn(t)
	mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS metadata").
		WillReturnError(errors.New("permission denied for database oneflow"))

	err := runMigrations(conn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to create migrator")
	assert.Contains(t, err.Error(), "permission denied for database oneflow")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_UpErrorKeepsCause(t *testing.T) {
	conn, mock := newMockConn(t)
	cause := errors.New("connection reset by peer")
	mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS metadata").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS metadata.schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT version FROM metadata.schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectBegin().WillReturnError(cause)

	err := runMigrations(conn)
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "unable to run migrations")
	assert.NoError(t, mock.ExpectationsWereMet())
}
