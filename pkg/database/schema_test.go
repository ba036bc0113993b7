package database

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSchemaExecutesDDL(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS classes")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, EnsureSchema(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchemaWrapsError(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("permission denied")
	mock.ExpectExec("CREATE TABLE").WillReturnError(boom)

	err := EnsureSchema(context.Background(), db)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "ensure schema")
}

func TestSchemaDeclaresCellUniqueness(t *testing.T) {
	ddl := Schema()
	assert.Contains(t, ddl, "UNIQUE (class_id, period_id, day_of_week)")
	assert.Contains(t, ddl, "UNIQUE (school_id, sort_order)")
	assert.Contains(t, ddl, "UNIQUE (class_id, subject_id)")
}
