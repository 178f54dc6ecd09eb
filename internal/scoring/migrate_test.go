package scoring

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateAppliesPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("SELECT pg_advisory_lock").
		WithArgs(advisoryLockID).
		WillReturnResult(pgxmock.NewResult("EXEC", 0))
	mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS tax_health").
		WillReturnResult(pgxmock.NewResult("EXEC", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS tax_health.schema_migrations").
		WillReturnResult(pgxmock.NewResult("EXEC", 0))

	// 0001 already applied; 0002 and 0003 are pending.
	mock.ExpectQuery("SELECT filename FROM tax_health.schema_migrations").
		WillReturnRows(pgxmock.NewRows([]string{"filename"}).
			AddRow("0001_core_tables.sql"))

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS tax_health.health_scores").
		WillReturnResult(pgxmock.NewResult("EXEC", 0))
	mock.ExpectExec("INSERT INTO tax_health.schema_migrations").
		WithArgs("0002_score_tables.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS tax_health.readiness_answers").
		WillReturnResult(pgxmock.NewResult("EXEC", 0))
	mock.ExpectExec("INSERT INTO tax_health.schema_migrations").
		WithArgs("0003_readiness.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	mock.ExpectExec("SELECT pg_advisory_unlock").
		WithArgs(advisoryLockID).
		WillReturnResult(pgxmock.NewResult("EXEC", 0))

	require.NoError(t, Migrate(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateAllApplied(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("SELECT pg_advisory_lock").
		WithArgs(advisoryLockID).
		WillReturnResult(pgxmock.NewResult("EXEC", 0))
	mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS tax_health").
		WillReturnResult(pgxmock.NewResult("EXEC", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS tax_health.schema_migrations").
		WillReturnResult(pgxmock.NewResult("EXEC", 0))
	mock.ExpectQuery("SELECT filename FROM tax_health.schema_migrations").
		WillReturnRows(pgxmock.NewRows([]string{"filename"}).
			AddRow("0001_core_tables.sql").
			AddRow("0002_score_tables.sql").
			AddRow("0003_readiness.sql"))
	mock.ExpectExec("SELECT pg_advisory_unlock").
		WithArgs(advisoryLockID).
		WillReturnResult(pgxmock.NewResult("EXEC", 0))

	require.NoError(t, Migrate(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateLockFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("SELECT pg_advisory_lock").
		WithArgs(advisoryLockID).
		WillReturnError(assert.AnError)

	err = Migrate(context.Background(), mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "advisory lock")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureMigrationTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS tax_health").
		WillReturnResult(pgxmock.NewResult("EXEC", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS tax_health.schema_migrations").
		WillReturnResult(pgxmock.NewResult("EXEC", 0))

	require.NoError(t, ensureMigrationTable(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppliedMigrations(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT filename FROM tax_health.schema_migrations").
		WillReturnRows(pgxmock.NewRows([]string{"filename"}).
			AddRow("0001_core_tables.sql").
			AddRow("0002_score_tables.sql"))

	applied, err := appliedMigrations(context.Background(), mock)
	require.NoError(t, err)
	assert.True(t, applied["0001_core_tables.sql"])
	assert.True(t, applied["0002_score_tables.sql"])
	assert.False(t, applied["0003_readiness.sql"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
