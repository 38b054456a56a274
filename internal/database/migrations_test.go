package database

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunMigrations_Skipped(t *testing.T) {
	t.Setenv("RUN_MIGRATIONS", "false")

	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	// No Exec expectations: nothing may run.
	err = RunMigrations(context.Background(), mockPool, zap.NewNop())
	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestRunMigrations_AppliesAllSteps(t *testing.T) {
	t.Setenv("RUN_MIGRATIONS", "true")

	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectExec("CREATE EXTENSION").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mockPool.ExpectExec("CREATE INDEX").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	err = RunMigrations(context.Background(), mockPool, zap.NewNop())
	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestRunMigrations_FailsFast(t *testing.T) {
	t.Setenv("RUN_MIGRATIONS", "true")

	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectExec("CREATE EXTENSION").WillReturnError(errors.New("permission denied"))

	err = RunMigrations(context.Background(), mockPool, zap.NewNop())
	assert.Error(t, err)
}

func TestConnectDB_MissingURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := ConnectDB(zap.NewNop())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}
