package database

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestEnsureSeedUsersHashesWorkingCredentials(t *testing.T) {
	mockPool, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mockPool.Close()

	var storedHash string
	hashFn := func(password string) (string, error) {
		raw, hashErr := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		storedHash = string(raw)
		return storedHash, hashErr
	}

	mockPool.ExpectQuery(`SELECT EXISTS`).WithArgs("admin").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mockPool.ExpectExec(`INSERT INTO users`).
		WithArgs("admin", "admin@userdir.local", pgxmock.AnyArg(), "admin").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockPool.ExpectExec(`INSERT INTO user_profiles`).WithArgs("admin").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	seeds := []SeedUser{
		{Username: "admin", Email: "admin@userdir.local", Password: "admin_password_123", Role: "admin"},
	}
	err = EnsureSeedUsers(context.Background(), mockPool, hashFn, seeds, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, mockPool.ExpectationsWereMet())

	// The hash handed to the INSERT must verify against the seed password.
	require.NotEmpty(t, storedHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(storedHash), []byte("admin_password_123")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(storedHash), []byte("some_other_password")))
}

func TestEnsureSeedUsersSkipsExistingAccounts(t *testing.T) {
	mockPool, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer mockPool.Close()

	hashCalls := 0
	hashFn := func(password string) (string, error) {
		hashCalls++
		return "unused", nil
	}

	mockPool.ExpectQuery(`SELECT EXISTS`).WithArgs("admin").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	seeds := []SeedUser{
		{Username: "admin", Email: "admin@userdir.local", Password: "admin_password_123", Role: "admin"},
	}
	err = EnsureSeedUsers(context.Background(), mockPool, hashFn, seeds, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, mockPool.ExpectationsWereMet())
	assert.Zero(t, hashCalls, "existing accounts must not be rewritten")
}
