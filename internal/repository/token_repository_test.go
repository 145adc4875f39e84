package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func newTokenMock(t *testing.T) (sqlmock.Sqlmock, *TokenRepo) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return mock, NewTokenRepo(db)
}

func TestValidateRefreshReturnsLiveTokenOwner(t *testing.T) {
	mock, repo := newTokenMock(t)
	mock.ExpectQuery(`SELECT user_id FROM refresh_tokens\s+WHERE token_hash = \? AND revoked_at IS NULL AND expires_at > UTC_TIMESTAMP\(\)`).
		WithArgs("abc123").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(7))

	userID, err := repo.ValidateRefresh(context.Background(), "abc123")
	require.NoError(t, err)
	require.Equal(t, uint64(7), userID)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Revoked and expired tokens never match the WHERE clause, so they are
// indistinguishable from tokens that never existed.
func TestValidateRefreshRejectsDeadTokens(t *testing.T) {
	mock, repo := newTokenMock(t)
	mock.ExpectQuery(`SELECT user_id FROM refresh_tokens`).
		WithArgs("dead").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	_, err := repo.ValidateRefresh(context.Background(), "dead")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreRefreshNormalizesExpiryToUTC(t *testing.T) {
	mock, repo := newTokenMock(t)
	loc := time.FixedZone("ICT", 7*3600)
	exp := time.Date(2025, 6, 1, 19, 0, 0, 0, loc)

	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(uint64(7), "abc123", exp.UTC()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.StoreRefresh(context.Background(), 7, "abc123", exp))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeAllForUserStampsOnlyActiveRows(t *testing.T) {
	mock, repo := newTokenMock(t)
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP\(\) WHERE user_id = \? AND revoked_at IS NULL`).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.RevokeAllForUser(context.Background(), 7))
	require.NoError(t, mock.ExpectationsWereMet())
}
