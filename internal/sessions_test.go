package internal

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/labdb"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionRepo(t *testing.T) (*SessionRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	repo := NewSessionRepository(mock, time.Hour)
	repo.withClock(fixedClock)
	repo.newKey = func() string { return "key-1" }
	return repo, mock
}

func TestCreateSession(t *testing.T) {
	repo, mock := newTestSessionRepo(t)
	userID := int64(7)
	expires := fixedNow.Add(time.Hour)

	mock.ExpectExec(`^INSERT INTO client_session`).
		WithArgs("key-1", []byte("{}"), &userID, expires).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s, err := repo.CreateSession(context.Background(), &userID)
	require.NoError(t, err)
	assert.Equal(t, "key-1", s.Key)
	assert.Equal(t, expires, s.ExpireDate)
	assert.Empty(t, s.Data)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSession(t *testing.T) {
	selectSession := regexp.QuoteMeta("SELECT session_data, user_id, expire_date FROM client_session WHERE session_key = $1")
	cols := []string{"session_data", "user_id", "expire_date"}
	userID := int64(7)

	t.Run("live", func(t *testing.T) {
		repo, mock := newTestSessionRepo(t)
		mock.ExpectQuery(selectSession).WithArgs("key-1").
			WillReturnRows(pgxmock.NewRows(cols).AddRow([]byte(`{"country":"US","count":2}`), &userID, fixedNow.Add(time.Minute)))

		s, err := repo.GetSession(context.Background(), "key-1")
		require.NoError(t, err)
		v, ok := s.Get("country")
		require.True(t, ok)
		assert.Equal(t, "US", v)
		assert.Equal(t, float64(2), s.Data["count"])
		require.NotNil(t, s.UserID)
		assert.Equal(t, userID, *s.UserID)
	})

	t.Run("expired", func(t *testing.T) {
		repo, mock := newTestSessionRepo(t)
		mock.ExpectQuery(selectSession).WithArgs("key-1").
			WillReturnRows(pgxmock.NewRows(cols).AddRow([]byte(`{}`), &userID, fixedNow))

		_, err := repo.GetSession(context.Background(), "key-1")
		assert.True(t, labdb.IsNotFound(err))
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock := newTestSessionRepo(t)
		mock.ExpectQuery(selectSession).WithArgs("nope").WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetSession(context.Background(), "nope")
		assert.True(t, labdb.IsNotFound(err))
	})
}

func TestSaveSession(t *testing.T) {
	repo, mock := newTestSessionRepo(t)
	s := labdb.NewWebSession("key-1", fixedNow.Add(time.Hour))
	s.Set("lang", "en")
	s.Set("tmp", 1)
	s.Delete("tmp")

	mock.ExpectExec(`^UPDATE client_session SET session_data`).
		WithArgs([]byte(`{"lang":"en"}`), (*int64)(nil), s.ExpireDate, "key-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.SaveSession(context.Background(), s))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSessionMissing(t *testing.T) {
	repo, mock := newTestSessionRepo(t)
	s := labdb.NewWebSession("gone", fixedNow.Add(time.Hour))

	mock.ExpectExec(`^UPDATE client_session`).
		WithArgs(pgxmock.AnyArg(), (*int64)(nil), s.ExpireDate, "gone").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.SaveSession(context.Background(), s)
	assert.True(t, labdb.IsNotFound(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteExpiredSessions(t *testing.T) {
	repo, mock := newTestSessionRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM client_session WHERE expire_date <= $1")).
		WithArgs(fixedNow).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := repo.DeleteExpiredSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
