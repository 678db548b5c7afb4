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

var userRowColumns = []string{
	"id", "username", "first_name", "last_name", "email", "password", "authservice",
	"is_staff", "is_active", "is_superuser", "last_login", "date_joined",
}

func TestSplitGecos(t *testing.T) {
	cases := []struct {
		login, gecos string
		first, last  string
	}{
		{"jdoe", "Doe, John", "John", "Doe"},
		{"jdoe", "Doe,John,Room 12", "John,Room 12", "Doe"},
		{"jdoe", "John Doe", "John", "Doe"},
		{"jdoe", "John  van Doe", "John", "van Doe"},
		{"jdoe", "Doe", "jdoe", "Doe"},
		{"jdoe", "", "jdoe", ""},
		{"jdoe", ",leading comma", ",leading", "comma"},
	}
	for _, tc := range cases {
		t.Run(tc.gecos, func(t *testing.T) {
			first, last := splitGecos(tc.login, tc.gecos)
			assert.Equal(t, tc.first, first)
			assert.Equal(t, tc.last, last)
		})
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := hashPassword("secret")
	require.NoError(t, err)

	ok, err := checkPassword(hash, "secret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = checkPassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = checkPassword("", "secret")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = hashPassword("")
	assert.True(t, labdb.IsValidation(err))
}

func TestCreateUserFromPasswd(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.MatchExpectationsInOrder(true)

	repo := NewUserRepository(mock, "")
	repo.withClock(fixedClock)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM auth_group WHERE name = $1")).
		WithArgs("tester").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name"}).AddRow(int64(3), "tester"))
	mock.ExpectQuery(`^INSERT INTO auth_user `).
		WithArgs("jdoe", "John", "Doe", "", pgxmock.AnyArg(), "system", true, true, false, &fixedNow, &fixedNow).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO auth_user_groups (user_id, group_id) VALUES ($1, $2)")).
		WithArgs(int64(10), int64(3)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	user, err := repo.CreateUserFromPasswd(ctx, labdb.PasswdEntry{Name: "jdoe", Gecos: "Doe, John"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), user.ID)
	assert.Equal(t, "John Doe", user.FullName())
	assert.Equal(t, labdb.AuthServiceSystem, user.AuthService)
	require.Len(t, user.Groups, 1)
	assert.Equal(t, "tester", user.Groups[0].Name)

	ok, err := checkPassword(user.PasswordHash, "jdoe123")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserFromPasswdMissingGroup(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepository(mock, "operators")

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM auth_group WHERE name = $1")).
		WithArgs("operators").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err = repo.CreateUserFromPasswd(ctx, labdb.PasswdEntry{Name: "jdoe", Gecos: "John Doe"})
	require.Error(t, err)
	assert.True(t, labdb.IsNotFound(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserValidation(t *testing.T) {
	repo := NewUserRepository(nil, "")

	_, err := repo.CreateUser(context.Background(), &labdb.User{Username: "  "}, "pw")
	assert.True(t, labdb.IsValidation(err))

	_, err = repo.CreateUser(context.Background(), &labdb.User{Username: "bob", AuthService: "kerberos"}, "pw")
	assert.True(t, labdb.IsValidation(err))
}

func TestCreateUserConflict(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewUserRepository(mock, "")
	repo.withClock(fixedClock)

	mock.ExpectQuery(`^INSERT INTO auth_user `).
		WithArgs("bob", "", "", "", pgxmock.AnyArg(), labdb.AuthServiceLocal,
			false, false, false, (*time.Time)(nil), &fixedNow).
		WillReturnError(&pgconnUniqueViolation)

	_, err = repo.CreateUser(ctx, &labdb.User{Username: "bob"}, "pw")
	require.Error(t, err)
	assert.True(t, labdb.IsConflict(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

func userRow(id int64, username, hash string, active bool, lastLogin *time.Time) *pgxmock.Rows {
	return pgxmock.NewRows(userRowColumns).AddRow(
		id, username, "Alice", "Smith", "alice@example.com", hash, "local",
		true, active, false, lastLogin, &fixedNow,
	)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	hash, err := hashPassword("s3cret")
	require.NoError(t, err)

	selectByName := regexp.QuoteMeta("SELECT " + userColumns + " FROM auth_user WHERE username = $1")

	t.Run("success updates last login", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()
		mock.MatchExpectationsInOrder(true)

		repo := NewUserRepository(mock, "")
		repo.withClock(fixedClock)

		mock.ExpectQuery(selectByName).WithArgs("alice").WillReturnRows(userRow(1, "alice", hash, true, nil))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE auth_user SET last_login = $1 WHERE id = $2")).
			WithArgs(fixedNow, int64(1)).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		user, err := repo.Authenticate(ctx, "alice", "s3cret")
		require.NoError(t, err)
		require.NotNil(t, user.LastLogin)
		assert.Equal(t, fixedNow, *user.LastLogin)
		assert.Equal(t, "Alice Smith", user.FullName())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong password", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewUserRepository(mock, "")
		mock.ExpectQuery(selectByName).WithArgs("alice").WillReturnRows(userRow(1, "alice", hash, true, nil))

		_, err = repo.Authenticate(ctx, "alice", "guess")
		require.Error(t, err)
		assert.True(t, labdb.IsUnauthorized(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inactive user", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewUserRepository(mock, "")
		mock.ExpectQuery(selectByName).WithArgs("alice").WillReturnRows(userRow(1, "alice", hash, false, nil))

		_, err = repo.Authenticate(ctx, "alice", "s3cret")
		require.Error(t, err)
		var le *labdb.LabError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, labdb.ErrCodeInactiveUser, le.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewUserRepository(mock, "")
		mock.ExpectQuery(selectByName).WithArgs("nobody").WillReturnError(pgx.ErrNoRows)

		_, err = repo.Authenticate(ctx, "nobody", "x")
		require.Error(t, err)
		assert.True(t, labdb.IsUnauthorized(err))
	})
}

func TestGetUserNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM auth_user WHERE id = \$1`).WithArgs(int64(99)).WillReturnError(pgx.ErrNoRows)

	_, err = NewUserRepository(mock, "").GetUser(context.Background(), 99)
	assert.True(t, labdb.IsNotFound(err))
}

func TestPopMessagesSortsByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`^DELETE FROM auth_message WHERE user_id = \$1 RETURNING`).
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "message"}).
			AddRow(int64(8), int64(4), "second").
			AddRow(int64(2), int64(4), "first"))

	msgs, err := NewUserRepository(mock, "").PopMessages(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].String())
	assert.Equal(t, "second", msgs[1].String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserPermissions(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM auth_permission p`).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "codename"}).
			AddRow(int64(1), "Can add equipment", "add_equipment").
			AddRow(int64(2), "Can run tests", "run_tests"))

	perms, err := NewUserRepository(mock, "").UserPermissions(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, perms, 2)
	assert.Equal(t, "run_tests", perms[1].Codename)
}

func TestSetPasswordMissingUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`^UPDATE auth_user SET password`).
		WithArgs(pgxmock.AnyArg(), int64(5)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = NewUserRepository(mock, "").SetPassword(context.Background(), 5, "newpass")
	assert.True(t, labdb.IsNotFound(err))
}
