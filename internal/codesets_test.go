package internal

import (
	"context"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/labdb"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniqueCodes(t *testing.T) {
	assert.Equal(t, []string{"DE", "FR", "US"}, uniqueCodes([]string{"US", " FR", "DE", "US", ""}))
	assert.Empty(t, uniqueCodes(nil))
}

func TestGetCountrySetWithMembers(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.MatchExpectationsInOrder(true)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name FROM "country_sets" WHERE id = $1`)).
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name"}).AddRow(int64(5), "europe"))
	mock.ExpectQuery(`FROM "country_codes" c\s+JOIN "country_sets_countries" j`).
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "isocode"}).
			AddRow(int64(1), "France", "FR").
			AddRow(int64(2), "Germany", "DE"))

	set, err := NewCountryRepository(mock).GetCountrySet(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "europe", set.Name)
	require.Len(t, set.Countries, 2)
	assert.Equal(t, "DE", set.Countries[1].ISOCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCountrySetMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM "country_sets" WHERE name = \$1`).
		WithArgs("asia").
		WillReturnError(pgx.ErrNoRows)

	_, err = NewCountryRepository(mock).GetCountrySetByName(context.Background(), "asia")
	assert.True(t, labdb.IsNotFound(err))
}

func TestSetCountrySetMembers(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.MatchExpectationsInOrder(true)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM "country_sets" WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(5)))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "country_sets_countries" WHERE set_id = $1`)).
		WithArgs(int64(5)).
		WillReturnResult(pgxmock.NewResult("DELETE", 4))
	mock.ExpectExec(`^INSERT INTO "country_sets_countries" \(set_id, item_id\) SELECT`).
		WithArgs(int64(5), []string{"DE", "FR"}).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectRollback()

	err = NewCountryRepository(mock).SetCountrySetMembers(context.Background(), 5, []string{"FR", "DE", "FR"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetLanguageSetMembersUnknownCode(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.MatchExpectationsInOrder(true)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM "language_sets"`).
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectExec(`^DELETE FROM "language_sets_languages"`).
		WithArgs(int64(2)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`^INSERT INTO "language_sets_languages"`).
		WithArgs(int64(2), []string{"en", "xx"}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectRollback()

	err = NewLanguageRepository(mock).SetLanguageSetMembers(context.Background(), 2, []string{"en", "xx"})
	require.Error(t, err)
	assert.True(t, labdb.IsValidation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddCountryToSetUnknownCountry(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, name, isocode FROM "country_codes" WHERE isocode = \$1`).
		WithArgs("ZZ").
		WillReturnError(pgx.ErrNoRows)

	err = NewCountryRepository(mock).AddCountryToSet(context.Background(), 1, "ZZ")
	assert.True(t, labdb.IsNotFound(err))
}

func TestAddLanguageToSet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.MatchExpectationsInOrder(true)

	mock.ExpectQuery(`FROM "language_codes" WHERE isocode = \$1`).
		WithArgs("en").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "isocode"}).AddRow(int64(9), "English", "en"))
	mock.ExpectExec(`^INSERT INTO "language_sets_languages" \(set_id, item_id\) VALUES \(\$1, \$2\) ON CONFLICT DO NOTHING`).
		WithArgs(int64(3), int64(9)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, NewLanguageRepository(mock).AddLanguageToSet(context.Background(), 3, "en"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveCountryFromSetNotMember(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`^DELETE FROM "country_sets_countries" WHERE set_id = \$1`).
		WithArgs(int64(1), "US").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err = NewCountryRepository(mock).RemoveCountryFromSet(context.Background(), 1, "US")
	assert.True(t, labdb.IsNotFound(err))
}

func TestCreateCountrySetConflict(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`^INSERT INTO "country_sets" \(name\)`).
		WithArgs("europe").
		WillReturnError(&pgconnUniqueViolation)

	_, err = NewCountryRepository(mock).CreateCountrySet(context.Background(), " europe ")
	assert.True(t, labdb.IsConflict(err))

	_, err = NewCountryRepository(mock).CreateCountrySet(context.Background(), "  ")
	assert.True(t, labdb.IsValidation(err))
}

func TestGetLanguageSetByName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.MatchExpectationsInOrder(true)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name FROM "language_sets" WHERE name = $1`)).
		WithArgs("nordic").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name"}).AddRow(int64(4), "nordic"))
	mock.ExpectQuery(`FROM "language_codes" c\s+JOIN "language_sets_languages" j`).
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "isocode"}).
			AddRow(int64(7), "Danish", "da").
			AddRow(int64(8), "Swedish", "sv"))

	set, err := NewLanguageRepository(mock).GetLanguageSetByName(context.Background(), "nordic")
	require.NoError(t, err)
	assert.Equal(t, int64(4), set.ID)
	require.Len(t, set.Languages, 2)
	assert.Equal(t, "sv", set.Languages[1].ISOCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRenameLanguageSet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.MatchExpectationsInOrder(true)
	repo := NewLanguageRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "language_sets" SET name = $1 WHERE id = $2`)).
		WithArgs("scandinavian", int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "language_sets" SET name = $1 WHERE id = $2`)).
		WithArgs("baltic", int64(99)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.RenameLanguageSet(context.Background(), 4, " scandinavian "))
	assert.True(t, labdb.IsNotFound(repo.RenameLanguageSet(context.Background(), 99, "baltic")))
	assert.True(t, labdb.IsValidation(repo.RenameLanguageSet(context.Background(), 4, "  ")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddCountryToMissingSet(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	mock.MatchExpectationsInOrder(true)

	mock.ExpectQuery(`FROM "country_codes" WHERE isocode = \$1`).
		WithArgs("DE").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "isocode"}).AddRow(int64(2), "Germany", "DE"))
	mock.ExpectExec(`^INSERT INTO "country_sets_countries"`).
		WithArgs(int64(77), int64(2)).
		WillReturnError(&pgconnForeignKeyViolation)

	err = NewCountryRepository(mock).AddCountryToSet(context.Background(), 77, "DE")
	require.Error(t, err)
	assert.True(t, labdb.IsNotFound(err))
	assert.False(t, labdb.IsValidation(err))
	var le *labdb.LabError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "country set", le.Entity.Kind)
	assert.Equal(t, "77", le.Entity.Key)
	require.NoError(t, mock.ExpectationsWereMet())
}
