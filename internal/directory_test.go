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

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	mock.MatchExpectationsInOrder(true)
	return mock
}

func TestCreateScheduleDefaultsCronFields(t *testing.T) {
	mock := newMockPool(t)
	userID := int64(7)

	mock.ExpectQuery(`^INSERT INTO schedule`).
		WithArgs("nightly", "0", "2", "*", "*", "*", &userID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))

	s, err := NewScheduleRepository(mock).CreateSchedule(context.Background(), &labdb.Schedule{
		Name: "nightly", Minute: "0", Hour: "2", DayOfMonth: " ", UserID: &userID,
	})
	require.NoError(t, err)
	assert.Equal(t, "0 2 * * *", s.CronSpec())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSchedulesForUserAndDelete(t *testing.T) {
	mock := newMockPool(t)
	userID := int64(7)

	mock.ExpectQuery(`FROM schedule WHERE user_id = \$1 ORDER BY name`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "minute", "hour", "day_of_month", "month", "day_of_week", "user_id"}).
			AddRow(int64(1), "nightly", "0", "2", "*", "*", "*", &userID))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	repo := NewScheduleRepository(mock)
	schedules, err := repo.SchedulesForUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, schedules, 1)
	assert.Equal(t, "nightly", schedules[0].Name)

	require.NoError(t, repo.DeleteSchedule(context.Background(), 1))
	assert.True(t, labdb.IsNotFound(repo.DeleteSchedule(context.Background(), 1)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreTrap(t *testing.T) {
	mock := newMockPool(t)
	local := fixedNow.In(time.FixedZone("PST", -8*3600))

	mock.ExpectQuery(`^INSERT INTO traps`).
		WithArgs(fixedNow, []byte(`{"ifIndex":2,"oid":"1.3.6.1.6.3.1.1.5.3"}`)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(12)))

	trap, err := NewTrapRepository(mock).StoreTrap(context.Background(), local, map[string]any{
		"oid": "1.3.6.1.6.3.1.1.5.3", "ifIndex": 2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), trap.ID)
	assert.Equal(t, time.UTC, trap.Timestamp.Location())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreTrapRequiresTimestamp(t *testing.T) {
	_, err := NewTrapRepository(nil).StoreTrap(context.Background(), time.Time{}, "x")
	assert.True(t, labdb.IsValidation(err))
}

func TestRecentTrapsDefaultLimit(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(`FROM traps ORDER BY timestamp DESC, id DESC LIMIT \$1`).
		WithArgs(int64(defaultTrapLimit)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "timestamp", "value"}).
			AddRow(int64(2), fixedNow, []byte(`{"oid":"linkUp"}`)))

	traps, err := NewTrapRepository(mock).RecentTraps(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, traps, 1)
	assert.JSONEq(t, `{"oid":"linkUp"}`, string(traps[0].Value))
}

func TestGetCorporationWithServices(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, notes FROM corporations WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "notes"}).AddRow(int64(3), "Acme", "vendor"))
	mock.ExpectQuery(`JOIN corporations_services cs`).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description"}).
			AddRow(int64(1), "routing", "").
			AddRow(int64(2), "switching", ""))

	corp, err := NewDirectoryRepository(mock).GetCorporation(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Acme", corp.Name)
	require.Len(t, corp.Services, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCorporationNotFound(t *testing.T) {
	mock := newMockPool(t)
	mock.ExpectQuery(`FROM corporations WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnError(pgx.ErrNoRows)

	_, err := NewDirectoryRepository(mock).GetCorporation(context.Background(), 3)
	assert.True(t, labdb.IsNotFound(err))
}

func TestCreateContact(t *testing.T) {
	mock := newMockPool(t)
	corpID := int64(3)

	mock.ExpectQuery(`^INSERT INTO contacts`).
		WithArgs("Dr.", "Ada", "", "Lovelace", "", "ada@example.com", "", "", &corpID, (*int64)(nil), "").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(40)))

	c, err := NewDirectoryRepository(mock).CreateContact(context.Background(), &labdb.Contact{
		Prefix: "Dr.", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", CorporationID: &corpID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(40), c.ID)
	require.NoError(t, mock.ExpectationsWereMet())

	_, err = NewDirectoryRepository(mock).CreateContact(context.Background(), &labdb.Contact{FirstName: "Ada"})
	assert.True(t, labdb.IsValidation(err))
}

func TestContactsForCorporation(t *testing.T) {
	mock := newMockPool(t)
	corpID := int64(3)

	mock.ExpectQuery(`FROM contacts WHERE corporation_id = \$1 ORDER BY lastname, firstname`).
		WithArgs(corpID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "prefix", "firstname", "middlename", "lastname", "title", "email", "phone", "mobile", "corporation_id", "user_id", "note"}).
			AddRow(int64(40), "", "Ada", "", "Lovelace", "", "", "", "", &corpID, (*int64)(nil), ""))

	contacts, err := NewDirectoryRepository(mock).ContactsForCorporation(context.Background(), corpID)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Lovelace", contacts[0].LastName)
}

func TestCreateAddressAndLocation(t *testing.T) {
	mock := newMockPool(t)
	countryID := int64(1)
	addressID := int64(6)

	mock.ExpectQuery(`^INSERT INTO addresses`).
		WithArgs("1 Main St", "", "Springfield", "OR", "97477", &countryID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(addressID))
	mock.ExpectQuery(`^INSERT INTO location`).
		WithArgs("LAB-2", &addressID, (*int64)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectQuery(`FROM location WHERE locationcode = \$1`).
		WithArgs("LAB-9").
		WillReturnError(pgx.ErrNoRows)

	repo := NewDirectoryRepository(mock)
	a, err := repo.CreateAddress(context.Background(), &labdb.Address{
		Address: "1 Main St", City: "Springfield", StateProvince: "OR", PostalCode: "97477", CountryID: &countryID,
	})
	require.NoError(t, err)
	assert.Equal(t, "1 Main St, Springfield OR 97477", a.String())

	l, err := repo.CreateLocation(context.Background(), &labdb.Location{LocationCode: "LAB-2", AddressID: &a.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), l.ID)

	_, err = repo.GetLocation(context.Background(), "LAB-9")
	assert.True(t, labdb.IsNotFound(err))

	_, err = repo.CreateAddress(context.Background(), &labdb.Address{Address: "no city"})
	assert.True(t, labdb.IsValidation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAddress(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(`FROM addresses WHERE id = \$1`).
		WithArgs(int64(6)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "address", "address2", "city", "stateprovince", "postalcode", "country_id"}).
			AddRow(int64(6), "1 Main St", "Suite 4", "Springfield", "OR", "97477", (*int64)(nil)))

	a, err := NewDirectoryRepository(mock).GetAddress(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, "1 Main St, Suite 4, Springfield OR 97477", a.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddressBook(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectQuery(`^INSERT INTO addressbook`).
		WithArgs("Grace", "Hopper", "", "Navy", "", "", "", "", "", "", "", "", "").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(12)))
	mock.ExpectQuery(`FROM addressbook ORDER BY lastname, firstname`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "firstname", "lastname", "title", "company", "email", "phone", "mobile", "address", "city", "state", "postalcode", "country", "note"}).
			AddRow(int64(12), "Grace", "Hopper", "", "Navy", "", "", "", "", "", "", "", "", ""))

	repo := NewDirectoryRepository(mock)
	e, err := repo.CreateAddressBookEntry(context.Background(), &labdb.AddressBookEntry{FirstName: "Grace", LastName: "Hopper", Company: "Navy"})
	require.NoError(t, err)

	entries, err := repo.ListAddressBook(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []labdb.AddressBookEntry{*e}, entries)

	_, err = repo.CreateAddressBookEntry(context.Background(), &labdb.AddressBookEntry{FirstName: "Grace"})
	assert.True(t, labdb.IsValidation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginAccounts(t *testing.T) {
	mock := newMockPool(t)
	columns := []string{"id", "identifier", "login", "password", "note"}

	mock.ExpectQuery(`^INSERT INTO account_ids`).
		WithArgs("router-console", "admin", "secret", "").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery(`^INSERT INTO account_ids`).
		WithArgs("router-console", "root", "", "").
		WillReturnError(&pgconnUniqueViolation)
	mock.ExpectQuery(`FROM account_ids WHERE identifier = \$1`).
		WithArgs("router-console").
		WillReturnRows(pgxmock.NewRows(columns).AddRow(int64(3), "router-console", "admin", "secret", ""))
	mock.ExpectQuery(`FROM account_ids ORDER BY identifier`).
		WillReturnRows(pgxmock.NewRows(columns).AddRow(int64(3), "router-console", "admin", "secret", ""))

	repo := NewDirectoryRepository(mock)
	_, err := repo.CreateLoginAccount(context.Background(), &labdb.LoginAccount{Identifier: "router-console", Login: "admin", Password: "secret"})
	require.NoError(t, err)

	_, err = repo.CreateLoginAccount(context.Background(), &labdb.LoginAccount{Identifier: "router-console", Login: "root"})
	assert.True(t, labdb.IsConflict(err))

	acct, err := repo.GetLoginAccount(context.Background(), "router-console")
	require.NoError(t, err)
	assert.Equal(t, "secret", acct.Password)

	accounts, err := repo.ListLoginAccounts(context.Background())
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}
