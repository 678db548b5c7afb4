package internal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/labdb"
)

// DirectoryRepository implements labdb.DirectoryStore over corporations,
// contacts, addresses, locations and login accounts.
type DirectoryRepository struct {
	pool dbPool
}

var _ labdb.DirectoryStore = (*DirectoryRepository)(nil)

func NewDirectoryRepository(pool dbPool) *DirectoryRepository {
	return &DirectoryRepository{pool: pool}
}

func (r *DirectoryRepository) CreateCorporation(ctx context.Context, name, notes string) (*labdb.Corporation, error) {
	if name == "" {
		return nil, labdb.NewValidationError("name", "is required")
	}
	corp := &labdb.Corporation{Name: name, Notes: notes}
	err := r.pool.QueryRow(ctx,
		"INSERT INTO corporations (name, notes) VALUES ($1, $2) RETURNING id",
		name, notes,
	).Scan(&corp.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert corporation: %w", err), "corporation", name)
	}
	return corp, nil
}

// GetCorporation loads a corporation with the functional areas it serves.
func (r *DirectoryRepository) GetCorporation(ctx context.Context, id int64) (*labdb.Corporation, error) {
	var corp labdb.Corporation
	err := r.pool.QueryRow(ctx, "SELECT id, name, notes FROM corporations WHERE id = $1", id).
		Scan(&corp.ID, &corp.Name, &corp.Notes)
	if err != nil {
		return nil, mapError(err, "corporation", idKey(id))
	}
	rows, err := r.pool.Query(ctx,
		`SELECT fa.id, fa.name, fa.description FROM functional_area fa
			JOIN corporations_services cs ON cs.functionalarea_id = fa.id
			WHERE cs.corporation_id = $1
			ORDER BY fa.name`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("query corporation services: %w", err)
	}
	if corp.Services, err = collectRows(rows, scanFunctionalArea); err != nil {
		return nil, err
	}
	return &corp, nil
}

func (r *DirectoryRepository) ListCorporations(ctx context.Context) ([]labdb.Corporation, error) {
	rows, err := r.pool.Query(ctx, "SELECT id, name, notes FROM corporations ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query corporations: %w", err)
	}
	return collectRows(rows, func(row pgx.Rows) (labdb.Corporation, error) {
		var c labdb.Corporation
		err := row.Scan(&c.ID, &c.Name, &c.Notes)
		return c, err
	})
}

func (r *DirectoryRepository) AddCorporationService(ctx context.Context, corporationID, areaID int64) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO corporations_services (corporation_id, functionalarea_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		corporationID, areaID,
	)
	if err != nil {
		return mapError(fmt.Errorf("add corporation service: %w", err), "corporation", idKey(corporationID))
	}
	return nil
}

const contactColumns = "id, prefix, firstname, middlename, lastname, title, email, phone, mobile, corporation_id, user_id, note"

func scanContact(row pgx.Row) (labdb.Contact, error) {
	var c labdb.Contact
	err := row.Scan(&c.ID, &c.Prefix, &c.FirstName, &c.MiddleName, &c.LastName, &c.Title,
		&c.Email, &c.Phone, &c.Mobile, &c.CorporationID, &c.UserID, &c.Note)
	return c, err
}

func (r *DirectoryRepository) CreateContact(ctx context.Context, c *labdb.Contact) (*labdb.Contact, error) {
	if c == nil || c.FirstName == "" || c.LastName == "" {
		return nil, labdb.NewValidationError("name", "first and last name are required")
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO contacts (prefix, firstname, middlename, lastname, title, email, phone, mobile, corporation_id, user_id, note)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id`,
		c.Prefix, c.FirstName, c.MiddleName, c.LastName, c.Title, c.Email, c.Phone, c.Mobile, c.CorporationID, c.UserID, c.Note,
	).Scan(&c.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert contact: %w", err), "contact", c.LastName)
	}
	return c, nil
}

func (r *DirectoryRepository) GetContact(ctx context.Context, id int64) (*labdb.Contact, error) {
	c, err := scanContact(r.pool.QueryRow(ctx, "SELECT "+contactColumns+" FROM contacts WHERE id = $1", id))
	if err != nil {
		return nil, mapError(err, "contact", idKey(id))
	}
	return &c, nil
}

func (r *DirectoryRepository) ContactsForCorporation(ctx context.Context, corporationID int64) ([]labdb.Contact, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE corporation_id = $1 ORDER BY lastname, firstname",
		corporationID,
	)
	if err != nil {
		return nil, fmt.Errorf("query contacts: %w", err)
	}
	return collectRows(rows, func(row pgx.Rows) (labdb.Contact, error) {
		return scanContact(row)
	})
}

const addressColumns = "id, address, address2, city, stateprovince, postalcode, country_id"

func (r *DirectoryRepository) CreateAddress(ctx context.Context, a *labdb.Address) (*labdb.Address, error) {
	if a == nil || a.Address == "" || a.City == "" {
		return nil, labdb.NewValidationError("address", "street and city are required")
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO addresses (address, address2, city, stateprovince, postalcode, country_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
		a.Address, a.Address2, a.City, a.StateProvince, a.PostalCode, a.CountryID,
	).Scan(&a.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert address: %w", err), "address", a.Address)
	}
	return a, nil
}

func (r *DirectoryRepository) GetAddress(ctx context.Context, id int64) (*labdb.Address, error) {
	var a labdb.Address
	err := r.pool.QueryRow(ctx, "SELECT "+addressColumns+" FROM addresses WHERE id = $1", id).
		Scan(&a.ID, &a.Address, &a.Address2, &a.City, &a.StateProvince, &a.PostalCode, &a.CountryID)
	if err != nil {
		return nil, mapError(err, "address", idKey(id))
	}
	return &a, nil
}

func (r *DirectoryRepository) CreateLocation(ctx context.Context, l *labdb.Location) (*labdb.Location, error) {
	if l == nil || l.LocationCode == "" {
		return nil, labdb.NewValidationError("locationCode", "is required")
	}
	err := r.pool.QueryRow(ctx,
		"INSERT INTO location (locationcode, address_id, contact_id) VALUES ($1, $2, $3) RETURNING id",
		l.LocationCode, l.AddressID, l.ContactID,
	).Scan(&l.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert location: %w", err), "location", l.LocationCode)
	}
	return l, nil
}

func (r *DirectoryRepository) GetLocation(ctx context.Context, code string) (*labdb.Location, error) {
	var l labdb.Location
	err := r.pool.QueryRow(ctx,
		"SELECT id, locationcode, address_id, contact_id FROM location WHERE locationcode = $1",
		code,
	).Scan(&l.ID, &l.LocationCode, &l.AddressID, &l.ContactID)
	if err != nil {
		return nil, mapError(err, "location", code)
	}
	return &l, nil
}

const addressBookColumns = "id, firstname, lastname, title, company, email, phone, mobile, address, city, state, postalcode, country, note"

func (r *DirectoryRepository) CreateAddressBookEntry(ctx context.Context, e *labdb.AddressBookEntry) (*labdb.AddressBookEntry, error) {
	if e == nil || e.LastName == "" {
		return nil, labdb.NewValidationError("lastName", "is required")
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO addressbook (firstname, lastname, title, company, email, phone, mobile, address, city, state, postalcode, country, note)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING id`,
		e.FirstName, e.LastName, e.Title, e.Company, e.Email, e.Phone, e.Mobile,
		e.Address, e.City, e.State, e.PostalCode, e.Country, e.Note,
	).Scan(&e.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert address book entry: %w", err), "address book entry", e.LastName)
	}
	return e, nil
}

// ListAddressBook returns every card ordered by last then first name.
func (r *DirectoryRepository) ListAddressBook(ctx context.Context) ([]labdb.AddressBookEntry, error) {
	rows, err := r.pool.Query(ctx, "SELECT "+addressBookColumns+" FROM addressbook ORDER BY lastname, firstname")
	if err != nil {
		return nil, fmt.Errorf("query address book: %w", err)
	}
	return collectRows(rows, func(row pgx.Rows) (labdb.AddressBookEntry, error) {
		var e labdb.AddressBookEntry
		err := row.Scan(&e.ID, &e.FirstName, &e.LastName, &e.Title, &e.Company, &e.Email, &e.Phone, &e.Mobile,
			&e.Address, &e.City, &e.State, &e.PostalCode, &e.Country, &e.Note)
		return e, err
	})
}

func (r *DirectoryRepository) CreateLoginAccount(ctx context.Context, a *labdb.LoginAccount) (*labdb.LoginAccount, error) {
	if a == nil || a.Identifier == "" || a.Login == "" {
		return nil, labdb.NewValidationError("identifier", "identifier and login are required")
	}
	err := r.pool.QueryRow(ctx,
		"INSERT INTO account_ids (identifier, login, password, note) VALUES ($1, $2, $3, $4) RETURNING id",
		a.Identifier, a.Login, a.Password, a.Note,
	).Scan(&a.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert login account: %w", err), "login account", a.Identifier)
	}
	return a, nil
}

func scanLoginAccount(row pgx.Row) (labdb.LoginAccount, error) {
	var a labdb.LoginAccount
	err := row.Scan(&a.ID, &a.Identifier, &a.Login, &a.Password, &a.Note)
	return a, err
}

func (r *DirectoryRepository) GetLoginAccount(ctx context.Context, identifier string) (*labdb.LoginAccount, error) {
	a, err := scanLoginAccount(r.pool.QueryRow(ctx,
		"SELECT id, identifier, login, password, note FROM account_ids WHERE identifier = $1",
		identifier,
	))
	if err != nil {
		return nil, mapError(err, "login account", identifier)
	}
	return &a, nil
}

func (r *DirectoryRepository) ListLoginAccounts(ctx context.Context) ([]labdb.LoginAccount, error) {
	rows, err := r.pool.Query(ctx, "SELECT id, identifier, login, password, note FROM account_ids ORDER BY identifier")
	if err != nil {
		return nil, fmt.Errorf("query login accounts: %w", err)
	}
	return collectRows(rows, func(row pgx.Rows) (labdb.LoginAccount, error) {
		return scanLoginAccount(row)
	})
}
