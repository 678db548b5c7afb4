package internal

import (
	"context"

	"github.com/lychee-technology/labdb"
)

// CountryRepository implements labdb.CountryStore.
type CountryRepository struct {
	sets codeSetRepository
}

var _ labdb.CountryStore = (*CountryRepository)(nil)

func NewCountryRepository(pool dbPool) *CountryRepository {
	return &CountryRepository{sets: codeSetRepository{pool: pool, tables: countryTables}}
}

func toCountry(item codeItem) labdb.Country {
	return labdb.Country{ID: item.ID, Name: item.Name, ISOCode: item.ISOCode}
}

func toCountrySet(set codeSet) labdb.CountrySet {
	cs := labdb.CountrySet{ID: set.ID, Name: set.Name}
	for _, item := range set.Items {
		cs.Countries = append(cs.Countries, toCountry(item))
	}
	return cs
}

func (r *CountryRepository) CreateCountry(ctx context.Context, name, isocode string) (*labdb.Country, error) {
	item, err := r.sets.createItem(ctx, name, isocode)
	if err != nil {
		return nil, err
	}
	c := toCountry(*item)
	return &c, nil
}

func (r *CountryRepository) GetCountry(ctx context.Context, isocode string) (*labdb.Country, error) {
	item, err := r.sets.getItem(ctx, isocode)
	if err != nil {
		return nil, err
	}
	c := toCountry(*item)
	return &c, nil
}

func (r *CountryRepository) ListCountries(ctx context.Context) ([]labdb.Country, error) {
	items, err := r.sets.listItems(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]labdb.Country, len(items))
	for i, item := range items {
		out[i] = toCountry(item)
	}
	return out, nil
}

func (r *CountryRepository) CreateCountrySet(ctx context.Context, name string) (*labdb.CountrySet, error) {
	set, err := r.sets.createSet(ctx, name)
	if err != nil {
		return nil, err
	}
	cs := toCountrySet(*set)
	return &cs, nil
}

func (r *CountryRepository) GetCountrySet(ctx context.Context, id int64) (*labdb.CountrySet, error) {
	set, err := r.sets.getSet(ctx, id)
	if err != nil {
		return nil, err
	}
	cs := toCountrySet(*set)
	return &cs, nil
}

func (r *CountryRepository) GetCountrySetByName(ctx context.Context, name string) (*labdb.CountrySet, error) {
	set, err := r.sets.getSetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	cs := toCountrySet(*set)
	return &cs, nil
}

func (r *CountryRepository) ListCountrySets(ctx context.Context) ([]labdb.CountrySet, error) {
	sets, err := r.sets.listSets(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]labdb.CountrySet, len(sets))
	for i, s := range sets {
		out[i] = toCountrySet(s)
	}
	return out, nil
}

func (r *CountryRepository) RenameCountrySet(ctx context.Context, id int64, name string) error {
	return r.sets.renameSet(ctx, id, name)
}

func (r *CountryRepository) DeleteCountrySet(ctx context.Context, id int64) error {
	return r.sets.deleteSet(ctx, id)
}

func (r *CountryRepository) SetCountrySetMembers(ctx context.Context, id int64, isocodes []string) error {
	return r.sets.setMembers(ctx, id, isocodes)
}

func (r *CountryRepository) AddCountryToSet(ctx context.Context, setID int64, isocode string) error {
	return r.sets.addMember(ctx, setID, isocode)
}

func (r *CountryRepository) RemoveCountryFromSet(ctx context.Context, setID int64, isocode string) error {
	return r.sets.removeMember(ctx, setID, isocode)
}
