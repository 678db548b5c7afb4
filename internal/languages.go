package internal

import (
	"context"

	"github.com/lychee-technology/labdb"
)

// LanguageRepository implements labdb.LanguageStore.
type LanguageRepository struct {
	sets codeSetRepository
}

var _ labdb.LanguageStore = (*LanguageRepository)(nil)

func NewLanguageRepository(pool dbPool) *LanguageRepository {
	return &LanguageRepository{sets: codeSetRepository{pool: pool, tables: languageTables}}
}

func toLanguage(item codeItem) labdb.Language {
	return labdb.Language{ID: item.ID, Name: item.Name, ISOCode: item.ISOCode}
}

func toLanguageSet(set codeSet) labdb.LanguageSet {
	ls := labdb.LanguageSet{ID: set.ID, Name: set.Name}
	for _, item := range set.Items {
		ls.Languages = append(ls.Languages, toLanguage(item))
	}
	return ls
}

func (r *LanguageRepository) CreateLanguage(ctx context.Context, name, isocode string) (*labdb.Language, error) {
	item, err := r.sets.createItem(ctx, name, isocode)
	if err != nil {
		return nil, err
	}
	l := toLanguage(*item)
	return &l, nil
}

func (r *LanguageRepository) GetLanguage(ctx context.Context, isocode string) (*labdb.Language, error) {
	item, err := r.sets.getItem(ctx, isocode)
	if err != nil {
		return nil, err
	}
	l := toLanguage(*item)
	return &l, nil
}

func (r *LanguageRepository) ListLanguages(ctx context.Context) ([]labdb.Language, error) {
	items, err := r.sets.listItems(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]labdb.Language, len(items))
	for i, item := range items {
		out[i] = toLanguage(item)
	}
	return out, nil
}

func (r *LanguageRepository) CreateLanguageSet(ctx context.Context, name string) (*labdb.LanguageSet, error) {
	set, err := r.sets.createSet(ctx, name)
	if err != nil {
		return nil, err
	}
	ls := toLanguageSet(*set)
	return &ls, nil
}

func (r *LanguageRepository) GetLanguageSet(ctx context.Context, id int64) (*labdb.LanguageSet, error) {
	set, err := r.sets.getSet(ctx, id)
	if err != nil {
		return nil, err
	}
	ls := toLanguageSet(*set)
	return &ls, nil
}

func (r *LanguageRepository) GetLanguageSetByName(ctx context.Context, name string) (*labdb.LanguageSet, error) {
	set, err := r.sets.getSetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	ls := toLanguageSet(*set)
	return &ls, nil
}

func (r *LanguageRepository) ListLanguageSets(ctx context.Context) ([]labdb.LanguageSet, error) {
	sets, err := r.sets.listSets(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]labdb.LanguageSet, len(sets))
	for i, s := range sets {
		out[i] = toLanguageSet(s)
	}
	return out, nil
}

func (r *LanguageRepository) RenameLanguageSet(ctx context.Context, id int64, name string) error {
	return r.sets.renameSet(ctx, id, name)
}

func (r *LanguageRepository) DeleteLanguageSet(ctx context.Context, id int64) error {
	return r.sets.deleteSet(ctx, id)
}

func (r *LanguageRepository) SetLanguageSetMembers(ctx context.Context, id int64, isocodes []string) error {
	return r.sets.setMembers(ctx, id, isocodes)
}

func (r *LanguageRepository) AddLanguageToSet(ctx context.Context, setID int64, isocode string) error {
	return r.sets.addMember(ctx, setID, isocode)
}

func (r *LanguageRepository) RemoveLanguageFromSet(ctx context.Context, setID int64, isocode string) error {
	return r.sets.removeMember(ctx, setID, isocode)
}
