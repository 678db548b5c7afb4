package internal

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/labdb"
	"go.uber.org/zap"
)

// codeTables names the tables behind one kind of ISO code set: the code
// table, the set table and the membership table joining them.
type codeTables struct {
	itemKind  string
	setKind   string
	itemTable string
	setTable  string
	joinTable string
}

var (
	countryTables = codeTables{
		itemKind:  "country",
		setKind:   "country set",
		itemTable: "country_codes",
		setTable:  "country_sets",
		joinTable: "country_sets_countries",
	}
	languageTables = codeTables{
		itemKind:  "language",
		setKind:   "language set",
		itemTable: "language_codes",
		setTable:  "language_sets",
		joinTable: "language_sets_languages",
	}
)

type codeItem struct {
	ID      int64
	Name    string
	ISOCode string
}

type codeSet struct {
	ID    int64
	Name  string
	Items []codeItem
}

// codeSetRepository holds the SQL shared by the country and language stores.
type codeSetRepository struct {
	pool   dbPool
	tables codeTables
}

func (r *codeSetRepository) createItem(ctx context.Context, name, isocode string) (*codeItem, error) {
	isocode = strings.TrimSpace(isocode)
	if isocode == "" {
		return nil, labdb.NewValidationError("isocode", "is required")
	}
	item := &codeItem{Name: name, ISOCode: isocode}
	err := r.pool.QueryRow(ctx,
		fmt.Sprintf("INSERT INTO %s (name, isocode) VALUES ($1, $2) RETURNING id", sanitizeIdentifier(r.tables.itemTable)),
		name, isocode,
	).Scan(&item.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert %s: %w", r.tables.itemKind, err), r.tables.itemKind, isocode)
	}
	return item, nil
}

func (r *codeSetRepository) getItem(ctx context.Context, isocode string) (*codeItem, error) {
	var item codeItem
	err := r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT id, name, isocode FROM %s WHERE isocode = $1", sanitizeIdentifier(r.tables.itemTable)),
		isocode,
	).Scan(&item.ID, &item.Name, &item.ISOCode)
	if err != nil {
		return nil, mapError(err, r.tables.itemKind, isocode)
	}
	return &item, nil
}

func scanCodeItem(row pgx.Rows) (codeItem, error) {
	var item codeItem
	err := row.Scan(&item.ID, &item.Name, &item.ISOCode)
	return item, err
}

func (r *codeSetRepository) listItems(ctx context.Context) ([]codeItem, error) {
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf("SELECT id, name, isocode FROM %s ORDER BY name", sanitizeIdentifier(r.tables.itemTable)),
	)
	if err != nil {
		return nil, fmt.Errorf("query %s list: %w", r.tables.itemKind, err)
	}
	return collectRows(rows, scanCodeItem)
}

func (r *codeSetRepository) createSet(ctx context.Context, name string) (*codeSet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, labdb.NewValidationError("name", "is required")
	}
	set := &codeSet{Name: name}
	err := r.pool.QueryRow(ctx,
		fmt.Sprintf("INSERT INTO %s (name) VALUES ($1) RETURNING id", sanitizeIdentifier(r.tables.setTable)),
		name,
	).Scan(&set.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert %s: %w", r.tables.setKind, err), r.tables.setKind, name)
	}
	return set, nil
}

func (r *codeSetRepository) members(ctx context.Context, setID int64) ([]codeItem, error) {
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT c.id, c.name, c.isocode FROM %s c
			JOIN %s j ON j.item_id = c.id
			WHERE j.set_id = $1
			ORDER BY c.name`,
			sanitizeIdentifier(r.tables.itemTable), sanitizeIdentifier(r.tables.joinTable)),
		setID,
	)
	if err != nil {
		return nil, fmt.Errorf("query %s members: %w", r.tables.setKind, err)
	}
	return collectRows(rows, scanCodeItem)
}

func (r *codeSetRepository) loadSet(ctx context.Context, where string, arg any, key string) (*codeSet, error) {
	var set codeSet
	err := r.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT id, name FROM %s WHERE %s = $1", sanitizeIdentifier(r.tables.setTable), where),
		arg,
	).Scan(&set.ID, &set.Name)
	if err != nil {
		return nil, mapError(err, r.tables.setKind, key)
	}
	set.Items, err = r.members(ctx, set.ID)
	if err != nil {
		return nil, err
	}
	return &set, nil
}

func (r *codeSetRepository) getSet(ctx context.Context, id int64) (*codeSet, error) {
	return r.loadSet(ctx, "id", id, idKey(id))
}

func (r *codeSetRepository) getSetByName(ctx context.Context, name string) (*codeSet, error) {
	return r.loadSet(ctx, "name", name, name)
}

// listSets returns every set without its members.
func (r *codeSetRepository) listSets(ctx context.Context) ([]codeSet, error) {
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf("SELECT id, name FROM %s ORDER BY name", sanitizeIdentifier(r.tables.setTable)),
	)
	if err != nil {
		return nil, fmt.Errorf("query %s list: %w", r.tables.setKind, err)
	}
	return collectRows(rows, func(row pgx.Rows) (codeSet, error) {
		var s codeSet
		err := row.Scan(&s.ID, &s.Name)
		return s, err
	})
}

func (r *codeSetRepository) renameSet(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return labdb.NewValidationError("name", "is required")
	}
	tag, err := r.pool.Exec(ctx,
		fmt.Sprintf("UPDATE %s SET name = $1 WHERE id = $2", sanitizeIdentifier(r.tables.setTable)),
		name, id,
	)
	if err != nil {
		return mapError(fmt.Errorf("rename %s: %w", r.tables.setKind, err), r.tables.setKind, name)
	}
	return expectAffected(tag, r.tables.setKind, idKey(id))
}

func (r *codeSetRepository) deleteSet(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = $1", sanitizeIdentifier(r.tables.setTable)),
		id,
	)
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.tables.setKind, err)
	}
	return expectAffected(tag, r.tables.setKind, idKey(id))
}

func uniqueCodes(isocodes []string) []string {
	seen := make(map[string]bool, len(isocodes))
	out := make([]string, 0, len(isocodes))
	for _, c := range isocodes {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// setMembers replaces the membership of a set. Unknown codes fail the whole
// update.
func (r *codeSetRepository) setMembers(ctx context.Context, setID int64, isocodes []string) error {
	codes := uniqueCodes(isocodes)
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked int64
		err := tx.QueryRow(ctx,
			fmt.Sprintf("SELECT id FROM %s WHERE id = $1 FOR UPDATE", sanitizeIdentifier(r.tables.setTable)),
			setID,
		).Scan(&locked)
		if err != nil {
			return mapError(err, r.tables.setKind, idKey(setID))
		}
		if _, err := tx.Exec(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE set_id = $1", sanitizeIdentifier(r.tables.joinTable)),
			setID,
		); err != nil {
			return fmt.Errorf("clear %s members: %w", r.tables.setKind, err)
		}
		if len(codes) == 0 {
			return nil
		}
		tag, err := tx.Exec(ctx,
			fmt.Sprintf("INSERT INTO %s (set_id, item_id) SELECT $1, id FROM %s WHERE isocode = ANY($2)",
				sanitizeIdentifier(r.tables.joinTable), sanitizeIdentifier(r.tables.itemTable)),
			setID, codes,
		)
		if err != nil {
			return fmt.Errorf("insert %s members: %w", r.tables.setKind, err)
		}
		if n := tag.RowsAffected(); n != int64(len(codes)) {
			return labdb.NewValidationError("isocodes", fmt.Sprintf("%d of %d codes are unknown", int64(len(codes))-n, len(codes))).
				WithDetail("isocodes", codes)
		}
		zap.S().Debugw("replaced set members", "kind", r.tables.setKind, "setID", setID, "count", len(codes))
		return nil
	})
}

func (r *codeSetRepository) addMember(ctx context.Context, setID int64, isocode string) error {
	item, err := r.getItem(ctx, isocode)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		fmt.Sprintf("INSERT INTO %s (set_id, item_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", sanitizeIdentifier(r.tables.joinTable)),
		setID, item.ID,
	)
	if isForeignKeyViolation(err) {
		// the item was just read, so the missing row is the set
		return labdb.NewNotFoundError(r.tables.setKind, idKey(setID)).WithCause(err)
	}
	if err != nil {
		return mapError(fmt.Errorf("add %s member: %w", r.tables.setKind, err), r.tables.setKind, idKey(setID))
	}
	return nil
}

func (r *codeSetRepository) removeMember(ctx context.Context, setID int64, isocode string) error {
	tag, err := r.pool.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE set_id = $1 AND item_id = (SELECT id FROM %s WHERE isocode = $2)",
			sanitizeIdentifier(r.tables.joinTable), sanitizeIdentifier(r.tables.itemTable)),
		setID, isocode,
	)
	if err != nil {
		return fmt.Errorf("remove %s member: %w", r.tables.setKind, err)
	}
	return expectAffected(tag, r.tables.setKind+" member", isocode)
}
