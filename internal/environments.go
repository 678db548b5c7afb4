package internal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/labdb"
)

func (r *EquipmentRepository) CreateEnvironment(ctx context.Context, name string, ownerID *int64) (*labdb.Environment, error) {
	if name == "" {
		return nil, labdb.NewValidationError("name", "is required")
	}
	env := &labdb.Environment{Name: name, OwnerID: ownerID}
	err := r.pool.QueryRow(ctx,
		"INSERT INTO environments (name, owner_id) VALUES ($1, $2) RETURNING id",
		name, ownerID,
	).Scan(&env.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert environment: %w", err), "environment", name)
	}
	return env, nil
}

func (r *EquipmentRepository) GetEnvironmentByName(ctx context.Context, name string) (*labdb.Environment, error) {
	var env labdb.Environment
	err := r.pool.QueryRow(ctx,
		"SELECT id, name, owner_id FROM environments WHERE name = $1",
		name,
	).Scan(&env.ID, &env.Name, &env.OwnerID)
	if err != nil {
		return nil, mapError(err, "environment", name)
	}
	return &env, nil
}

// AddTestEquipment binds equipment to an environment with the given roles.
// An environment has at most one unit under test, so marking a new one clears
// the flag on the others.
func (r *EquipmentRepository) AddTestEquipment(ctx context.Context, environmentID, equipmentID int64, uut bool, roleIDs []int64) (*labdb.TestEquipment, error) {
	te := &labdb.TestEquipment{EquipmentID: equipmentID, EnvironmentID: environmentID, UUT: uut}
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if uut {
			if _, err := tx.Exec(ctx,
				"UPDATE testequipment SET uut = FALSE WHERE environment_id = $1 AND uut",
				environmentID,
			); err != nil {
				return fmt.Errorf("clear unit under test: %w", err)
			}
		}
		if err := tx.QueryRow(ctx,
			"INSERT INTO testequipment (equipment_id, environment_id, uut) VALUES ($1, $2, $3) RETURNING id",
			equipmentID, environmentID, uut,
		).Scan(&te.ID); err != nil {
			return mapError(fmt.Errorf("insert test equipment: %w", err), "test equipment", idKey(equipmentID))
		}
		if len(roleIDs) == 0 {
			return nil
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO testequipment_roles (testequipment_id, softwarecategory_id)
				SELECT $1, unnest($2::bigint[])`,
			te.ID, roleIDs,
		); err != nil {
			return mapError(fmt.Errorf("insert test equipment roles: %w", err), "software category", "roles")
		}
		rows, err := tx.Query(ctx,
			"SELECT id, name, description FROM software_category WHERE id = ANY($1) ORDER BY name",
			roleIDs,
		)
		if err != nil {
			return fmt.Errorf("query roles: %w", err)
		}
		te.Roles, err = collectRows(rows, scanSoftwareCategory)
		return err
	})
	if err != nil {
		return nil, err
	}
	return te, nil
}

func scanSoftwareCategory(row pgx.Rows) (labdb.SoftwareCategory, error) {
	var c labdb.SoftwareCategory
	err := row.Scan(&c.ID, &c.Name, &c.Description)
	return c, err
}

// EnvironmentEquipment lists the equipment bound to an environment along
// with each binding's roles.
func (r *EquipmentRepository) EnvironmentEquipment(ctx context.Context, environmentID int64) ([]labdb.TestEquipment, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT id, equipment_id, environment_id, uut FROM testequipment WHERE environment_id = $1 ORDER BY id",
		environmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query test equipment: %w", err)
	}
	bindings, err := collectRows(rows, func(row pgx.Rows) (labdb.TestEquipment, error) {
		var te labdb.TestEquipment
		err := row.Scan(&te.ID, &te.EquipmentID, &te.EnvironmentID, &te.UUT)
		return te, err
	})
	if err != nil || len(bindings) == 0 {
		return bindings, err
	}

	index := make(map[int64]int, len(bindings))
	for i, te := range bindings {
		index[te.ID] = i
	}
	roleRows, err := r.pool.Query(ctx,
		`SELECT r.testequipment_id, c.id, c.name, c.description
			FROM testequipment_roles r
			JOIN software_category c ON c.id = r.softwarecategory_id
			JOIN testequipment te ON te.id = r.testequipment_id
			WHERE te.environment_id = $1
			ORDER BY c.name`,
		environmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query test equipment roles: %w", err)
	}
	type role struct {
		bindingID int64
		category  labdb.SoftwareCategory
	}
	roles, err := collectRows(roleRows, func(row pgx.Rows) (role, error) {
		var rl role
		err := row.Scan(&rl.bindingID, &rl.category.ID, &rl.category.Name, &rl.category.Description)
		return rl, err
	})
	if err != nil {
		return nil, err
	}
	for _, rl := range roles {
		if i, ok := index[rl.bindingID]; ok {
			bindings[i].Roles = append(bindings[i].Roles, rl.category)
		}
	}
	return bindings, nil
}

// UnitUnderTest returns the equipment flagged as the unit under test.
func (r *EquipmentRepository) UnitUnderTest(ctx context.Context, environmentID int64) (*labdb.Equipment, error) {
	e, err := scanEquipment(r.pool.QueryRow(ctx,
		`SELECT `+equipmentColumns("e")+` FROM equipment e
			JOIN testequipment te ON te.equipment_id = e.id
			WHERE te.environment_id = $1 AND te.uut
			ORDER BY te.id
			LIMIT 1`,
		environmentID,
	))
	if err != nil {
		return nil, mapError(err, "unit under test", idKey(environmentID))
	}
	return &e, nil
}
