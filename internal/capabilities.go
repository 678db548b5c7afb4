package internal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/labdb"
)

func (r *EquipmentRepository) CreateCapabilityGroup(ctx context.Context, name string) (*labdb.CapabilityGroup, error) {
	if name == "" {
		return nil, labdb.NewValidationError("name", "is required")
	}
	g := &labdb.CapabilityGroup{Name: name}
	err := r.pool.QueryRow(ctx, "INSERT INTO capability_group (name) VALUES ($1) RETURNING id", name).Scan(&g.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert capability group: %w", err), "capability group", name)
	}
	return g, nil
}

func (r *EquipmentRepository) CreateCapabilityType(ctx context.Context, ct *labdb.CapabilityType) (*labdb.CapabilityType, error) {
	if ct == nil || ct.Name == "" {
		return nil, labdb.NewValidationError("name", "is required")
	}
	if !ct.ValueType.Valid() {
		return nil, labdb.NewValidationError("valueType", fmt.Sprintf("unknown value type %d", int16(ct.ValueType)))
	}
	err := r.pool.QueryRow(ctx,
		"INSERT INTO capability_type (name, value_type, description, group_id) VALUES ($1, $2, $3, $4) RETURNING id",
		ct.Name, int16(ct.ValueType), ct.Description, ct.GroupID,
	).Scan(&ct.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert capability type: %w", err), "capability type", ct.Name)
	}
	return ct, nil
}

func scanCapabilityType(row pgx.Row) (labdb.CapabilityType, error) {
	var (
		ct        labdb.CapabilityType
		valueType int16
	)
	err := row.Scan(&ct.ID, &ct.Name, &valueType, &ct.Description, &ct.GroupID)
	ct.ValueType = labdb.ValueType(valueType)
	return ct, err
}

func (r *EquipmentRepository) GetCapabilityType(ctx context.Context, name string) (*labdb.CapabilityType, error) {
	ct, err := scanCapabilityType(r.pool.QueryRow(ctx,
		"SELECT id, name, value_type, description, group_id FROM capability_type WHERE name = $1",
		name,
	))
	if err != nil {
		return nil, mapError(err, "capability type", name)
	}
	return &ct, nil
}

// SetCapability records or replaces a capability value on equipment. The
// value is checked against the capability type the same way attribute values
// are.
func (r *EquipmentRepository) SetCapability(ctx context.Context, equipmentID int64, typeName string, value any) (*labdb.Capability, error) {
	ct, err := r.GetCapabilityType(ctx, typeName)
	if err != nil {
		return nil, err
	}
	data, err := marshalValue(value)
	if err != nil {
		return nil, err
	}
	if err := validateAttributeValue(ct.ValueType, data); err != nil {
		return nil, err
	}
	c := &labdb.Capability{EquipmentID: equipmentID, Type: *ct, Value: data}
	err = r.pool.QueryRow(ctx,
		`INSERT INTO capability (equipment_id, type_id, value) VALUES ($1, $2, $3)
			ON CONFLICT (equipment_id, type_id) DO UPDATE SET value = EXCLUDED.value
			RETURNING id`,
		equipmentID, ct.ID, data,
	).Scan(&c.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("upsert capability: %w", err), "equipment", idKey(equipmentID))
	}
	return c, nil
}

func (r *EquipmentRepository) Capabilities(ctx context.Context, equipmentID int64) ([]labdb.Capability, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.equipment_id, c.value, t.id, t.name, t.value_type, t.description, t.group_id
			FROM capability c
			JOIN capability_type t ON t.id = c.type_id
			WHERE c.equipment_id = $1
			ORDER BY t.name`,
		equipmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query capabilities: %w", err)
	}
	return collectRows(rows, func(row pgx.Rows) (labdb.Capability, error) {
		var (
			c         labdb.Capability
			valueType int16
		)
		err := row.Scan(&c.ID, &c.EquipmentID, &c.Value,
			&c.Type.ID, &c.Type.Name, &valueType, &c.Type.Description, &c.Type.GroupID)
		c.Type.ValueType = labdb.ValueType(valueType)
		return c, err
	})
}

func (r *EquipmentRepository) CreateSoftwareVariant(ctx context.Context, name, description string) (*labdb.SoftwareVariant, error) {
	if name == "" {
		return nil, labdb.NewValidationError("name", "is required")
	}
	v := &labdb.SoftwareVariant{Name: name, Description: description}
	err := r.pool.QueryRow(ctx,
		"INSERT INTO software_variant (name, description) VALUES ($1, $2) RETURNING id",
		name, description,
	).Scan(&v.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert software variant: %w", err), "software variant", name)
	}
	return v, nil
}

func (r *EquipmentRepository) AddSoftwareVariant(ctx context.Context, softwareID, variantID int64) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO software_variants (software_id, variant_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		softwareID, variantID,
	)
	if err != nil {
		return mapError(fmt.Errorf("link software variant: %w", err), "software", idKey(softwareID))
	}
	return nil
}

func (r *EquipmentRepository) SoftwareVariants(ctx context.Context, softwareID int64) ([]labdb.SoftwareVariant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT v.id, v.name, v.description FROM software_variant v
			JOIN software_variants sv ON sv.variant_id = v.id
			WHERE sv.software_id = $1
			ORDER BY v.name`,
		softwareID,
	)
	if err != nil {
		return nil, fmt.Errorf("query software variants: %w", err)
	}
	return collectRows(rows, func(row pgx.Rows) (labdb.SoftwareVariant, error) {
		var v labdb.SoftwareVariant
		err := row.Scan(&v.ID, &v.Name, &v.Description)
		return v, err
	})
}
