package internal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/labdb"
)

const softwareColumns = "s.id, s.name, s.category_id, s.manufacturer, s.version"

func scanSoftware(row pgx.Rows) (labdb.Software, error) {
	var s labdb.Software
	err := row.Scan(&s.ID, &s.Name, &s.CategoryID, &s.Manufacturer, &s.Version)
	return s, err
}

func (r *EquipmentRepository) CreateSoftwareCategory(ctx context.Context, name, description string) (*labdb.SoftwareCategory, error) {
	c := &labdb.SoftwareCategory{Name: name, Description: description}
	err := r.pool.QueryRow(ctx,
		"INSERT INTO software_category (name, description) VALUES ($1, $2) RETURNING id",
		name, description,
	).Scan(&c.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert software category: %w", err), "software category", name)
	}
	return c, nil
}

func (r *EquipmentRepository) CreateSoftware(ctx context.Context, s *labdb.Software) (*labdb.Software, error) {
	if s == nil || s.Name == "" {
		return nil, labdb.NewValidationError("name", "is required")
	}
	err := r.pool.QueryRow(ctx,
		"INSERT INTO software (name, category_id, manufacturer, version) VALUES ($1, $2, $3, $4) RETURNING id",
		s.Name, s.CategoryID, s.Manufacturer, s.Version,
	).Scan(&s.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert software: %w", err), "software", s.Name)
	}
	return s, nil
}

// CreateModel stores a model together with its embedded software links.
func (r *EquipmentRepository) CreateModel(ctx context.Context, m *labdb.EquipmentModel) (*labdb.EquipmentModel, error) {
	if m == nil || m.Name == "" {
		return nil, labdb.NewValidationError("name", "is required")
	}
	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx,
			"INSERT INTO equipment_model (name, manufacturer, category_id, note) VALUES ($1, $2, $3, $4) RETURNING id",
			m.Name, m.Manufacturer, m.CategoryID, m.Note,
		).Scan(&m.ID); err != nil {
			return mapError(fmt.Errorf("insert equipment model: %w", err), "equipment model", m.Name)
		}
		for _, sw := range m.EmbeddedSoftware {
			if _, err := tx.Exec(ctx,
				"INSERT INTO equipment_model_embeddedsoftware (equipmentmodel_id, software_id) VALUES ($1, $2)",
				m.ID, sw.ID,
			); err != nil {
				return mapError(fmt.Errorf("link embedded software: %w", err), "software", idKey(sw.ID))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *EquipmentRepository) GetModel(ctx context.Context, id int64) (*labdb.EquipmentModel, error) {
	var m labdb.EquipmentModel
	err := r.pool.QueryRow(ctx,
		"SELECT id, name, manufacturer, category_id, note FROM equipment_model WHERE id = $1",
		id,
	).Scan(&m.ID, &m.Name, &m.Manufacturer, &m.CategoryID, &m.Note)
	if err != nil {
		return nil, mapError(err, "equipment model", idKey(id))
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+softwareColumns+` FROM software s
			JOIN equipment_model_embeddedsoftware es ON es.software_id = s.id
			WHERE es.equipmentmodel_id = $1
			ORDER BY s.name`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("query embedded software: %w", err)
	}
	m.EmbeddedSoftware, err = collectRows(rows, scanSoftware)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *EquipmentRepository) AddEmbeddedSoftware(ctx context.Context, modelID, softwareID int64) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO equipment_model_embeddedsoftware (equipmentmodel_id, software_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		modelID, softwareID,
	)
	if err != nil {
		return mapError(fmt.Errorf("link embedded software: %w", err), "equipment model", idKey(modelID))
	}
	return nil
}

func (r *EquipmentRepository) AttachSoftware(ctx context.Context, equipmentID, softwareID int64) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO equipment_software (equipment_id, software_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		equipmentID, softwareID,
	)
	if err != nil {
		return mapError(fmt.Errorf("attach software: %w", err), "equipment", idKey(equipmentID))
	}
	return nil
}

func (r *EquipmentRepository) DetachSoftware(ctx context.Context, equipmentID, softwareID int64) error {
	tag, err := r.pool.Exec(ctx,
		"DELETE FROM equipment_software WHERE equipment_id = $1 AND software_id = $2",
		equipmentID, softwareID,
	)
	if err != nil {
		return fmt.Errorf("detach software: %w", err)
	}
	return expectAffected(tag, "installed software", idKey(softwareID))
}

// EquipmentSoftware lists the software installed on a piece of equipment.
func (r *EquipmentRepository) EquipmentSoftware(ctx context.Context, equipmentID int64) ([]labdb.Software, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+softwareColumns+` FROM software s
			JOIN equipment_software es ON es.software_id = s.id
			WHERE es.equipment_id = $1
			ORDER BY s.name`,
		equipmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query installed software: %w", err)
	}
	return collectRows(rows, scanSoftware)
}
