package internal

import (
	"context"
	"testing"

	"github.com/lychee-technology/labdb"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var softwareRowColumns = []string{"id", "name", "category_id", "manufacturer", "version"}

func TestCreateSoftware(t *testing.T) {
	repo, mock := newTestEquipmentRepo(t)
	catID := int64(2)

	mock.ExpectQuery(`^INSERT INTO software \(name, category_id, manufacturer, version\)`).
		WithArgs("firmware", &catID, "Acme", "1.2").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(5)))

	s, err := repo.CreateSoftware(context.Background(), &labdb.Software{Name: "firmware", CategoryID: &catID, Manufacturer: "Acme", Version: "1.2"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), s.ID)

	_, err = repo.CreateSoftware(context.Background(), &labdb.Software{})
	assert.True(t, labdb.IsValidation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateModelWithEmbeddedSoftware(t *testing.T) {
	repo, mock := newTestEquipmentRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`^INSERT INTO equipment_model`).
		WithArgs("WRT54G", "Linksys", (*int64)(nil), "").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectExec(`^INSERT INTO equipment_model_embeddedsoftware`).
		WithArgs(int64(9), int64(5)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	m, err := repo.CreateModel(context.Background(), &labdb.EquipmentModel{
		Name:             "WRT54G",
		Manufacturer:     "Linksys",
		EmbeddedSoftware: []labdb.Software{{ID: 5, Name: "firmware"}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(9), m.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetModelLoadsEmbeddedSoftware(t *testing.T) {
	repo, mock := newTestEquipmentRepo(t)

	mock.ExpectQuery(`FROM equipment_model WHERE id = \$1`).
		WithArgs(int64(9)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "manufacturer", "category_id", "note"}).
			AddRow(int64(9), "WRT54G", "Linksys", (*int64)(nil), ""))
	mock.ExpectQuery(`JOIN equipment_model_embeddedsoftware`).
		WithArgs(int64(9)).
		WillReturnRows(pgxmock.NewRows(softwareRowColumns).
			AddRow(int64(5), "firmware", (*int64)(nil), "Acme", "1.2"))

	m, err := repo.GetModel(context.Background(), 9)
	require.NoError(t, err)
	require.Len(t, m.EmbeddedSoftware, 1)
	assert.Equal(t, "firmware", m.EmbeddedSoftware[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEquipmentSoftware(t *testing.T) {
	repo, mock := newTestEquipmentRepo(t)

	mock.ExpectExec(`^INSERT INTO equipment_software`).
		WithArgs(int64(10), int64(5)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`JOIN equipment_software es`).
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows(softwareRowColumns).
			AddRow(int64(5), "firmware", (*int64)(nil), "Acme", "1.2"))

	require.NoError(t, repo.AttachSoftware(context.Background(), 10, 5))
	sw, err := repo.EquipmentSoftware(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []labdb.Software{{ID: 5, Name: "firmware", Manufacturer: "Acme", Version: "1.2"}}, sw)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftwareVariants(t *testing.T) {
	repo, mock := newTestEquipmentRepo(t)

	mock.ExpectQuery(`^INSERT INTO software_variant \(name, description\)`).
		WithArgs("debug", "assertions enabled").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectExec(`^INSERT INTO software_variants`).
		WithArgs(int64(5), int64(3)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`JOIN software_variants sv`).
		WithArgs(int64(5)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description"}).
			AddRow(int64(3), "debug", "assertions enabled"))

	v, err := repo.CreateSoftwareVariant(context.Background(), "debug", "assertions enabled")
	require.NoError(t, err)
	require.NoError(t, repo.AddSoftwareVariant(context.Background(), 5, v.ID))
	variants, err := repo.SoftwareVariants(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []labdb.SoftwareVariant{*v}, variants)

	_, err = repo.CreateSoftwareVariant(context.Background(), "", "")
	assert.True(t, labdb.IsValidation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

var capabilityTypeColumns = []string{"id", "name", "value_type", "description", "group_id"}

func TestCreateCapabilityType(t *testing.T) {
	repo, mock := newTestEquipmentRepo(t)
	groupID := int64(1)

	mock.ExpectQuery(`^INSERT INTO capability_group`).
		WithArgs("radio").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(groupID))
	mock.ExpectQuery(`^INSERT INTO capability_type`).
		WithArgs("channels", int16(labdb.ValueInteger), "usable channels", &groupID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(4)))

	g, err := repo.CreateCapabilityGroup(context.Background(), "radio")
	require.NoError(t, err)
	ct, err := repo.CreateCapabilityType(context.Background(), &labdb.CapabilityType{
		Name: "channels", ValueType: labdb.ValueInteger, Description: "usable channels", GroupID: &g.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), ct.ID)

	_, err = repo.CreateCapabilityType(context.Background(), &labdb.CapabilityType{Name: "bad", ValueType: labdb.ValueType(99)})
	assert.True(t, labdb.IsValidation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetCapability(t *testing.T) {
	repo, mock := newTestEquipmentRepo(t)

	mock.ExpectQuery(`FROM capability_type WHERE name = \$1`).
		WithArgs("channels").
		WillReturnRows(pgxmock.NewRows(capabilityTypeColumns).
			AddRow(int64(4), "channels", int16(labdb.ValueInteger), "", (*int64)(nil)))
	mock.ExpectQuery(`(?s)^INSERT INTO capability .* ON CONFLICT \(equipment_id, type_id\) DO UPDATE`).
		WithArgs(int64(10), int64(4), []byte("11")).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(8)))

	c, err := repo.SetCapability(context.Background(), 10, "channels", 11)
	require.NoError(t, err)
	assert.Equal(t, int64(8), c.ID)
	assert.JSONEq(t, "11", string(c.Value))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetCapabilityRejectsWrongType(t *testing.T) {
	repo, mock := newTestEquipmentRepo(t)

	mock.ExpectQuery(`FROM capability_type WHERE name = \$1`).
		WithArgs("channels").
		WillReturnRows(pgxmock.NewRows(capabilityTypeColumns).
			AddRow(int64(4), "channels", int16(labdb.ValueInteger), "", (*int64)(nil)))

	_, err := repo.SetCapability(context.Background(), 10, "channels", "eleven")
	assert.True(t, labdb.IsValidation(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCapabilities(t *testing.T) {
	repo, mock := newTestEquipmentRepo(t)

	mock.ExpectQuery(`JOIN capability_type t ON t.id = c.type_id`).
		WithArgs(int64(10)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "equipment_id", "value", "id", "name", "value_type", "description", "group_id"}).
			AddRow(int64(8), int64(10), []byte("11"), int64(4), "channels", int16(labdb.ValueInteger), "", (*int64)(nil)))

	caps, err := repo.Capabilities(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, caps, 1)
	assert.Equal(t, "channels", caps[0].Type.Name)
	assert.Equal(t, labdb.ValueInteger, caps[0].Type.ValueType)
	assert.JSONEq(t, "11", string(caps[0].Value))
	require.NoError(t, mock.ExpectationsWereMet())
}
