package factory

import (
	"context"
	"errors"
	"testing"

	"github.com/lychee-technology/labdb"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableRows(tables []string) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{"table_name"})
	for _, t := range tables {
		rows.AddRow(t)
	}
	return rows
}

func expectHealthy(mock pgxmock.PgxPoolIface) {
	mock.ExpectQuery(`^SELECT 1$`).WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))
}

func TestNewStoreWiresEveryRepository(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	tables := append(labdb.RequiredTables(), "auth_user_groups", "country_sets_countries")
	expectHealthy(mock)
	mock.ExpectQuery(`FROM information_schema.tables`).WillReturnRows(tableRows(tables))

	store, err := NewStore(context.Background(), labdb.DefaultConfig(), mock)
	require.NoError(t, err)
	assert.NotNil(t, store.Users)
	assert.NotNil(t, store.Sessions)
	assert.NotNil(t, store.Config)
	assert.NotNil(t, store.Countries)
	assert.NotNil(t, store.Languages)
	assert.NotNil(t, store.Attributes)
	assert.NotNil(t, store.Equipment)
	assert.NotNil(t, store.Tests)
	assert.NotNil(t, store.Schedules)
	assert.NotNil(t, store.Traps)
	assert.NotNil(t, store.Directory)
	assert.NotNil(t, store.Projects)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewStoreReportsMissingTables(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectHealthy(mock)
	mock.ExpectQuery(`FROM information_schema.tables`).
		WillReturnRows(tableRows([]string{"auth_user", "auth_group"}))

	_, err = NewStore(context.Background(), nil, mock)
	require.Error(t, err)

	var le *labdb.LabError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, labdb.ErrCodeMissingTables, le.Code)
	missing, ok := le.Details["missing"].([]string)
	require.True(t, ok)
	assert.Contains(t, missing, "test_results")
	assert.NotContains(t, missing, "auth_user")
}

func TestNewStoreQueryFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expectHealthy(mock)
	mock.ExpectQuery(`FROM information_schema.tables`).WillReturnError(errors.New("permission denied"))

	_, err = NewStore(context.Background(), nil, mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to verify database connection")
}

func TestNewStoreFailsFastWhenDatabaseIsDown(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	refused := errors.New("connection refused")
	mock.ExpectQuery(`^SELECT 1$`).WillReturnError(refused)

	_, err = NewStore(context.Background(), nil, mock)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is not reachable")
	assert.ErrorIs(t, err, refused)
	require.NoError(t, mock.ExpectationsWereMet())
}
