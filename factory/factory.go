package factory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lychee-technology/labdb"
	"github.com/lychee-technology/labdb/internal"
	"go.uber.org/zap"
)

// Pool is the connection pool the store runs on. *pgxpool.Pool implements it.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

const healthCheckTimeout = 5 * time.Second

// NewStore checks that the database answers, verifies that the schema is deployed and wires every repository
// onto pool.
//
// Usage:
//
//	cfg, _ := labdb.LoadConfig("labdb.yaml")
//	pool, _ := internal.NewPool(ctx, cfg.Database)
//	store, err := factory.NewStore(ctx, cfg, pool)
//	if err != nil {
//	    // handle error
//	}
func NewStore(ctx context.Context, cfg *labdb.Config, pool Pool) (*labdb.Store, error) {
	if cfg == nil {
		cfg = labdb.DefaultConfig()
	}
	if err := internal.PostgresHealthCheck(ctx, pool, healthCheckTimeout); err != nil {
		return nil, labdb.NewStorageError("database is not reachable", err)
	}
	if err := VerifySchema(ctx, pool); err != nil {
		return nil, err
	}

	store := &labdb.Store{
		Users:      internal.NewUserRepository(pool, cfg.Auth.DefaultGroup),
		Sessions:   internal.NewSessionRepository(pool, cfg.Auth.SessionTTL),
		Config:     internal.NewConfigRepository(pool),
		Countries:  internal.NewCountryRepository(pool),
		Languages:  internal.NewLanguageRepository(pool),
		Attributes: internal.NewAttributeRepository(pool),
		Equipment:  internal.NewEquipmentRepository(pool),
		Tests:      internal.NewTestRepository(pool),
		Schedules:  internal.NewScheduleRepository(pool),
		Traps:      internal.NewTrapRepository(pool),
		Directory:  internal.NewDirectoryRepository(pool),
		Projects:   internal.NewProjectRepository(pool),
	}
	zap.S().Infow("store ready", "models", len(labdb.ModelNames()))
	return store, nil
}

// VerifySchema reports MISSING_TABLES when any model table is absent from
// the public schema.
func VerifySchema(ctx context.Context, pool Pool) error {
	rows, err := pool.Query(ctx, `SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'`)
	if err != nil {
		return fmt.Errorf("failed to verify database connection: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating rows: %w", err)
	}

	var missing []string
	for _, table := range labdb.RequiredTables() {
		if !slices.Contains(tables, table) {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return &labdb.LabError{
			Type:    labdb.ErrorTypeStorage,
			Code:    labdb.ErrCodeMissingTables,
			Message: "required tables are missing: " + strings.Join(missing, ", "),
			Details: map[string]any{"missing": missing},
		}
	}
	return nil
}
