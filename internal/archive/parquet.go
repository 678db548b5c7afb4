package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/lychee-technology/labdb"
	"go.uber.org/zap"
)

// ParquetWriter renders results through an in-memory DuckDB database.
type ParquetWriter struct {
	MemoryLimitMB int
	Threads       int
	Compression   string
}

func NewParquetWriter() *ParquetWriter {
	return &ParquetWriter{Compression: "ZSTD"}
}

const createResultsTable = `CREATE TABLE test_results (
	id                  BIGINT,
	objecttype          VARCHAR,
	testcase_id         BIGINT,
	testimplementation  VARCHAR,
	tester_id           BIGINT,
	environment_id      BIGINT,
	parent_id           BIGINT,
	starttime           TIMESTAMP,
	endtime             TIMESTAMP,
	arguments           VARCHAR,
	result              VARCHAR,
	result_code         SMALLINT,
	diagnostic          VARCHAR,
	resultslocation     VARCHAR,
	testversion         VARCHAR,
	note                VARCHAR,
	valid               BOOLEAN,
	data_id             BIGINT
)`

func (w *ParquetWriter) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	db.SetMaxOpenConns(1)

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	if _, err := db.ExecContext(pctx, "LOAD parquet;"); err != nil {
		zap.S().Warnw("duckdb: load parquet failed", "err", err)
	}
	if w.MemoryLimitMB > 0 {
		if _, err := db.ExecContext(pctx, fmt.Sprintf("PRAGMA memory_limit='%dMB';", w.MemoryLimitMB)); err != nil {
			zap.S().Warnw("duckdb: set memory_limit failed", "err", err, "memoryLimitMB", w.MemoryLimitMB)
		}
	}
	if w.Threads > 0 {
		if _, err := db.ExecContext(pctx, fmt.Sprintf("PRAGMA threads=%d;", w.Threads)); err != nil {
			zap.S().Warnw("duckdb: set threads failed", "err", err, "threads", w.Threads)
		}
	}
	return db, nil
}

// WriteResults writes results to a Parquet file at path.
func (w *ParquetWriter) WriteResults(ctx context.Context, path string, results []labdb.TestResult) error {
	db, err := w.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, createResultsTable); err != nil {
		return fmt.Errorf("create results table: %w", err)
	}
	if err := insertResults(ctx, db, results); err != nil {
		return err
	}

	compression := w.Compression
	if compression == "" {
		compression = "ZSTD"
	}
	copyStmt := fmt.Sprintf("COPY (SELECT * FROM test_results ORDER BY starttime, id) TO '%s' (FORMAT PARQUET, COMPRESSION '%s');",
		escapeLiteral(path), escapeLiteral(compression))
	if _, err := db.ExecContext(ctx, copyStmt); err != nil {
		return fmt.Errorf("duckdb copy exec: %w", err)
	}
	return nil
}

func insertResults(ctx context.Context, db *sql.DB, results []labdb.TestResult) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin duckdb transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO test_results VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.ObjectType.String(), nullableID(r.TestCaseID), r.TestImplementation,
			nullableID(r.TesterID), nullableID(r.EnvironmentID), nullableID(r.ParentID),
			nullableTimestamp(r.StartTime), nullableTimestamp(r.EndTime), r.Arguments,
			r.Result.String(), int16(r.Result), r.Diagnostic, r.ResultsLocation, r.TestVersion, r.Note,
			r.Valid, nullableID(r.DataID),
		); err != nil {
			return fmt.Errorf("insert result %d: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func nullableTimestamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func escapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
