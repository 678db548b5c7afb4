package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lychee-technology/labdb"
)

// dbPool is the subset of *pgxpool.Pool the repositories need. pgxmock pools
// satisfy it in tests.
type dbPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// querier is implemented by both pools and transactions.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// withTx runs fn in a transaction and commits when fn succeeds.
func withTx(ctx context.Context, pool dbPool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op if committed

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return labdb.NewTransactionError("commit transaction", err)
	}
	return nil
}

// mapError converts driver errors into LabErrors. kind and key describe the
// record the statement touched.
func mapError(err error, kind, key string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return labdb.NewNotFoundError(kind, key).WithCause(err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return labdb.NewConflictError(kind, key).WithCause(err)
		case pgForeignKeyViolation:
			return labdb.NewValidationError(kind, "references a missing record").
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		}
	}
	return err
}

// isForeignKeyViolation reports whether err is a 23503 from the server.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

// expectAffected turns a zero-row update or delete into NotFound.
func expectAffected(tag pgconn.CommandTag, kind, key string) error {
	if tag.RowsAffected() == 0 {
		return labdb.NewNotFoundError(kind, key)
	}
	return nil
}

func sanitizeIdentifier(name string) string {
	if name == "" {
		return ""
	}
	parts := strings.Split(name, ".")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.Trim(part, " \"")
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}
	if len(clean) == 0 {
		clean = []string{name}
	}
	return pgx.Identifier(clean).Sanitize()
}

// marshalValue encodes a Go value as a JSONB document. Raw JSON passes
// through unchanged.
func marshalValue(value any) ([]byte, error) {
	switch v := value.(type) {
	case json.RawMessage:
		if len(v) == 0 {
			return []byte("null"), nil
		}
		if !json.Valid(v) {
			return nil, labdb.NewValidationError("value", "invalid JSON document")
		}
		return v, nil
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return nil, labdb.NewValidationError("value", err.Error()).WithCause(err)
		}
		return data, nil
	}
}

// clock is embedded by repositories that stamp rows with the current time.
type clock struct {
	nowFunc func() time.Time
}

func (c *clock) withClock(now func() time.Time) {
	if now == nil {
		return
	}
	c.nowFunc = now
}

func (c *clock) now() time.Time {
	if c.nowFunc == nil {
		return time.Now().UTC()
	}
	return c.nowFunc().UTC()
}

func idKey(id int64) string {
	return fmt.Sprintf("%d", id)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

// nullableTime converts a scanned nullable timestamp to a UTC pointer.
func nullableTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}

// collectRows drains rows through scan.
func collectRows[T any](rows pgx.Rows, scan func(pgx.Rows) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}
