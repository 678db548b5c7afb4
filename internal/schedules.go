package internal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/labdb"
)

// ScheduleRepository implements labdb.ScheduleStore.
type ScheduleRepository struct {
	pool dbPool
}

var _ labdb.ScheduleStore = (*ScheduleRepository)(nil)

func NewScheduleRepository(pool dbPool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

// defaultCronField fills an empty crontab field with "*".
func defaultCronField(field string) string {
	if f := strings.TrimSpace(field); f != "" {
		return f
	}
	return "*"
}

func (r *ScheduleRepository) CreateSchedule(ctx context.Context, s *labdb.Schedule) (*labdb.Schedule, error) {
	if s == nil || s.Name == "" {
		return nil, labdb.NewValidationError("name", "is required")
	}
	s.Minute = defaultCronField(s.Minute)
	s.Hour = defaultCronField(s.Hour)
	s.DayOfMonth = defaultCronField(s.DayOfMonth)
	s.Month = defaultCronField(s.Month)
	s.DayOfWeek = defaultCronField(s.DayOfWeek)

	err := r.pool.QueryRow(ctx,
		`INSERT INTO schedule (name, minute, hour, day_of_month, month, day_of_week, user_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
		s.Name, s.Minute, s.Hour, s.DayOfMonth, s.Month, s.DayOfWeek, s.UserID,
	).Scan(&s.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert schedule: %w", err), "schedule", s.Name)
	}
	return s, nil
}

func (r *ScheduleRepository) SchedulesForUser(ctx context.Context, userID int64) ([]labdb.Schedule, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, minute, hour, day_of_month, month, day_of_week, user_id
			FROM schedule WHERE user_id = $1 ORDER BY name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	return collectRows(rows, func(row pgx.Rows) (labdb.Schedule, error) {
		var s labdb.Schedule
		err := row.Scan(&s.ID, &s.Name, &s.Minute, &s.Hour, &s.DayOfMonth, &s.Month, &s.DayOfWeek, &s.UserID)
		return s, err
	})
}

func (r *ScheduleRepository) DeleteSchedule(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM schedule WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return expectAffected(tag, "schedule", idKey(id))
}

// TrapRepository implements labdb.TrapStore.
type TrapRepository struct {
	pool dbPool
}

var _ labdb.TrapStore = (*TrapRepository)(nil)

func NewTrapRepository(pool dbPool) *TrapRepository {
	return &TrapRepository{pool: pool}
}

const defaultTrapLimit = 100

// StoreTrap records a decoded trap. The value is kept as a JSON document.
func (r *TrapRepository) StoreTrap(ctx context.Context, ts time.Time, value any) (*labdb.Trap, error) {
	if ts.IsZero() {
		return nil, labdb.NewValidationError("timestamp", "is required")
	}
	data, err := marshalValue(value)
	if err != nil {
		return nil, err
	}
	trap := &labdb.Trap{Timestamp: ts.UTC(), Value: data}
	err = r.pool.QueryRow(ctx,
		"INSERT INTO traps (timestamp, value) VALUES ($1, $2) RETURNING id",
		trap.Timestamp, data,
	).Scan(&trap.ID)
	if err != nil {
		return nil, fmt.Errorf("insert trap: %w", err)
	}
	return trap, nil
}

// RecentTraps lists the newest traps first.
func (r *TrapRepository) RecentTraps(ctx context.Context, limit int) ([]labdb.Trap, error) {
	if limit <= 0 {
		limit = defaultTrapLimit
	}
	rows, err := r.pool.Query(ctx,
		"SELECT id, timestamp, value FROM traps ORDER BY timestamp DESC, id DESC LIMIT $1",
		int64(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("query traps: %w", err)
	}
	return collectRows(rows, func(row pgx.Rows) (labdb.Trap, error) {
		var (
			trap  labdb.Trap
			value []byte
		)
		err := row.Scan(&trap.ID, &trap.Timestamp, &value)
		trap.Timestamp = trap.Timestamp.UTC()
		trap.Value = value
		return trap, err
	})
}
