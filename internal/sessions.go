package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/labdb"
	"go.uber.org/zap"
)

const defaultSessionTTL = 24 * time.Hour

// SessionRepository implements labdb.SessionStore. Session data is stored as
// a JSONB object.
type SessionRepository struct {
	clock
	pool   dbPool
	ttl    time.Duration
	newKey func() string
}

var _ labdb.SessionStore = (*SessionRepository)(nil)

func NewSessionRepository(pool dbPool, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionRepository{pool: pool, ttl: ttl, newKey: uuid.NewString}
}

func (r *SessionRepository) CreateSession(ctx context.Context, userID *int64) (*labdb.WebSession, error) {
	s := labdb.NewWebSession(r.newKey(), r.now().Add(r.ttl))
	s.UserID = userID

	_, err := r.pool.Exec(ctx,
		`INSERT INTO client_session (session_key, session_data, user_id, expire_date)
			VALUES ($1, $2, $3, $4)`,
		s.Key, []byte("{}"), s.UserID, s.ExpireDate,
	)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert session: %w", err), "session", s.Key)
	}
	return s, nil
}

// GetSession loads a live session. Expired sessions are reported as not
// found.
func (r *SessionRepository) GetSession(ctx context.Context, key string) (*labdb.WebSession, error) {
	var (
		data   []byte
		userID *int64
		expire time.Time
	)
	err := r.pool.QueryRow(ctx,
		"SELECT session_data, user_id, expire_date FROM client_session WHERE session_key = $1",
		key,
	).Scan(&data, &userID, &expire)
	if err != nil {
		return nil, mapError(err, "session", key)
	}

	s := labdb.NewWebSession(key, expire.UTC())
	s.UserID = userID
	if s.Expired(r.now()) {
		return nil, labdb.NewNotFoundError("session", key).WithDetail("expired", true)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.Data); err != nil {
			return nil, fmt.Errorf("decode session data: %w", err)
		}
	}
	if s.Data == nil {
		s.Data = map[string]any{}
	}
	return s, nil
}

func (r *SessionRepository) SaveSession(ctx context.Context, s *labdb.WebSession) error {
	if s == nil {
		return fmt.Errorf("session cannot be nil")
	}
	data, err := marshalValue(s.Data)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE client_session SET session_data = $1, user_id = $2, expire_date = $3
			WHERE session_key = $4`,
		data, s.UserID, s.ExpireDate, s.Key,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return expectAffected(tag, "session", s.Key)
}

// DeleteSession removes a session. Deleting an unknown key is not an error.
func (r *SessionRepository) DeleteSession(ctx context.Context, key string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM client_session WHERE session_key = $1", key); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM client_session WHERE expire_date <= $1", r.now())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		zap.S().Infow("reaped expired sessions", "count", n)
	}
	return tag.RowsAffected(), nil
}
