package internal

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/labdb"
	"go.uber.org/zap"
)

const userColumns = "id, username, first_name, last_name, email, password, authservice, is_staff, is_active, is_superuser, last_login, date_joined"

const defaultUserGroup = "tester"

// UserRepository implements labdb.UserStore.
type UserRepository struct {
	clock
	pool         dbPool
	defaultGroup string
}

var _ labdb.UserStore = (*UserRepository)(nil)

// NewUserRepository creates a user repository. Users provisioned from passwd
// entries join defaultGroup, or "tester" when it is empty.
func NewUserRepository(pool dbPool, defaultGroup string) *UserRepository {
	if defaultGroup == "" {
		defaultGroup = defaultUserGroup
	}
	return &UserRepository{pool: pool, defaultGroup: defaultGroup}
}

func scanUser(row pgx.Row) (*labdb.User, error) {
	var (
		u          labdb.User
		lastLogin  *time.Time
		dateJoined *time.Time
	)
	if err := row.Scan(
		&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
		&u.AuthService, &u.IsStaff, &u.IsActive, &u.IsSuperuser, &lastLogin, &dateJoined,
	); err != nil {
		return nil, err
	}
	u.LastLogin = nullableTime(lastLogin)
	u.DateJoined = nullableTime(dateJoined)
	return &u, nil
}

func (r *UserRepository) insertUser(ctx context.Context, q querier, user *labdb.User, password string) error {
	if strings.TrimSpace(user.Username) == "" {
		return labdb.NewValidationError("username", "is required")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	if user.AuthService == "" {
		user.AuthService = labdb.AuthServiceLocal
	}
	if _, ok := labdb.AuthServiceProfile(user.AuthService); !ok {
		return labdb.NewValidationError("authservice", fmt.Sprintf("unknown auth service %q", user.AuthService))
	}
	if user.DateJoined == nil {
		user.DateJoined = timePtr(r.now())
	}

	err = q.QueryRow(ctx,
		`INSERT INTO auth_user (username, first_name, last_name, email, password, authservice, is_staff, is_active, is_superuser, last_login, date_joined)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id`,
		user.Username, user.FirstName, user.LastName, user.Email, hash, user.AuthService,
		user.IsStaff, user.IsActive, user.IsSuperuser, user.LastLogin, user.DateJoined,
	).Scan(&user.ID)
	if err != nil {
		return mapError(fmt.Errorf("insert user: %w", err), "user", user.Username)
	}
	user.PasswordHash = hash
	return nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *labdb.User, password string) (*labdb.User, error) {
	if user == nil {
		return nil, fmt.Errorf("user cannot be nil")
	}
	if err := r.insertUser(ctx, r.pool, user, password); err != nil {
		return nil, err
	}
	zap.S().Infow("created user", "username", user.Username, "id", user.ID)
	return user, nil
}

func (r *UserRepository) GetUser(ctx context.Context, id int64) (*labdb.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM auth_user WHERE id = $1", id))
	if err != nil {
		return nil, mapError(err, "user", idKey(id))
	}
	return u, nil
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*labdb.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM auth_user WHERE username = $1", username))
	if err != nil {
		return nil, mapError(err, "user", username)
	}
	return u, nil
}

func (r *UserRepository) SetPassword(ctx context.Context, id int64, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, "UPDATE auth_user SET password = $1 WHERE id = $2", hash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectAffected(tag, "user", idKey(id))
}

// Authenticate checks a username and password. On success the user's last
// login is set to now, which also rotates their session key.
func (r *UserRepository) Authenticate(ctx context.Context, username, password string) (*labdb.User, error) {
	user, err := r.GetUserByUsername(ctx, username)
	if err != nil {
		if labdb.IsNotFound(err) {
			return nil, labdb.NewUnauthorizedError(labdb.ErrCodeInvalidCredentials, "invalid username or password")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, labdb.NewUnauthorizedError(labdb.ErrCodeInactiveUser, "account is disabled")
	}
	ok, err := checkPassword(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		zap.S().Debugw("password mismatch", "username", username)
		return nil, labdb.NewUnauthorizedError(labdb.ErrCodeInvalidCredentials, "invalid username or password")
	}

	now := r.now()
	if _, err := r.pool.Exec(ctx, "UPDATE auth_user SET last_login = $1 WHERE id = $2", now, user.ID); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}
	user.LastLogin = &now
	return user, nil
}

// CreateUserFromPasswd provisions a system-authenticated user from a passwd
// entry. The user gets a temporary password and joins the default group,
// which must already exist.
func (r *UserRepository) CreateUserFromPasswd(ctx context.Context, entry labdb.PasswdEntry) (*labdb.User, error) {
	if entry.Name == "" {
		return nil, labdb.NewValidationError("name", "passwd entry has no login name")
	}
	first, last := splitGecos(entry.Name, entry.Gecos)
	now := r.now()
	user := &labdb.User{
		Username:    entry.Name,
		FirstName:   first,
		LastName:    last,
		AuthService: labdb.AuthServiceSystem,
		IsStaff:     true,
		IsActive:    true,
		LastLogin:   timePtr(now),
		DateJoined:  timePtr(now),
	}

	err := withTx(ctx, r.pool, func(tx pgx.Tx) error {
		var group labdb.Group
		if err := tx.QueryRow(ctx, "SELECT id, name FROM auth_group WHERE name = $1", r.defaultGroup).
			Scan(&group.ID, &group.Name); err != nil {
			return mapError(err, "group", r.defaultGroup)
		}
		if err := r.insertUser(ctx, tx, user, defaultPassword(entry.Name)); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			"INSERT INTO auth_user_groups (user_id, group_id) VALUES ($1, $2)",
			user.ID, group.ID,
		); err != nil {
			return fmt.Errorf("add user to group: %w", err)
		}
		user.Groups = []labdb.Group{group}
		return nil
	})
	if err != nil {
		return nil, err
	}
	zap.S().Infow("provisioned user from passwd entry", "username", user.Username, "group", r.defaultGroup)
	return user, nil
}

func (r *UserRepository) EnsureGroup(ctx context.Context, name string) (*labdb.Group, error) {
	if strings.TrimSpace(name) == "" {
		return nil, labdb.NewValidationError("name", "is required")
	}
	var g labdb.Group
	err := r.pool.QueryRow(ctx,
		`INSERT INTO auth_group (name) VALUES ($1)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id, name`,
		name,
	).Scan(&g.ID, &g.Name)
	if err != nil {
		return nil, fmt.Errorf("ensure group: %w", err)
	}
	return &g, nil
}

func (r *UserRepository) AddUserToGroup(ctx context.Context, userID, groupID int64) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO auth_user_groups (user_id, group_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		userID, groupID,
	)
	if err != nil {
		return mapError(fmt.Errorf("add user to group: %w", err), "group membership", idKey(userID))
	}
	return nil
}

func (r *UserRepository) UserGroups(ctx context.Context, userID int64) ([]labdb.Group, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT g.id, g.name FROM auth_group g
			JOIN auth_user_groups ug ON ug.group_id = g.id
			WHERE ug.user_id = $1
			ORDER BY g.name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query user groups: %w", err)
	}
	return collectRows(rows, func(row pgx.Rows) (labdb.Group, error) {
		var g labdb.Group
		err := row.Scan(&g.ID, &g.Name)
		return g, err
	})
}

// UserPermissions lists permissions granted directly and through groups.
func (r *UserRepository) UserPermissions(ctx context.Context, userID int64) ([]labdb.Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.name, p.codename FROM auth_permission p
			WHERE p.id IN (
				SELECT up.permission_id FROM auth_user_user_permissions up WHERE up.user_id = $1
				UNION
				SELECT gp.permission_id FROM auth_group_permissions gp
					JOIN auth_user_groups ug ON ug.group_id = gp.group_id
					WHERE ug.user_id = $1
			)
			ORDER BY p.codename`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query user permissions: %w", err)
	}
	return collectRows(rows, func(row pgx.Rows) (labdb.Permission, error) {
		var p labdb.Permission
		err := row.Scan(&p.ID, &p.Name, &p.Codename)
		return p, err
	})
}

func (r *UserRepository) AddMessage(ctx context.Context, userID int64, message string) (*labdb.UserMessage, error) {
	m := labdb.UserMessage{UserID: userID, Message: message}
	err := r.pool.QueryRow(ctx,
		"INSERT INTO auth_message (user_id, message) VALUES ($1, $2) RETURNING id",
		userID, message,
	).Scan(&m.ID)
	if err != nil {
		return nil, mapError(fmt.Errorf("insert message: %w", err), "user", idKey(userID))
	}
	return &m, nil
}

// PopMessages returns and removes every pending message for the user.
func (r *UserRepository) PopMessages(ctx context.Context, userID int64) ([]labdb.UserMessage, error) {
	rows, err := r.pool.Query(ctx,
		"DELETE FROM auth_message WHERE user_id = $1 RETURNING id, user_id, message",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("delete messages: %w", err)
	}
	msgs, err := collectRows(rows, func(row pgx.Rows) (labdb.UserMessage, error) {
		var m labdb.UserMessage
		err := row.Scan(&m.ID, &m.UserID, &m.Message)
		return m, err
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })
	return msgs, nil
}
