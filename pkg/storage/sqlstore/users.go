package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/platinummonkey/forum/pkg/apperr"
	"github.com/platinummonkey/forum/pkg/auth"
)

const userColumns = `id, username, email, password_hash, role, status, bio, avatar, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*auth.User, error) {
	u := &auth.User{}
	var role, status string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &status,
		&u.Bio, &u.Avatar, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = auth.Role(role)
	u.Status = auth.Status(status)
	return u, nil
}

// CreateUser inserts an account
func (s *Store) CreateUser(ctx context.Context, u *auth.User) (int64, error) {
	ts := now()
	role, status := u.Role, u.Status
	if role == "" {
		role = auth.RoleUser
	}
	if status == "" {
		status = auth.StatusActive
	}

	id, err := insert(ctx, s.db, s.rebind(`
		INSERT INTO users (username, email, password_hash, role, status, bio, avatar, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), u.Username, u.Email, u.PasswordHash, string(role), string(status), u.Bio, u.Avatar, ts, ts)
	if err != nil {
		if errors.Is(constraint(err), errUniqueViolation) {
			return 0, apperr.Conflict("username or email already exists")
		}
		return 0, classify("create user", err)
	}
	return id, nil
}

func (s *Store) getUser(ctx context.Context, where string, arg interface{}) (*auth.User, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+userColumns+` FROM users WHERE `+where), arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user")
	}
	if err != nil {
		return nil, classify("get user", err)
	}
	return u, nil
}

// GetUserByID loads an account by id
func (s *Store) GetUserByID(ctx context.Context, id int64) (*auth.User, error) {
	return s.getUser(ctx, "id = ?", id)
}

// GetUserByUsername loads an account by its exact username
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*auth.User, error) {
	return s.getUser(ctx, "username = ?", username)
}

// ListUsers returns every account ordered by id
func (s *Store) ListUsers(ctx context.Context) ([]*auth.User, error) {
	rows, err := s.reader().QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, classify("list users", err)
	}
	defer rows.Close()

	users := make([]*auth.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, classify("list users", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list users", err)
	}
	return users, nil
}

// UpdateUserProfile replaces the editable profile fields
func (s *Store) UpdateUserProfile(ctx context.Context, id int64, username, bio, avatar string) error {
	err := s.exec(ctx, "update user", "user",
		`UPDATE users SET username = ?, bio = ?, avatar = ?, updated_at = ? WHERE id = ?`,
		username, bio, avatar, now(), id)
	if errors.Is(constraint(err), errUniqueViolation) {
		return apperr.Conflict("username already exists")
	}
	return err
}

// SetUserStatus bans or reinstates an account
func (s *Store) SetUserStatus(ctx context.Context, id int64, status auth.Status) error {
	return s.exec(ctx, "update user status", "user",
		`UPDATE users SET status = ?, updated_at = ? WHERE id = ?`, string(status), now(), id)
}

// SetUserRole changes an account's role
func (s *Store) SetUserRole(ctx context.Context, id int64, role auth.Role) error {
	return s.exec(ctx, "update user role", "user",
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`, string(role), now(), id)
}

// DeleteUser removes an account; its topics and posts cascade
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	return s.exec(ctx, "delete user", "user", `DELETE FROM users WHERE id = ?`, id)
}
