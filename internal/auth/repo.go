package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ods-ops/ods/internal/rbac"
	"github.com/ods-ops/ods/internal/shared"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByUserName(ctx context.Context, userName string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	BumpTokenVersion(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const selectUser = `SELECT id, user_name, employee_id, password_hash, user_role, org_id, is_active, token_version, last_login, created_at, modified_at FROM users`

// FindByUserName fetches a user by login name.
func (r *PGRepository) FindByUserName(ctx context.Context, userName string) (*User, error) {
	return r.scanOne(ctx, selectUser+` WHERE user_name = $1`, userName)
}

// FindByID fetches a user by primary key.
func (r *PGRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	return r.scanOne(ctx, selectUser+` WHERE id = $1`, id)
}

// TouchLastLogin records a successful sign in.
func (r *PGRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at.UTC())
	return err
}

// BumpTokenVersion invalidates every token issued to the user so far.
func (r *PGRepository) BumpTokenVersion(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET token_version = token_version + 1, modified_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *PGRepository) scanOne(ctx context.Context, query string, arg any) (*User, error) {
	var (
		user      User
		role      string
		orgID     sql.NullInt64
		lastLogin sql.NullTime
	)
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.UserName, &user.EmployeeID, &user.PasswordHash, &role, &orgID,
		&user.IsActive, &user.TokenVersion, &lastLogin, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	parsed, err := rbac.ParseRole(role)
	if err != nil {
		return nil, err
	}
	user.Role = parsed
	user.OrgID = orgID.Int64
	user.LastLogin = lastLogin.Time
	return &user, nil
}

var _ Repository = (*PGRepository)(nil)
