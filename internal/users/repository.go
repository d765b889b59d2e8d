package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ods-ops/ods/internal/platform/httpx"
	"github.com/ods-ops/ods/internal/rbac"
	"github.com/ods-ops/ods/internal/shared"
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, user_name, COALESCE(employee_id, ''), user_role, org_id, is_active, last_login, created_at, modified_at`

// List returns one page of users and the total matching count.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]User, int, error) {
	var orgArg *int64
	if filter.OrgID != 0 {
		orgArg = &filter.OrgID
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE ($1::bigint IS NULL OR org_id = $1)`, orgArg).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE ($1::bigint IS NULL OR org_id = $1) ORDER BY id LIMIT $2 OFFSET $3`,
		orgArg, filter.PerPage, shared.Offset(filter.Page, filter.PerPage))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	users := make([]User, 0, filter.PerPage)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Get fetches a single user.
func (r *Repository) Get(ctx context.Context, id int64) (*User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	return user, err
}

// Create inserts a new account.
func (r *Repository) Create(ctx context.Context, in NewUser) (*User, error) {
	var orgArg *int64
	if in.OrgID != 0 {
		orgArg = &in.OrgID
	}
	var employeeArg *string
	if in.EmployeeID != "" {
		employeeArg = &in.EmployeeID
	}
	user, err := scanUser(r.pool.QueryRow(ctx, `INSERT INTO users (user_name, employee_id, password_hash, user_role, org_id, is_active)
VALUES ($1, $2, $3, $4, $5, TRUE)
RETURNING `+userColumns, in.UserName, employeeArg, in.PasswordHash, string(in.Role), orgArg))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("user name %q: %w", in.UserName, httpx.ErrConflict)
		}
		return nil, err
	}
	return user, nil
}

// UpdateRole changes the role and bumps token_version so that tokens
// issued under the old role stop validating.
func (r *Repository) UpdateRole(ctx context.Context, id int64, role rbac.Role) (*User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `UPDATE users SET user_role = $2, token_version = token_version + 1, modified_at = NOW()
WHERE id = $1
RETURNING `+userColumns, id, string(role)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	return user, err
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		user      User
		role      string
		orgID     sql.NullInt64
		lastLogin sql.NullTime
	)
	if err := row.Scan(&user.ID, &user.UserName, &user.EmployeeID, &role, &orgID, &user.IsActive, &lastLogin, &user.CreatedAt, &user.UpdatedAt); err != nil {
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

var _ RepositoryPort = (*Repository)(nil)
