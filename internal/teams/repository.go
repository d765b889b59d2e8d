package teams

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ods-ops/ods/internal/rbac"
	"github.com/ods-ops/ods/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const teamColumns = `t.id, t.name, t.org_id, t.lead_id, t.is_active, t.created_at`

const teamScope = ` FROM teams t
WHERE ($1::bigint IS NULL OR t.org_id = $1)
  AND ($2::bigint IS NULL OR t.lead_id = $2 OR EXISTS (
      SELECT 1 FROM team_members m WHERE m.team_id = t.id AND m.user_id = $2 AND m.is_active))`

// List returns one page of teams and the total matching count.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Team, int, error) {
	orgArg, memberArg := nullable(filter.OrgID), nullable(filter.MemberID)
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+teamScope, orgArg, memberArg).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+teamColumns+teamScope+` ORDER BY t.name, t.id LIMIT $3 OFFSET $4`,
		orgArg, memberArg, filter.PerPage, shared.Offset(filter.Page, filter.PerPage))
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	teams := make([]Team, 0, filter.PerPage)
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, 0, err
		}
		teams = append(teams, *team)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return teams, total, nil
}

// Get fetches a single team.
func (r *Repository) Get(ctx context.Context, id int64) (*Team, error) {
	team, err := scanTeam(r.pool.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams t WHERE t.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	return team, err
}

// IsMember reports whether userID holds an active membership in teamID.
func (r *Repository) IsMember(ctx context.Context, teamID, userID int64) (bool, error) {
	var member bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (
    SELECT 1 FROM team_members WHERE team_id = $1 AND user_id = $2 AND is_active)`, teamID, userID).Scan(&member)
	return member, err
}

// Members lists the active members of a team.
func (r *Repository) Members(ctx context.Context, teamID int64) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `SELECT u.id, u.user_name, u.user_role, m.joined_at
FROM team_members m
JOIN users u ON u.id = m.user_id
WHERE m.team_id = $1 AND m.is_active
ORDER BY u.user_name`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []Member
	for rows.Next() {
		var (
			member Member
			role   string
		)
		if err := rows.Scan(&member.UserID, &member.UserName, &role, &member.JoinedAt); err != nil {
			return nil, err
		}
		if member.Role, err = rbac.ParseRole(role); err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

func scanTeam(row pgx.Row) (*Team, error) {
	var (
		team   Team
		leadID sql.NullInt64
	)
	if err := row.Scan(&team.ID, &team.Name, &team.OrgID, &leadID, &team.IsActive, &team.CreatedAt); err != nil {
		return nil, err
	}
	team.LeadID = leadID.Int64
	return &team, nil
}

func nullable(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

var _ RepositoryPort = (*Repository)(nil)
