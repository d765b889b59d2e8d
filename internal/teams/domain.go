package teams

import (
	"time"

	"github.com/ods-ops/ods/internal/rbac"
)

// Team is a working group inside one organization.
type Team struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	OrgID     int64     `json:"org_id"`
	LeadID    int64     `json:"lead_id,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (t *Team) scope() rbac.Team {
	return rbac.Team{ID: t.ID, OrgID: t.OrgID, LeadID: t.LeadID}
}

// Member is an active membership of a team.
type Member struct {
	UserID   int64     `json:"user_id"`
	UserName string    `json:"user_name"`
	Role     rbac.Role `json:"user_role"`
	JoinedAt time.Time `json:"joined_at"`
}

// ListFilter narrows a team listing. Zero fields impose nothing. MemberID
// keeps the teams that user leads or belongs to.
type ListFilter struct {
	OrgID    int64
	MemberID int64
	Page     int
	PerPage  int
}
