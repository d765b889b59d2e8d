package rbac

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownRole indicates a role tag outside the closed role set.
	ErrUnknownRole = errors.New("rbac: unknown role")
	// ErrUnknownPermission indicates a permission tag outside the catalog.
	ErrUnknownPermission = errors.New("rbac: unknown permission")
)

// Role identifies a principal's position in the organization hierarchy.
type Role string

const (
	RoleSuperAdmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleTeamLead   Role = "team_lead"
	RoleEmployee   Role = "employee"
)

// Roles returns every role ordered from highest to lowest rank.
func Roles() []Role {
	return []Role{RoleSuperAdmin, RoleAdmin, RoleTeamLead, RoleEmployee}
}

// ParseRole converts a raw tag into a Role.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.TrimSpace(strings.ToLower(raw)))
	if !role.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
	return role, nil
}

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleTeamLead, RoleEmployee:
		return true
	}
	return false
}

// Rank orders roles; higher is more privileged. Unknown roles rank 0.
func (r Role) Rank() int {
	switch r {
	case RoleSuperAdmin:
		return 4
	case RoleAdmin:
		return 3
	case RoleTeamLead:
		return 2
	case RoleEmployee:
		return 1
	}
	return 0
}

// AtLeast reports whether r ranks at or above other.
func (r Role) AtLeast(other Role) bool {
	return r.Valid() && other.Valid() && r.Rank() >= other.Rank()
}

func (r Role) String() string {
	return string(r)
}

// DisplayName returns the human readable label for a role.
func DisplayName(role Role) string {
	switch role {
	case RoleSuperAdmin:
		return "Super Admin"
	case RoleAdmin:
		return "Admin"
	case RoleTeamLead:
		return "Team Lead"
	case RoleEmployee:
		return "Employee"
	}
	return string(role)
}

// Principal describes the authenticated actor. OrgID is zero for principals
// without an organization (superadmins).
type Principal struct {
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`
	Role     Role   `json:"role"`
	OrgID    int64  `json:"org_id,omitempty"`
	Active   bool   `json:"is_active"`
}

// Team is the slice of a team record needed for access checks.
type Team struct {
	ID     int64
	OrgID  int64
	LeadID int64
}
