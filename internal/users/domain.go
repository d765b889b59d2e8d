package users

import (
	"time"

	"github.com/ods-ops/ods/internal/rbac"
)

// User represents a user account for management.
type User struct {
	ID         int64     `json:"id"`
	UserName   string    `json:"user_name"`
	EmployeeID string    `json:"employee_id,omitempty"`
	Role       rbac.Role `json:"user_role"`
	OrgID      int64     `json:"org_id,omitempty"`
	IsActive   bool      `json:"is_active"`
	LastLogin  time.Time `json:"last_login"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"modified_at"`
}

// Principal projects the record onto an authorization principal.
func (u *User) Principal() *rbac.Principal {
	if u == nil {
		return nil
	}
	return &rbac.Principal{UserID: u.ID, UserName: u.UserName, Role: u.Role, OrgID: u.OrgID, Active: u.IsActive}
}

// ListFilter narrows a user listing. OrgID zero lists every organization.
type ListFilter struct {
	OrgID   int64
	Page    int
	PerPage int
}

// CreateInput carries a new account request.
type CreateInput struct {
	UserName   string `json:"user_name" validate:"required,max=100"`
	EmployeeID string `json:"employee_id" validate:"omitempty,max=50"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	Role       string `json:"user_role" validate:"required"`
	OrgID      int64  `json:"org_id" validate:"gte=0"`
}

// RoleUpdate carries a role change request.
type RoleUpdate struct {
	Role string `json:"user_role" validate:"required"`
}

// NewUser is the persisted shape of a validated CreateInput.
type NewUser struct {
	UserName     string
	EmployeeID   string
	PasswordHash string
	Role         rbac.Role
	OrgID        int64
}
