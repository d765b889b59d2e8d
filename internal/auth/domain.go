package auth

import (
	"time"

	"github.com/ods-ops/ods/internal/rbac"
)

// User represents an account able to sign in.
type User struct {
	ID           int64
	UserName     string
	EmployeeID   string
	PasswordHash string
	Role         rbac.Role
	OrgID        int64
	IsActive     bool
	TokenVersion int
	LastLogin    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal projects the user onto the authorization principal.
func (u *User) Principal() *rbac.Principal {
	if u == nil {
		return nil
	}
	return &rbac.Principal{
		UserID:   u.ID,
		UserName: u.UserName,
		Role:     u.Role,
		OrgID:    u.OrgID,
		Active:   u.IsActive,
	}
}

// TokenPair is returned on login and refresh.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}
