package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/ods-ops/ods/internal/platform/httpx"
	"github.com/ods-ops/ods/internal/rbac"
	"github.com/ods-ops/ods/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter) ([]User, int, error)
	Get(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, in NewUser) (*User, error)
	UpdateRole(ctx context.Context, id int64, role rbac.Role) (*User, error)
}

// Page is one page of a user listing.
type Page struct {
	Users      []User            `json:"users"`
	Pagination shared.Pagination `json:"pagination"`
}

// Service handles user business logic. Every operation is evaluated
// against the acting principal.
type Service struct {
	repo       RepositoryPort
	audit      shared.AuditRecorder
	logger     *slog.Logger
	bcryptCost int
}

// NewService builds Service instance. audit may be nil.
func NewService(repo RepositoryPort, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, bcryptCost: bcrypt.DefaultCost}
}

// List returns users visible to actor. Superadmins may narrow by orgID;
// everyone else is confined to their own organization.
func (s *Service) List(ctx context.Context, actor *rbac.Principal, orgID int64, page, perPage int) (Page, error) {
	if !rbac.HasAnyPermission(actor, rbac.PermViewAllUsers, rbac.PermViewOrgUsers) {
		return Page{}, httpx.ErrForbidden
	}
	filter := ListFilter{OrgID: orgID, Page: page, PerPage: perPage}
	if !rbac.IsSuperAdmin(actor) {
		if orgID != 0 && orgID != actor.OrgID {
			return Page{}, fmt.Errorf("organization %d: %w", orgID, httpx.ErrForbidden)
		}
		if actor.OrgID == 0 {
			return Page{}, httpx.ErrForbidden
		}
		filter.OrgID = actor.OrgID
	}
	clamped := shared.NewPagination(page, perPage, 0)
	filter.Page, filter.PerPage = clamped.Page, clamped.PerPage
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return Page{}, err
	}
	return Page{Users: users, Pagination: shared.NewPagination(filter.Page, filter.PerPage, total)}, nil
}

// Get returns a user record when actor may view it.
func (s *Service) Get(ctx context.Context, actor *rbac.Principal, id int64) (*User, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rbac.CanViewUser(actor, user.Principal()) {
		// Out-of-tenant records are reported as missing.
		return nil, fmt.Errorf("user %d: %w", id, httpx.ErrNotFound)
	}
	return user, nil
}

// Create provisions an account with a role actor may assign, inside an
// organization actor manages.
func (s *Service) Create(ctx context.Context, actor *rbac.Principal, in CreateInput) (*User, error) {
	role, err := rbac.ParseRole(in.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if !rbac.HasPermission(actor, rbac.PermCreateUser) || !rbac.CanAssignRole(actor, role) {
		return nil, fmt.Errorf("assign role %s: %w", role, httpx.ErrForbidden)
	}
	orgID := in.OrgID
	switch {
	case role == rbac.RoleSuperAdmin:
		orgID = 0
	case orgID == 0 && !rbac.IsSuperAdmin(actor):
		orgID = actor.OrgID
	case orgID == 0:
		return nil, fmt.Errorf("%w: org_id is required for role %s", httpx.ErrValidation, role)
	}
	target := &rbac.Principal{Role: role, OrgID: orgID, Active: true}
	if !rbac.CanManageUser(actor, target) {
		return nil, fmt.Errorf("organization %d: %w", orgID, httpx.ErrForbidden)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.Create(ctx, NewUser{
		UserName:     strings.TrimSpace(in.UserName),
		EmployeeID:   strings.TrimSpace(in.EmployeeID),
		PasswordHash: string(hash),
		Role:         role,
		OrgID:        orgID,
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, user, shared.AuditActionCreate, map[string]any{"user_role": role})
	return user, nil
}

// UpdateRole changes target's role. Principals never change their own role.
func (s *Service) UpdateRole(ctx context.Context, actor *rbac.Principal, id int64, raw string) (*User, error) {
	role, err := rbac.ParseRole(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if !rbac.HasPermission(actor, rbac.PermAssignRoles) {
		return nil, httpx.ErrForbidden
	}
	if actor.UserID == id {
		return nil, fmt.Errorf("own role: %w", httpx.ErrForbidden)
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rbac.CanManageUser(actor, current.Principal()) || !rbac.CanAssignRole(actor, role) {
		return nil, fmt.Errorf("assign role %s to user %d: %w", role, id, httpx.ErrForbidden)
	}
	if current.Role == role {
		return current, nil
	}
	updated, err := s.repo.UpdateRole(ctx, id, role)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("user %d: %w", id, httpx.ErrNotFound)
		}
		return nil, err
	}
	s.record(ctx, actor, updated, shared.AuditActionRoleChange, map[string]any{"from": current.Role, "to": role})
	return updated, nil
}

// AssignableRoles lists the roles actor may grant.
func (s *Service) AssignableRoles(actor *rbac.Principal) []rbac.RoleInfo {
	roles := rbac.AssignableRoles(actor)
	out := make([]rbac.RoleInfo, 0, len(roles))
	for _, role := range roles {
		out = append(out, rbac.RoleInfo{Role: role, DisplayName: rbac.DisplayName(role)})
	}
	return out
}

func (s *Service) load(ctx context.Context, id int64) (*User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("user %d: %w", id, httpx.ErrNotFound)
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) record(ctx context.Context, actor *rbac.Principal, user *User, action string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		OrgID:    user.OrgID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(user.ID, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit "+action, slog.Int64("user_id", user.ID), slog.Any("error", err))
	}
}
