package teams

import (
	"context"
	"errors"
	"fmt"

	"github.com/ods-ops/ods/internal/platform/httpx"
	"github.com/ods-ops/ods/internal/rbac"
	"github.com/ods-ops/ods/internal/shared"
)

// RepositoryPort defines data access methods for teams.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter) ([]Team, int, error)
	Get(ctx context.Context, id int64) (*Team, error)
	IsMember(ctx context.Context, teamID, userID int64) (bool, error)
	Members(ctx context.Context, teamID int64) ([]Member, error)
}

// Page is one page of a team listing.
type Page struct {
	Teams      []Team            `json:"teams"`
	Pagination shared.Pagination `json:"pagination"`
}

// Service exposes teams to the principals allowed to see them.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns the teams visible to actor. Holders of view_all_teams see
// every organization, holders of view_org_teams their own, and everyone
// else only the teams they lead or belong to.
func (s *Service) List(ctx context.Context, actor *rbac.Principal, orgID int64, page, perPage int) (Page, error) {
	filter := ListFilter{OrgID: orgID}
	switch {
	case rbac.HasPermission(actor, rbac.PermViewAllTeams):
	case rbac.HasPermission(actor, rbac.PermViewOrgTeams):
		if actor.OrgID == 0 || (orgID != 0 && orgID != actor.OrgID) {
			return Page{}, fmt.Errorf("organization %d: %w", orgID, httpx.ErrForbidden)
		}
		filter.OrgID = actor.OrgID
	case rbac.HasPermission(actor, rbac.PermViewOwnTeam):
		if orgID != 0 && orgID != actor.OrgID {
			return Page{}, fmt.Errorf("organization %d: %w", orgID, httpx.ErrForbidden)
		}
		filter.OrgID = actor.OrgID
		filter.MemberID = actor.UserID
	default:
		return Page{}, httpx.ErrForbidden
	}
	clamped := shared.NewPagination(page, perPage, 0)
	filter.Page, filter.PerPage = clamped.Page, clamped.PerPage
	teams, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return Page{}, err
	}
	return Page{Teams: teams, Pagination: shared.NewPagination(filter.Page, filter.PerPage, total)}, nil
}

// Get returns a team actor may access.
func (s *Service) Get(ctx context.Context, actor *rbac.Principal, id int64) (*Team, error) {
	team, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("team %d: %w", id, httpx.ErrNotFound)
		}
		return nil, err
	}
	if actor == nil {
		return nil, fmt.Errorf("team %d: %w", id, httpx.ErrNotFound)
	}
	member, err := s.repo.IsMember(ctx, id, actor.UserID)
	if err != nil {
		return nil, err
	}
	if !rbac.CanAccessTeam(actor, team.scope(), member) {
		// Teams outside actor's reach are reported as missing.
		return nil, fmt.Errorf("team %d: %w", id, httpx.ErrNotFound)
	}
	return team, nil
}

// Members lists the members of a team actor may access.
func (s *Service) Members(ctx context.Context, actor *rbac.Principal, id int64) ([]Member, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	members, err := s.repo.Members(ctx, id)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []Member{}
	}
	return members, nil
}
