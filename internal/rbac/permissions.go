package rbac

import (
	"fmt"
	"strings"
)

// Permission is a single fine-grained capability tag.
type Permission string

func (p Permission) String() string {
	return string(p)
}

// Organization permissions.
const (
	PermCreateOrganization   Permission = "create_organization"
	PermViewAllOrganizations Permission = "view_all_organizations"
	PermViewOwnOrganization  Permission = "view_own_organization"
	PermEditOrganization     Permission = "edit_organization"
	PermDeleteOrganization   Permission = "delete_organization"
)

// User permissions.
const (
	PermCreateUser    Permission = "create_user"
	PermViewAllUsers  Permission = "view_all_users"
	PermViewOrgUsers  Permission = "view_org_users"
	PermViewTeamUsers Permission = "view_team_users"
	PermEditUser      Permission = "edit_user"
	PermDeleteUser    Permission = "delete_user"
	PermAssignRoles   Permission = "assign_roles"
)

// Team permissions.
const (
	PermCreateTeam        Permission = "create_team"
	PermViewAllTeams      Permission = "view_all_teams"
	PermViewOrgTeams      Permission = "view_org_teams"
	PermViewOwnTeam       Permission = "view_own_team"
	PermEditTeam          Permission = "edit_team"
	PermDeleteTeam        Permission = "delete_team"
	PermManageTeamMembers Permission = "manage_team_members"
)

// Order permissions.
const (
	PermCreateOrder    Permission = "create_order"
	PermViewAllOrders  Permission = "view_all_orders"
	PermViewOrgOrders  Permission = "view_org_orders"
	PermViewTeamOrders Permission = "view_team_orders"
	PermViewOwnOrders  Permission = "view_own_orders"
	PermEditOrder      Permission = "edit_order"
	PermDeleteOrder    Permission = "delete_order"
	PermAssignOrder    Permission = "assign_order"
)

// Report permissions.
const (
	PermViewReports      Permission = "view_reports"
	PermViewOrgReports   Permission = "view_org_reports"
	PermViewTeamReports  Permission = "view_team_reports"
	PermViewProductivity Permission = "view_productivity"
	PermExportReports    Permission = "export_reports"
)

// Billing permissions.
const (
	PermViewBilling   Permission = "view_billing"
	PermManageBilling Permission = "manage_billing"
)

// OrganizationScopes lists all permissions related to organizations.
func OrganizationScopes() []Permission {
	return []Permission{
		PermCreateOrganization,
		PermViewAllOrganizations,
		PermViewOwnOrganization,
		PermEditOrganization,
		PermDeleteOrganization,
	}
}

// UserScopes lists all permissions related to user administration.
func UserScopes() []Permission {
	return []Permission{
		PermCreateUser,
		PermViewAllUsers,
		PermViewOrgUsers,
		PermViewTeamUsers,
		PermEditUser,
		PermDeleteUser,
		PermAssignRoles,
	}
}

// TeamScopes lists all permissions related to teams.
func TeamScopes() []Permission {
	return []Permission{
		PermCreateTeam,
		PermViewAllTeams,
		PermViewOrgTeams,
		PermViewOwnTeam,
		PermEditTeam,
		PermDeleteTeam,
		PermManageTeamMembers,
	}
}

// OrderScopes lists all permissions related to orders.
func OrderScopes() []Permission {
	return []Permission{
		PermCreateOrder,
		PermViewAllOrders,
		PermViewOrgOrders,
		PermViewTeamOrders,
		PermViewOwnOrders,
		PermEditOrder,
		PermDeleteOrder,
		PermAssignOrder,
	}
}

// ReportScopes lists all permissions related to reports and productivity.
func ReportScopes() []Permission {
	return []Permission{
		PermViewReports,
		PermViewOrgReports,
		PermViewTeamReports,
		PermViewProductivity,
		PermExportReports,
	}
}

// BillingScopes lists all permissions related to billing.
func BillingScopes() []Permission {
	return []Permission{
		PermViewBilling,
		PermManageBilling,
	}
}

// AllPermissions returns the full catalog grouped by resource domain.
func AllPermissions() []Permission {
	groups := [][]Permission{
		OrganizationScopes(),
		UserScopes(),
		TeamScopes(),
		OrderScopes(),
		ReportScopes(),
		BillingScopes(),
	}
	var all []Permission
	for _, g := range groups {
		all = append(all, g...)
	}
	return all
}

var catalog = func() map[Permission]struct{} {
	set := make(map[Permission]struct{})
	for _, p := range AllPermissions() {
		set[p] = struct{}{}
	}
	return set
}()

// Known reports whether p belongs to the catalog.
func (p Permission) Known() bool {
	_, ok := catalog[p]
	return ok
}

// ParsePermission converts a raw tag into a catalog Permission.
func ParsePermission(raw string) (Permission, error) {
	p := Permission(strings.TrimSpace(strings.ToLower(raw)))
	if !p.Known() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPermission, raw)
	}
	return p, nil
}
