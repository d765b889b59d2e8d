package rbac

// policyTable is the capability matrix. Each role lists its grants in full;
// there is no inheritance between entries.
var policyTable = map[Role][]Permission{
	RoleSuperAdmin: {
		PermCreateOrganization,
		PermViewAllOrganizations,
		PermViewOwnOrganization,
		PermEditOrganization,
		PermDeleteOrganization,

		PermCreateUser,
		PermViewAllUsers,
		PermViewOrgUsers,
		PermViewTeamUsers,
		PermEditUser,
		PermDeleteUser,
		PermAssignRoles,

		PermCreateTeam,
		PermViewAllTeams,
		PermViewOrgTeams,
		PermViewOwnTeam,
		PermEditTeam,
		PermDeleteTeam,
		PermManageTeamMembers,

		PermCreateOrder,
		PermViewAllOrders,
		PermViewOrgOrders,
		PermViewTeamOrders,
		PermViewOwnOrders,
		PermEditOrder,
		PermDeleteOrder,
		PermAssignOrder,

		PermViewReports,
		PermViewOrgReports,
		PermViewTeamReports,
		PermViewProductivity,
		PermExportReports,

		PermViewBilling,
		PermManageBilling,
	},
	RoleAdmin: {
		PermViewOwnOrganization,
		PermEditOrganization,

		PermCreateUser,
		PermViewAllUsers,
		PermViewOrgUsers,
		PermViewTeamUsers,
		PermEditUser,
		PermDeleteUser,
		PermAssignRoles,

		PermCreateTeam,
		PermViewOrgTeams,
		PermViewOwnTeam,
		PermEditTeam,
		PermDeleteTeam,
		PermManageTeamMembers,

		PermCreateOrder,
		PermViewOrgOrders,
		PermViewTeamOrders,
		PermViewOwnOrders,
		PermEditOrder,
		PermDeleteOrder,
		PermAssignOrder,

		PermViewReports,
		PermViewOrgReports,
		PermViewTeamReports,
		PermViewProductivity,
		PermExportReports,

		PermViewBilling,
		PermManageBilling,
	},
	RoleTeamLead: {
		PermViewTeamUsers,

		PermViewOwnTeam,
		PermManageTeamMembers,

		PermViewTeamOrders,
		PermViewOwnOrders,
		PermEditOrder,
		PermAssignOrder,

		PermViewReports,
		PermViewTeamReports,
		PermViewProductivity,
	},
	RoleEmployee: {
		PermViewOwnTeam,
		PermViewOwnOrders,
		PermEditOrder,
	},
}

// grantSets indexes policyTable for membership lookups.
var grantSets = func() map[Role]map[Permission]struct{} {
	sets := make(map[Role]map[Permission]struct{}, len(policyTable))
	for role, perms := range policyTable {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		sets[role] = set
	}
	return sets
}()

// PermissionsFor returns a copy of the permissions granted to role. Unknown
// roles yield an empty slice.
func PermissionsFor(role Role) []Permission {
	perms := policyTable[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

func granted(role Role, perm Permission) bool {
	_, ok := grantSets[role][perm]
	return ok
}
