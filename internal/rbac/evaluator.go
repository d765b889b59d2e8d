package rbac

// A nil *Principal is the anonymous visitor: every predicate below answers
// false (or an empty list) for it.

// HasPermission reports whether p's role grants perm.
func HasPermission(p *Principal, perm Permission) bool {
	if p == nil {
		return false
	}
	return granted(p.Role, perm)
}

// HasAnyPermission reports whether at least one of perms is granted. An
// empty list has nothing to satisfy and yields false.
func HasAnyPermission(p *Principal, perms ...Permission) bool {
	if p == nil {
		return false
	}
	for _, perm := range perms {
		if granted(p.Role, perm) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every one of perms is granted. An empty
// list is vacuously satisfied for a present principal.
func HasAllPermissions(p *Principal, perms ...Permission) bool {
	if p == nil {
		return false
	}
	for _, perm := range perms {
		if !granted(p.Role, perm) {
			return false
		}
	}
	return true
}

// HasRole reports whether p holds exactly role.
func HasRole(p *Principal, role Role) bool {
	return p != nil && p.Role == role
}

// HasAnyRole reports whether p's role is a member of roles.
func HasAnyRole(p *Principal, roles ...Role) bool {
	if p == nil {
		return false
	}
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

func IsSuperAdmin(p *Principal) bool { return HasRole(p, RoleSuperAdmin) }
func IsAdmin(p *Principal) bool      { return HasRole(p, RoleAdmin) }
func IsTeamLead(p *Principal) bool   { return HasRole(p, RoleTeamLead) }
func IsEmployee(p *Principal) bool   { return HasRole(p, RoleEmployee) }

// IsAdminOrSuperAdmin reports whether p is an admin or a superadmin.
func IsAdminOrSuperAdmin(p *Principal) bool {
	return HasAnyRole(p, RoleAdmin, RoleSuperAdmin)
}

// IsTeamLeadOrHigher reports whether p is a team lead, admin or superadmin.
func IsTeamLeadOrHigher(p *Principal) bool {
	return HasAnyRole(p, RoleTeamLead, RoleAdmin, RoleSuperAdmin)
}

// CanManageUser reports whether actor may administer target. Superadmins
// manage everyone; admins manage principals of their own organization.
func CanManageUser(actor, target *Principal) bool {
	if actor == nil || target == nil {
		return false
	}
	switch actor.Role {
	case RoleSuperAdmin:
		return true
	case RoleAdmin:
		return actor.OrgID != 0 && actor.OrgID == target.OrgID
	}
	return false
}

// AssignableRoles lists the roles p may grant, highest rank first.
func AssignableRoles(p *Principal) []Role {
	if p == nil {
		return []Role{}
	}
	switch p.Role {
	case RoleSuperAdmin:
		return []Role{RoleSuperAdmin, RoleAdmin, RoleTeamLead, RoleEmployee}
	case RoleAdmin:
		return []Role{RoleAdmin, RoleTeamLead, RoleEmployee}
	case RoleTeamLead:
		return []Role{RoleEmployee}
	}
	return []Role{}
}

// CanAssignRole reports whether role is in AssignableRoles(p).
func CanAssignRole(p *Principal, role Role) bool {
	for _, r := range AssignableRoles(p) {
		if r == role {
			return true
		}
	}
	return false
}

// CanAccessOrganization reports whether p may act within orgID.
func CanAccessOrganization(p *Principal, orgID int64) bool {
	if p == nil {
		return false
	}
	if p.Role == RoleSuperAdmin {
		return true
	}
	return p.OrgID != 0 && p.OrgID == orgID
}

// CanViewUser reports whether p may read target's record. Employees only
// see themselves.
func CanViewUser(p, target *Principal) bool {
	if p == nil || target == nil {
		return false
	}
	if p.Role == RoleEmployee {
		return p.UserID == target.UserID
	}
	if p.UserID == target.UserID {
		return true
	}
	return CanAccessOrganization(p, target.OrgID)
}

// CanAccessTeam reports whether p may access team. memberOf reports whether
// p holds an active membership in the team. Admins are bounded to their
// organization regardless of membership.
func CanAccessTeam(p *Principal, team Team, memberOf bool) bool {
	if p == nil {
		return false
	}
	switch p.Role {
	case RoleSuperAdmin:
		return true
	case RoleAdmin:
		return p.OrgID != 0 && p.OrgID == team.OrgID
	case RoleTeamLead:
		if team.LeadID == p.UserID {
			return true
		}
	}
	return memberOf
}
