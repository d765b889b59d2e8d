package rbac

// RoleInfo pairs a role with its display label.
type RoleInfo struct {
	Role        Role   `json:"role"`
	DisplayName string `json:"display_name"`
}

// Profile is everything a client needs to gate its own views for one
// principal.
type Profile struct {
	Principal           *Principal   `json:"principal"`
	RoleDisplayName     string       `json:"role_display_name"`
	Permissions         []Permission `json:"permissions"`
	AssignableRoles     []RoleInfo   `json:"assignable_roles"`
	IsAdminOrSuperAdmin bool         `json:"is_admin_or_superadmin"`
	IsTeamLeadOrHigher  bool         `json:"is_team_lead_or_higher"`
}

// Describe builds the profile of p. A nil principal yields an empty profile.
func Describe(p *Principal) Profile {
	if p == nil {
		return Profile{Permissions: []Permission{}, AssignableRoles: []RoleInfo{}}
	}
	return Profile{
		Principal:           p,
		RoleDisplayName:     DisplayName(p.Role),
		Permissions:         PermissionsFor(p.Role),
		AssignableRoles:     describeRoles(AssignableRoles(p)),
		IsAdminOrSuperAdmin: IsAdminOrSuperAdmin(p),
		IsTeamLeadOrHigher:  IsTeamLeadOrHigher(p),
	}
}

func describeRoles(roles []Role) []RoleInfo {
	out := make([]RoleInfo, 0, len(roles))
	for _, r := range roles {
		out = append(out, RoleInfo{Role: r, DisplayName: DisplayName(r)})
	}
	return out
}
