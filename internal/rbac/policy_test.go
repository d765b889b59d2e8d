package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionsForCoversEveryRole(t *testing.T) {
	for _, role := range Roles() {
		perms := PermissionsFor(role)
		require.NotNil(t, perms, role)
		_, ok := policyTable[role]
		assert.True(t, ok, "policy table misses %s", role)
	}
	assert.Empty(t, PermissionsFor(Role("auditor")))
}

func TestPolicyTableUsesCatalogPermissionsOnly(t *testing.T) {
	for role, perms := range policyTable {
		seen := map[Permission]bool{}
		for _, perm := range perms {
			assert.True(t, perm.Known(), "%s grants unknown %s", role, perm)
			assert.False(t, seen[perm], "%s lists %s twice", role, perm)
			seen[perm] = true
		}
	}
}

func TestPermissionsForReturnsCopy(t *testing.T) {
	perms := PermissionsFor(RoleEmployee)
	require.NotEmpty(t, perms)
	perms[0] = PermDeleteOrganization

	assert.False(t, HasPermission(&Principal{Role: RoleEmployee}, PermDeleteOrganization))
}

func TestRolePermissionSetsAreNested(t *testing.T) {
	chain := Roles()
	for i := 0; i+1 < len(chain); i++ {
		higher, lower := chain[i], chain[i+1]
		for _, perm := range PermissionsFor(lower) {
			assert.True(t, granted(higher, perm), "%s should hold %s held by %s", higher, perm, lower)
		}
	}
}

func TestSuperAdminHoldsWholeCatalog(t *testing.T) {
	assert.ElementsMatch(t, AllPermissions(), PermissionsFor(RoleSuperAdmin))
}

func TestOrganizationLifecycleIsSuperAdminOnly(t *testing.T) {
	for _, perm := range []Permission{PermCreateOrganization, PermDeleteOrganization, PermViewAllOrganizations} {
		for _, role := range Roles() {
			assert.Equal(t, role == RoleSuperAdmin, granted(role, perm), "%s/%s", role, perm)
		}
	}
}

func TestParsePermission(t *testing.T) {
	perm, err := ParsePermission("  VIEW_OWN_ORDERS ")
	require.NoError(t, err)
	assert.Equal(t, PermViewOwnOrders, perm)

	_, err = ParsePermission("launch_rockets")
	assert.ErrorIs(t, err, ErrUnknownPermission)
}

func TestCatalogHasNoDuplicates(t *testing.T) {
	all := AllPermissions()
	seen := make(map[Permission]struct{}, len(all))
	for _, perm := range all {
		_, dup := seen[perm]
		assert.False(t, dup, "duplicate %s", perm)
		seen[perm] = struct{}{}
	}
	assert.Len(t, catalog, len(all))
}
