package auth

import (
	"slices"

	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
)

// Authorize reports whether principal may perform action on resource.
// The principal must be loaded with roles and role permissions.
// action is compared literally, only "manage" has wildcard meaning.
func Authorize(principal *models.User, resource, action string) bool {
	if principal == nil || !principal.Active {
		return false
	}

	for _, role := range principal.Roles {
		if !role.Active {
			continue
		}

		for _, p := range role.Permissions {
			if p.Grants(resource, action) {
				return true
			}
		}
	}

	return false
}

// AuthorizeOwnerOrPermission lets a principal act on its own record without the grant.
// The ownership exception never applies to "manage", which always needs the grant.
func AuthorizeOwnerOrPermission(principal *models.User, resource string, targetID uint64, action string) bool {
	if principal == nil || !principal.Active {
		return false
	}

	if action != string(models.ActionManage) && targetID == principal.ID {
		return true
	}

	return Authorize(principal, resource, action)
}

// HasAnyRole reports whether principal holds an active role with one of the names.
// Names are compared exactly.
func HasAnyRole(principal *models.User, names ...string) bool {
	if principal == nil || !principal.Active {
		return false
	}

	for _, role := range principal.Roles {
		if role.Active && slices.Contains(names, role.Name) {
			return true
		}
	}

	return false
}

// EffectivePermissions returns the sorted, deduplicated "resource.action" keys
// the principal holds through its active roles.
func EffectivePermissions(principal *models.User) []string {
	if principal == nil || !principal.Active {
		return []string{}
	}

	seen := make(map[string]struct{})

	for _, role := range principal.Roles {
		if !role.Active {
			continue
		}

		for _, p := range role.Permissions {
			seen[p.Key()] = struct{}{}
		}
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}

// ActiveRoleNames returns the names of the principal's active roles.
func ActiveRoleNames(principal *models.User) []string {
	names := []string{}

	if principal == nil {
		return names
	}

	for _, role := range principal.Roles {
		if role.Active {
			names = append(names, role.Name)
		}
	}

	return names
}
