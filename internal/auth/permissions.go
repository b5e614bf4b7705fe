package auth

import "github.com/farah699/Users-Permissions-Backend/internal/db/models"

// Resources guarded by the service.
const (
	// ResourceUser covers principals.
	ResourceUser = "user"
	// ResourceRole covers roles and their permission sets.
	ResourceRole = "role"
	// ResourcePermission covers the permission catalog.
	ResourcePermission = "permission"
	// ResourceAudit covers the audit trail.
	ResourceAudit = "audit"
	// ResourceAuth is the resource of login, logout and refresh records.
	ResourceAuth = "auth"
)

// Resources lists the resources of the built-in catalog.
var Resources = []string{ResourceUser, ResourceRole, ResourcePermission, ResourceAudit} //nolint:gochecknoglobals

// CatalogEntry is one permission of the built-in catalog.
type CatalogEntry struct {
	Resource    string
	Action      models.Action
	Description string
}

// Catalog returns every (resource, action) pair of the built-in resources.
func Catalog() []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(Resources)*len(models.Actions))

	for _, resource := range Resources {
		for _, action := range models.Actions {
			entries = append(entries, CatalogEntry{
				Resource:    resource,
				Action:      action,
				Description: describe(resource, action),
			})
		}
	}

	return entries
}

func describe(resource string, action models.Action) string {
	if action == models.ActionManage {
		return "Full control over " + resource + " resources"
	}

	return "Allows to " + string(action) + " " + resource + " resources"
}
