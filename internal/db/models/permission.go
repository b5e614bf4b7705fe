package models

import "time"

// Action is the operation a permission grants on a resource.
type Action string

const (
	// ActionCreate allows creating new instances of a resource.
	ActionCreate Action = "create"
	// ActionRead allows reading instances of a resource.
	ActionRead Action = "read"
	// ActionUpdate allows modifying instances of a resource.
	ActionUpdate Action = "update"
	// ActionDelete allows removing (or deactivating) instances of a resource.
	ActionDelete Action = "delete"
	// ActionManage is the wildcard action: it grants every action on its resource.
	ActionManage Action = "manage"
)

// Actions lists the canonical actions in a stable order.
var Actions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage}

// Valid reports whether a is one of the canonical actions.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage:
		return true
	default:
		return false
	}
}

// Permission represents a single (resource, action) grant in the permission catalog.
// Permissions are assigned to roles, which are then assigned to users.
type Permission struct {
	// ID is the unique identifier for the permission.
	ID uint `gorm:"primaryKey" json:"id"`
	// Name is the unique human-readable permission name (e.g., "user.read").
	Name string `gorm:"unique;size:100;not null" json:"name"`
	// Resource is the resource this permission applies to (e.g., "user", "role").
	// Together with Action it forms a unique pair.
	Resource string `gorm:"size:100;not null;uniqueIndex:idx_permission_resource_action" json:"resource"`
	// Action is the action allowed on the resource. ActionManage covers all actions.
	Action Action `gorm:"type:varchar(20);not null;uniqueIndex:idx_permission_resource_action" json:"action"`
	// Description is the only attribute that may change after creation.
	Description string `gorm:"size:255" json:"description,omitempty"`
	// CreatedAt is the timestamp when the permission was created (managed by GORM).
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the timestamp when the permission was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the database table name for the Permission model.
func (Permission) TableName() string {
	return "permissions"
}

// Key returns the "resource.action" form of the permission.
func (p Permission) Key() string {
	return p.Resource + "." + string(p.Action)
}

// Grants reports whether p allows action on resource.
// The action is compared literally, except that a manage grant matches any action.
func (p Permission) Grants(resource, action string) bool {
	if p.Resource != resource {
		return false
	}

	return string(p.Action) == action || p.Action == ActionManage
}
