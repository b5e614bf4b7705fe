package models

import "time"

// Role represents a named, independently activatable bundle of permissions.
// Examples include "Admin" and "Manager".
type Role struct {
	// ID is the unique identifier for the role.
	ID uint `gorm:"primaryKey" json:"id"`
	// Name is unique among all roles, active or not.
	Name string `gorm:"unique;size:50;not null" json:"name" validate:"required,min=2,max=50"`
	// Description provides a human-readable description of the role's purpose.
	Description string `gorm:"size:255" json:"description,omitempty" validate:"max=255"`
	// Active is false once the role was deactivated. Deactivation is terminal.
	Active bool `gorm:"not null" json:"active"`
	// Permissions is the permission set of the role. It is replaced wholesale, never patched.
	Permissions []Permission `gorm:"many2many:role_permissions" json:"permissions,omitempty"`
	// CreatedAt is the timestamp when the role was created (managed by GORM).
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the timestamp when the role was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the database table name for the Role model.
func (Role) TableName() string {
	return "roles"
}

// PermissionKeys returns the "resource.action" keys of the role's loaded permissions.
func (r Role) PermissionKeys() []string {
	keys := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		keys = append(keys, p.Key())
	}

	return keys
}
