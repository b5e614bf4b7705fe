package models

import "time"

// RolePermission is the join table between roles and permissions.
type RolePermission struct {
	// RoleID is the ID of the role in this mapping.
	RoleID uint `gorm:"primaryKey;column:role_id"`
	// PermissionID is the ID of the permission in this mapping.
	PermissionID uint `gorm:"primaryKey;column:permission_id"`
	// CreatedAt is when the permission was granted to the role.
	CreatedAt time.Time
}

// TableName specifies the database table name for the RolePermission model.
func (RolePermission) TableName() string {
	return "role_permissions"
}

// UserRole is the join table between users and roles.
type UserRole struct {
	UserID    uint64 `gorm:"primaryKey;column:user_id"`
	RoleID    uint   `gorm:"primaryKey;column:role_id"`
	CreatedAt time.Time
}

// TableName specifies the database table name for the UserRole model.
func (UserRole) TableName() string {
	return "user_roles"
}
