package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// AuditAction is the kind of event an audit record describes.
type AuditAction string

const (
	AuditActionCreate           AuditAction = "create"
	AuditActionRead             AuditAction = "read"
	AuditActionUpdate           AuditAction = "update"
	AuditActionDelete           AuditAction = "delete"
	AuditActionLogin            AuditAction = "login"
	AuditActionLogout           AuditAction = "logout"
	AuditActionAssignRole       AuditAction = "assign_role"
	AuditActionRemoveRole       AuditAction = "remove_role"
	AuditActionPermissionChange AuditAction = "permission_change"
)

// ErrAuditRecordImmutable is returned when an update of an audit record is attempted.
var ErrAuditRecordImmutable = errors.New("audit records are immutable")

// Valid reports whether a is one of the fixed audit action kinds.
func (a AuditAction) Valid() bool {
	switch a {
	case AuditActionCreate, AuditActionRead, AuditActionUpdate, AuditActionDelete,
		AuditActionLogin, AuditActionLogout, AuditActionAssignRole, AuditActionRemoveRole,
		AuditActionPermissionChange:
		return true
	default:
		return false
	}
}

// AuditRecord is an append-only entry of a security relevant decision or mutation.
// The acting principal's email is copied so the record stays meaningful after the user changes.
type AuditRecord struct {
	// ID is a ULID, so records sort by creation time.
	ID string `gorm:"primaryKey;size:26" json:"id"`
	// Action is the kind of event.
	Action AuditAction `gorm:"type:varchar(32);not null;index" json:"action"`
	// Resource is the resource name the event applies to (e.g., "user").
	Resource string `gorm:"size:100;not null;index:idx_audit_resource_created,priority:1" json:"resource"`
	// ResourceID identifies the affected resource instance, if any.
	ResourceID string `gorm:"size:100" json:"resource_id,omitempty"`
	// PrincipalID is the acting user. Zero for anonymous events such as failed logins.
	PrincipalID uint64 `gorm:"index:idx_audit_principal_created,priority:1" json:"principal_id"`
	// PrincipalEmail is the acting user's email at the time of the event.
	PrincipalEmail string `gorm:"size:255" json:"principal_email,omitempty"`
	// Changes holds an optional before/after payload.
	Changes map[string]any `gorm:"type:text;serializer:json" json:"changes,omitempty"`
	// Metadata holds optional free-form context.
	Metadata map[string]any `gorm:"type:text;serializer:json" json:"metadata,omitempty"`
	// IPAddress is the origin IP of the request, if known.
	IPAddress string `gorm:"size:64" json:"ip_address,omitempty"`
	// UserAgent is the user agent of the request, if known.
	UserAgent string `gorm:"size:512" json:"user_agent,omitempty"`
	// CreatedAt is set by the recorder, not by GORM, so it matches the ULID timestamp.
	CreatedAt time.Time `gorm:"not null;index:idx_audit_principal_created,priority:2;index:idx_audit_resource_created,priority:2" json:"created_at"`
}

// TableName specifies the database table name for the AuditRecord model.
func (AuditRecord) TableName() string {
	return "audit_records"
}

// BeforeUpdate rejects every update; audit records are written once.
func (*AuditRecord) BeforeUpdate(_ *gorm.DB) error {
	return ErrAuditRecordImmutable
}
