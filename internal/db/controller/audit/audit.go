// Package audit provides append and query operations for audit records.
// Records are never updated; old ones may only be purged.
package audit

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
)

const defaultLimit = 100

var (
	// ErrInvalidAction is returned for an action kind outside the fixed enumeration.
	ErrInvalidAction = errors.New("invalid audit action")
	// ErrIDEmpty is returned when a record has no ID.
	ErrIDEmpty = errors.New("audit record id cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Create appends a record.
func Create(ctx context.Context, db *gorm.DB, rec *models.AuditRecord) error {
	if db == nil {
		return ErrDBNil
	}

	if rec.ID == "" {
		return ErrIDEmpty
	}

	if !rec.Action.Valid() {
		return ErrInvalidAction
	}

	return db.WithContext(ctx).Create(rec).Error //nolint:wrapcheck
}

// Query filters ListRecords. Zero values match everything.
type Query struct {
	PrincipalID uint64
	Resource    string
	ResourceID  string
	Action      models.AuditAction
	Since       time.Time
	Until       time.Time
	Limit       int
}

// ListRecords returns matching records, newest first.
func ListRecords(ctx context.Context, db *gorm.DB, q Query) ([]models.AuditRecord, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	tx := db.WithContext(ctx).Model(&models.AuditRecord{})

	if q.PrincipalID != 0 {
		tx = tx.Where("principal_id = ?", q.PrincipalID)
	}

	if q.Resource != "" {
		tx = tx.Where("resource = ?", q.Resource)
	}

	if q.ResourceID != "" {
		tx = tx.Where("resource_id = ?", q.ResourceID)
	}

	if q.Action != "" {
		tx = tx.Where("action = ?", q.Action)
	}

	if !q.Since.IsZero() {
		tx = tx.Where("created_at >= ?", q.Since)
	}

	if !q.Until.IsZero() {
		tx = tx.Where("created_at < ?", q.Until)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var records []models.AuditRecord
	if err := tx.Order("created_at DESC, id DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

// PurgeOlderThan deletes records created before cutoff and returns how many were removed.
func PurgeOlderThan(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	res := db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AuditRecord{})

	return res.RowsAffected, res.Error //nolint:wrapcheck
}
