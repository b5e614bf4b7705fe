package audit

import (
	"context"

	"gorm.io/gorm"

	auditctrl "github.com/farah699/Users-Permissions-Backend/internal/db/controller/audit"
	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
)

// DBSink appends records to the audit_records table.
type DBSink struct {
	db *gorm.DB
}

// NewDBSink returns a sink writing through db.
func NewDBSink(db *gorm.DB) *DBSink {
	return &DBSink{db: db}
}

// Name implements Sink.
func (*DBSink) Name() string { return "db" }

// Write implements Sink.
func (s *DBSink) Write(ctx context.Context, rec *models.AuditRecord) error {
	return auditctrl.Create(ctx, s.db, rec) //nolint:wrapcheck
}
