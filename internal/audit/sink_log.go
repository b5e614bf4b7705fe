package audit

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
)

// LogSink writes one JSON line per record, usually to the rolling audit.log.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink returns a sink writing to w.
func NewLogSink(w io.Writer) *LogSink {
	return &LogSink{logger: zerolog.New(w).With().Str("stream", "audit").Logger()}
}

// Name implements Sink.
func (*LogSink) Name() string { return "log" }

// Write implements Sink.
func (s *LogSink) Write(_ context.Context, rec *models.AuditRecord) error {
	event := s.logger.Log().
		Str("id", rec.ID).
		Str("action", string(rec.Action)).
		Str("resource", rec.Resource).
		Str("resource_id", rec.ResourceID).
		Uint64("principal_id", rec.PrincipalID).
		Str("principal_email", rec.PrincipalEmail).
		Str("ip_address", rec.IPAddress).
		Str("user_agent", rec.UserAgent).
		Time("created_at", rec.CreatedAt)

	if len(rec.Changes) > 0 {
		event.Interface("changes", rec.Changes)
	}

	if len(rec.Metadata) > 0 {
		event.Interface("metadata", rec.Metadata)
	}

	event.Send()

	return nil
}
