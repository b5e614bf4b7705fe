// Package audit records security relevant decisions and mutations.
//
// Recording is synchronous but best-effort: a failing sink is logged and
// counted, it never fails the operation that triggered the record.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
)

var (
	recordsTotal = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "audit_records_total",
			Help: "Audit records emitted, by action.",
		},
		[]string{"action"},
	)

	sinkFailures = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Name: "audit_sink_failures_total",
			Help: "Audit records a sink failed to store, by sink.",
		},
		[]string{"sink"},
	)
)

// Entry is the input of Record.
type Entry struct {
	Action         models.AuditAction
	Resource       string
	ResourceID     string
	PrincipalID    uint64
	PrincipalEmail string
	Changes        map[string]any
	Metadata       map[string]any
	// IPAddress and UserAgent default to the request info attached to the context.
	IPAddress string
	UserAgent string
}

// Sink stores audit records.
type Sink interface {
	Name() string
	Write(ctx context.Context, rec *models.AuditRecord) error
}

// Recorder fans records out to its sinks.
type Recorder struct {
	sinks []Sink
	now   func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRecorder returns a Recorder writing to every sink in order.
func NewRecorder(sinks []Sink, opts ...Option) *Recorder {
	r := &Recorder{
		sinks: sinks,
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Record builds the audit record for e and hands it to every sink.
// It always returns the record, whether or not the sinks stored it.
func (r *Recorder) Record(ctx context.Context, e Entry) *models.AuditRecord {
	now := r.now().UTC()

	rec := &models.AuditRecord{
		ID:             ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Action:         e.Action,
		Resource:       e.Resource,
		ResourceID:     e.ResourceID,
		PrincipalID:    e.PrincipalID,
		PrincipalEmail: e.PrincipalEmail,
		Changes:        e.Changes,
		Metadata:       e.Metadata,
		IPAddress:      e.IPAddress,
		UserAgent:      e.UserAgent,
		CreatedAt:      now,
	}

	if info, ok := RequestInfoFromContext(ctx); ok {
		info.apply(rec)
	}

	recordsTotal.WithLabelValues(string(rec.Action)).Inc()

	// the record outlives a cancelled request
	ctx = context.WithoutCancel(ctx)

	for _, s := range r.sinks {
		r.write(ctx, s, rec)
	}

	return rec
}

func (r *Recorder) write(ctx context.Context, s Sink, rec *models.AuditRecord) {
	defer func() {
		if p := recover(); p != nil {
			sinkFailed(s, rec, fmt.Errorf("panic: %v", p)) //nolint:err113
		}
	}()

	if err := s.Write(ctx, rec); err != nil {
		sinkFailed(s, rec, err)
	}
}

func sinkFailed(s Sink, rec *models.AuditRecord, err error) {
	sinkFailures.WithLabelValues(s.Name()).Inc()

	log.Error().
		Err(err).
		Str("sink", s.Name()).
		Str("audit_id", rec.ID).
		Str("action", string(rec.Action)).
		Str("resource", rec.Resource).
		Uint64("principal_id", rec.PrincipalID).
		Msg("failed to write audit record")
}
