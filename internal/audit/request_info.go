package audit

import (
	"context"

	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
)

type requestInfoKey struct{}

// RequestInfo is the request context copied into every record emitted while handling it.
type RequestInfo struct {
	IPAddress string
	UserAgent string
	Method    string
	Path      string
	RequestID string
}

// WithRequestInfo attaches info to ctx.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFromContext returns the request info attached by WithRequestInfo.
func RequestInfoFromContext(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info, ok
}

// apply fills the fields the caller left empty. Method, path and request id go to metadata.
func (i RequestInfo) apply(rec *models.AuditRecord) {
	if rec.IPAddress == "" {
		rec.IPAddress = i.IPAddress
	}

	if rec.UserAgent == "" {
		rec.UserAgent = i.UserAgent
	}

	extra := map[string]string{
		"method":     i.Method,
		"path":       i.Path,
		"request_id": i.RequestID,
	}

	for k, v := range extra {
		if v == "" {
			continue
		}

		if rec.Metadata == nil {
			rec.Metadata = make(map[string]any, len(extra))
		}

		if _, set := rec.Metadata[k]; !set {
			rec.Metadata[k] = v
		}
	}
}
