// Package cache keeps resolved principals (user, roles, permissions) between requests.
//
// Entries are invalidated by generation: every mutation of users, roles,
// permissions or their join tables bumps a counter, and entries written under
// an older generation are never returned again.
package cache

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"

	defaultTTL = 5 * time.Minute
)

var lookups = promauto.NewCounterVec( //nolint:gochecknoglobals
	prometheus.CounterOpts{
		Name: "principal_cache_lookups_total",
		Help: "Principal cache lookups, by backend and result.",
	},
	[]string{"backend", "result"},
)

// Cache stores resolved principals by id.
// Returned users must be treated as read-only.
//
// Callers read Generation before loading a principal from the database and
// hand it to Set, so a load that raced with a mutation is never served.
type Cache interface {
	// Generation returns the current generation, false if it is unavailable.
	Generation(ctx context.Context) (uint64, bool)
	Get(ctx context.Context, id uint64) (*models.User, bool)
	Set(ctx context.Context, generation uint64, u *models.User)
	// Invalidate drops every cached principal.
	Invalidate(ctx context.Context)
}

// Nop is a Cache that never stores anything.
type Nop struct{}

// Generation implements Cache.
func (Nop) Generation(context.Context) (uint64, bool) { return 0, false }

// Get implements Cache.
func (Nop) Get(context.Context, uint64) (*models.User, bool) { return nil, false }

// Set implements Cache.
func (Nop) Set(context.Context, uint64, *models.User) {}

// Invalidate implements Cache.
func (Nop) Invalidate(context.Context) {}

func observe(backend string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}

	lookups.WithLabelValues(backend, result).Inc()
}
