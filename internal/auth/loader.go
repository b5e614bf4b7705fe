package auth

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/farah699/Users-Permissions-Backend/internal/cache"
	"github.com/farah699/Users-Permissions-Backend/internal/db/controller/user"
	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
)

// Loader resolves principals from the database, optionally through a cache.
type Loader struct {
	db    *gorm.DB
	cache cache.Cache
}

// NewLoader returns a Loader. A nil cache disables caching.
func NewLoader(db *gorm.DB, c cache.Cache) *Loader {
	if c == nil {
		c = cache.Nop{}
	}

	return &Loader{db: db, cache: c}
}

// LoadPrincipal returns the principal with roles and role permissions resolved.
// Inactive roles are included; the engine ignores them.
func (l *Loader) LoadPrincipal(ctx context.Context, id uint64) (*models.User, error) {
	if u, ok := l.cache.Get(ctx, id); ok {
		return u, nil
	}

	// read before loading, a mutation in between makes the entry unreachable
	gen, cacheable := l.cache.Generation(ctx)

	u, err := user.LoadPrincipalWithRoles(ctx, l.db, id)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, ErrPrincipalNotFound
		}

		return nil, fmt.Errorf("failed to load principal %d: %w", id, err)
	}

	if cacheable {
		l.cache.Set(ctx, gen, u)
	}

	return u, nil
}

// Invalidate drops every cached principal.
func (l *Loader) Invalidate(ctx context.Context) {
	l.cache.Invalidate(ctx)
}
