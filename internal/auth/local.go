package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/farah699/Users-Permissions-Backend/internal/db/controller/user"
	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
)

// LocalProvider verifies email and password against the users table.
type LocalProvider struct {
	db  *gorm.DB
	now func() time.Time

	dummyOnce sync.Once
	dummy     models.User
}

// NewLocalProvider creates a new local credential provider.
func NewLocalProvider(db *gorm.DB) *LocalProvider {
	return &LocalProvider{
		db:  db,
		now: time.Now,
	}
}

// VerifyCredentials returns the resolved principal for a matching email and password.
// Unknown emails and wrong passwords both return ErrInvalidCredentials and take
// about the same time. A correct password of an inactive principal returns ErrPrincipalInactive.
func (p *LocalProvider) VerifyCredentials(ctx context.Context, email, password string) (*models.User, error) {
	u, err := user.LoadPrincipalByEmail(ctx, p.db, email)
	if errors.Is(err, user.ErrUserNotFound) {
		// burn the same argon2id work as a real comparison
		p.dummyUser().VerifyPassword(password)
		return nil, ErrInvalidCredentials
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if !u.VerifyPassword(password) {
		return nil, ErrInvalidCredentials
	}

	if !u.Active {
		return nil, ErrPrincipalInactive
	}

	now := p.now().UTC()
	if err = user.TouchLastLogin(ctx, p.db, u.ID, now); err != nil {
		log.Warn().Err(err).Uint64("user_id", u.ID).Msg("failed to update last login")
	} else {
		u.LastLoginAt = &now
	}

	return u, nil
}

func (p *LocalProvider) dummyUser() *models.User {
	p.dummyOnce.Do(func() {
		hash, err := models.HashPassword("not-a-real-password")
		if err != nil {
			log.Error().Err(err).Msg("failed to create dummy password hash")
		}

		p.dummy = models.User{Password: hash}
	})

	return &p.dummy
}
