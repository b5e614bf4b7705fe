package auth

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/farah699/Users-Permissions-Backend/internal/db/controller/user"
)

// GormRefreshTokenStore keeps refresh token hashes in the user_refresh_tokens table.
type GormRefreshTokenStore struct {
	db *gorm.DB
}

// NewGormRefreshTokenStore returns a RefreshTokenStore backed by db.
func NewGormRefreshTokenStore(db *gorm.DB) *GormRefreshTokenStore {
	return &GormRefreshTokenStore{db: db}
}

// Add implements RefreshTokenStore.
func (s *GormRefreshTokenStore) Add(ctx context.Context, principalID uint64, hash string, expiresAt time.Time) error {
	return user.AddRefreshToken(ctx, s.db, principalID, hash, expiresAt)
}

// Remove implements RefreshTokenStore.
func (s *GormRefreshTokenStore) Remove(ctx context.Context, principalID uint64, hash string) (bool, error) {
	return user.RemoveRefreshToken(ctx, s.db, principalID, hash)
}

// Has implements RefreshTokenStore.
func (s *GormRefreshTokenStore) Has(ctx context.Context, principalID uint64, hash string) (bool, error) {
	return user.HasRefreshToken(ctx, s.db, principalID, hash)
}

// Clear implements RefreshTokenStore.
func (s *GormRefreshTokenStore) Clear(ctx context.Context, principalID uint64) (int64, error) {
	return user.ClearRefreshTokens(ctx, s.db, principalID)
}
