package user

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
)

// AddRefreshToken adds a token hash to the user's outstanding set.
func AddRefreshToken(ctx context.Context, db *gorm.DB, userID uint64, tokenHash string, expiresAt time.Time) error {
	if db == nil {
		return ErrDBNil
	}

	return db.WithContext(ctx).Create(&models.UserRefreshToken{ //nolint:wrapcheck
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	}).Error
}

// RemoveRefreshToken removes a token hash from the set. Removing an absent hash is a no-op.
// It reports whether a row was removed.
func RemoveRefreshToken(ctx context.Context, db *gorm.DB, userID uint64, tokenHash string) (bool, error) {
	if db == nil {
		return false, ErrDBNil
	}

	res := db.WithContext(ctx).
		Where("user_id = ? AND token_hash = ?", userID, tokenHash).
		Delete(&models.UserRefreshToken{})

	return res.RowsAffected > 0, res.Error //nolint:wrapcheck
}

// HasRefreshToken reports whether the hash is in the user's outstanding set.
func HasRefreshToken(ctx context.Context, db *gorm.DB, userID uint64, tokenHash string) (bool, error) {
	if db == nil {
		return false, ErrDBNil
	}

	var count int64
	err := db.WithContext(ctx).Model(&models.UserRefreshToken{}).
		Where("user_id = ? AND token_hash = ?", userID, tokenHash).
		Count(&count).Error

	return count > 0, err //nolint:wrapcheck
}

// CountRefreshTokens returns the size of the user's outstanding set.
func CountRefreshTokens(ctx context.Context, db *gorm.DB, userID uint64) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	var count int64
	err := db.WithContext(ctx).Model(&models.UserRefreshToken{}).Where("user_id = ?", userID).Count(&count).Error

	return count, err //nolint:wrapcheck
}

// ClearRefreshTokens empties the user's outstanding set and returns how many were removed.
func ClearRefreshTokens(ctx context.Context, db *gorm.DB, userID uint64) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	res := db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.UserRefreshToken{})

	return res.RowsAffected, res.Error //nolint:wrapcheck
}

// PurgeExpiredRefreshTokens removes every set entry whose token expired before now.
func PurgeExpiredRefreshTokens(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.UserRefreshToken{})

	return res.RowsAffected, res.Error //nolint:wrapcheck
}
