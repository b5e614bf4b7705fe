// Package user provides persistence operations for principals, their roles and refresh tokens.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/farah699/Users-Permissions-Backend/internal/db/controller/role"
	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
)

const (
	rolesAssociation     = "Roles"
	rolesWithPermissions = "Roles.Permissions"
	emailQueryPattern    = "email = ?"
)

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists is returned when the email is already used by any user, active or not.
	ErrEmailExists = errors.New("email already exists")
	// ErrSelfDeletion is returned when a user tries to deactivate itself.
	ErrSelfDeletion = errors.New("users cannot delete themselves")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

var validate = validator.New() //nolint:gochecknoglobals

// NewUser holds the input for Create.
type NewUser struct {
	Email         string `validate:"required,email,max=255"`
	Password      string `validate:"required,min=8,max=128"`
	FirstName     string `validate:"max=100"`
	LastName      string `validate:"max=100"`
	EmailVerified bool
	RoleIDs       []uint
}

// Create adds an active user. The email is stored lower-cased and the password hashed.
func Create(ctx context.Context, db *gorm.DB, in NewUser) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	in.Email = models.NormalizeEmail(in.Email)

	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid user: %w", err)
	}

	hash, err := models.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &models.User{
		Active:        true,
		Email:         in.Email,
		Password:      hash,
		FirstName:     strings.TrimSpace(in.FirstName),
		LastName:      strings.TrimSpace(in.LastName),
		EmailVerified: in.EmailVerified,
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where(emailQueryPattern, u.Email).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}

		if count > 0 {
			return ErrEmailExists
		}

		roles, err := assignableRoles(ctx, tx, in.RoleIDs)
		if err != nil {
			return err
		}

		u.Roles = roles

		// the unique index decides when a concurrent create passed the check above
		if err = tx.Omit(rolesAssociation + ".*").Create(u).Error; errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailExists
		}

		return err
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return u, nil
}

// GetByID returns the user without roles. Use LoadPrincipalWithRoles for authorization.
func GetByID(ctx context.Context, db *gorm.DB, id uint64) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var u models.User
	if err := db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	return &u, nil
}

// GetAll returns every user without roles, ordered by id.
func GetAll(ctx context.Context, db *gorm.DB) ([]models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var users []models.User
	if err := db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}

	return users, nil
}

// LoadPrincipalWithRoles returns the user with roles and each role's permissions resolved.
// Inactive roles are loaded too, filtering is up to the caller.
func LoadPrincipalWithRoles(ctx context.Context, db *gorm.DB, id uint64) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var u models.User
	if err := db.WithContext(ctx).Preload(rolesWithPermissions).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	return &u, nil
}

// LoadPrincipalByEmail is LoadPrincipalWithRoles keyed by the case-insensitive email.
func LoadPrincipalByEmail(ctx context.Context, db *gorm.DB, email string) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var u models.User
	if err := db.WithContext(ctx).Preload(rolesWithPermissions).
		Where(emailQueryPattern, models.NormalizeEmail(email)).
		First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	return &u, nil
}

// RoleChange is the result of SetRoles.
type RoleChange struct {
	User    *models.User
	Added   []models.Role
	Removed []models.Role
}

// SetRoles replaces the role set of a user wholesale. Deactivated roles cannot be assigned.
func SetRoles(ctx context.Context, db *gorm.DB, id uint64, roleIDs []uint) (*RoleChange, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	change := &RoleChange{}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		u, err := LoadPrincipalWithRoles(ctx, tx, id)
		if err != nil {
			return err
		}

		roles, err := assignableRoles(ctx, tx, roleIDs)
		if err != nil {
			return err
		}

		change.Added, change.Removed = diffRoles(u.Roles, roles)

		if err = tx.Model(u).Omit(rolesAssociation + ".*").Association(rolesAssociation).Replace(roles); err != nil {
			return err
		}

		change.User, err = LoadPrincipalWithRoles(ctx, tx, id)

		return err
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return change, nil
}

// Deactivate soft deletes a user and clears its refresh tokens in one transaction.
// actorID is the principal performing the change; deactivating oneself is refused.
// An already inactive user is left untouched and changed is false.
func Deactivate(ctx context.Context, db *gorm.DB, actorID, id uint64) (u *models.User, changed bool, err error) {
	if db == nil {
		return nil, false, ErrDBNil
	}

	if actorID == id {
		return nil, false, ErrSelfDeletion
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error

		u, err = GetByID(ctx, tx, id)
		if err != nil {
			return err
		}

		if !u.Active {
			return nil
		}

		if err = tx.Model(u).Update("active", false).Error; err != nil {
			return err
		}

		u.Active = false
		changed = true

		_, err = ClearRefreshTokens(ctx, tx, id)

		return err
	})
	if err != nil {
		return nil, false, err //nolint:wrapcheck
	}

	return u, changed, nil
}

// TouchLastLogin records a successful credential verification.
func TouchLastLogin(ctx context.Context, db *gorm.DB, id uint64, at time.Time) error {
	if db == nil {
		return ErrDBNil
	}

	res := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("last_login_at", at)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

func assignableRoles(ctx context.Context, tx *gorm.DB, ids []uint) ([]models.Role, error) {
	roles, err := role.FindByIDs(ctx, tx, ids)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	for _, r := range roles {
		if !r.Active {
			return nil, fmt.Errorf("%w: %s", role.ErrRoleInactive, r.Name)
		}
	}

	return roles, nil
}

func diffRoles(current, next []models.Role) (added, removed []models.Role) {
	had := make(map[uint]struct{}, len(current))
	for _, r := range current {
		had[r.ID] = struct{}{}
	}

	has := make(map[uint]struct{}, len(next))
	for _, r := range next {
		has[r.ID] = struct{}{}

		if _, ok := had[r.ID]; !ok {
			added = append(added, r)
		}
	}

	for _, r := range current {
		if _, ok := has[r.ID]; !ok {
			removed = append(removed, r)
		}
	}

	return added, removed
}
