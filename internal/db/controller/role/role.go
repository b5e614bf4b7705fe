// Package role provides persistence operations for roles and their permission sets.
package role

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/farah699/Users-Permissions-Backend/internal/db/controller/permission"
	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
)

const permissionsAssociation = "Permissions"

var (
	// ErrRoleNotFound is returned when a role is not found.
	ErrRoleNotFound = errors.New("role not found")
	// ErrRoleNameExists is returned when the role name is already used, by an active role or not.
	ErrRoleNameExists = errors.New("role name already exists")
	// ErrRoleInUse is returned when deactivating a role active users still hold.
	ErrRoleInUse = errors.New("role is held by active users")
	// ErrRoleInactive is returned when mutating a deactivated role.
	ErrRoleInactive = errors.New("role is deactivated")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

var validate = validator.New() //nolint:gochecknoglobals

// Create adds an active role with the given permissions.
func Create(ctx context.Context, db *gorm.DB, name, description string, permissionIDs []uint) (*models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	r := &models.Role{
		Name:        strings.TrimSpace(name),
		Description: description,
		Active:      true,
	}

	if err := validate.Struct(r); err != nil {
		return nil, fmt.Errorf("invalid role: %w", err)
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := nameTaken(tx, r.Name, 0)
		if err != nil {
			return err
		}

		if taken {
			return ErrRoleNameExists
		}

		perms, err := permission.FindByIDs(ctx, tx, permissionIDs)
		if err != nil {
			return err
		}

		r.Permissions = perms

		if err = tx.Omit(permissionsAssociation + ".*").Create(r).Error; errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrRoleNameExists
		}

		return err
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return r, nil
}

// GetByID returns the role without its permissions.
func GetByID(ctx context.Context, db *gorm.DB, id uint) (*models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var r models.Role
	if err := db.WithContext(ctx).First(&r, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}

		return nil, err
	}

	return &r, nil
}

// GetByName returns the role with the given name without its permissions.
func GetByName(ctx context.Context, db *gorm.DB, name string) (*models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var r models.Role
	if err := db.WithContext(ctx).Where("name = ?", name).First(&r).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}

		return nil, err
	}

	return &r, nil
}

// LoadRoleWithPermissions returns the role with its permission set resolved.
func LoadRoleWithPermissions(ctx context.Context, db *gorm.DB, id uint) (*models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var r models.Role
	if err := db.WithContext(ctx).Preload(permissionsAssociation).First(&r, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}

		return nil, err
	}

	return &r, nil
}

// GetAll returns every role, active or not, with permissions resolved.
func GetAll(ctx context.Context, db *gorm.DB) ([]models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var roles []models.Role
	if err := db.WithContext(ctx).Preload(permissionsAssociation).Order("name").Find(&roles).Error; err != nil {
		return nil, err
	}

	return roles, nil
}

// FindByIDs loads the given roles. Unknown IDs yield ErrRoleNotFound.
func FindByIDs(ctx context.Context, db *gorm.DB, ids []uint) ([]models.Role, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}

	if len(seen) == 0 {
		return []models.Role{}, nil
	}

	var roles []models.Role
	if err := db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&roles).Error; err != nil {
		return nil, err
	}

	if len(roles) != len(seen) {
		return nil, ErrRoleNotFound
	}

	return roles, nil
}

// Update changes name and description of an active role.
// It returns the role as it was and as it is now for auditing.
func Update(ctx context.Context, db *gorm.DB, id uint, name, description string) (before, after *models.Role, err error) {
	if db == nil {
		return nil, nil, ErrDBNil
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := GetByID(ctx, tx, id)
		if err != nil {
			return err
		}

		if !r.Active {
			return ErrRoleInactive
		}

		old := *r
		before = &old

		r.Name = strings.TrimSpace(name)
		r.Description = description

		if err = validate.Struct(r); err != nil {
			return fmt.Errorf("invalid role: %w", err)
		}

		taken, err := nameTaken(tx, r.Name, r.ID)
		if err != nil {
			return err
		}

		if taken {
			return ErrRoleNameExists
		}

		if err = tx.Model(r).Select("name", "description").Updates(r).Error; errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrRoleNameExists
		}

		after = r

		return err
	})
	if err != nil {
		return nil, nil, err //nolint:wrapcheck
	}

	return before, after, nil
}

// SetPermissions replaces the permission set of an active role wholesale.
// It returns the role with the old and the new set for auditing.
func SetPermissions(ctx context.Context, db *gorm.DB, id uint, permissionIDs []uint) (before, after *models.Role, err error) {
	if db == nil {
		return nil, nil, ErrDBNil
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r, err := LoadRoleWithPermissions(ctx, tx, id)
		if err != nil {
			return err
		}

		if !r.Active {
			return ErrRoleInactive
		}

		old := *r
		old.Permissions = append([]models.Permission(nil), r.Permissions...)
		before = &old

		perms, err := permission.FindByIDs(ctx, tx, permissionIDs)
		if err != nil {
			return err
		}

		if err = tx.Model(r).Omit(permissionsAssociation + ".*").Association(permissionsAssociation).Replace(perms); err != nil {
			return err
		}

		// touch the role so the change is visible on the role itself
		if err = tx.Model(r).Update("updated_at", tx.NowFunc()).Error; err != nil {
			return err
		}

		after, err = LoadRoleWithPermissions(ctx, tx, id)

		return err
	})
	if err != nil {
		return nil, nil, err //nolint:wrapcheck
	}

	return before, after, nil
}

// Deactivate soft deletes a role. It fails while any active user holds the role.
// Deactivating an already inactive role is a no-op and reports changed=false.
func Deactivate(ctx context.Context, db *gorm.DB, id uint) (r *models.Role, changed bool, err error) {
	if db == nil {
		return nil, false, ErrDBNil
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error

		r, err = GetByID(ctx, tx, id)
		if err != nil {
			return err
		}

		if !r.Active {
			return nil
		}

		holders, err := ActiveHolders(ctx, tx, id)
		if err != nil {
			return err
		}

		if holders > 0 {
			return ErrRoleInUse
		}

		if err = tx.Model(r).Update("active", false).Error; err != nil {
			return err
		}

		r.Active = false
		changed = true

		return nil
	})
	if err != nil {
		return nil, false, err //nolint:wrapcheck
	}

	return r, changed, nil
}

// ActiveHolders counts the active users holding the role.
func ActiveHolders(ctx context.Context, db *gorm.DB, id uint) (int64, error) {
	if db == nil {
		return 0, ErrDBNil
	}

	var count int64
	err := db.WithContext(ctx).Model(&models.UserRole{}).
		Joins("JOIN users ON users.id = user_roles.user_id").
		Where("user_roles.role_id = ? AND users.active = ?", id, true).
		Count(&count).Error

	return count, err //nolint:wrapcheck
}

func nameTaken(tx *gorm.DB, name string, exceptID uint) (bool, error) {
	var count int64

	q := tx.Model(&models.Role{}).Where("LOWER(name) = LOWER(?)", name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}

	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check role name: %w", err)
	}

	return count > 0, nil
}
