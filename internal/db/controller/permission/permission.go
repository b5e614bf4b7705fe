// Package permission provides CRUD operations for the permission catalog.
package permission

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
)

var (
	// ErrPermissionNotFound is returned when a permission is not found.
	ErrPermissionNotFound = errors.New("permission not found")
	// ErrPermissionExists is returned when the name or the (resource, action) pair is taken.
	ErrPermissionExists = errors.New("permission already exists")
	// ErrPermissionInUse is returned when deleting a permission an active role still references.
	ErrPermissionInUse = errors.New("permission is referenced by an active role")
	// ErrInvalidAction is returned for an action outside the canonical set.
	ErrInvalidAction = errors.New("invalid permission action")
	// ErrResourceEmpty is returned when the resource is empty.
	ErrResourceEmpty = errors.New("permission resource cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// Create adds a permission to the catalog. An empty name defaults to "resource.action".
func Create(ctx context.Context, db *gorm.DB, resource string, action models.Action, name, description string) (*models.Permission, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	resource = strings.TrimSpace(resource)
	if resource == "" {
		return nil, ErrResourceEmpty
	}

	if !action.Valid() {
		return nil, ErrInvalidAction
	}

	p := &models.Permission{
		Name:        strings.TrimSpace(name),
		Resource:    resource,
		Action:      action,
		Description: description,
	}

	if p.Name == "" {
		p.Name = p.Key()
	}

	tx := db.WithContext(ctx)

	var count int64
	if err := tx.Model(&models.Permission{}).
		Where("name = ? OR (resource = ? AND action = ?)", p.Name, p.Resource, p.Action).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check permission: %w", err)
	}

	if count > 0 {
		return nil, ErrPermissionExists
	}

	if err := tx.Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrPermissionExists
		}

		return nil, fmt.Errorf("failed to create permission: %w", err)
	}

	return p, nil
}

// Get retrieves a permission by its ID.
func Get(ctx context.Context, db *gorm.DB, id uint) (*models.Permission, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var p models.Permission
	if err := db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPermissionNotFound
		}

		return nil, err
	}

	return &p, nil
}

// GetByKey retrieves a permission by resource and action.
func GetByKey(ctx context.Context, db *gorm.DB, resource string, action models.Action) (*models.Permission, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var p models.Permission
	if err := db.WithContext(ctx).Where("resource = ? AND action = ?", resource, action).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPermissionNotFound
		}

		return nil, err
	}

	return &p, nil
}

// GetAll returns the whole catalog ordered by resource and action.
func GetAll(ctx context.Context, db *gorm.DB) ([]models.Permission, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var permissions []models.Permission
	if err := db.WithContext(ctx).Order("resource, action").Find(&permissions).Error; err != nil {
		return nil, err
	}

	return permissions, nil
}

// FindByIDs loads the given permissions. Unknown IDs yield ErrPermissionNotFound.
func FindByIDs(ctx context.Context, db *gorm.DB, ids []uint) ([]models.Permission, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	ids = unique(ids)
	if len(ids) == 0 {
		return []models.Permission{}, nil
	}

	var permissions []models.Permission
	if err := db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&permissions).Error; err != nil {
		return nil, err
	}

	if len(permissions) != len(ids) {
		return nil, ErrPermissionNotFound
	}

	return permissions, nil
}

// UpdateDescription changes the description, the only mutable attribute of a permission.
// It returns the permission as it was and as it is now.
func UpdateDescription(ctx context.Context, db *gorm.DB, id uint, description string) (before, after *models.Permission, err error) {
	if db == nil {
		return nil, nil, ErrDBNil
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := Get(ctx, tx, id)
		if err != nil {
			return err
		}

		old := *p
		before = &old

		if err = tx.Model(p).Update("description", description).Error; err != nil {
			return fmt.Errorf("failed to update permission: %w", err)
		}

		after = p

		return nil
	})
	if err != nil {
		return nil, nil, err //nolint:wrapcheck
	}

	return before, after, nil
}

// Delete removes a permission no active role references.
// Grants held by inactive roles are removed along with it.
func Delete(ctx context.Context, db *gorm.DB, id uint) error {
	if db == nil {
		return ErrDBNil
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error { //nolint:wrapcheck
		var p models.Permission
		if err := tx.First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPermissionNotFound
			}

			return err
		}

		var inUse int64
		if err := tx.Model(&models.RolePermission{}).
			Joins("JOIN roles ON roles.id = role_permissions.role_id").
			Where("role_permissions.permission_id = ? AND roles.active = ?", id, true).
			Count(&inUse).Error; err != nil {
			return err
		}

		if inUse > 0 {
			return ErrPermissionInUse
		}

		if err := tx.Where("permission_id = ?", id).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}

		return tx.Delete(&p).Error
	})
}

func unique(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}
