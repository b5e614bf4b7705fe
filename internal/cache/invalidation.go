package cache

import (
	"gorm.io/gorm"

	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
)

const callbackName = "cache:invalidate_principals"

// watchedTables are the tables a resolved principal is built from.
func watchedTables() map[string]struct{} {
	return map[string]struct{}{
		models.User{}.TableName():           {},
		models.Role{}.TableName():           {},
		models.Permission{}.TableName():     {},
		models.RolePermission{}.TableName(): {},
		models.UserRole{}.TableName():       {},
	}
}

// RegisterInvalidation installs gorm callbacks that invalidate c after every
// successful create, update or delete on a watched table, join table
// writes done through association replacement included.
func RegisterInvalidation(db *gorm.DB, c Cache) error {
	tables := watchedTables()

	invalidate := func(tx *gorm.DB) {
		if tx.Error != nil || tx.Statement == nil {
			return
		}

		if _, ok := tables[tx.Statement.Table]; !ok {
			return
		}

		c.Invalidate(tx.Statement.Context)
	}

	if err := db.Callback().Create().After("gorm:create").Register(callbackName, invalidate); err != nil {
		return err //nolint:wrapcheck
	}

	if err := db.Callback().Update().After("gorm:update").Register(callbackName, invalidate); err != nil {
		return err //nolint:wrapcheck
	}

	return db.Callback().Delete().After("gorm:delete").Register(callbackName, invalidate) //nolint:wrapcheck
}
