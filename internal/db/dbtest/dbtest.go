// Package dbtest opens migrated in-memory sqlite databases for tests.
package dbtest

import (
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/farah699/Users-Permissions-Backend/internal/db"
)

// New returns a fresh, migrated in-memory database.
// The pool is limited to one connection, every connection to :memory: is its own database.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb), "failed to migrate test database")

	return gdb
}

// BeforeInsert runs fn once, on the connection of the insert, right before the
// next row of table is created. It lets a test place a concurrent writer
// between a uniqueness check and the insert that follows it.
func BeforeInsert(t testing.TB, gdb *gorm.DB, table string, fn func(tx *gorm.DB) error) {
	t.Helper()

	var once sync.Once

	err := gdb.Callback().Create().Before("gorm:create").Register("dbtest:before_insert", func(tx *gorm.DB) {
		if tx.Statement.Table != table {
			return
		}

		once.Do(func() {
			if err := fn(tx.Session(&gorm.Session{NewDB: true})); err != nil {
				_ = tx.AddError(err)
			}
		})
	})
	require.NoError(t, err)
}
