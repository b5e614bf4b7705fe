// Package db opens the gorm connection for the configured engine and migrates the schema.
package db

import (
	"errors"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/farah699/Users-Permissions-Backend/internal/config"
	"github.com/farah699/Users-Permissions-Backend/internal/db/dsn"
	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
	"github.com/farah699/Users-Permissions-Backend/internal/logger/adapter/stdlogger"
)

const (
	EngineMySQL    = "mysql"
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"

	slowQueryThreshold = 200 * time.Millisecond
)

// ErrUnknownEngine is returned for a GormEngine other than mysql, postgres or sqlite.
var ErrUnknownEngine = errors.New("unknown gorm engine")

// Dialector picks the gorm driver for cfg.GormEngine. An empty engine means sqlite.
func Dialector(cfg config.DB) (gorm.Dialector, error) {
	switch cfg.GormEngine {
	case EngineMySQL:
		return gormmysql.Open(dsn.MySQL(cfg)), nil
	case EnginePostgres:
		return postgres.Open(dsn.Postgres(cfg)), nil
	case EngineSQLite, "":
		return sqlite.Open(cfg.Name), nil
	default:
		return nil, ErrUnknownEngine
	}
}

// Open connects to the configured database. SQL logging goes through zerolog.
func Open(cfg config.DB) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	return gorm.Open(dialector, &gorm.Config{ //nolint:wrapcheck
		Logger: gormlogger.New(stdlogger.NewLevel("gorm", zerolog.WarnLevel), gormlogger.Config{
			SlowThreshold:             slowQueryThreshold,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
}

// Migrate registers the custom join tables and auto migrates every model.
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&models.Role{}, "Permissions", &models.RolePermission{}); err != nil {
		return err //nolint:wrapcheck
	}

	if err := db.SetupJoinTable(&models.User{}, "Roles", &models.UserRole{}); err != nil {
		return err //nolint:wrapcheck
	}

	return db.AutoMigrate(models.All()...) //nolint:wrapcheck
}
