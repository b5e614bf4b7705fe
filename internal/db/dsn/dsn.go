// Package dsn builds driver specific Data Source Names from the database configuration.
package dsn

import (
	"fmt"
	"strings"

	"github.com/farah699/Users-Permissions-Backend/internal/config"
)

// MySQL builds a go-sql-driver/mysql DSN, e.g. user:pass@tcp(host:3306)/name?parseTime=True.
func MySQL(cfg config.DB) string {
	out := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)

	if cfg.Extras != "" {
		out += "?" + cfg.Extras
	}

	return out
}

// Postgres builds a pgx keyword/value DSN.
// Extras are appended verbatim, e.g. "sslmode=disable TimeZone=UTC".
func Postgres(cfg config.DB) string {
	parts := []string{
		"host=" + cfg.Host,
		fmt.Sprintf("port=%d", cfg.Port),
		"user=" + cfg.User,
		"password=" + cfg.Password,
		"dbname=" + cfg.Name,
	}

	if cfg.Extras != "" {
		parts = append(parts, cfg.Extras)
	}

	return strings.Join(parts, " ")
}
