package config

// DB holds the database configuration settings.
type DB struct {
	Extras     string
	Host       string
	Port       int
	User       string
	Password   string `json:"-" toml:"-"`
	Name       string // database name, or the file path for sqlite
	GormEngine string `validate:"omitempty,oneof=mysql postgres sqlite"` // mysql, postgres or sqlite
}
