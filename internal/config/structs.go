package config

import (
	"time"

	"github.com/farah699/Users-Permissions-Backend/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	Title     string
	DB        DB
	Log       logger.Log
	Webserver Webserver
	Token     Token
	Audit     Audit
	Cache     Cache
	Seed      Seed
}

// Webserver implement webserver settings.
type Webserver struct {
	Port          int    `validate:"max=65535"` // listening port for the webserver
	ShutDownTime  int    // seconds to keep answering 503 on /healthz before stopping
	URL           string // base url for the webserver
	ProxyHeader   string // header holding the client IP when running behind a proxy
	EnableMetrics bool   // expose /metrics
}

// Token holds the signing secrets and lifetimes of access and refresh tokens.
type Token struct {
	Issuer              string
	AccessSecret        string        `json:"-" toml:"-" validate:"required,min=16"`
	RefreshSecret       string        `json:"-" toml:"-" validate:"required,min=16"`
	AccessTTL           time.Duration `validate:"gt=0"`
	RefreshTTL          time.Duration `validate:"gt=0,gtfield=AccessTTL"`
	RotateRefreshTokens bool
}

// Audit configures where audit records go and how long they are kept.
type Audit struct {
	Sinks     []string      `validate:"dive,oneof=db log amqp"` // db, log, amqp
	Retention time.Duration // records older than this may be purged
	AMQPURL   string        `json:"-" toml:"-"`
	AMQPQueue string
}

// Cache configures the resolved principal cache.
type Cache struct {
	Enabled       bool
	Backend       string `validate:"omitempty,oneof=memory redis"` // memory or redis
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string `json:"-" toml:"-"`
	RedisDB       int
	RedisPrefix   string
}

// Seed describes the bootstrap administrator created on an empty database.
type Seed struct {
	AdminEmail    string
	AdminPassword string `json:"-" toml:"-"`
}
