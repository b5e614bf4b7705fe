// Package daemon wires configuration, storage, caching, auditing and the web service together.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/farah699/Users-Permissions-Backend/internal/audit"
	"github.com/farah699/Users-Permissions-Backend/internal/auth"
	"github.com/farah699/Users-Permissions-Backend/internal/cache"
	"github.com/farah699/Users-Permissions-Backend/internal/config"
	"github.com/farah699/Users-Permissions-Backend/internal/db"
	"github.com/farah699/Users-Permissions-Backend/internal/logger"
	"github.com/farah699/Users-Permissions-Backend/internal/logger/adapter/stdlogger"
	"github.com/farah699/Users-Permissions-Backend/internal/web"
	"github.com/farah699/Users-Permissions-Backend/internal/web/handler"
)

// ErrUnknownSink is returned for an audit sink name other than db, log or amqp.
var ErrUnknownSink = errors.New("unknown audit sink")

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	db         *gorm.DB
	webService *web.Service
	closers    []io.Closer
}

// Start serves http until SIGINT or SIGTERM, then shuts down and releases resources.
func (d *Daemon) Start() error {
	go func() {
		if err := d.webService.Start(":" + strconv.Itoa(d.cfg.Webserver.Port)); err != nil {
			log.Error().Err(err).Msg("web service stopped")
		}
	}()

	log.Info().Int("port", d.cfg.Webserver.Port).Str("url", d.cfg.Webserver.URL).Msg("web service started")

	d.webService.WaitShutdown()

	return d.Close()
}

// Close releases audit sinks, cache clients and the database pool.
func (d *Daemon) Close() error {
	var errs []error

	for _, c := range d.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if sqlDB, err := d.db.DB(); err == nil {
		errs = append(errs, sqlDB.Close())
	}

	return errors.Join(errs...)
}

// App returns the web service, mostly for tests.
func (d *Daemon) App() *web.Service {
	return d.webService
}

// OpenDB opens and migrates the configured database.
func OpenDB(cfg *config.Config) (*gorm.DB, error) {
	gdb, err := db.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err = db.Migrate(gdb); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return gdb, nil
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	gdb, err := OpenDB(cfg)
	if err != nil {
		return nil, err
	}

	d, err := NewWithDB(cfg, gdb)
	if err != nil {
		if sqlDB, dbErr := gdb.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}

		return nil, err
	}

	return d, nil
}

// NewWithDB builds the daemon on an already migrated database.
func NewWithDB(cfg *config.Config, gdb *gorm.DB) (*Daemon, error) {
	ctx := context.Background()
	d := &Daemon{cfg: cfg, db: gdb}

	if _, err := Seed(ctx, gdb, cfg.Seed); err != nil {
		return nil, err
	}

	principalCache, err := d.newCache(ctx)
	if err != nil {
		return nil, err
	}

	if err = cache.RegisterInvalidation(gdb, principalCache); err != nil {
		return nil, fmt.Errorf("failed to register cache invalidation: %w", err)
	}

	sinks, err := d.newSinks()
	if err != nil {
		_ = d.Close()
		return nil, err
	}

	recorder := audit.NewRecorder(sinks)
	loader := auth.NewLoader(gdb, principalCache)

	tokens, err := auth.NewTokenService(auth.TokenConfigFrom(cfg.Token), loader, auth.NewGormRefreshTokenStore(gdb))
	if err != nil {
		_ = d.Close()
		return nil, err
	}

	d.webService = web.New(&handler.Deps{
		Cfg:    cfg,
		DB:     gdb,
		Auth:   auth.NewService(tokens, auth.NewLocalProvider(gdb), recorder),
		Audit:  recorder,
		Loader: loader,
	})

	return d, nil
}

func (d *Daemon) newCache(ctx context.Context) (cache.Cache, error) {
	c := d.cfg.Cache
	if !c.Enabled {
		return cache.Nop{}, nil
	}

	switch c.Backend {
	case "", cache.BackendMemory:
		return cache.NewMemory(c.TTL), nil
	case cache.BackendRedis:
		redis.SetLogger(stdlogger.NewContext("redis"))

		client := redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})

		// an unreachable redis degrades to cache misses
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", c.RedisAddr).Msg("redis not reachable, principal cache will miss")
		}

		d.closers = append(d.closers, client)

		return cache.NewRedis(client, c.RedisPrefix, c.TTL), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", c.Backend)
	}
}

func (d *Daemon) newSinks() ([]audit.Sink, error) {
	names := d.cfg.Audit.Sinks
	if len(names) == 0 {
		names = []string{"db"}
	}

	sinks := make([]audit.Sink, 0, len(names))

	for _, name := range names {
		switch name {
		case "db":
			sinks = append(sinks, audit.NewDBSink(d.db))
		case "log":
			sinks = append(sinks, audit.NewLogSink(logger.NewAuditWriter(d.cfg.Log)))
		case "amqp":
			sink, err := audit.DialAMQPSink(d.cfg.Audit.AMQPURL, d.cfg.Audit.AMQPQueue)
			if err != nil {
				return nil, fmt.Errorf("failed to connect amqp audit sink: %w", err)
			}

			sinks = append(sinks, sink)
			d.closers = append(d.closers, sink)
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownSink, name)
		}
	}

	return sinks, nil
}
