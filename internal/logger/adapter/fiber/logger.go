// Package fiber provides the zerolog based http access log middleware.
package fiber

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/farah699/Users-Permissions-Backend/internal/logger"
)

var requestDuration = promauto.NewHistogramVec( //nolint:gochecknoglobals
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of http requests, by method and status code.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "status"},
)

// Config implements fiber middleware struct.
type Config struct {
	// Next skips this middleware when it returns true.
	Next func(c *fiber.Ctx) bool

	// Config of the logger.
	Config logger.Log

	// Principal returns the authenticated principal id of the request, if any.
	Principal func(c *fiber.Ctx) string

	// CheckAliveURI is not logged with Config.DisableCheckAlive set.
	CheckAliveURI string

	// Output overrides the writers derived from Config, mostly for tests.
	Output io.Writer
}

// ConfigDefault is the default config.
var ConfigDefault = Config{ //nolint:gochecknoglobals
	CheckAliveURI: "/healthz",
}

func configDefault(config ...Config) Config {
	if len(config) < 1 {
		return ConfigDefault
	}

	cfg := config[0]

	if cfg.CheckAliveURI == "" {
		cfg.CheckAliveURI = ConfigDefault.CheckAliveURI
	}

	return cfg
}

func accessWriter(cfg Config) io.Writer {
	if cfg.Output != nil {
		return cfg.Output
	}

	var writers []io.Writer

	if cfg.Config.File.Enabled {
		name := cfg.Config.File.AccessLog
		if name == "" {
			name = "access.log"
		}

		if w := logger.RollingFile(cfg.Config.File, name); w != nil {
			writers = append(writers, w)
		}
	}

	if cfg.Config.Console.Enabled && cfg.Config.EnableAccessLogToConsole {
		if cfg.Config.Console.UseConsoleWriter {
			writers = append(writers, zerolog.ConsoleWriter{
				Out:          os.Stdout,
				TimeFormat:   zerolog.TimeFieldFormat,
				PartsExclude: []string{"level"},
			})
		} else {
			writers = append(writers, os.Stdout)
		}
	}

	if len(writers) == 0 {
		return nil
	}

	return zerolog.MultiLevelWriter(writers...)
}

// New creates the access log middleware.
// Errors returned by the chain are handed to the app error handler first, so the logged status is final.
func New(config ...Config) fiber.Handler {
	cfg := configDefault(config...)
	out := accessWriter(cfg)

	var accessLogger zerolog.Logger
	if out != nil {
		accessLogger = zerolog.New(out).With().Timestamp().Logger().Level(zerolog.NoLevel)
	} else {
		accessLogger = zerolog.Nop()
	}

	return func(ctx *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(ctx) {
			return ctx.Next()
		}

		start := time.Now()

		chainErr := ctx.Next()
		if chainErr != nil {
			if errH := ctx.App().ErrorHandler(ctx, chainErr); errH != nil {
				_ = ctx.SendStatus(fiber.StatusInternalServerError) //nolint:errcheck
			}
		}

		elapsed := time.Since(start)
		status := ctx.Response().StatusCode()

		requestDuration.WithLabelValues(ctx.Method(), strconv.Itoa(status)).Observe(elapsed.Seconds())

		if cfg.Config.DisableCheckAlive && ctx.Path() == cfg.CheckAliveURI {
			return nil
		}

		uri := ctx.Path()
		if qs := ctx.Request().URI().QueryString(); len(qs) > 0 {
			uri += "?" + string(qs)
		}

		event := accessLogger.Log().
			Str("IP", ctx.IP()).
			Int("status", status).
			Dur("duration", elapsed).
			Str("URI", uri).
			Str("method", ctx.Method()).
			Bytes("host", ctx.Request().Host()).
			Str(fiber.HeaderUserAgent, ctx.Get(fiber.HeaderUserAgent))

		if cfg.Principal != nil {
			if id := cfg.Principal(ctx); id != "" {
				event.Str("principal_id", id)
			}
		}

		if chainErr != nil {
			event.Err(chainErr)
		}

		event.Send()

		return nil
	}
}
