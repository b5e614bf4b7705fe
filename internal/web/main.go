package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/farah699/Users-Permissions-Backend/internal/auth"
	"github.com/farah699/Users-Permissions-Backend/internal/config"
	fiberlogger "github.com/farah699/Users-Permissions-Backend/internal/logger/adapter/fiber"
	"github.com/farah699/Users-Permissions-Backend/internal/web/handler"
	audithandler "github.com/farah699/Users-Permissions-Backend/internal/web/handler/admin/audit"
	permissionhandler "github.com/farah699/Users-Permissions-Backend/internal/web/handler/admin/permission"
	rolehandler "github.com/farah699/Users-Permissions-Backend/internal/web/handler/admin/role"
	userhandler "github.com/farah699/Users-Permissions-Backend/internal/web/handler/admin/user"
	"github.com/farah699/Users-Permissions-Backend/internal/web/handler/token"
	"github.com/farah699/Users-Permissions-Backend/internal/web/middleware/requestinfo"
)

const (
	// HealthPath answers 200 while the service accepts traffic and 503 while shutting down.
	HealthPath = "/healthz"

	// MetricsPath exposes the prometheus registry when enabled.
	MetricsPath = "/metrics"
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown blocks until SIGINT or SIGTERM and stops the server gracefully.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	s.Shutdown()
}

// Shutdown fails the health check for Webserver.ShutDownTime seconds, then stops the server.
func (s *Service) Shutdown() {
	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	log.Info().Msg("stopping http server ...")

	if err := s.App.Shutdown(); err != nil {
		log.Error().Err(err).Msg("")
	}

	log.Info().Msg("http server was stopped ... good bye...")
}

// SetFastShutDown skips the health check grace period on shutdown.
func (s *Service) SetFastShutDown(fast bool) {
	s.fastShutDown = fast
}

// New creates the web service and registers every route.
func New(deps *handler.Deps) *Service {
	if !deps.Valid() {
		panic("web dependencies cannot be nil")
	}

	cfg := deps.Cfg

	app := fiber.New(
		fiber.Config{
			AppName:               cfg.Title,
			CaseSensitive:         true,
			Prefork:               false,
			Immutable:             true,
			ProxyHeader:           cfg.Webserver.ProxyHeader,
			ErrorHandler:          ErrorHandler,
			DisableStartupMessage: !cfg.DevMode,
		},
	)

	service := &Service{
		cfg: cfg,
		App: app,
	}
	service.alive.Store(true)

	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		Principal:     auth.PrincipalID,
		CheckAliveURI: HealthPath,
	}))
	app.Use(recover.New())
	app.Use(requestinfo.New())

	app.Get(HealthPath, service.health)

	if cfg.Webserver.EnableMetrics {
		app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))
	}

	// handlers register their own routes with permission checks
	handlers := []handler.Service{
		&token.Service{},
		&userhandler.Service{},
		&rolehandler.Service{},
		&permissionhandler.Service{},
		&audithandler.Service{},
	}

	for _, h := range handlers {
		h.Init(app, deps)
	}

	return service
}

func (s *Service) health(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "shutting down"})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}
