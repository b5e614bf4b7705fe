package handler

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/farah699/Users-Permissions-Backend/internal/audit"
	"github.com/farah699/Users-Permissions-Backend/internal/auth"
	"github.com/farah699/Users-Permissions-Backend/internal/config"
)

// Deps are the services a handler is initialised with.
type Deps struct {
	Cfg   *config.Config
	DB    *gorm.DB
	Auth  *auth.Service
	Audit auth.Auditor
	// Loader is invalidated after every committed admin mutation.
	Loader *auth.Loader
}

// Valid reports whether every dependency is set.
func (d *Deps) Valid() bool {
	return d != nil && d.Cfg != nil && d.DB != nil && d.Auth != nil && d.Audit != nil && d.Loader != nil
}

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, deps *Deps)
}

// Committed invalidates cached principals and audits a committed mutation
// on behalf of the request principal.
func (d *Deps) Committed(c *fiber.Ctx, e audit.Entry) {
	ctx := c.UserContext()

	d.Loader.Invalidate(ctx)

	if actor := auth.PrincipalFromCtx(c); actor != nil {
		e.PrincipalID = actor.ID
		e.PrincipalEmail = actor.Email
	}

	d.Audit.Record(ctx, e)
}
