// Package audit provides the read-only audit trail endpoint.
package audit

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/farah699/Users-Permissions-Backend/internal/auth"
	auditctrl "github.com/farah699/Users-Permissions-Backend/internal/db/controller/audit"
	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
	"github.com/farah699/Users-Permissions-Backend/internal/web/handler"
)

const (
	// Path is the base path of the audit trail.
	Path = handler.AdminPath + "/audit"

	// MaxLimit caps the number of records of one query.
	MaxLimit = 1000
)

// Service provides the audit trail endpoint.
type Service struct {
	handler.Service
	db *gorm.DB
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) {
	if app == nil || !deps.Valid() {
		log.Fatal().Msg(handler.ErrNilDepsFatalLogMsg)
		return
	}

	s.db = deps.DB

	app.Get(Path,
		auth.Authenticate(deps.Auth),
		auth.RequirePermission(deps.Auth, auth.ResourceAudit, models.ActionRead),
		s.List,
	)
}

// List returns audit records newest first.
// Query parameters: principal_id, resource, resource_id, action, since, until (RFC 3339) and limit.
func (s *Service) List(c *fiber.Ctx) error {
	q := auditctrl.Query{
		Resource:   c.Query("resource"),
		ResourceID: c.Query("resource_id"),
		Action:     models.AuditAction(c.Query("action")),
		Limit:      c.QueryInt("limit", 0),
	}

	if q.Limit < 0 || q.Limit > MaxLimit {
		return fiber.NewError(fiber.StatusBadRequest, "invalid limit")
	}

	if q.Action != "" && !q.Action.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "invalid action")
	}

	var err error

	if v := c.Query("principal_id"); v != "" {
		if q.PrincipalID, err = strconv.ParseUint(v, 10, 64); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid principal_id")
		}
	}

	if q.Since, err = parseTime(c.Query("since")); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid since")
	}

	if q.Until, err = parseTime(c.Query("until")); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid until")
	}

	records, err := auditctrl.ListRecords(c.UserContext(), s.db, q)
	if err != nil {
		return err
	}

	return c.JSON(records)
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}

	return time.Parse(time.RFC3339, v)
}
