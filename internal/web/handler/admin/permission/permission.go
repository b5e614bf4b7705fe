// Package permission provides the permission catalog endpoints.
package permission

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/farah699/Users-Permissions-Backend/internal/audit"
	"github.com/farah699/Users-Permissions-Backend/internal/auth"
	"github.com/farah699/Users-Permissions-Backend/internal/db/controller/permission"
	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
	"github.com/farah699/Users-Permissions-Backend/internal/web/handler"
)

const (
	// Path is the base path of the permission catalog.
	Path = handler.AdminPath + "/permissions"
)

// Service provides the permission catalog endpoints.
type Service struct {
	handler.Service
	db   *gorm.DB
	deps *handler.Deps
}

// CreateRequest is the body of POST /admin/permissions.
type CreateRequest struct {
	Resource    string `json:"resource"    validate:"required,max=100"`
	Action      string `json:"action"      validate:"required,oneof=create read update delete manage"`
	Name        string `json:"name"        validate:"max=100"`
	Description string `json:"description" validate:"max=255"`
}

// UpdateRequest is the body of PATCH /admin/permissions/:id.
type UpdateRequest struct {
	Description string `json:"description" validate:"max=255"`
}

// Init registers routes.
func (s *Service) Init(app *fiber.App, deps *handler.Deps) {
	if app == nil || !deps.Valid() {
		log.Fatal().Msg(handler.ErrNilDepsFatalLogMsg)
		return
	}

	s.db = deps.DB
	s.deps = deps

	authenticate := auth.Authenticate(deps.Auth)

	app.Get(Path,
		authenticate,
		auth.RequirePermission(deps.Auth, auth.ResourcePermission, models.ActionRead),
		s.List,
	)
	app.Post(Path,
		authenticate,
		auth.RequirePermission(deps.Auth, auth.ResourcePermission, models.ActionCreate),
		s.Create,
	)
	app.Patch(Path+"/:id",
		authenticate,
		auth.RequirePermission(deps.Auth, auth.ResourcePermission, models.ActionUpdate),
		s.Update,
	)
	app.Delete(Path+"/:id",
		authenticate,
		auth.RequirePermission(deps.Auth, auth.ResourcePermission, models.ActionDelete),
		s.Delete,
	)
}

// List returns the catalog ordered by resource and action.
func (s *Service) List(c *fiber.Ctx) error {
	perms, err := permission.GetAll(c.UserContext(), s.db)
	if err != nil {
		return err
	}

	return c.JSON(perms)
}

// Create adds a permission to the catalog.
func (s *Service) Create(c *fiber.Ctx) error {
	req := new(CreateRequest)
	if err := handler.BindJSON(c, req); err != nil {
		return err
	}

	p, err := permission.Create(c.UserContext(), s.db, req.Resource, models.Action(req.Action), req.Name, req.Description)
	if err != nil {
		return err
	}

	s.deps.Committed(c, audit.Entry{
		Action:     models.AuditActionCreate,
		Resource:   auth.ResourcePermission,
		ResourceID: handler.FormatID(p.ID),
		Changes:    map[string]any{"after": map[string]any{"name": p.Name, "key": p.Key()}},
	})

	return c.Status(fiber.StatusCreated).JSON(p)
}

// Update changes the description of a permission.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := handler.IDParam(c, "id")
	if err != nil {
		return err
	}

	req := new(UpdateRequest)
	if err = handler.BindJSON(c, req); err != nil {
		return err
	}

	before, after, err := permission.UpdateDescription(c.UserContext(), s.db, uint(id), req.Description)
	if err != nil {
		return err
	}

	s.deps.Committed(c, audit.Entry{
		Action:     models.AuditActionUpdate,
		Resource:   auth.ResourcePermission,
		ResourceID: handler.FormatID(after.ID),
		Changes: map[string]any{
			"before": map[string]any{"description": before.Description},
			"after":  map[string]any{"description": after.Description},
		},
	})

	return c.JSON(after)
}

// Delete removes a permission no active role references.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := handler.IDParam(c, "id")
	if err != nil {
		return err
	}

	ctx := c.UserContext()

	p, err := permission.Get(ctx, s.db, uint(id))
	if err != nil {
		return err
	}

	if err = permission.Delete(ctx, s.db, p.ID); err != nil {
		return err
	}

	s.deps.Committed(c, audit.Entry{
		Action:     models.AuditActionDelete,
		Resource:   auth.ResourcePermission,
		ResourceID: handler.FormatID(p.ID),
		Changes:    map[string]any{"before": map[string]any{"name": p.Name, "key": p.Key()}},
	})

	return c.SendStatus(fiber.StatusNoContent)
}
