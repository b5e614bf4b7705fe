// Package role provides the role administration endpoints.
package role

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/farah699/Users-Permissions-Backend/internal/audit"
	"github.com/farah699/Users-Permissions-Backend/internal/auth"
	"github.com/farah699/Users-Permissions-Backend/internal/db/controller/role"
	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
	"github.com/farah699/Users-Permissions-Backend/internal/web/handler"
)

const (
	// Path is the base path for role management.
	Path = handler.AdminPath + "/roles"
)

// Service provides the role administration endpoints.
type Service struct {
	handler.Service
	db   *gorm.DB
	deps *handler.Deps
}

// CreateRequest is the body of POST /admin/roles.
type CreateRequest struct {
	Name          string `json:"name"           validate:"required,min=2,max=50"`
	Description   string `json:"description"    validate:"max=255"`
	PermissionIDs []uint `json:"permission_ids"`
}

// UpdateRequest is the body of PUT /admin/roles/:id.
type UpdateRequest struct {
	Name        string `json:"name"        validate:"required,min=2,max=50"`
	Description string `json:"description" validate:"max=255"`
}

// PermissionsRequest is the body of PUT /admin/roles/:id/permissions.
type PermissionsRequest struct {
	PermissionIDs []uint `json:"permission_ids" validate:"required"`
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
		auth.RequirePermission(deps.Auth, auth.ResourceRole, models.ActionRead),
		s.List,
	)
	app.Post(Path,
		authenticate,
		auth.RequirePermission(deps.Auth, auth.ResourceRole, models.ActionCreate),
		s.Create,
	)
	app.Get(Path+"/:id",
		authenticate,
		auth.RequirePermission(deps.Auth, auth.ResourceRole, models.ActionRead),
		s.Get,
	)
	app.Put(Path+"/:id",
		authenticate,
		auth.RequirePermission(deps.Auth, auth.ResourceRole, models.ActionUpdate),
		s.Update,
	)
	app.Put(Path+"/:id/permissions",
		authenticate,
		auth.RequirePermission(deps.Auth, auth.ResourceRole, models.ActionUpdate),
		s.SetPermissions,
	)
	app.Delete(Path+"/:id",
		authenticate,
		auth.RequirePermission(deps.Auth, auth.ResourceRole, models.ActionDelete),
		s.Delete,
	)
}

// List returns every role with its permissions.
func (s *Service) List(c *fiber.Ctx) error {
	roles, err := role.GetAll(c.UserContext(), s.db)
	if err != nil {
		return err
	}

	return c.JSON(roles)
}

// Get returns one role with its permissions.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := roleID(c)
	if err != nil {
		return err
	}

	r, err := role.LoadRoleWithPermissions(c.UserContext(), s.db, id)
	if err != nil {
		return err
	}

	return c.JSON(r)
}

// Create adds a role.
func (s *Service) Create(c *fiber.Ctx) error {
	req := new(CreateRequest)
	if err := handler.BindJSON(c, req); err != nil {
		return err
	}

	r, err := role.Create(c.UserContext(), s.db, req.Name, req.Description, req.PermissionIDs)
	if err != nil {
		return err
	}

	s.deps.Committed(c, audit.Entry{
		Action:     models.AuditActionCreate,
		Resource:   auth.ResourceRole,
		ResourceID: handler.FormatID(r.ID),
		Changes: map[string]any{
			"after": map[string]any{"name": r.Name, "permissions": r.PermissionKeys()},
		},
	})

	return c.Status(fiber.StatusCreated).JSON(r)
}

// Update renames a role or changes its description.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := roleID(c)
	if err != nil {
		return err
	}

	req := new(UpdateRequest)
	if err = handler.BindJSON(c, req); err != nil {
		return err
	}

	before, after, err := role.Update(c.UserContext(), s.db, id, req.Name, req.Description)
	if err != nil {
		return err
	}

	s.deps.Committed(c, audit.Entry{
		Action:     models.AuditActionUpdate,
		Resource:   auth.ResourceRole,
		ResourceID: handler.FormatID(id),
		Changes: map[string]any{
			"before": map[string]any{"name": before.Name, "description": before.Description},
			"after":  map[string]any{"name": after.Name, "description": after.Description},
		},
	})

	return c.JSON(after)
}

// SetPermissions replaces the permission set of a role.
func (s *Service) SetPermissions(c *fiber.Ctx) error {
	id, err := roleID(c)
	if err != nil {
		return err
	}

	req := new(PermissionsRequest)
	if err = handler.BindJSON(c, req); err != nil {
		return err
	}

	before, after, err := role.SetPermissions(c.UserContext(), s.db, id, req.PermissionIDs)
	if err != nil {
		return err
	}

	s.deps.Committed(c, audit.Entry{
		Action:     models.AuditActionPermissionChange,
		Resource:   auth.ResourceRole,
		ResourceID: handler.FormatID(id),
		Changes: map[string]any{
			"before": before.PermissionKeys(),
			"after":  after.PermissionKeys(),
		},
	})

	return c.JSON(after)
}

// Delete deactivates a role.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := roleID(c)
	if err != nil {
		return err
	}

	r, changed, err := role.Deactivate(c.UserContext(), s.db, id)
	if err != nil {
		return err
	}

	if !changed {
		return c.SendStatus(fiber.StatusNoContent)
	}

	s.deps.Committed(c, audit.Entry{
		Action:     models.AuditActionDelete,
		Resource:   auth.ResourceRole,
		ResourceID: handler.FormatID(r.ID),
		Changes: map[string]any{
			"before": map[string]any{"active": true},
			"after":  map[string]any{"active": false},
		},
	})

	return c.SendStatus(fiber.StatusNoContent)
}

func roleID(c *fiber.Ctx) (uint, error) {
	id, err := handler.IDParam(c, "id")
	if err != nil {
		return 0, err
	}

	return uint(id), nil
}
