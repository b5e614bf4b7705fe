// Package user provides the user administration endpoints.
package user

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/farah699/Users-Permissions-Backend/internal/audit"
	"github.com/farah699/Users-Permissions-Backend/internal/auth"
	"github.com/farah699/Users-Permissions-Backend/internal/db/controller/user"
	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
	"github.com/farah699/Users-Permissions-Backend/internal/web/handler"
)

const (
	// Path is the base path for user management.
	Path = handler.AdminPath + "/users"
)

// Service provides the user administration endpoints.
type Service struct {
	handler.Service
	db   *gorm.DB
	deps *handler.Deps
}

// CreateRequest is the body of POST /admin/users.
type CreateRequest struct {
	Email         string `json:"email"          validate:"required,email,max=255"`
	Password      string `json:"password"       validate:"required,min=8,max=128"`
	FirstName     string `json:"first_name"     validate:"max=100"`
	LastName      string `json:"last_name"      validate:"max=100"`
	EmailVerified bool   `json:"email_verified"`
	RoleIDs       []uint `json:"role_ids"`
}

// RolesRequest is the body of PUT /admin/users/:id/roles.
type RolesRequest struct {
	RoleIDs []uint `json:"role_ids" validate:"required"`
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
		auth.RequirePermission(deps.Auth, auth.ResourceUser, models.ActionRead),
		s.List,
	)
	app.Post(Path,
		authenticate,
		auth.RequirePermission(deps.Auth, auth.ResourceUser, models.ActionCreate),
		s.Create,
	)
	app.Get(Path+"/:id",
		authenticate,
		auth.RequireOwnerOrPermission(deps.Auth, auth.ResourceUser, models.ActionRead, "id"),
		s.Get,
	)
	app.Put(Path+"/:id/roles",
		authenticate,
		auth.RequirePermission(deps.Auth, auth.ResourceUser, models.ActionUpdate),
		s.SetRoles,
	)
	app.Delete(Path+"/:id",
		authenticate,
		auth.RequirePermission(deps.Auth, auth.ResourceUser, models.ActionDelete),
		s.Delete,
	)
}

// List returns every user without roles.
func (s *Service) List(c *fiber.Ctx) error {
	users, err := user.GetAll(c.UserContext(), s.db)
	if err != nil {
		return err
	}

	return c.JSON(users)
}

// Get returns one user with roles and permissions resolved.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := handler.IDParam(c, "id")
	if err != nil {
		return err
	}

	u, err := user.LoadPrincipalWithRoles(c.UserContext(), s.db, id)
	if err != nil {
		return err
	}

	return c.JSON(u)
}

// Create adds a user.
func (s *Service) Create(c *fiber.Ctx) error {
	req := new(CreateRequest)
	if err := handler.BindJSON(c, req); err != nil {
		return err
	}

	ctx := c.UserContext()

	u, err := user.Create(ctx, s.db, user.NewUser{
		Email:         req.Email,
		Password:      req.Password,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		EmailVerified: req.EmailVerified,
		RoleIDs:       req.RoleIDs,
	})
	if err != nil {
		return err
	}

	s.deps.Committed(c, audit.Entry{
		Action:     models.AuditActionCreate,
		Resource:   auth.ResourceUser,
		ResourceID: handler.FormatID(u.ID),
		Changes: map[string]any{
			"after": map[string]any{"email": u.Email, "role_ids": u.RoleIDs()},
		},
	})

	return c.Status(fiber.StatusCreated).JSON(u)
}

// SetRoles replaces the role set of a user.
func (s *Service) SetRoles(c *fiber.Ctx) error {
	id, err := handler.IDParam(c, "id")
	if err != nil {
		return err
	}

	req := new(RolesRequest)
	if err = handler.BindJSON(c, req); err != nil {
		return err
	}

	ctx := c.UserContext()

	change, err := user.SetRoles(ctx, s.db, id, req.RoleIDs)
	if err != nil {
		return err
	}

	if action, ok := roleChangeAction(change); ok {
		s.deps.Committed(c, audit.Entry{
			Action:     action,
			Resource:   auth.ResourceUser,
			ResourceID: handler.FormatID(id),
			Changes: map[string]any{
				"added":   roleNames(change.Added),
				"removed": roleNames(change.Removed),
			},
		})
	}

	return c.JSON(change.User)
}

// Delete deactivates a user and revokes its refresh tokens.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := handler.IDParam(c, "id")
	if err != nil {
		return err
	}

	ctx := c.UserContext()
	actor := auth.PrincipalFromCtx(c)

	u, changed, err := user.Deactivate(ctx, s.db, actor.ID, id)
	if err != nil {
		return err
	}

	if !changed {
		return c.SendStatus(fiber.StatusNoContent)
	}

	s.deps.Committed(c, audit.Entry{
		Action:     models.AuditActionDelete,
		Resource:   auth.ResourceUser,
		ResourceID: handler.FormatID(u.ID),
		Changes: map[string]any{
			"before": map[string]any{"active": true},
			"after":  map[string]any{"active": false},
		},
	})

	return c.SendStatus(fiber.StatusNoContent)
}

// roleChangeAction picks the audit kind of a role change. Nothing changed means no record.
func roleChangeAction(change *user.RoleChange) (models.AuditAction, bool) {
	switch {
	case len(change.Added) > 0:
		return models.AuditActionAssignRole, true
	case len(change.Removed) > 0:
		return models.AuditActionRemoveRole, true
	default:
		return "", false
	}
}

func roleNames(roles []models.Role) []string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.Name)
	}

	return names
}
