package web

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/farah699/Users-Permissions-Backend/internal/auth"
	"github.com/farah699/Users-Permissions-Backend/internal/db/controller/permission"
	"github.com/farah699/Users-Permissions-Backend/internal/db/controller/role"
	"github.com/farah699/Users-Permissions-Backend/internal/db/controller/user"
)

// StatusCode maps an error returned by a handler to its http status.
func StatusCode(err error) int {
	var (
		fiberErr *fiber.Error
		verrs    validator.ValidationErrors
	)

	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.Is(err, auth.ErrAuthentication):
		return fiber.StatusUnauthorized
	case auth.IsAuthorizationError(err):
		return fiber.StatusForbidden
	case errors.Is(err, user.ErrUserNotFound),
		errors.Is(err, role.ErrRoleNotFound),
		errors.Is(err, permission.ErrPermissionNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, user.ErrEmailExists),
		errors.Is(err, user.ErrSelfDeletion),
		errors.Is(err, role.ErrRoleNameExists),
		errors.Is(err, role.ErrRoleInUse),
		errors.Is(err, permission.ErrPermissionExists),
		errors.Is(err, permission.ErrPermissionInUse):
		return fiber.StatusConflict
	case errors.Is(err, role.ErrRoleInactive):
		return fiber.StatusUnprocessableEntity
	case errors.As(err, &verrs),
		errors.Is(err, permission.ErrInvalidAction),
		errors.Is(err, permission.ErrResourceEmpty):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler renders handler errors as {"error": "..."}.
// Internal errors are logged and never shown to the client.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := StatusCode(err)
	msg := err.Error()

	switch {
	case code >= fiber.StatusInternalServerError:
		log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")

		msg = "internal server error"
	case code == fiber.StatusUnauthorized:
		c.Set(fiber.HeaderWWWAuthenticate, `Bearer realm="api"`)
	}

	return c.Status(code).JSON(fiber.Map{"error": msg})
}
