package auth

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/farah699/Users-Permissions-Backend/internal/db/models"
)

const (
	principalLocalsKey = "auth.principal"
	bearerPrefix       = "bearer "
)

// Authenticate resolves the bearer access token and stores the principal in the request locals.
func Authenticate(authService *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := BearerToken(c)
		if raw == "" {
			return unauthorized(c, ErrTokenMissing)
		}

		principal, err := authService.Authenticate(c.UserContext(), raw)
		if err != nil {
			if errors.Is(err, ErrAuthentication) {
				return unauthorized(c, err)
			}

			log.Error().Err(err).Msg("failed to authenticate request")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
		}

		c.Locals(principalLocalsKey, principal)

		return c.Next()
	}
}

// RequirePermission creates Fiber middleware that requires action on resource.
// It must run after Authenticate.
func RequirePermission(authService *Service, resource string, action models.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := authService.Check(c.UserContext(), PrincipalFromCtx(c), resource, string(action))
		if err != nil {
			return forbidden(c, err)
		}

		return c.Next()
	}
}

// RequireOwnerOrPermission lets the principal through when the route parameter param
// is its own id, otherwise action on resource is required.
func RequireOwnerOrPermission(authService *Service, resource string, action models.Action, param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		targetID, err := strconv.ParseUint(c.Params(param), 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid " + param})
		}

		err = authService.CheckOwnerOrPermission(c.UserContext(), PrincipalFromCtx(c), resource, targetID, string(action))
		if err != nil {
			return forbidden(c, err)
		}

		return c.Next()
	}
}

// RequireAnyRole creates Fiber middleware that requires one of the named active roles.
// The built-in routes guard by permission; this is for applications mounting their own routes.
func RequireAnyRole(authService *Service, names ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := authService.CheckAnyRole(c.UserContext(), PrincipalFromCtx(c), names...); err != nil {
			return forbidden(c, err)
		}

		return c.Next()
	}
}

// PrincipalFromCtx returns the principal stored by Authenticate, or nil.
func PrincipalFromCtx(c *fiber.Ctx) *models.User {
	principal, _ := c.Locals(principalLocalsKey).(*models.User)
	return principal
}

// PrincipalID returns the id of the authenticated principal as a string, empty when anonymous.
func PrincipalID(c *fiber.Ctx) string {
	if principal := PrincipalFromCtx(c); principal != nil {
		return strconv.FormatUint(principal.ID, 10)
	}

	return ""
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}

	return strings.TrimSpace(header[len(bearerPrefix):])
}

func unauthorized(c *fiber.Ctx, err error) error {
	c.Set(fiber.HeaderWWWAuthenticate, `Bearer realm="api"`)
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
}

func forbidden(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
}
