// Package requestinfo attaches the request origin to the context audit records are written with.
package requestinfo

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/farah699/Users-Permissions-Backend/internal/audit"
)

// New returns a middleware storing audit.RequestInfo in the user context.
// It must run after the requestid middleware to pick up the request id.
func New() fiber.Handler {
	return func(c *fiber.Ctx) error {
		info := audit.RequestInfo{
			IPAddress: c.IP(),
			UserAgent: c.Get(fiber.HeaderUserAgent),
			Method:    c.Method(),
			Path:      c.Path(),
		}

		if id, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok {
			info.RequestID = id
		}

		c.SetUserContext(audit.WithRequestInfo(c.UserContext(), info))

		return c.Next()
	}
}
