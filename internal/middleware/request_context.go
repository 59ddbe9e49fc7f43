package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// RequestContext gives every request a user context that is cancelled when
// base is done. fiber does not cancel request contexts on client disconnect,
// so base is how the server stops in-flight work when it shuts down.
func RequestContext(base context.Context) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithCancel(c.UserContext())
		defer cancel()
		stop := context.AfterFunc(base, cancel)
		defer stop()

		c.SetUserContext(ctx)
		return c.Next()
	}
}
