package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/evalboard/evalboard/internal/authstate"
	"github.com/evalboard/evalboard/internal/web/middleware/guard"
)

// Redirector turns route guard navigations into HTTP redirects.
type Redirector struct {
	c   *fiber.Ctx
	err error
}

// NewRedirector returns a Redirector writing to c.
func NewRedirector(c *fiber.Ctx) *Redirector {
	return &Redirector{c: c}
}

// Replace redirects the request to path.
func (r *Redirector) Replace(path string) {
	r.err = r.c.Redirect(path, fiber.StatusFound)
}

// Err returns the error of the last redirect.
func (r *Redirector) Err() error {
	return r.err
}

// State is the auth state of the request as resolved by the edge guard.
// A request never carries a loading state: the guard ran to completion.
func State(c *fiber.Ctx) authstate.State {
	return authstate.FromUser(guard.UserFrom(c))
}
