// Package logout ends the session of the current user.
package logout

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/evalboard/evalboard/internal/config"
	"github.com/evalboard/evalboard/internal/web/cookiejar"
	"github.com/evalboard/evalboard/internal/web/handler"
	"github.com/evalboard/evalboard/internal/web/handler/login"
	"github.com/evalboard/evalboard/internal/web/middleware/guard"
)

const (
	// Path is the sign-out endpoint. It lives below the auth API so the
	// edge guard never redirects it.
	Path = "/api/auth/logout"

	// FailedQuery is appended to the home path when the backend refused
	// to end the session.
	FailedQuery = "signout=failed"
)

// Service is the logout handler service.
type Service struct {
	handler.Service
	cfg  *config.Config
	auth handler.Authenticator
}

// Init initializes the logout handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, auth handler.Authenticator) error {
	if app == nil || cfg == nil || auth == nil {
		return errors.New(handler.ErrNilACAFatalLogMsg)
	}

	s.cfg = cfg
	s.auth = auth

	app.Post(Path, s.Logout)

	return nil
}

// Logout revokes the session and deletes its cookies. When the backend
// fails the cookies are kept and the user stays signed in.
func (s *Service) Logout(c *fiber.Ctx) error {
	jar := cookiejar.From(c)

	err := s.auth.SignOut(c.UserContext(), jar)

	jar.Apply()

	if err != nil {
		log.Error().Err(err).Str("user", guard.UserID(c)).Msg("sign-out failed")

		return c.Redirect(login.HomePath+"?"+FailedQuery, fiber.StatusSeeOther)
	}

	log.Info().Str("user", guard.UserID(c)).Msg("user signed out")

	return c.Redirect(login.Path, fiber.StatusSeeOther)
}
