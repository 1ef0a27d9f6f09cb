package login

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/evalboard/evalboard/internal/config"
	"github.com/evalboard/evalboard/internal/routeguard"
	"github.com/evalboard/evalboard/internal/web/cookiejar"
	"github.com/evalboard/evalboard/internal/web/handler"
)

const (
	// Path is the path to the login page.
	Path = "/login"

	// TemplateName is the name of the login template.
	TemplateName = "login"

	// HomePath is where signed-in users are sent.
	HomePath = "/dashboard"
)

// Service is the login handler service.
type Service struct {
	handler.Service
	cfg  *config.Config
	auth handler.Authenticator
}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, auth handler.Authenticator) error {
	if app == nil || cfg == nil || auth == nil {
		return errors.New(handler.ErrNilACAFatalLogMsg)
	}

	s.cfg = cfg
	s.auth = auth

	// register routes
	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.Get)
		router.Post(handler.RouterRootPath, s.Post)
	})

	return nil
}

// Get renders the login page. Signed-in users go to the dashboard.
func (s *Service) Get(c *fiber.Ctx) error {
	nav := handler.NewRedirector(c)

	if routeguard.Guest(handler.State(c), nav, HomePath) == routeguard.Redirected {
		return nav.Err()
	}

	return s.render(c, fiber.StatusOK, "", "")
}

// Post handles the login form submission.
func (s *Service) Post(c *fiber.Ctx) error {
	form := new(Form)

	if err := c.BodyParser(form); err != nil {
		log.Debug().Err(err).Msg("failed to parse login form")

		return s.render(c, fiber.StatusBadRequest, "", ErrInvalidFormData.Error())
	}

	form.Email = strings.TrimSpace(form.Email)

	if errs := Validate(form); len(errs) > 0 {
		log.Debug().Interface("fields", errs).Msg("login form rejected")

		return s.render(c, fiber.StatusBadRequest, form.Email, ErrInvalidFormData.Error())
	}

	jar := cookiejar.From(c)

	_, err := s.auth.SignInWithPassword(c.UserContext(), jar, form.Email, form.Password)

	// forward cookie writes in both cases, a failed sign-in may clear a stale session
	jar.Apply()

	if err != nil {
		log.Warn().Err(err).Str("email", form.Email).Msg("sign-in failed")

		return s.render(c, StatusOf(err), form.Email, Message(err))
	}

	log.Info().Str("email", form.Email).Msg("user signed in")

	return c.Redirect(HomePath, fiber.StatusSeeOther)
}

func (s *Service) render(c *fiber.Ctx, status int, email, message string) error {
	data := fiber.Map{
		"title":          s.cfg.Title,
		"email":          email,
		"oauth_provider": s.cfg.Auth.OAuthProvider,
	}

	if message != "" {
		data["error"] = message
	}

	return c.Status(status).Render(TemplateName, data)
}
