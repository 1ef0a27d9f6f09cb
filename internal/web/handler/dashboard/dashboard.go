// Package dashboard renders the evaluation overview for signed-in users.
package dashboard

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/evalboard/evalboard/internal/config"
	"github.com/evalboard/evalboard/internal/routeguard"
	"github.com/evalboard/evalboard/internal/web/handler"
	"github.com/evalboard/evalboard/internal/web/handler/login"
	"github.com/evalboard/evalboard/internal/web/navigation"
)

const (
	// Path is the path to the dashboard page.
	Path = handler.RootPath + "dashboard"

	// TemplateName is the name of the dashboard template.
	TemplateName = "dashboard/dashboard"

	// SkeletonTemplateName is rendered while the auth state is unresolved.
	SkeletonTemplateName = "dashboard/skeleton"

	signOutFailedMsg = "Signing out failed, please try again."
)

// Stat is one summary tile.
type Stat struct {
	Label string
	Value string
}

// Stats are the placeholder numbers of the overview.
var Stats = []Stat{ //nolint:gochecknoglobals
	{Label: "Total Evaluations", Value: "24"},
	{Label: "Pending Review", Value: "5"},
	{Label: "Average Score", Value: "8.5"},
}

// Service is the dashboard handler service.
type Service struct {
	cfg *config.Config
}

// Init initializes the dashboard handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config) error {
	if app == nil || cfg == nil {
		return errors.New(handler.ErrNilACAFatalLogMsg)
	}

	s.cfg = cfg

	app.Get(Path, s.Get)

	return nil
}

// Get handles the dashboard page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	state := handler.State(c)
	nav := handler.NewRedirector(c)
	outcome := routeguard.Protected(state, nav, login.Path)

	err := routeguard.Render(outcome,
		func() error {
			return c.Render(SkeletonTemplateName, fiber.Map{"title": s.cfg.Title}, handler.BaseLayout)
		},
		func() error {
			page := navigation.NewPage("Dashboard", Path, state.User).
				Crumb("Home", handler.RootPath).
				Crumb("Dashboard", Path)

			if c.Query("signout") == "failed" {
				page.WithNotice(signOutFailedMsg)
			}

			return c.Render(TemplateName, fiber.Map{
				"title":      s.cfg.Title,
				"Navigation": page,
				"Stats":      Stats,
			}, handler.BaseLayout)
		},
	)
	if err != nil {
		return err
	}

	return nav.Err()
}
