package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/template/html/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/evalboard/evalboard/internal/config"
	"github.com/evalboard/evalboard/internal/gotrue"
	fiberlog "github.com/evalboard/evalboard/internal/logger/adapter/fiber"
	"github.com/evalboard/evalboard/internal/routeguard"
	"github.com/evalboard/evalboard/internal/web/handler"
	"github.com/evalboard/evalboard/internal/web/handler/callback"
	"github.com/evalboard/evalboard/internal/web/handler/dashboard"
	"github.com/evalboard/evalboard/internal/web/handler/login"
	"github.com/evalboard/evalboard/internal/web/handler/logout"
	"github.com/evalboard/evalboard/internal/web/middleware/guard"
	"github.com/evalboard/evalboard/internal/web/oauthstate"
)

const (
	// CheckAlivePath answers load balancer health checks.
	CheckAlivePath = "/checkalive"

	// MetricsPath exposes prometheus metrics when enabled.
	MetricsPath = "/metrics"
)

var (
	// ErrConfigNil is returned by New without a config.
	ErrConfigNil = errors.New("config cannot be nil")
	// ErrAuthNil is returned by New without an auth backend.
	ErrAuthNil = errors.New("auth backend cannot be nil")
)

// Backend is the auth backend the web service runs against. *gotrue.Server
// implements it.
type Backend interface {
	guard.SessionUpdater
	handler.Authenticator
}

var _ Backend = (*gotrue.Server)(nil)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan error, 1)

	go func() {
		err := s.App.Listen(addr)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}

		doneFiber <- err
	}()

	// wait for fiber to stop
	if err := <-doneFiber; err != nil {
		log.Error().Err(err).Str("addr", addr).Msg("fiber listen error")

		return err
	}

	return nil
}

// WaitShutdown waits for a termination signal and stops the server gracefully.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	s.Shutdown()
}

// Shutdown fails the health check for ShutDownTime seconds, so load
// balancers drain the instance, and then stops the http server.
func (s *Service) Shutdown() {
	if !s.fastShutDown && s.cfg.Webserver.ShutDownTime > 0 {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	log.Info().Msg("stopping http server ...")

	if err := s.App.Shutdown(); err != nil {
		log.Error().Err(err).Msg("")
	}

	log.Info().Msg("http server was stopped ... good bye...")
}

// Alive reports whether the health check answers 200.
func (s *Service) Alive() bool {
	return s.alive.Load()
}

// New creates the web service. flows keeps pending OAuth sign-ins.
func New(cfg *config.Config, backend Backend, flows *oauthstate.Store) (*Service, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	if backend == nil {
		return nil, ErrAuthNil
	}

	return newService(cfg, backend, flows, newTemplateEngine(cfg))
}

func newTemplateEngine(cfg *config.Config) fiber.Views {
	httpFS := http.FS(templateEmbedFS{embeddedTemplates})
	templateEngine := html.NewFileSystem(httpFS, ".gohtml")

	// in dev mode, use local filesystem for templates
	if cfg.DevMode {
		templateEngine = html.New("./internal/web/templates", ".gohtml")
		templateEngine.ShouldReload = true

		log.Warn().Msg("dev mode enabled: using local filesystem for templates")
	}

	return templateEngine
}

func newService(cfg *config.Config, backend Backend, flows *oauthstate.Store, views fiber.Views) (*Service, error) {
	// create fiber app
	app := fiber.New(
		fiber.Config{
			ReadBufferSize:        8192,
			AppName:               cfg.Title,
			CaseSensitive:         true,
			Prefork:               false,
			Immutable:             true,
			Views:                 views,
			DisableStartupMessage: !cfg.DevMode,
		},
	)

	service := &Service{
		cfg: cfg,
		App: app,
	}
	service.alive.Store(true)

	// access log first, so redirects of the guard are logged too
	app.Use(fiberlog.New(fiberlog.Config{
		Config:        cfg.Log,
		UserID:        guard.UserID,
		CheckAliveURI: CheckAlivePath,
	}))

	app.Get(CheckAlivePath, service.checkAlive)

	if cfg.Webserver.MetricsEnabled {
		app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))
	}

	// serve embedded static files
	app.Use("/static",
		filesystem.New(
			filesystem.Config{
				Root:       http.FS(embeddedStaticFiles),
				PathPrefix: "static",
			},
		),
	)

	app.Use(guard.New(guard.Config{
		Updater:   backend,
		LoginPath: login.Path,
	}))

	if err := new(login.Service).Init(app, cfg, backend); err != nil {
		return nil, err
	}

	if err := new(logout.Service).Init(app, cfg, backend); err != nil {
		return nil, err
	}

	if err := new(dashboard.Service).Init(app, cfg); err != nil {
		return nil, err
	}

	if flows != nil {
		if err := new(callback.Service).Init(app, cfg, backend, flows); err != nil {
			return nil, err
		}
	}

	app.Get(handler.RootPath, root)

	return service, nil
}

func (s *Service) checkAlive(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	return c.SendString("OK")
}

// root sends users to the dashboard and visitors to the login page.
func root(c *fiber.Ctx) error {
	nav := handler.NewRedirector(c)

	if routeguard.Protected(handler.State(c), nav, login.Path) == routeguard.Rendered {
		return c.Redirect(login.HomePath, fiber.StatusFound)
	}

	return nav.Err()
}
