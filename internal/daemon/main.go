// Package daemon wires configuration, storage and the auth backend into
// the web service and the terminal client.
package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/evalboard/evalboard/internal/config"
	"github.com/evalboard/evalboard/internal/db/store"
	"github.com/evalboard/evalboard/internal/gotrue"
	"github.com/evalboard/evalboard/internal/web"
	"github.com/evalboard/evalboard/internal/web/oauthstate"
)

// ErrConfigNil is returned for a nil config.
var ErrConfigNil = errors.New("config is nil")

// Daemon represents the web server process.
type Daemon struct {
	cfg        *config.Config
	storage    fiber.Storage
	webService *web.Service
	cancel     context.CancelFunc
}

// New creates a Daemon. Storage and the auth backend are opened here, the
// server starts in Run.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}

	storage, err := store.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Daemon{
		cfg:     cfg,
		storage: storage,
		cancel:  cancel,
	}

	server, err := NewServer(ctx, cfg)
	if err != nil {
		d.Close()
		return nil, err
	}

	flows, err := oauthstate.New(storage, oauthstate.DefaultTTL)
	if err != nil {
		d.Close()
		return nil, err
	}

	if d.webService, err = web.New(cfg, server, flows); err != nil {
		d.Close()
		return nil, fmt.Errorf("create web service: %w", err)
	}

	return d, nil
}

// NewServer creates the request scoped auth backend from cfg. ctx bounds
// the background key set fetches of the JWT verifier.
func NewServer(ctx context.Context, cfg *config.Config) (*gotrue.Server, error) {
	api, err := newAPI(cfg)
	if err != nil {
		return nil, err
	}

	opts := gotrue.ServerOptions{
		CookieName: cfg.Auth.CookieName,
		Cookie: gotrue.CookieOptions{
			Path:     "/",
			MaxAge:   int(cfg.Auth.CookieMaxAge.Seconds()),
			Secure:   !cfg.DevMode,
			HTTPOnly: true,
			SameSite: "Lax",
		},
		RefreshMargin: cfg.Auth.RefreshMargin,
	}

	if cfg.Auth.VerifyJWT {
		opts.Verifier = gotrue.NewJWTVerifier(ctx, cfg.Auth.TokenIssuer(), cfg.Auth.JWKSEndpoint())

		log.Info().Str("jwks", cfg.Auth.JWKSEndpoint()).Msg("verifying access tokens locally")
	}

	return gotrue.NewServer(api, opts), nil
}

// NewClient creates the persisted client used by the terminal commands.
// Its session lives in storage.
func NewClient(cfg *config.Config, storage fiber.Storage) (*gotrue.Client, error) {
	api, err := newAPI(cfg)
	if err != nil {
		return nil, err
	}

	return gotrue.NewClient(api, storage, gotrue.ClientOptions{
		StorageKey:    cfg.Auth.CookieName,
		RefreshMargin: cfg.Auth.RefreshMargin,
	}), nil
}

func newAPI(cfg *config.Config) (*gotrue.API, error) {
	api, err := gotrue.NewAPI(gotrue.Options{
		URL:     cfg.Auth.URL,
		APIKey:  cfg.Auth.AnonKey,
		Timeout: cfg.Auth.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create auth api: %w", err)
	}

	return api, nil
}

// Addr is the listen address of the web service.
func (d *Daemon) Addr() string {
	return fmt.Sprintf(":%d", d.cfg.Webserver.Port)
}

// Run serves until a termination signal arrives or listening fails.
func (d *Daemon) Run() error {
	defer d.Close()

	errCh := make(chan error, 1)

	go func() {
		errCh <- d.webService.Start(d.Addr())
	}()

	go d.webService.WaitShutdown()

	log.Info().Str("addr", d.Addr()).Str("url", d.cfg.Webserver.URL).Msg("web service started")

	return <-errCh
}

// Close releases the storage and stops background work.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}

	if d.storage != nil {
		if err := d.storage.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close storage")
		}

		d.storage = nil
	}
}
