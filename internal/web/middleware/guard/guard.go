package guard

import (
	"context"
	"path"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/evalboard/evalboard/internal/gotrue"
	"github.com/evalboard/evalboard/internal/web/cookiejar"
)

// LocalsUser is the fiber.Locals key of the current *gotrue.User.
const LocalsUser = "CurrentUser"

// Decisions recorded by the middleware.
const (
	DecisionPass     = "pass"
	DecisionRedirect = "redirect"
	DecisionExempt   = "exempt"
	DecisionError    = "error"
)

var decisions = promauto.NewCounterVec( //nolint:gochecknoglobals
	prometheus.CounterOpts{
		Name: "evalboard_edge_guard_decisions_total",
		Help: "Number of edge guard decisions, differentiated by decision.",
	},
	[]string{"decision"},
)

// SessionUpdater validates and refreshes the cookie session of one request.
// *gotrue.Server implements it.
type SessionUpdater interface {
	UpdateSession(ctx context.Context, jar gotrue.CookieJar) (*gotrue.User, error)
}

// Config defines the config for the middleware.
type Config struct {
	// Next defines a function to skip this middleware when returned true.
	//
	// Optional. Default: SkipAssets
	Next func(c *fiber.Ctx) bool

	// Updater resolves the user of a request. Required.
	Updater SessionUpdater

	// LoginPath is the redirect target for requests without a user.
	//
	// Optional. Default: "/login"
	LoginPath string

	// ExemptPaths never redirect. An entry ending in "/*" matches the
	// prefix itself and everything below it, other entries match exactly.
	//
	// Optional. Default: []string{"/login", "/api/auth/*"}
	ExemptPaths []string
}

// ConfigDefault is the default config.
var ConfigDefault = Config{
	Next:        SkipAssets,
	LoginPath:   "/login",
	ExemptPaths: []string{"/login", "/api/auth/*"},
}

func configDefault(config ...Config) Config {
	if len(config) < 1 {
		return ConfigDefault
	}

	cfg := config[0]

	if cfg.Next == nil {
		cfg.Next = ConfigDefault.Next
	}

	if cfg.LoginPath == "" {
		cfg.LoginPath = ConfigDefault.LoginPath
	}

	if cfg.ExemptPaths == nil {
		cfg.ExemptPaths = ConfigDefault.ExemptPaths
	}

	return cfg
}

// New creates the middleware. It panics without an Updater.
func New(config ...Config) fiber.Handler {
	cfg := configDefault(config...)

	if cfg.Updater == nil {
		panic("guard: Config.Updater is required")
	}

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		jar := cookiejar.New(c)
		exempt := IsExempt(c.Path(), cfg.ExemptPaths)

		user, err := cfg.Updater.UpdateSession(c.UserContext(), jar)
		if err != nil {
			decisions.WithLabelValues(DecisionError).Inc()
			log.Warn().Err(err).
				Str("kind", gotrue.KindOf(err).String()).
				Str("path", c.Path()).
				Msg("session update failed, treating request as anonymous")

			user = nil
		}

		jar.Apply()
		jar.Keep()

		if user == nil && !exempt {
			if err == nil {
				decisions.WithLabelValues(DecisionRedirect).Inc()
			}

			return c.Redirect(loginTarget(c, cfg.LoginPath), fiber.StatusFound)
		}

		if err == nil {
			if user == nil {
				decisions.WithLabelValues(DecisionExempt).Inc()
			} else {
				decisions.WithLabelValues(DecisionPass).Inc()
			}
		}

		if user != nil {
			c.Locals(LocalsUser, user)
		}

		return c.Next()
	}
}

// UserFrom returns the user stored by the middleware, or nil.
func UserFrom(c *fiber.Ctx) *gotrue.User {
	user, _ := c.Locals(LocalsUser).(*gotrue.User)

	return user
}

// UserID returns the id of the user stored by the middleware, or "".
func UserID(c *fiber.Ctx) string {
	if user := UserFrom(c); user != nil {
		return user.ID
	}

	return ""
}

// IsExempt reports whether p matches one of patterns.
func IsExempt(p string, patterns []string) bool {
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}

	for _, pattern := range patterns {
		if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
			if p == prefix || strings.HasPrefix(p, prefix+"/") {
				return true
			}

			continue
		}

		if p == pattern {
			return true
		}
	}

	return false
}

var assetExtensions = map[string]bool{ //nolint:gochecknoglobals
	".svg": true, ".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
}

// SkipAssets skips static files, images, the favicon and the health and
// metrics endpoints.
func SkipAssets(c *fiber.Ctx) bool {
	p := c.Path()

	switch {
	case strings.HasPrefix(p, "/static/"), p == "/favicon.ico", p == "/checkalive", p == "/metrics":
		return true
	default:
		return assetExtensions[strings.ToLower(path.Ext(p))]
	}
}

func loginTarget(c *fiber.Ctx, loginPath string) string {
	if q := c.Request().URI().QueryString(); len(q) > 0 {
		return loginPath + "?" + string(q)
	}

	return loginPath
}
