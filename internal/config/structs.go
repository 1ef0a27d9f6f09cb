package config

import (
	"time"

	"github.com/evalboard/evalboard/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode   bool       `mapstructure:"devMode"` // enable dev mode for development
	Title     string     `mapstructure:"title" validate:"required"`
	Log       logger.Log `mapstructure:"log"`
	Webserver Webserver  `mapstructure:"webserver"`
	Auth      Auth       `mapstructure:"auth"`
	Storage   Storage    `mapstructure:"storage"`
	DB        DB         `mapstructure:"db"`
}

// Webserver implement webserver settings.
type Webserver struct {
	Port           int    `mapstructure:"port" validate:"gt=0,lte=65535"`
	URL            string `mapstructure:"url" validate:"required,url"` // public base url, used for OAuth redirects
	ShutDownTime   int    `mapstructure:"shutDownTime" validate:"gte=0"` // seconds to return 503 before stopping
	MetricsEnabled bool   `mapstructure:"metricsEnabled"`
}

// Auth configures the GoTrue compatible auth backend.
type Auth struct {
	URL     string `mapstructure:"url" validate:"required,url"`
	AnonKey string `mapstructure:"anonKey" validate:"required"`

	// CookieName defaults to sb-<project ref>-auth-token.
	CookieName   string        `mapstructure:"cookieName"`
	CookieMaxAge time.Duration `mapstructure:"cookieMaxAge" validate:"gte=0"`

	RequestTimeout time.Duration `mapstructure:"requestTimeout" validate:"gt=0"`
	// RefreshMargin refreshes sessions expiring within this window.
	RefreshMargin time.Duration `mapstructure:"refreshMargin" validate:"gte=0"`

	// VerifyJWT checks access tokens locally against the JWKS before asking /user.
	VerifyJWT bool   `mapstructure:"verifyJWT"`
	JWKSURL   string `mapstructure:"jwksURL" validate:"omitempty,url"`
	Issuer    string `mapstructure:"issuer"`

	// OAuthProvider enables the "sign in with" button, e.g. github.
	OAuthProvider string `mapstructure:"oauthProvider"`
}

// JWKSEndpoint returns JWKSURL or the backend's well-known key set.
func (a Auth) JWKSEndpoint() string {
	if a.JWKSURL != "" {
		return a.JWKSURL
	}

	return a.URL + "/.well-known/jwks.json"
}

// TokenIssuer returns Issuer or the backend URL, which GoTrue uses as iss.
func (a Auth) TokenIssuer() string {
	if a.Issuer != "" {
		return a.Issuer
	}

	return a.URL
}

// Storage selects where client sessions and OAuth flow state are kept.
type Storage struct {
	Driver string `mapstructure:"driver" validate:"oneof=sqlite memory mysql postgres"`
	Path   string `mapstructure:"path"` // sqlite file
	Table  string `mapstructure:"table" validate:"required"`
	// UseGorm keeps mysql and postgres tables through gorm instead of the
	// gofiber storage drivers.
	UseGorm bool `mapstructure:"useGorm"`
	// GCInterval is how often expired keys are removed.
	GCInterval time.Duration `mapstructure:"gcInterval" validate:"gte=0"`
}
