package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/evalboard/evalboard/internal/config"
	"github.com/evalboard/evalboard/internal/gotrue"
)

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, cfg *config.Config, auth Authenticator) error
}

// Authenticator is the part of the auth backend the handlers call. It is
// implemented by *gotrue.Server.
type Authenticator interface {
	SignInWithPassword(ctx context.Context, jar gotrue.CookieJar, email, password string) (*gotrue.Session, error)
	ExchangeCodeForSession(ctx context.Context, jar gotrue.CookieJar, code, verifier string) (*gotrue.Session, error)
	SignOut(ctx context.Context, jar gotrue.CookieJar) error
	AuthorizeURL(provider, redirectTo, codeChallenge string) string
}

var _ Authenticator = (*gotrue.Server)(nil)
