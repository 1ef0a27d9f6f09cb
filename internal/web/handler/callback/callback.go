package callback

import (
	"crypto/subtle"
	"errors"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/evalboard/evalboard/internal/config"
	"github.com/evalboard/evalboard/internal/gotrue"
	"github.com/evalboard/evalboard/internal/web/cookiejar"
	"github.com/evalboard/evalboard/internal/web/handler"
	"github.com/evalboard/evalboard/internal/web/handler/login"
	"github.com/evalboard/evalboard/internal/web/oauthstate"
)

const (
	// AuthorizePath starts an OAuth sign-in.
	AuthorizePath = "/api/auth/authorize"

	// CallbackPath receives the backend redirect.
	CallbackPath = "/api/auth/callback"

	// StateCookie binds a pending flow to the browser that started it.
	StateCookie = "evalboard-oauth-state"
)

var (
	// ErrNoProvider is shown when neither the request nor the config names a provider.
	ErrNoProvider = errors.New("no sign-in provider configured")

	// ErrInvalidCallback is shown for callbacks without code or state.
	ErrInvalidCallback = errors.New("invalid sign-in callback")

	// ErrExpiredFlow is shown for unknown, reused or expired states.
	ErrExpiredFlow = errors.New("the sign-in link expired, please try again")

	// ErrForeignFlow is shown when the callback reaches a browser that did
	// not start the sign-in.
	ErrForeignFlow = errors.New("the sign-in was started in another browser, please try again")
)

// Service is the OAuth handler service.
type Service struct {
	handler.Service
	cfg   *config.Config
	auth  handler.Authenticator
	flows *oauthstate.Store
}

// Init initializes the OAuth handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, auth handler.Authenticator, flows *oauthstate.Store) error {
	if app == nil || cfg == nil || auth == nil || flows == nil {
		return errors.New(handler.ErrNilACAFatalLogMsg)
	}

	s.cfg = cfg
	s.auth = auth
	s.flows = flows

	app.Get(AuthorizePath, s.Authorize)
	app.Get(CallbackPath, s.Callback)

	return nil
}

// Authorize redirects to the backend's authorize endpoint.
func (s *Service) Authorize(c *fiber.Ctx) error {
	provider := c.Query("provider", s.cfg.Auth.OAuthProvider)
	if provider == "" {
		return s.fail(c, fiber.StatusBadRequest, ErrNoProvider.Error())
	}

	verifier, challenge := gotrue.NewPKCE()

	state, err := s.flows.Begin(oauthstate.Flow{
		Verifier:  verifier,
		Provider:  provider,
		CreatedAt: time.Now(),
	})
	if err != nil {
		log.Error().Err(err).Str("provider", provider).Msg("failed to store oauth flow")

		return s.fail(c, fiber.StatusInternalServerError, login.ErrInternalServerError.Error())
	}

	s.setStateCookie(c, state, s.flows.TTL())

	redirectTo := s.cfg.Webserver.URL + CallbackPath + "?" + url.Values{"state": {state}}.Encode()

	return c.Redirect(s.auth.AuthorizeURL(provider, redirectTo, challenge), fiber.StatusFound)
}

// Callback exchanges the code for a session and sends the user home.
func (s *Service) Callback(c *fiber.Ctx) error {
	if desc := c.Query("error_description", c.Query("error")); desc != "" {
		log.Warn().Str("error", desc).Msg("oauth provider refused sign-in")

		return s.fail(c, fiber.StatusUnauthorized, desc)
	}

	code := c.Query("code")
	state := c.Query("state")
	bound := c.Cookies(StateCookie)

	if bound != "" {
		s.setStateCookie(c, "", 0)
	}

	if code == "" || state == "" {
		return s.fail(c, fiber.StatusBadRequest, ErrInvalidCallback.Error())
	}

	if subtle.ConstantTimeCompare([]byte(bound), []byte(state)) != 1 {
		log.Warn().Bool("cookie", bound != "").Msg("oauth callback state does not match this browser")

		return s.fail(c, fiber.StatusBadRequest, ErrForeignFlow.Error())
	}

	flow, err := s.flows.Take(state)
	if err != nil {
		if !errors.Is(err, oauthstate.ErrUnknownState) {
			log.Error().Err(err).Msg("failed to load oauth flow")
		}

		return s.fail(c, fiber.StatusBadRequest, ErrExpiredFlow.Error())
	}

	jar := cookiejar.From(c)

	session, err := s.auth.ExchangeCodeForSession(c.UserContext(), jar, code, flow.Verifier)

	jar.Apply()

	if err != nil {
		log.Warn().Err(err).Str("provider", flow.Provider).Msg("code exchange failed")

		return s.fail(c, login.StatusOf(err), login.Message(err))
	}

	if session.User != nil {
		log.Info().Str("user", session.User.ID).Str("provider", flow.Provider).Msg("user signed in")
	}

	return c.Redirect(login.HomePath, fiber.StatusFound)
}

// setStateCookie sets the state cookie, or removes it when ttl is zero.
func (s *Service) setStateCookie(c *fiber.Ctx, state string, ttl time.Duration) {
	cookie := &fiber.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     CallbackPath,
		MaxAge:   int(ttl.Seconds()),
		Secure:   !s.cfg.DevMode,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}

	if ttl <= 0 {
		cookie.Expires = time.Unix(0, 0).UTC()
	}

	c.Cookie(cookie)
}

func (s *Service) fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).Render(login.TemplateName, fiber.Map{
		"title":          s.cfg.Title,
		"oauth_provider": s.cfg.Auth.OAuthProvider,
		"error":          message,
	})
}
