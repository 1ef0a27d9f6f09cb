package gotrue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultTimeout = 10 * time.Second

	headerAPIKey = "apikey"
)

type operation string

const (
	opPassword operation = "password"
	opRefresh  operation = "refresh_token"
	opPKCE     operation = "pkce"
	opUser     operation = "user"
	opLogout   operation = "logout"
)

// LogoutScope selects which sessions a logout revokes.
type LogoutScope string

const (
	// ScopeLocal revokes only the current session.
	ScopeLocal LogoutScope = "local"
	// ScopeGlobal revokes every session of the user.
	ScopeGlobal LogoutScope = "global"
	// ScopeOthers revokes every session except the current one.
	ScopeOthers LogoutScope = "others"
)

// Options configures an API.
type Options struct {
	// URL is the auth base url, e.g. https://<ref>.supabase.co/auth/v1.
	URL string
	// APIKey is sent as apikey header on every call.
	APIKey string
	// Timeout bounds every call. Default 10s.
	Timeout time.Duration
	// Now is used to compute expires_at. Default time.Now.
	Now func() time.Time
}

// API is a stateless client of the GoTrue REST API.
type API struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	now     func() time.Time
}

// NewAPI creates an API client.
func NewAPI(opts Options) (*API, error) {
	base := strings.TrimRight(opts.URL, "/")
	if base == "" {
		return nil, ErrEmptyURL
	}

	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid auth url %q: %w", opts.URL, err)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &API{
		baseURL: base,
		apiKey:  opts.APIKey,
		timeout: opts.Timeout,
		now:     opts.Now,
	}, nil
}

// URL returns the auth base url.
func (a *API) URL() string {
	return a.baseURL
}

// SignInWithPassword exchanges email and password for a session.
func (a *API) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}

	return a.token(ctx, opPassword, body)
}

// RefreshSession exchanges a refresh token for a new session.
func (a *API) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrSessionMissing
	}

	return a.token(ctx, opRefresh, map[string]string{"refresh_token": refreshToken})
}

// ExchangeCodeForSession finishes a PKCE flow.
func (a *API) ExchangeCodeForSession(ctx context.Context, code, verifier string) (*Session, error) {
	body := map[string]string{"auth_code": code, "code_verifier": verifier}

	return a.token(ctx, opPKCE, body)
}

// GetUser returns the user the access token belongs to.
func (a *API) GetUser(ctx context.Context, accessToken string) (*User, error) {
	if accessToken == "" {
		return nil, ErrSessionMissing
	}

	user := new(User)
	if err := a.do(ctx, opUser, fiber.MethodGet, "/user", nil, accessToken, nil, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Logout revokes the session the access token belongs to.
func (a *API) Logout(ctx context.Context, accessToken string, scope LogoutScope) error {
	if accessToken == "" {
		return ErrSessionMissing
	}

	if scope == "" {
		scope = ScopeLocal
	}

	query := url.Values{"scope": {string(scope)}}

	return a.do(ctx, opLogout, fiber.MethodPost, "/logout", query, accessToken, nil, nil)
}

// AuthorizeURL returns the url that starts an OAuth sign-in with provider.
// The backend redirects to redirectTo with a code for ExchangeCodeForSession.
func (a *API) AuthorizeURL(provider, redirectTo, codeChallenge string) string {
	query := url.Values{
		"provider":              {provider},
		"redirect_to":           {redirectTo},
		"code_challenge":        {codeChallenge},
		"code_challenge_method": {"s256"},
	}

	return a.baseURL + "/authorize?" + query.Encode()
}

func (a *API) token(ctx context.Context, op operation, body any) (*Session, error) {
	session := new(Session)
	query := url.Values{"grant_type": {string(op)}}

	if err := a.do(ctx, op, fiber.MethodPost, "/token", query, "", body, session); err != nil {
		return nil, err
	}

	if session.AccessToken == "" {
		return nil, &APIError{Status: http.StatusBadGateway, Message: "token response without access_token"}
	}

	session.normalize(a.now())

	return session, nil
}

// do performs one call. out is decoded from 2xx bodies when not nil.
func (a *API) do(
	ctx context.Context,
	op operation,
	method, path string,
	query url.Values,
	bearer string,
	body, out any,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target := a.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	agent := fiber.AcquireAgent()
	req := agent.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(target)

	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	agent.Set(headerAPIKey, a.apiKey)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)

	if bearer != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+bearer)
	}

	if body != nil {
		agent.JSON(body)
	}

	timeout := a.callTimeout(ctx)
	if timeout <= 0 {
		fiber.ReleaseAgent(agent)
		return context.DeadlineExceeded
	}

	agent.Timeout(timeout)

	// Bytes releases the agent.
	status, respBody, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrNetwork, errors.Join(errs...))
	}

	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		if out == nil || len(respBody) == 0 {
			return nil
		}

		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode %s response: %w", op, err)
		}

		return nil
	}

	return newAPIError(op, status, respBody)
}

// callTimeout is the configured timeout shortened to the context deadline.
func (a *API) callTimeout(ctx context.Context) time.Duration {
	timeout := a.timeout

	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	return timeout
}

func newAPIError(op operation, status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, Message: http.StatusText(status)}

	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		apiErr.Code = eb.ErrorCode
		if apiErr.Code == "" {
			apiErr.Code = eb.Error
		}

		if code, ok := eb.Code.(string); ok && apiErr.Code == "" {
			apiErr.Code = code
		}

		for _, msg := range []string{eb.Msg, eb.Message, eb.ErrorDescription} {
			if msg != "" {
				apiErr.Message = msg
				break
			}
		}
	}

	apiErr.kind = classify(op, apiErr)

	return apiErr
}
