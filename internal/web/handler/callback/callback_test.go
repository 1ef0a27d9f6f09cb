package callback

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalboard/evalboard/internal/gotrue"
	"github.com/evalboard/evalboard/internal/web/handler/handlertest"
	"github.com/evalboard/evalboard/internal/web/handler/login"
	"github.com/evalboard/evalboard/internal/web/oauthstate"
)

type testEnv struct {
	app     *fiber.App
	auth    *handlertest.Auth
	storage *handlertest.Storage
}

func newTestEnv(t *testing.T, provider string) *testEnv {
	t.Helper()

	env := &testEnv{
		app:     handlertest.NewApp(),
		auth:    &handlertest.Auth{},
		storage: handlertest.NewStorage(),
	}

	flows, err := oauthstate.New(env.storage, 0)
	require.NoError(t, err)

	cfg := handlertest.Config()
	cfg.Auth.OAuthProvider = provider

	s := &Service{}
	require.NoError(t, s.Init(env.app, cfg, env.auth, flows))

	return env
}

func (e *testEnv) get(t *testing.T, target string, cookies ...*http.Cookie) (*http.Response, string) {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := e.app.Test(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(body)
}

func stateCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == StateCookie {
			return c
		}
	}

	return nil
}

// authorize starts a flow and returns the state the backend would echo
// together with the cookie the browser keeps.
func (e *testEnv) authorize(t *testing.T, target string) (string, *http.Cookie) {
	t.Helper()

	resp, _ := e.get(t, target)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get(fiber.HeaderLocation))
	require.NoError(t, err)

	redirectTo, err := url.Parse(location.Query().Get("redirect_to"))
	require.NoError(t, err)
	require.Equal(t, CallbackPath, redirectTo.Path)

	cookie := stateCookie(resp)
	require.NotNil(t, cookie)

	return redirectTo.Query().Get("state"), cookie
}

func TestAuthorize(t *testing.T) {
	env := newTestEnv(t, "github")

	resp, _ := env.get(t, AuthorizePath)
	require.Equal(t, fiber.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get(fiber.HeaderLocation))
	require.NoError(t, err)
	assert.Equal(t, "github", location.Query().Get("provider"))
	assert.NotEmpty(t, location.Query().Get("code_challenge"))
	assert.Equal(t, 1, env.storage.Len())

	cookie := stateCookie(resp)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, CallbackPath, cookie.Path)
	assert.Equal(t, int(oauthstate.DefaultTTL.Seconds()), cookie.MaxAge)

	state, cookie := env.authorize(t, AuthorizePath+"?provider=google")
	assert.Len(t, state, 64)
	assert.Equal(t, state, cookie.Value)
	assert.Equal(t, 2, env.storage.Len())
}

func TestAuthorize_NoProvider(t *testing.T) {
	env := newTestEnv(t, "")

	resp, body := env.get(t, AuthorizePath)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, ErrNoProvider.Error(), body)
}

func TestCallback_Success(t *testing.T) {
	env := newTestEnv(t, "github")
	state, cookie := env.authorize(t, AuthorizePath)

	resp, _ := env.get(t, CallbackPath+"?code=abc&state="+state, cookie)

	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, login.HomePath, resp.Header.Get(fiber.HeaderLocation))
	assert.Contains(t, strings.Join(resp.Header.Values(fiber.HeaderSetCookie), "\n"), handlertest.CookieName+"=base64-session")
	cleared := stateCookie(resp)
	require.NotNil(t, cleared, "the state cookie is removed")
	assert.Empty(t, cleared.Value)
	require.Len(t, env.auth.Exchanges, 1)
	assert.Regexp(t, `^abc:.{43,128}$`, env.auth.Exchanges[0])
	assert.Equal(t, 0, env.storage.Len(), "the flow is consumed")

	resp, body := env.get(t, CallbackPath+"?code=abc&state="+state, cookie)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "a state is accepted once")
	assert.Equal(t, ErrExpiredFlow.Error(), body)
}

func TestCallback_Failures(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		cookie     string
		wantStatus int
		wantBody   string
	}{
		{name: "missing code", query: "?state=x", wantStatus: fiber.StatusBadRequest, wantBody: ErrInvalidCallback.Error()},
		{name: "missing state", query: "?code=x", wantStatus: fiber.StatusBadRequest, wantBody: ErrInvalidCallback.Error()},
		{name: "unknown state", query: "?code=x&state=forged", cookie: "forged", wantStatus: fiber.StatusBadRequest, wantBody: ErrExpiredFlow.Error()},
		{
			name:       "provider error",
			query:      "?error=access_denied&error_description=User+denied",
			wantStatus: fiber.StatusUnauthorized,
			wantBody:   "User denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, "github")

			var cookies []*http.Cookie
			if tt.cookie != "" {
				cookies = append(cookies, &http.Cookie{Name: StateCookie, Value: tt.cookie})
			}

			resp, body := env.get(t, CallbackPath+tt.query, cookies...)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantBody, body)
			assert.Empty(t, env.auth.Exchanges)
		})
	}
}

func TestCallback_ExchangeFails(t *testing.T) {
	env := newTestEnv(t, "github")
	state, cookie := env.authorize(t, AuthorizePath)

	env.auth.Err = fmt.Errorf("exchange: %w", gotrue.ErrNetwork)

	resp, body := env.get(t, CallbackPath+"?code=abc&state="+state, cookie)

	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, login.ErrServiceUnavailable.Error(), body)
	assert.NotContains(t, strings.Join(resp.Header.Values(fiber.HeaderSetCookie), "\n"), handlertest.CookieName)
}

func TestCallback_OtherBrowser(t *testing.T) {
	env := newTestEnv(t, "github")
	state, cookie := env.authorize(t, AuthorizePath)
	otherState, _ := env.authorize(t, AuthorizePath)

	tests := []struct {
		name    string
		cookies []*http.Cookie
	}{
		{name: "no state cookie"},
		{name: "cookie of another flow", cookies: []*http.Cookie{{Name: StateCookie, Value: otherState}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := env.get(t, CallbackPath+"?code=abc&state="+state, tt.cookies...)

			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, ErrForeignFlow.Error(), body)
			assert.NotContains(t, strings.Join(resp.Header.Values(fiber.HeaderSetCookie), "\n"), handlertest.CookieName)
			assert.Empty(t, env.auth.Exchanges)
		})
	}

	assert.Equal(t, 2, env.storage.Len(), "rejected callbacks leave the flows alone")

	resp, _ := env.get(t, CallbackPath+"?code=abc&state="+state, cookie)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode, "the browser that started the flow can still finish it")
}
