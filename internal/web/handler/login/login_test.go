package login

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
)

func newTestApp(t *testing.T, auth *handlertest.Auth, user *gotrue.User) *fiber.App {
	t.Helper()

	app := handlertest.NewApp()
	app.Use(handlertest.WithUser(user))

	s := &Service{}
	require.NoError(t, s.Init(app, handlertest.Config(), auth))

	return app
}

func postForm(t *testing.T, app *fiber.App, form url.Values) (*http.Response, string) {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodPost, Path, strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)

	resp, err := app.Test(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(body)
}

func TestInit_Nil(t *testing.T) {
	s := &Service{}

	require.Error(t, s.Init(nil, handlertest.Config(), &handlertest.Auth{}))
	require.Error(t, s.Init(fiber.New(), nil, &handlertest.Auth{}))
	require.Error(t, s.Init(fiber.New(), handlertest.Config(), nil))
}

func TestGet(t *testing.T) {
	t.Run("anonymous sees the form", func(t *testing.T) {
		app := newTestApp(t, &handlertest.Auth{}, nil)

		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, Path, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		body, _ := io.ReadAll(resp.Body)
		assert.True(t, strings.HasPrefix(string(body), TemplateName))
		assert.Contains(t, string(body), "title=evalboard")
	})

	t.Run("signed in user goes home", func(t *testing.T) {
		app := newTestApp(t, &handlertest.Auth{}, &gotrue.User{ID: "u1"})

		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, Path, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, HomePath, resp.Header.Get(fiber.HeaderLocation))
	})
}

func TestPost_Success(t *testing.T) {
	auth := &handlertest.Auth{}
	app := newTestApp(t, auth, nil)

	resp, _ := postForm(t, app, url.Values{"email": {" jane@example.com "}, "password": {"secret"}})

	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, HomePath, resp.Header.Get(fiber.HeaderLocation))
	assert.Contains(t, resp.Header.Get(fiber.HeaderSetCookie), handlertest.CookieName+"=base64-session")
	assert.Equal(t, []string{"jane@example.com"}, auth.SignIns)
}

func TestPost_Failures(t *testing.T) {
	tests := []struct {
		name       string
		form       url.Values
		err        error
		wantStatus int
		wantBody   string
		wantCalls  int
	}{
		{
			name:       "missing password",
			form:       url.Values{"email": {"jane@example.com"}},
			wantStatus: fiber.StatusBadRequest,
			wantBody:   ErrInvalidFormData.Error(),
		},
		{
			name:       "malformed email",
			form:       url.Values{"email": {"jane"}, "password": {"secret"}},
			wantStatus: fiber.StatusBadRequest,
			wantBody:   ErrInvalidFormData.Error(),
		},
		{
			name:       "invalid credentials",
			form:       url.Values{"email": {"jane@example.com"}, "password": {"wrong"}},
			err:        fmt.Errorf("sign in: %w", gotrue.ErrInvalidCredentials),
			wantStatus: fiber.StatusUnauthorized,
			wantBody:   ErrInvalidCredentials.Error(),
			wantCalls:  1,
		},
		{
			name:       "backend unreachable",
			form:       url.Values{"email": {"jane@example.com"}, "password": {"secret"}},
			err:        fmt.Errorf("sign in: %w", gotrue.ErrNetwork),
			wantStatus: fiber.StatusServiceUnavailable,
			wantBody:   ErrServiceUnavailable.Error(),
			wantCalls:  1,
		},
		{
			name:       "backend message is shown",
			form:       url.Values{"email": {"jane@example.com"}, "password": {"secret"}},
			err:        &gotrue.APIError{Status: 400, Code: "email_not_confirmed", Message: "Email not confirmed"},
			wantStatus: fiber.StatusBadRequest,
			wantBody:   "Email not confirmed",
			wantCalls:  1,
		},
		{
			name:       "backend failure is hidden",
			form:       url.Values{"email": {"jane@example.com"}, "password": {"secret"}},
			err:        &gotrue.APIError{Status: 500, Message: "database is down"},
			wantStatus: fiber.StatusInternalServerError,
			wantBody:   ErrInternalServerError.Error(),
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &handlertest.Auth{Err: tt.err}
			app := newTestApp(t, auth, nil)

			resp, body := postForm(t, app, tt.form)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantBody, body)
			assert.Len(t, auth.SignIns, tt.wantCalls)
			assert.Empty(t, resp.Header.Get(fiber.HeaderSetCookie))
		})
	}
}

func TestValidate(t *testing.T) {
	assert.Empty(t, Validate(&Form{Email: "a@b.co", Password: "x"}))

	errs := Validate(&Form{})
	require.Len(t, errs, 2)
	assert.Equal(t, "Email", errs[0].FailedField)
	assert.Equal(t, "required", errs[0].Tag)
}
