// Package handlertest holds fakes shared by the handler tests.
package handlertest

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/evalboard/evalboard/internal/config"
	"github.com/evalboard/evalboard/internal/gotrue"
	"github.com/evalboard/evalboard/internal/web/middleware/guard"
)

// CookieName is the session cookie the fakes write.
const CookieName = "sb-test-auth-token"

// NoOpViews is a minimal Fiber Views engine. It writes the "error" field
// of a fiber.Map if present, otherwise the template name followed by the
// sorted string values, so tests can assert on rendered data.
type NoOpViews struct{}

// Load implements fiber.Views.
func (NoOpViews) Load() error { return nil }

// Render implements fiber.Views.
func (NoOpViews) Render(w io.Writer, name string, data any, _ ...string) error {
	m, ok := data.(fiber.Map)
	if !ok {
		_, err := io.WriteString(w, name)
		return err
	}

	if v, exists := m["error"]; exists && v != nil {
		_, err := fmt.Fprint(w, v)
		return err
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	var b strings.Builder

	b.WriteString(name)

	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, m[k])
	}

	_, err := io.WriteString(w, b.String())

	return err
}

// NewApp returns a fiber app rendering with NoOpViews.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{Views: NoOpViews{}})
}

// WithUser stores user the way the edge guard does.
func WithUser(user *gotrue.User) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if user != nil {
			c.Locals(guard.LocalsUser, user)
		}

		return c.Next()
	}
}

// Config returns a valid config for handler tests.
func Config() *config.Config {
	return &config.Config{
		Title: "evalboard",
		Webserver: config.Webserver{
			URL:  "http://localhost:3000",
			Port: 3000,
		},
		Auth: config.Auth{
			URL:     "http://auth.local",
			AnonKey: "anon",
		},
	}
}

// Auth is a scripted handler.Authenticator.
type Auth struct {
	mu sync.Mutex

	// Err is returned by every call when set.
	Err error
	// User is put into sessions created by the fake.
	User *gotrue.User

	SignIns   []string
	Exchanges []string
	SignOuts  int
}

func (a *Auth) session(jar gotrue.CookieJar) *gotrue.Session {
	user := a.User
	if user == nil {
		user = &gotrue.User{ID: "user-1", Email: "jane@example.com"}
	}

	jar.SetAll([]gotrue.Cookie{{Name: CookieName, Value: "base64-session", Path: "/", MaxAge: 3600, HTTPOnly: true}})

	return &gotrue.Session{AccessToken: "access", RefreshToken: "refresh", User: user}
}

// SignInWithPassword implements handler.Authenticator.
func (a *Auth) SignInWithPassword(_ context.Context, jar gotrue.CookieJar, email, _ string) (*gotrue.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.SignIns = append(a.SignIns, email)

	if a.Err != nil {
		return nil, a.Err
	}

	return a.session(jar), nil
}

// ExchangeCodeForSession implements handler.Authenticator.
func (a *Auth) ExchangeCodeForSession(
	_ context.Context, jar gotrue.CookieJar, code, verifier string,
) (*gotrue.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.Exchanges = append(a.Exchanges, code+":"+verifier)

	if a.Err != nil {
		return nil, a.Err
	}

	return a.session(jar), nil
}

// SignOut implements handler.Authenticator. On Err the cookies are kept.
func (a *Auth) SignOut(_ context.Context, jar gotrue.CookieJar) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.SignOuts++

	if a.Err != nil {
		return a.Err
	}

	jar.SetAll([]gotrue.Cookie{{Name: CookieName, Path: "/", MaxAge: -1}})

	return nil
}

// AuthorizeURL implements handler.Authenticator.
func (a *Auth) AuthorizeURL(provider, redirectTo, codeChallenge string) string {
	query := url.Values{
		"provider":       {provider},
		"redirect_to":    {redirectTo},
		"code_challenge": {codeChallenge},
	}

	return "http://auth.local/authorize?" + query.Encode()
}

// Storage is an in-memory fiber.Storage without expiry.
type Storage struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewStorage returns an empty Storage.
func NewStorage() *Storage {
	return &Storage{data: map[string][]byte{}}
}

// Get implements fiber.Storage.
func (s *Storage) Get(key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.data[key], nil
}

// Set implements fiber.Storage.
func (s *Storage) Set(key string, val []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = append([]byte(nil), val...)

	return nil
}

// Delete implements fiber.Storage.
func (s *Storage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)

	return nil
}

// Reset implements fiber.Storage.
func (s *Storage) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = map[string][]byte{}

	return nil
}

// Close implements fiber.Storage.
func (s *Storage) Close() error { return nil }

// Len returns the number of stored keys.
func (s *Storage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.data)
}
