package gotrue

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// defaultRefreshMargin refreshes tokens that expire within the next 10s
// before handing them to the backend.
const defaultRefreshMargin = 10 * time.Second

// ServerOptions configures a Server.
type ServerOptions struct {
	// CookieName is the session cookie name. Default DefaultStorageKey(api.URL()).
	CookieName string
	// Cookie holds the attributes of written session cookies.
	Cookie CookieOptions
	// Verifier, when set, validates access tokens locally before asking /user.
	Verifier *JWTVerifier
	// RefreshMargin refreshes tokens expiring within this window.
	RefreshMargin time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Server is the request-scoped view of the auth backend. It keeps no state
// between requests; everything travels in the CookieJar.
type Server struct {
	api  *API
	opts ServerOptions
}

// NewServer creates a Server on top of api.
func NewServer(api *API, opts ServerOptions) *Server {
	if opts.CookieName == "" {
		opts.CookieName = DefaultStorageKey(api.URL())
	}

	if opts.Cookie.Path == "" {
		opts.Cookie.Path = "/"
	}

	if opts.Cookie.SameSite == "" {
		opts.Cookie.SameSite = "Lax"
	}

	if opts.RefreshMargin <= 0 {
		opts.RefreshMargin = defaultRefreshMargin
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Server{api: api, opts: opts}
}

// API returns the underlying REST client.
func (s *Server) API() *API {
	return s.api
}

// CookieName returns the session cookie name.
func (s *Server) CookieName() string {
	return s.opts.CookieName
}

// UpdateSession validates the session carried by the request cookies and
// refreshes it when the access token expired. Refreshed cookies, or
// deletions for a session that can not be recovered, are written to jar.
// It returns a nil user and nil error for requests without a session.
func (s *Server) UpdateSession(ctx context.Context, jar CookieJar) (*User, error) {
	session, err := s.ReadSession(jar)
	if err != nil {
		s.ClearSession(jar)
		return nil, err
	}

	if session == nil {
		return nil, nil //nolint:nilnil // anonymous request
	}

	if !session.ExpiresWithin(s.opts.Now(), s.opts.RefreshMargin) {
		user, errUser := s.currentUser(ctx, session.AccessToken)
		if errUser == nil {
			return user, nil
		}

		if KindOf(errUser) != KindSessionExpired {
			return nil, errUser
		}
	}

	refreshed, err := s.api.RefreshSession(ctx, session.RefreshToken)
	if err != nil {
		if KindOf(err) == KindSessionExpired {
			s.ClearSession(jar)
		}

		return nil, err
	}

	if err = s.SetSession(jar, refreshed); err != nil {
		return nil, err
	}

	if refreshed.User != nil {
		return refreshed.User, nil
	}

	return s.currentUser(ctx, refreshed.AccessToken)
}

// SignInWithPassword signs in and stores the new session in jar.
func (s *Server) SignInWithPassword(ctx context.Context, jar CookieJar, email, password string) (*Session, error) {
	session, err := s.api.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if err = s.SetSession(jar, session); err != nil {
		return nil, err
	}

	return session, nil
}

// ExchangeCodeForSession finishes a PKCE sign-in and stores the session in jar.
func (s *Server) ExchangeCodeForSession(ctx context.Context, jar CookieJar, code, verifier string) (*Session, error) {
	session, err := s.api.ExchangeCodeForSession(ctx, code, verifier)
	if err != nil {
		return nil, err
	}

	if err = s.SetSession(jar, session); err != nil {
		return nil, err
	}

	return session, nil
}

// SignOut revokes the session in jar and deletes its cookies. The cookies
// are deleted even when the backend already forgot the session.
func (s *Server) SignOut(ctx context.Context, jar CookieJar) error {
	session, err := s.ReadSession(jar)
	if err != nil || session == nil {
		s.ClearSession(jar)
		return nil
	}

	if err = s.api.Logout(ctx, session.AccessToken, ScopeLocal); err != nil && KindOf(err) != KindSessionExpired {
		return err
	}

	s.ClearSession(jar)

	return nil
}

// ReadSession decodes the session stored in the request cookies.
func (s *Server) ReadSession(jar CookieJar) (*Session, error) {
	value, ok := combineChunks(s.opts.CookieName, cookieMap(jar))
	if !ok || value == "" {
		return nil, nil //nolint:nilnil // no session cookie
	}

	return DecodeSession(value)
}

// SetSession writes session into jar and deletes chunks left over from a
// previous, longer value.
func (s *Server) SetSession(jar CookieJar, session *Session) error {
	value, err := EncodeSession(session)
	if err != nil {
		return err
	}

	chunks := chunkValue(s.opts.CookieName, value)
	keep := make(map[string]bool, len(chunks))
	out := make([]Cookie, 0, len(chunks))

	for _, c := range chunks {
		keep[c.Name] = true
		out = append(out, s.opts.Cookie.apply(c))
	}

	for _, name := range chunkNames(s.opts.CookieName, cookieMap(jar)) {
		if !keep[name] {
			out = append(out, s.deletion(name))
		}
	}

	jar.SetAll(out)

	return nil
}

// ClearSession deletes every session cookie present in jar.
func (s *Server) ClearSession(jar CookieJar) {
	names := chunkNames(s.opts.CookieName, cookieMap(jar))
	if len(names) == 0 {
		return
	}

	out := make([]Cookie, 0, len(names))
	for _, name := range names {
		out = append(out, s.deletion(name))
	}

	jar.SetAll(out)
}

func (s *Server) deletion(name string) Cookie {
	c := s.opts.Cookie.apply(Cookie{Name: name})
	c.MaxAge = -1

	return c
}

func (s *Server) currentUser(ctx context.Context, accessToken string) (*User, error) {
	if s.opts.Verifier != nil {
		user, err := s.opts.Verifier.User(ctx, accessToken)
		if err == nil || KindOf(err) == KindSessionExpired {
			return user, err
		}

		log.Debug().Err(err).Msg("local access token verification failed, asking auth backend")
	}

	return s.api.GetUser(ctx, accessToken)
}

// AuthorizeURL returns the url that starts an OAuth sign-in with provider.
func (s *Server) AuthorizeURL(provider, redirectTo, codeChallenge string) string {
	return s.api.AuthorizeURL(provider, redirectTo, codeChallenge)
}
