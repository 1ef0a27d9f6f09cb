package gotrue

import (
	"time"

	"golang.org/x/oauth2"
)

// AuthChangeEvent names an auth-state change reported to listeners.
type AuthChangeEvent string

const (
	// EventInitialSession is sent once to every new listener with the current
	// session, unless looking it up failed.
	EventInitialSession AuthChangeEvent = "INITIAL_SESSION"
	// EventSignedIn is sent after a successful sign-in.
	EventSignedIn AuthChangeEvent = "SIGNED_IN"
	// EventSignedOut is sent after sign-out or when the session can no longer be refreshed.
	EventSignedOut AuthChangeEvent = "SIGNED_OUT"
	// EventTokenRefreshed is sent after the access token was refreshed.
	EventTokenRefreshed AuthChangeEvent = "TOKEN_REFRESHED"
	// EventUserUpdated is sent when the user record embedded in the session changed.
	EventUserUpdated AuthChangeEvent = "USER_UPDATED"
)

// User is the identity record embedded in a session.
type User struct {
	ID           string         `json:"id"`
	Aud          string         `json:"aud,omitempty"`
	Role         string         `json:"role,omitempty"`
	Email        string         `json:"email"`
	Phone        string         `json:"phone,omitempty"`
	AppMetadata  map[string]any `json:"app_metadata,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	LastSignInAt *time.Time     `json:"last_sign_in_at,omitempty"`
}

// Session is the token bundle issued by the auth backend.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// Expiry returns the access token expiry. The zero time means unknown.
func (s *Session) Expiry() time.Time {
	if s == nil || s.ExpiresAt == 0 {
		return time.Time{}
	}

	return time.Unix(s.ExpiresAt, 0)
}

// ExpiresWithin reports whether the access token expires before now+margin.
// A session without a known expiry never expires by this check.
func (s *Session) ExpiresWithin(now time.Time, margin time.Duration) bool {
	exp := s.Expiry()
	if exp.IsZero() {
		return false
	}

	return !now.Add(margin).Before(exp)
}

// Token returns the session as an oauth2 token.
func (s *Session) Token() *oauth2.Token {
	if s == nil {
		return nil
	}

	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    s.TokenType,
		RefreshToken: s.RefreshToken,
		Expiry:       s.Expiry(),
	}
}

// normalize fills ExpiresAt from ExpiresIn for responses that only carry the latter.
func (s *Session) normalize(now time.Time) {
	if s.ExpiresAt == 0 && s.ExpiresIn > 0 {
		s.ExpiresAt = now.Unix() + s.ExpiresIn
	}
}
