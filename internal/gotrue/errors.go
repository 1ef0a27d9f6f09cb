package gotrue

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetwork is returned when the auth backend could not be reached.
	ErrNetwork = errors.New("auth backend unreachable")

	// ErrInvalidCredentials is returned when the backend rejected an email/password pair.
	ErrInvalidCredentials = errors.New("invalid login credentials")

	// ErrSessionMissing is returned when an operation needs a session and none is stored.
	ErrSessionMissing = errors.New("auth session missing")

	// ErrSessionExpired is returned when the session was rejected and cannot be refreshed.
	ErrSessionExpired = errors.New("auth session expired")

	// ErrMalformedCookie is returned when the session cookie cannot be decoded.
	ErrMalformedCookie = errors.New("malformed session cookie")

	// ErrEmptyURL is returned when the API is created without a base URL.
	ErrEmptyURL = errors.New("auth url can not be empty")
)

// Kind classifies collaborator errors.
type Kind int

const (
	// KindUnknown is any error not covered by the other kinds.
	KindUnknown Kind = iota
	// KindNetworkFailure means the backend was not reachable or timed out.
	KindNetworkFailure
	// KindInvalidCredentials means sign-in was rejected.
	KindInvalidCredentials
	// KindSessionExpired means there is no usable session.
	KindSessionExpired
)

func (k Kind) String() string {
	switch k {
	case KindNetworkFailure:
		return "NetworkFailure"
	case KindInvalidCredentials:
		return "InvalidCredentials"
	case KindSessionExpired:
		return "SessionExpired"
	default:
		return "Unknown"
	}
}

// KindOf classifies err. A nil error is KindUnknown.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrNetwork), errors.Is(err, context.DeadlineExceeded):
		return KindNetworkFailure
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrSessionMissing), errors.Is(err, ErrSessionExpired), errors.Is(err, ErrMalformedCookie):
		return KindSessionExpired
	default:
		return KindUnknown
	}
}

// APIError is a non 2xx answer of the auth backend.
type APIError struct {
	Status  int
	Code    string
	Message string

	kind Kind
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gotrue: %d %s: %s", e.Status, e.Code, e.Message)
	}

	return fmt.Sprintf("gotrue: %d: %s", e.Status, e.Message)
}

// Is lets errors.Is match an APIError against the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrInvalidCredentials:
		return e.kind == KindInvalidCredentials
	case ErrSessionExpired:
		return e.kind == KindSessionExpired
	}

	return false
}

// errorBody covers both error shapes GoTrue has used over time.
type errorBody struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

var sessionErrorCodes = map[string]bool{
	"bad_jwt":                    true,
	"no_authorization":           true,
	"refresh_token_not_found":    true,
	"refresh_token_already_used": true,
	"session_expired":            true,
	"session_not_found":          true,
	"user_not_found":             true,
}

// classify decides the Kind of an API error for the operation that produced it.
func classify(op operation, e *APIError) Kind {
	switch {
	case e.Code == "invalid_credentials":
		return KindInvalidCredentials
	case op == opPassword && e.Status == http.StatusBadRequest:
		return KindInvalidCredentials
	case sessionErrorCodes[e.Code]:
		return KindSessionExpired
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return KindSessionExpired
	case op == opRefresh && e.Status == http.StatusBadRequest:
		return KindSessionExpired
	default:
		return KindUnknown
	}
}
