package login

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/evalboard/evalboard/internal/gotrue"
)

var (
	// ErrInvalidFormData is returned when the submitted login form cannot be parsed
	// or fails validation.
	ErrInvalidFormData = errors.New("please enter a valid email address and a password")

	// ErrInvalidCredentials is shown when the auth backend rejected the email and password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrServiceUnavailable is shown when the auth backend could not be reached.
	ErrServiceUnavailable = errors.New("the sign-in service is not reachable, please try again")

	// ErrInternalServerError is returned for unexpected failures during the login
	// process.
	ErrInternalServerError = errors.New("sign-in failed, please try again")
)

// Message maps a sign-in error to the text rendered on the login page.
func Message(err error) string {
	switch gotrue.KindOf(err) {
	case gotrue.KindInvalidCredentials:
		return ErrInvalidCredentials.Error()
	case gotrue.KindNetworkFailure:
		return ErrServiceUnavailable.Error()
	}

	// backend messages like "Email not confirmed" are meant for the user
	var apiErr *gotrue.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" && apiErr.Status < 500 {
		return apiErr.Message
	}

	return ErrInternalServerError.Error()
}

// StatusOf maps a sign-in error to the status of the rendered login page.
func StatusOf(err error) int {
	switch gotrue.KindOf(err) {
	case gotrue.KindInvalidCredentials:
		return fiber.StatusUnauthorized
	case gotrue.KindNetworkFailure:
		return fiber.StatusServiceUnavailable
	}

	var apiErr *gotrue.APIError
	if errors.As(err, &apiErr) && apiErr.Status < 500 {
		return fiber.StatusBadRequest
	}

	return fiber.StatusInternalServerError
}
