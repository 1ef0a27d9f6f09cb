// Package gotrue talks to a GoTrue compatible auth backend (the Supabase
// Auth REST API).
//
// The backend owns users, passwords and token issuance. This package only
// moves sessions around:
//   - API is the thin REST client (password grant, refresh grant, PKCE
//     exchange, user lookup, logout).
//   - Server is the request-scoped side. It reads the session from request
//     cookies, validates or refreshes it, and writes the refreshed cookies
//     back through a CookieJar.
//   - Client is the long-lived side. It persists its session in a
//     fiber.Storage, refreshes it in the background and notifies listeners
//     about auth-state changes.
//
// All operations return errors as values. KindOf maps any returned error to
// one of NetworkFailure, InvalidCredentials, SessionExpired or Unknown.
package gotrue
