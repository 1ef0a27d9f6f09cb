// Package callback implements the OAuth sign-in round trip through the auth
// backend:
//
//	GET /api/auth/authorize?provider=github  - stores a PKCE verifier and redirects to the backend
//	GET /api/auth/callback?code=..&state=..  - exchanges the code for a session cookie
//
// The verifier is kept server side in an oauthstate.Store keyed by the
// state parameter, so every state is accepted once.
package callback
