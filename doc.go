// Command evalboard serves an evaluation dashboard behind a GoTrue
// compatible auth backend.
//
// The start command runs the fiber web server. Every request passes the
// edge guard, which restores the session from the sb-<ref>-auth-token
// cookies, refreshes it when needed and redirects visitors without a
// session to /login. The login, logout, whoami and watch commands keep a
// terminal session in the configured storage and follow its auth state.
package main
