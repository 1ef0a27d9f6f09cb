// Package guard provides the request level authentication middleware.
//
// For every request that is not skipped the middleware asks the session
// updater for the current user. The updater validates the session cookie,
// refreshes it when needed and queues the resulting cookies, which are
// always forwarded to the response. Requests without a user are redirected
// to the login page unless their path is exempt. The user is stored in
// fiber.Locals for handlers, templates and the access log:
//
//	app.Use(guard.New(guard.Config{Updater: server}))
//
//	func handler(c *fiber.Ctx) error {
//		user := guard.UserFrom(c)
//		...
//	}
//
// Updater errors are logged and the request is treated as unauthenticated.
// The middleware keeps no state across requests.
package guard
