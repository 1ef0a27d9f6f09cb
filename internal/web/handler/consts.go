package handler

const (
	// BaseLayout is the default path for layout templates.
	BaseLayout = "layouts/base"

	// RootPath is the root path the route group.
	RootPath = "/"

	// RouterRootPath is the root of a route group.
	RouterRootPath = ""

	// ErrNilACAFatalLogMsg is used if app or cfg or the auth backend is nil.
	ErrNilACAFatalLogMsg = "app, cfg or auth is nil"
)
