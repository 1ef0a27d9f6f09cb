// Package routeguard decides what a page shows for a given auth state.
//
// It mirrors the edge guard's decision for renderers that see the auth state
// themselves (server-rendered pages, the terminal watcher) so protected
// content never flashes before a redirect. It is not a security boundary.
package routeguard

import "github.com/evalboard/evalboard/internal/authstate"

// Outcome is what a guarded view should show.
type Outcome int

const (
	// Skeleton is shown while the auth state is still loading.
	Skeleton Outcome = iota
	// Redirected means navigation was requested and nothing is rendered.
	Redirected
	// Rendered means the guarded content is shown.
	Rendered
)

func (o Outcome) String() string {
	switch o {
	case Skeleton:
		return "skeleton"
	case Redirected:
		return "redirected"
	case Rendered:
		return "rendered"
	default:
		return "unknown"
	}
}

// Navigator performs a replacing navigation.
type Navigator interface {
	Replace(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

// Replace calls f(path).
func (f NavigatorFunc) Replace(path string) { f(path) }

// Protected guards content that needs a user. Without one it navigates to
// loginPath.
func Protected(state authstate.State, nav Navigator, loginPath string) Outcome {
	if state.Loading() {
		return Skeleton
	}

	if state.User == nil {
		nav.Replace(loginPath)
		return Redirected
	}

	return Rendered
}

// Guest guards content for signed-out visitors, like the login page. A
// signed-in user is sent to homePath.
func Guest(state authstate.State, nav Navigator, homePath string) Outcome {
	if state.Loading() {
		return Skeleton
	}

	if state.User != nil {
		nav.Replace(homePath)
		return Redirected
	}

	return Rendered
}

// Render picks the view for outcome. Redirected yields the zero value.
func Render[T any](outcome Outcome, skeleton, children func() T) T {
	var zero T

	switch outcome {
	case Skeleton:
		return skeleton()
	case Rendered:
		return children()
	default:
		return zero
	}
}
