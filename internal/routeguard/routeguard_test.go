package routeguard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evalboard/evalboard/internal/authstate"
	"github.com/evalboard/evalboard/internal/gotrue"
)

type recordingNav struct {
	paths []string
}

func (n *recordingNav) Replace(path string) { n.paths = append(n.paths, path) }

var user = &gotrue.User{ID: "user-1", Email: "a@b.com"}

func TestProtected(t *testing.T) {
	tests := []struct {
		name  string
		state authstate.State
		want  Outcome
		nav   []string
	}{
		{name: "loading", state: authstate.State{Status: authstate.StatusLoading}, want: Skeleton},
		{name: "loading keeps skeleton with stale user", state: authstate.State{Status: authstate.StatusLoading, User: user}, want: Skeleton},
		{name: "anonymous", state: authstate.State{Status: authstate.StatusAnonymous}, want: Redirected, nav: []string{"/login"}},
		{name: "errored without user", state: authstate.State{Status: authstate.StatusErrored, Err: errors.New("x")}, want: Redirected, nav: []string{"/login"}},
		{name: "errored with user", state: authstate.State{Status: authstate.StatusErrored, User: user}, want: Rendered},
		{name: "authenticated", state: authstate.FromUser(user), want: Rendered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := &recordingNav{}

			assert.Equal(t, tt.want, Protected(tt.state, nav, "/login"))
			assert.Equal(t, tt.nav, nav.paths)
		})
	}
}

func TestGuest(t *testing.T) {
	nav := &recordingNav{}

	assert.Equal(t, Skeleton, Guest(authstate.State{}, nav, "/dashboard"))
	assert.Equal(t, Rendered, Guest(authstate.FromUser(nil), nav, "/dashboard"))
	assert.Empty(t, nav.paths)

	assert.Equal(t, Redirected, Guest(authstate.FromUser(user), nav, "/dashboard"))
	assert.Equal(t, []string{"/dashboard"}, nav.paths)
}

func TestRender(t *testing.T) {
	skeleton := func() string { return "skeleton" }
	children := func() string { return "dashboard" }

	assert.Equal(t, "skeleton", Render(Skeleton, skeleton, children))
	assert.Equal(t, "dashboard", Render(Rendered, skeleton, children))
	assert.Empty(t, Render(Redirected, skeleton, children))
}

func TestNavigatorFunc(t *testing.T) {
	var got string

	Protected(authstate.FromUser(nil), NavigatorFunc(func(p string) { got = p }), "/login")
	assert.Equal(t, "/login", got)
	assert.Equal(t, "redirected", Redirected.String())
}
