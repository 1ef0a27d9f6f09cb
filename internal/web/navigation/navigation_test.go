package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalboard/evalboard/internal/gotrue"
)

func TestNewPage(t *testing.T) {
	p := NewPage("Dashboard", "/dashboard", &gotrue.User{Email: "jane@example.com"})

	assert.Equal(t, "Dashboard", p.Title)
	assert.Equal(t, "jane@example.com", p.UserEmail)
	assert.True(t, p.IsActive("/dashboard"))
	assert.False(t, p.IsActive("/elsewhere"))
	assert.False(t, Menu[0].Active, "the shared menu is not modified")

	anon := NewPage("Login", "/login", nil)
	assert.Empty(t, anon.UserEmail)
	assert.False(t, anon.IsActive("/dashboard"))
}

func TestCrumb(t *testing.T) {
	p := NewPage("Dashboard", "/dashboard", nil).
		Crumb("Home", "/").
		Crumb("Dashboard", "/dashboard")

	require.Len(t, p.Breadcrumbs, 2)
	assert.False(t, p.Breadcrumbs[0].Active)
	assert.True(t, p.Breadcrumbs[1].Active)
}

func TestWithNotice(t *testing.T) {
	p := NewPage("Dashboard", "/dashboard", nil).WithNotice("x")

	assert.Equal(t, "x", p.Notice)
}
