// Package navigation builds the page chrome shared by the dashboard pages:
// the menu, breadcrumbs and the signed-in user.
package navigation

import "github.com/evalboard/evalboard/internal/gotrue"

// Item is a menu entry or breadcrumb link.
type Item struct {
	Title  string
	URL    string
	Active bool
}

// Page is the navigation context passed to the base layout.
type Page struct {
	Title       string
	Menu        []Item
	Breadcrumbs []Item
	UserEmail   string
	SignOutURL  string
	Notice      string
}

// Menu lists the pages reachable from the sidebar.
var Menu = []Item{ //nolint:gochecknoglobals
	{Title: "Dashboard", URL: "/dashboard"},
}

// NewPage returns a page titled title. The menu entry whose URL equals
// active is marked, and user fills the account box.
func NewPage(title, active string, user *gotrue.User) *Page {
	p := &Page{
		Title:      title,
		Menu:       make([]Item, len(Menu)),
		SignOutURL: "/api/auth/logout",
	}

	for i, item := range Menu {
		item.Active = item.URL == active
		p.Menu[i] = item
	}

	if user != nil {
		p.UserEmail = user.Email
	}

	return p
}

// Crumb appends a breadcrumb. The last crumb is always the active one.
func (p *Page) Crumb(title, url string) *Page {
	for i := range p.Breadcrumbs {
		p.Breadcrumbs[i].Active = false
	}

	p.Breadcrumbs = append(p.Breadcrumbs, Item{Title: title, URL: url, Active: true})

	return p
}

// WithNotice sets a message shown above the page content.
func (p *Page) WithNotice(msg string) *Page {
	p.Notice = msg

	return p
}

// IsActive reports whether the menu entry for url is marked.
func (p *Page) IsActive(url string) bool {
	for _, item := range p.Menu {
		if item.URL == url {
			return item.Active
		}
	}

	return false
}
