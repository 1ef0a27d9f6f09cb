package web

import (
	"embed"
	"io/fs"
	"path"
)

var (
	//go:embed static
	embeddedStaticFiles embed.FS

	//go:embed templates
	embeddedTemplates embed.FS
)

// templateEmbedFS roots the embedded files at the templates directory, so
// views are addressed as "login" or "dashboard/dashboard".
type templateEmbedFS struct {
	content embed.FS
}

// Open implements fs.FS.
func (e templateEmbedFS) Open(name string) (fs.File, error) {
	return e.content.Open(path.Join("templates", name))
}
