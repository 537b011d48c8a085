// Package web embeds the operator form and its static assets.
package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates/*.html
var templates embed.FS

//go:embed static
var static embed.FS

func IndexTemplate() (*template.Template, error) {
	return template.ParseFS(templates, "templates/index.html")
}

// Static is rooted at the static directory, for serving under /static.
func Static() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
