package web

import (
	"embed"
	"io/fs"
)

//go:embed static/*
var staticFS embed.FS

// Assets returns the front end rooted at the static directory, so index.html
// sits at the top level next to the scripts and styles.
func Assets() (fs.FS, error) {
	return fs.Sub(staticFS, "static")
}
