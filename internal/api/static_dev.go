//go:build !embed_static

package api

import (
	"net/http"
	"os"
	"path/filepath"
)

func staticBase() string {
	if _, err := os.Stat("internal/api/static"); err == nil {
		return "internal/api/static"
	}
	return "static"
}

// StaticHandler serves frontend assets from disk in dev, if present
func (s *Server) StaticHandler(w http.ResponseWriter, r *http.Request) {
	name := filepath.Base(r.URL.Path)
	switch name {
	case "app.js", "map.js", "app.css":
		p := filepath.Join(staticBase(), name)
		if _, err := os.Stat(p); err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, p)
	default:
		http.NotFound(w, r)
	}
}

func shellHTML() ([]byte, error) {
	return os.ReadFile(filepath.Join(staticBase(), "app.html"))
}
