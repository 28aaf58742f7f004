//go:build embed_static

package api

import (
	_ "embed"
	"net/http"
)

//go:embed static/app.html
var appHTML []byte

//go:embed static/app.js
var appJS []byte

//go:embed static/map.js
var mapJS []byte

//go:embed static/app.css
var appCSS []byte

// StaticHandler serves the embedded frontend assets
func (s *Server) StaticHandler(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/static/app.js":
		w.Header().Set("Content-Type", "application/javascript")
		w.WriteHeader(200)
		_, _ = w.Write(appJS)
	case "/static/map.js":
		w.Header().Set("Content-Type", "application/javascript")
		w.WriteHeader(200)
		_, _ = w.Write(mapJS)
	case "/static/app.css":
		w.Header().Set("Content-Type", "text/css")
		w.WriteHeader(200)
		_, _ = w.Write(appCSS)
	default:
		http.NotFound(w, r)
	}
}

func shellHTML() ([]byte, error) { return appHTML, nil }
