package api

import (
	"net/http"
	"strings"
)

// Client-side routes the shell answers with 200. Everything else still gets
// the shell so the router can show its not-found page, but with a 404 status.
var shellRoutes = map[string]bool{
	"/":          true,
	"/login":     true,
	"/register":  true,
	"/dashboard": true,
	"/mrs":       true,
	"/analytics": true,
	"/contact":   true,
	"/settings":  true,
	"/profile":   true,
}

// ShellHandler serves the single-page shell for browser navigation.
func (s *Server) ShellHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := shellHTML()
	if err != nil {
		http.Error(w, "shell not available", http.StatusInternalServerError)
		return
	}
	status := http.StatusOK
	if !shellRoutes[r.URL.Path] && !strings.HasPrefix(r.URL.Path, "/mr/") {
		status = http.StatusNotFound
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
