package web

import (
	"net/http"
	"path/filepath"
)

// dashboardFile is resolved relative to the server's working directory.
var dashboardFile = filepath.Join("web", "dashboard.html")

// ServeDashboard serves the live-feed dashboard page. The page is read from
// disk on every request so edits show up without a server restart.
func ServeDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	http.ServeFile(w, r, dashboardFile)
}
