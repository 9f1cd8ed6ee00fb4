package handlers

import (
	"net/http"
	"strings"
)

// StorageFiles serves the local storage tree under prefix. Directory paths
// answer 404 instead of a listing.
func StorageFiles(prefix, dir string) http.Handler {
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == prefix || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		fs.ServeHTTP(w, r)
	})
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, "ok", map[string]string{"status": "healthy"})
}
