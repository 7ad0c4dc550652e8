package handlers

import "net/http"

// BuildVersion is set at link time (or left as "dev") and rendered by
// VersionHandler.
var BuildVersion = "dev"

// VersionHandler implements GET /version.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": BuildVersion})
}
