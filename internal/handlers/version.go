package handlers

import (
	"net/http"

	"media-pipeline/internal/media"
	"media-pipeline/internal/startup"
)

// VersionResponse is the build information plus the imaging backend.
type VersionResponse struct {
	startup.BuildInfo
	Vips string `json:"vips,omitempty"`
}

// GetVersion returns the application version and build information
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	resp := VersionResponse{BuildInfo: startup.GetBuildInfo()}
	if media.IsVipsAvailable() {
		resp.Vips = media.VipsVersion()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, resp)
}
