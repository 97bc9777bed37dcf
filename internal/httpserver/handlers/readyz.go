package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/pinboard/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready  bool   `json:"ready"`
	Reason string `json:"reason,omitempty"`
}

// Readyz reports ready once Redis answers and the post catalog is loaded.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if status := checkRedis(r.Context(), d); !status.OK {
			writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Reason: "redis: " + status.Error})
			return
		}
		if d.MemoryIndex == nil || d.MemoryIndex.PostCount() == 0 {
			writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Reason: "catalog not loaded"})
			return
		}
		writeJSON(w, http.StatusOK, readyzResponse{Ready: true})
	}
}
