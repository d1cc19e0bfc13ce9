package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/marketing-jobs/internal/api/shared"
)

// getOwnerID returns the owner identity set by the owner middleware.
func getOwnerID(r *http.Request) (string, bool) {
	ownerID := shared.GetOwnerID(r.Context())
	return ownerID, ownerID != ""
}

// getPathTaskID extracts the task ID path parameter.
// Task IDs are opaque, so only emptiness is checked.
func getPathTaskID(r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	return id, id != ""
}

// requireOwnedTask writes a 404 and returns false unless the task belongs to
// the requesting owner. Foreign tasks are reported as missing.
func requireOwnedTask(w http.ResponseWriter, r *http.Request, taskOwner string) bool {
	ownerID, _ := getOwnerID(r)
	if taskOwner != ownerID {
		shared.RespondWithError(w, r, http.StatusNotFound, "Task not found")
		return false
	}
	return true
}
