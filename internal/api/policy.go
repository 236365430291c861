package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"docpilot/internal/policy"
)

// PolicyHandler lets the frontend pre-check paths against the write
// policy before the agent proposes a diff. Checks are pure reads; the
// apply pipeline re-runs the same checks server-side.
type PolicyHandler struct{}

// NewPolicyHandler creates a new policy handler.
func NewPolicyHandler() *PolicyHandler {
	return &PolicyHandler{}
}

// RegisterRoutes mounts the policy endpoint.
func (h *PolicyHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/policy/check", h.Check)
}

// Check classifies a single repository-relative path.
func (h *PolicyHandler) Check(w http.ResponseWriter, r *http.Request) {
	result := policy.Check(r.URL.Query().Get("path"), policy.Options{})
	JSON(w, http.StatusOK, result)
}
