package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"docpilot/internal/apperr"
	"docpilot/internal/authz"
	"docpilot/internal/gate"
	"docpilot/internal/identity"
)

// AdminHandler exposes the kill switch to allowlisted operators.
type AdminHandler struct {
	gate *gate.Gate
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(g *gate.Gate) *AdminHandler {
	return &AdminHandler{gate: g}
}

// RegisterRoutes mounts the admin endpoints.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/admin/killswitch", func(r chi.Router) {
		r.Get("/", h.GetKillSwitch)
		r.Put("/", h.SetKillSwitch)
	})
}

// requireAdmin returns the caller's email when it is on the admin
// allowlist. Authentication runs first in the identity middleware, so
// anonymous callers see 401 there, never a privilege-revealing 403.
func requireAdmin(r *http.Request) (string, error) {
	email := identity.EmailFromContext(r.Context())
	if email == "" {
		return "", apperr.Unauthorized("missing user identity")
	}
	if !authz.IsAdmin(email) {
		return "", apperr.Forbidden("admin privileges required")
	}
	return email, nil
}

// GetKillSwitch returns the current kill-switch status.
func (h *AdminHandler) GetKillSwitch(w http.ResponseWriter, r *http.Request) {
	if _, err := requireAdmin(r); err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, h.gate.Status())
}

type setKillSwitchRequest struct {
	Enabled bool `json:"enabled"`
}

// SetKillSwitch toggles the kill switch and records the actor.
func (h *AdminHandler) SetKillSwitch(w http.ResponseWriter, r *http.Request) {
	email, err := requireAdmin(r)
	if err != nil {
		Error(w, r, err)
		return
	}

	var req setKillSwitchRequest
	if err := decodeJSON(r, &req); err != nil {
		Error(w, r, err)
		return
	}

	status := h.gate.Set(req.Enabled, email)
	slog.Warn("kill switch toggled",
		"enabled", status.Enabled,
		"actor", email,
		"ip", identity.IPFromRequest(r))
	JSON(w, http.StatusOK, status)
}
