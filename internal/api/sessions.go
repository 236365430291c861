package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"docpilot/internal/domain"
	"docpilot/internal/identity"
	"docpilot/internal/session"
)

// SessionHandler exposes the session orchestrator over HTTP.
type SessionHandler struct {
	svc *session.Service
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(svc *session.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// RegisterRoutes mounts the session endpoints.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Post("/steps", h.AddStep)
		})
	})
}

// List returns all sessions owned by the caller.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	sessions, err := h.svc.List(r.Context(), userID)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, sessions)
}

// Create makes a new session.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	var in session.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		Error(w, r, err)
		return
	}

	created, err := h.svc.Create(r.Context(), userID, in)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, created)
}

// Get returns one session.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	found, err := h.svc.Get(r.Context(), userID, sessionID)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, found)
}

// patchRequest is the loosely-typed wire shape of a session patch. It
// is decoded into the orchestrator's closed set of update intents; the
// JSON shape is kept for compatibility with existing clients.
type patchRequest struct {
	State      *string             `json:"state"`
	Name       *string             `json:"name"`
	Messages   []domain.Message    `json:"messages"`
	AddStep    *session.StepInput  `json:"addStep"`
	PreviewID  *string             `json:"previewId"`
	HeadBranch *string             `json:"headBranch"`
	PR         *domain.PullRequest `json:"pr"`
}

func (p *patchRequest) updates() []session.Update {
	var updates []session.Update
	if p.Name != nil {
		updates = append(updates, session.Rename{Name: *p.Name})
	}
	if len(p.Messages) > 0 {
		updates = append(updates, session.AppendMessages{Messages: p.Messages})
	}
	if p.State != nil {
		updates = append(updates, session.SetState{State: domain.State(*p.State)})
	}
	if p.AddStep != nil {
		updates = append(updates, session.AppendStep{Step: *p.AddStep})
	}
	if p.PreviewID != nil {
		headBranch := ""
		if p.HeadBranch != nil {
			headBranch = *p.HeadBranch
		}
		updates = append(updates, session.SetPreview{PreviewID: *p.PreviewID, HeadBranch: headBranch})
	}
	if p.PR != nil {
		updates = append(updates, session.SetPullRequest{PR: *p.PR})
	}
	return updates
}

// Update applies a patch to one session.
func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	var patch patchRequest
	if err := decodeJSON(r, &patch); err != nil {
		Error(w, r, err)
		return
	}

	updated, err := h.svc.Update(r.Context(), userID, sessionID, patch.updates()...)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusOK, updated)
}

// AddStep appends a pipeline-stage record and returns the timeline.
func (h *SessionHandler) AddStep(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	var in session.StepInput
	if err := decodeJSON(r, &in); err != nil {
		Error(w, r, err)
		return
	}

	steps, err := h.svc.AddStep(r.Context(), userID, sessionID, in)
	if err != nil {
		Error(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, map[string][]domain.Step{"steps": steps})
}
