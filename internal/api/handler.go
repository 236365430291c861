// Package api provides HTTP handlers for the docpilot API.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"docpilot/internal/apperr"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// errorBody is the wire shape of every error response.
type errorBody struct {
	Error string      `json:"error"`
	Kind  apperr.Kind `json:"kind"`
}

// Error classifies err and writes the matching status and body.
// Internal faults are logged with the request id and replaced by a
// generic message so store/serialization details never leak.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := apperr.Status(kind)

	msg := err.Error()
	if kind == apperr.KindInternal {
		slog.Error("request failed",
			"error", err,
			"request_id", chiMiddleware.GetReqID(r.Context()),
			"path", r.URL.Path)
		msg = "internal error"
	}

	JSON(w, status, errorBody{Error: msg, Kind: kind})
}

// ErrorMsg writes an error response with an explicit status and kind.
func ErrorMsg(w http.ResponseWriter, status int, kind apperr.Kind, message string) {
	JSON(w, status, errorBody{Error: message, Kind: kind})
}

// decodeJSON decodes a request body, rejecting unknown garbage early.
func decodeJSON(r *http.Request, v interface{}) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("body", "malformed JSON: "+err.Error())
	}
	return nil
}
