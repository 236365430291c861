// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"docpilot/internal/domain"
)

// ErrVersionConflict is returned by UpdateSession when the persisted
// version no longer matches the one the caller read. The caller should
// re-read and retry or fail cleanly; the losing write is never applied.
var ErrVersionConflict = errors.New("session version conflict")

// Repository defines the interface for persisting agent sessions.
//
// Lookups are keyed by (userID, sessionID); a session owned by a
// different user is reported as absent, never as a distinct
// "forbidden" condition.
type Repository interface {
	// CreateSession inserts a new session record.
	CreateSession(ctx context.Context, session *domain.AgentSession) error

	// GetSession retrieves a session owned by userID.
	// Returns (nil, nil) when no such session exists for that user.
	GetSession(ctx context.Context, userID, sessionID string) (*domain.AgentSession, error)

	// ListSessions retrieves all sessions owned by userID, most
	// recently updated first.
	ListSessions(ctx context.Context, userID string) ([]*domain.AgentSession, error)

	// UpdateSession writes the session back, guarded by its Version
	// (optimistic locking). On success the session's Version is
	// incremented in place; on a stale version it returns
	// ErrVersionConflict and writes nothing.
	UpdateSession(ctx context.Context, session *domain.AgentSession) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
