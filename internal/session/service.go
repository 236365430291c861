// Package session implements the agent session orchestrator: session
// lifecycle, the step timeline, and the safety gating around every
// mutation.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"docpilot/internal/apperr"
	"docpilot/internal/domain"
	"docpilot/internal/gate"
	"docpilot/internal/store"
)

// DefaultUpdateRetries bounds how often a version-CAS loser re-reads
// and retries before failing cleanly.
const DefaultUpdateRetries = 3

// EventPublisher receives a notification after every successful
// session mutation. Implementations must not block.
type EventPublisher interface {
	SessionUpdated(session *domain.AgentSession)
}

// Service is the composition root for session orchestration. All
// mutations flow through it: it asserts the kill switch, serializes
// writers per session, enforces the state machine, and persists
// through the store's optimistic locking.
type Service struct {
	repo       store.Repository
	gate       *gate.Gate
	events     EventPublisher
	locks      *sessionLocks
	maxRetries int
}

// NewService creates a session service without an event publisher.
func NewService(repo store.Repository, g *gate.Gate) *Service {
	return NewServiceWithPublisher(repo, g, nil)
}

// NewServiceWithPublisher creates a session service that notifies pub
// after each successful mutation.
func NewServiceWithPublisher(repo store.Repository, g *gate.Gate, pub EventPublisher) *Service {
	return &Service{
		repo:       repo,
		gate:       g,
		events:     pub,
		locks:      newSessionLocks(),
		maxRetries: DefaultUpdateRetries,
	}
}

// SetUpdateRetries overrides the CAS retry bound. Values below 1 are
// ignored.
func (s *Service) SetUpdateRetries(n int) {
	if n >= 1 {
		s.maxRetries = n
	}
}

// CreateInput carries the caller-supplied fields of a new session.
type CreateInput struct {
	Name       string          `json:"name"`
	Goal       string          `json:"goal"`
	Repo       *domain.RepoRef `json:"repo,omitempty"`
	Repository string          `json:"repository,omitempty"`
}

// Create makes a new session in state "created" owned by userID.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*domain.AgentSession, error) {
	if err := s.gate.AssertNotKilled(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, apperr.Unauthorized("missing user identity")
	}
	if in.Goal == "" {
		return nil, apperr.Validation("goal", "must not be empty")
	}
	if in.Repo != nil && (in.Repo.Owner == "" || in.Repo.Name == "") {
		return nil, apperr.Validation("repo", "owner and name must not be empty")
	}

	now := time.Now()
	session := &domain.AgentSession{
		ID:         uuid.NewString(),
		UserID:     userID,
		Name:       in.Name,
		Goal:       in.Goal,
		Repo:       in.Repo,
		Repository: in.Repository,
		State:      domain.StateCreated,
		Messages:   []domain.Message{},
		Steps:      []domain.Step{},
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if session.Name == "" {
		session.Name = in.Goal
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, apperr.Internal(err)
	}

	slog.Info("session created", "user_id", userID, "session_id", session.ID)
	s.publish(session)
	return session, nil
}

// List returns all sessions owned by userID.
func (s *Service) List(ctx context.Context, userID string) ([]*domain.AgentSession, error) {
	if userID == "" {
		return nil, apperr.Unauthorized("missing user identity")
	}
	sessions, err := s.repo.ListSessions(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if sessions == nil {
		sessions = []*domain.AgentSession{}
	}
	return sessions, nil
}

// Get returns the session owned by userID. A session owned by someone
// else is reported as not found.
func (s *Service) Get(ctx context.Context, userID, sessionID string) (*domain.AgentSession, error) {
	if userID == "" {
		return nil, apperr.Unauthorized("missing user identity")
	}
	session, err := s.repo.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if session == nil {
		return nil, apperr.NotFoundf("session %s not found", sessionID)
	}
	return session, nil
}

// Update applies the given intents to the session atomically. Intents
// are applied in order against a fresh read; the write is guarded by
// the store's version CAS, so two concurrent updates can never both
// commit against the same observed state. The loser re-reads and
// retries up to the configured bound.
func (s *Service) Update(ctx context.Context, userID, sessionID string, updates ...Update) (*domain.AgentSession, error) {
	if err := s.gate.AssertNotKilled(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, apperr.Unauthorized("missing user identity")
	}
	if len(updates) == 0 {
		return nil, apperr.Validation("patch", "no recognized fields")
	}

	session, err := s.applyLocked(ctx, userID, sessionID, updates)
	if err != nil {
		return nil, err
	}

	// Publish only after the session lock is released so a slow
	// publisher never stalls the next writer.
	s.publish(session)
	return session, nil
}

func (s *Service) applyLocked(ctx context.Context, userID, sessionID string, updates []Update) (*domain.AgentSession, error) {
	unlock := s.locks.lock(userID, sessionID)
	defer unlock()

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		session, err := s.repo.GetSession(ctx, userID, sessionID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if session == nil {
			return nil, apperr.NotFoundf("session %s not found", sessionID)
		}

		now := time.Now()
		for _, u := range updates {
			if err := u.apply(session, now); err != nil {
				return nil, err
			}
		}
		session.UpdatedAt = now

		err = s.repo.UpdateSession(ctx, session)
		if errors.Is(err, store.ErrVersionConflict) {
			slog.Debug("session update lost version race, retrying",
				"user_id", userID, "session_id", sessionID, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, apperr.Internal(err)
		}

		return session, nil
	}

	return nil, apperr.Conflict("session " + sessionID + " is being updated concurrently")
}

// AddStep appends one pipeline-stage record and returns the full step
// timeline.
func (s *Service) AddStep(ctx context.Context, userID, sessionID string, in StepInput) ([]domain.Step, error) {
	session, err := s.Update(ctx, userID, sessionID, AppendStep{Step: in})
	if err != nil {
		return nil, err
	}
	return session.Steps, nil
}

// CloseStep records the terminal status of a previously started stage
// as a fresh timeline entry. Steps are immutable, so completion is an
// append, not an edit; a stage aborted by a caller timeout must be
// recorded failed rather than left dangling in "started".
func (s *Service) CloseStep(ctx context.Context, userID, sessionID string, stepType domain.StepType, status domain.StepStatus, meta map[string]string) ([]domain.Step, error) {
	if status != domain.StepSucceeded && status != domain.StepFailed {
		return nil, apperr.Validation("status", "close requires succeeded or failed")
	}
	return s.AddStep(ctx, userID, sessionID, StepInput{
		Type:   stepType,
		Status: status,
		Meta:   meta,
	})
}

func (s *Service) publish(session *domain.AgentSession) {
	if s.events != nil {
		s.events.SessionUpdated(session)
	}
}
