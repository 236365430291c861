package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"docpilot/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Failed to close store: %v", err)
		}
	})
	return repo
}

func newTestSession(id, userID string) *domain.AgentSession {
	now := time.Now().Truncate(time.Second)
	return &domain.AgentSession{
		ID:        id,
		UserID:    userID,
		Name:      "S1",
		Goal:      "G1",
		State:     domain.StateCreated,
		Messages:  []domain.Message{},
		Steps:     []domain.Step{},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSQLiteStore_CreateAndGet(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	session := newTestSession("sess-1", "user-1")
	session.Repo = &domain.RepoRef{Owner: "acme", Name: "website", BaseBranch: "main"}
	session.Repository = "acme/website-legacy"

	if err := repo.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := repo.GetSession(ctx, "user-1", "sess-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected session, got nil")
	}
	if got.Goal != "G1" || got.State != domain.StateCreated {
		t.Errorf("Unexpected session: %+v", got)
	}
	if got.Repo == nil || got.Repo.Owner != "acme" || got.Repo.BaseBranch != "main" {
		t.Errorf("Unexpected repo binding: %+v", got.Repo)
	}
	if got.Repository != "acme/website-legacy" {
		t.Errorf("Expected legacy repository field to round-trip, got %q", got.Repository)
	}
	if got.Version != 1 {
		t.Errorf("Expected version 1, got %d", got.Version)
	}
	if len(got.Messages) != 0 || len(got.Steps) != 0 {
		t.Errorf("Expected empty collections, got %d messages %d steps", len(got.Messages), len(got.Steps))
	}
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	repo := newTestStore(t)

	got, err := repo.GetSession(context.Background(), "user-1", "nope")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing session, got %+v", got)
	}
}

func TestSQLiteStore_GetCrossUser(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	if err := repo.CreateSession(ctx, newTestSession("sess-1", "owner")); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := repo.GetSession(ctx, "intruder", "sess-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got != nil {
		t.Error("Expected cross-user lookup to behave like non-existence")
	}
}

func TestSQLiteStore_List(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	a := newTestSession("sess-a", "user-1")
	a.UpdatedAt = time.Now().Add(-time.Hour)
	b := newTestSession("sess-b", "user-1")
	other := newTestSession("sess-c", "user-2")
	for _, s := range []*domain.AgentSession{a, b, other} {
		if err := repo.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	sessions, err := repo.ListSessions(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != "sess-b" {
		t.Errorf("Expected most recently updated first, got %s", sessions[0].ID)
	}
}

func TestSQLiteStore_UpdateRoundTrip(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	session := newTestSession("sess-1", "user-1")
	if err := repo.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	session.State = domain.StatePlanning
	session.AppendMessage(domain.RoleUser, "please fix the docs", time.Now())
	ended := time.Now().Truncate(time.Second)
	session.Steps = append(session.Steps, domain.Step{
		ID:        "step-1",
		SessionID: "sess-1",
		Type:      domain.StepPlan,
		Status:    domain.StepSucceeded,
		StartedAt: time.Now().Truncate(time.Second),
		EndedAt:   &ended,
		Meta:      map[string]string{"tokens": "123"},
	})
	session.UpdatedAt = time.Now()

	if err := repo.UpdateSession(ctx, session); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}
	if session.Version != 2 {
		t.Errorf("Expected version bump to 2, got %d", session.Version)
	}

	got, err := repo.GetSession(ctx, "user-1", "sess-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.State != domain.StatePlanning {
		t.Errorf("Expected state planning, got %s", got.State)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != domain.RoleUser {
		t.Errorf("Unexpected messages: %+v", got.Messages)
	}
	if len(got.Steps) != 1 || got.Steps[0].Meta["tokens"] != "123" {
		t.Errorf("Unexpected steps: %+v", got.Steps)
	}
	if got.Steps[0].EndedAt == nil {
		t.Error("Expected endedAt to round-trip")
	}
}

func TestSQLiteStore_UpdateVersionConflict(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	session := newTestSession("sess-1", "user-1")
	if err := repo.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	stale, err := repo.GetSession(ctx, "user-1", "sess-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}

	session.State = domain.StatePlanning
	if err := repo.UpdateSession(ctx, session); err != nil {
		t.Fatalf("First update failed: %v", err)
	}

	stale.Name = "renamed by loser"
	err = repo.UpdateSession(ctx, stale)
	if !errors.Is(err, ErrVersionConflict) {
		t.Errorf("Expected ErrVersionConflict, got %v", err)
	}

	got, err := repo.GetSession(ctx, "user-1", "sess-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Name == "renamed by loser" {
		t.Error("Expected losing write to be discarded")
	}
	if got.State != domain.StatePlanning {
		t.Error("Expected winning write to persist")
	}
}
