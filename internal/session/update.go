package session

import (
	"time"

	"github.com/google/uuid"

	"docpilot/internal/apperr"
	"docpilot/internal/domain"
)

// Update is one intent applied to a session inside the per-session
// critical section. The closed set of implementations replaces the
// loosely-typed patch bag of the original API while the HTTP layer
// keeps decoding the same JSON shape.
type Update interface {
	apply(session *domain.AgentSession, now time.Time) error
}

// SetState requests a lifecycle transition, validated against the
// state machine.
type SetState struct {
	State domain.State
}

func (u SetState) apply(session *domain.AgentSession, _ time.Time) error {
	if !u.State.Valid() {
		return apperr.Validation("state", "unknown state "+string(u.State))
	}
	if !session.State.CanTransitionTo(u.State) {
		return apperr.InvalidTransition(string(session.State), string(u.State))
	}
	session.State = u.State
	return nil
}

// Rename changes the session's display name.
type Rename struct {
	Name string
}

func (u Rename) apply(session *domain.AgentSession, _ time.Time) error {
	if u.Name == "" {
		return apperr.Validation("name", "must not be empty")
	}
	session.Name = u.Name
	return nil
}

// AppendMessages appends conversation messages in the given order.
type AppendMessages struct {
	Messages []domain.Message
}

func (u AppendMessages) apply(session *domain.AgentSession, now time.Time) error {
	for _, msg := range u.Messages {
		if msg.Role != domain.RoleUser && msg.Role != domain.RoleAssistant {
			return apperr.Validation("messages", "unknown role "+string(msg.Role))
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = now
		}
		session.Messages = append(session.Messages, msg)
	}
	return nil
}

// StepInput is the caller-supplied portion of a step record.
type StepInput struct {
	Type      domain.StepType   `json:"type"`
	Status    domain.StepStatus `json:"status"`
	StartedAt time.Time         `json:"startedAt"`
	EndedAt   *time.Time        `json:"endedAt,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// AppendStep appends a pipeline-stage record to the step timeline.
// The step type is informational: an apply step is accepted in any
// lifecycle state, the timeline is an audit log.
type AppendStep struct {
	Step StepInput
}

func (u AppendStep) apply(session *domain.AgentSession, now time.Time) error {
	step, err := u.Step.build(session.ID, now)
	if err != nil {
		return err
	}
	session.Steps = append(session.Steps, step)
	return nil
}

func (in StepInput) build(sessionID string, now time.Time) (domain.Step, error) {
	if !in.Type.Valid() {
		return domain.Step{}, apperr.Validation("type", "unknown step type "+string(in.Type))
	}
	status := in.Status
	if status == "" {
		status = domain.StepStarted
	}
	if !status.Valid() {
		return domain.Step{}, apperr.Validation("status", "unknown step status "+string(in.Status))
	}

	startedAt := in.StartedAt
	if startedAt.IsZero() {
		startedAt = now
	}

	endedAt := in.EndedAt
	// A step that already left "started" must carry an end time so it
	// is never observed dangling.
	if endedAt == nil && status != domain.StepStarted {
		t := now
		endedAt = &t
	}

	return domain.Step{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Type:      in.Type,
		Status:    status,
		StartedAt: startedAt,
		EndedAt:   endedAt,
		Meta:      in.Meta,
	}, nil
}

// SetPreview records the preview artifact once the pipeline produced
// one.
type SetPreview struct {
	PreviewID  string
	HeadBranch string
}

func (u SetPreview) apply(session *domain.AgentSession, _ time.Time) error {
	if u.PreviewID == "" {
		return apperr.Validation("previewId", "must not be empty")
	}
	session.PreviewID = u.PreviewID
	if u.HeadBranch != "" {
		session.HeadBranch = u.HeadBranch
	}
	return nil
}

// SetPullRequest records the pull request opened by the apply stage.
type SetPullRequest struct {
	PR domain.PullRequest
}

func (u SetPullRequest) apply(session *domain.AgentSession, _ time.Time) error {
	if u.PR.URL == "" {
		return apperr.Validation("pr", "url must not be empty")
	}
	pr := u.PR
	session.PR = &pr
	return nil
}
