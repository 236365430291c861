// Package domain contains core domain types for docpilot.
package domain

import (
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a session's conversation log.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// RepoRef is the authoritative binding of a session to a repository.
type RepoRef struct {
	Owner      string `json:"owner"`
	Name       string `json:"name"`
	BaseBranch string `json:"baseBranch"`
}

// PullRequest records the pull request opened during apply.
type PullRequest struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
	Head   string `json:"head"`
	Base   string `json:"base"`
}

// AgentSession is one agent task execution bound to a goal and,
// optionally, a repository.
//
// Messages and Steps are append-only; insertion order is conversation
// order and execution order respectively. UserID never changes after
// creation. Version backs optimistic locking in the store and is not
// part of the wire shape.
type AgentSession struct {
	ID     string   `json:"id"`
	UserID string   `json:"userId"`
	Name   string   `json:"name"`
	Goal   string   `json:"goal"`
	Repo   *RepoRef `json:"repo,omitempty"`
	// Repository is a legacy free-text binding kept for old records.
	// Never authoritative when Repo is set.
	Repository string       `json:"repository,omitempty"`
	State      State        `json:"state"`
	Messages   []Message    `json:"messages"`
	Steps      []Step       `json:"steps"`
	PreviewID  string       `json:"previewId,omitempty"`
	PR         *PullRequest `json:"pr,omitempty"`
	HeadBranch string       `json:"headBranch,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
	Version    int64        `json:"-"`
}

// RepoFullName returns "owner/name" from the authoritative binding,
// falling back to the legacy free-text field for old records.
func (s *AgentSession) RepoFullName() string {
	if s.Repo != nil {
		return s.Repo.Owner + "/" + s.Repo.Name
	}
	return s.Repository
}

// AppendMessage adds a message to the conversation log.
func (s *AgentSession) AppendMessage(role Role, content string, at time.Time) {
	s.Messages = append(s.Messages, Message{Role: role, Content: content, Timestamp: at})
}
