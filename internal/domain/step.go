package domain

import (
	"time"
)

// StepType identifies a pipeline stage. The pipeline runs
// plan -> context -> model -> diff -> apply, though stages may repeat
// (retried model calls, revised diffs).
type StepType string

const (
	StepPlan    StepType = "plan"
	StepContext StepType = "context"
	StepModel   StepType = "model"
	StepDiff    StepType = "diff"
	StepApply   StepType = "apply"
)

// Valid reports whether t is a known pipeline stage.
func (t StepType) Valid() bool {
	switch t {
	case StepPlan, StepContext, StepModel, StepDiff, StepApply:
		return true
	}
	return false
}

// StepStatus is the execution status of a step.
type StepStatus string

const (
	StepStarted   StepStatus = "started"
	StepSucceeded StepStatus = "succeeded"
	StepFailed    StepStatus = "failed"
)

// Valid reports whether st is a known step status.
func (st StepStatus) Valid() bool {
	switch st {
	case StepStarted, StepSucceeded, StepFailed:
		return true
	}
	return false
}

// Step is one recorded pipeline-stage execution. Steps are immutable
// once appended; a session's step sequence is a growing audit log,
// never reordered or edited.
type Step struct {
	ID        string            `json:"id"`
	SessionID string            `json:"sessionId"`
	Type      StepType          `json:"type"`
	Status    StepStatus        `json:"status"`
	StartedAt time.Time         `json:"startedAt"`
	EndedAt   *time.Time        `json:"endedAt,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
}
