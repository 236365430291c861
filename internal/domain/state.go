package domain

// State is a session lifecycle state.
type State string

const (
	StateCreated          State = "created"
	StatePlanning         State = "planning"
	StatePreviewReady     State = "preview_ready"
	StateAwaitingApproval State = "awaiting_approval"
	StateApplying         State = "applying"
	StateApplied          State = "applied"
	StateFailed           State = "failed"
)

// Valid reports whether s is one of the seven lifecycle states.
func (s State) Valid() bool {
	switch s {
	case StateCreated, StatePlanning, StatePreviewReady, StateAwaitingApproval,
		StateApplying, StateApplied, StateFailed:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s State) Terminal() bool {
	return s == StateApplied
}

// transitions holds the explicit forward edges of the lifecycle.
// Every non-terminal state additionally admits a transition to failed;
// that edge lives in CanTransitionTo rather than in this table.
var transitions = map[State][]State{
	StateCreated:          {StatePlanning},
	StatePlanning:         {StatePreviewReady},
	StatePreviewReady:     {StateAwaitingApproval},
	StateAwaitingApproval: {StatePreviewReady, StateApplying},
	StateApplying:         {StateApplied},
	StateApplied:          {},
	StateFailed:           {StatePlanning},
}

// CanTransitionTo reports whether the edge s -> next is legal.
func (s State) CanTransitionTo(next State) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	if s.Terminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
