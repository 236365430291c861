package domain

import (
	"testing"
)

func TestState_Valid(t *testing.T) {
	for _, s := range []State{StateCreated, StatePlanning, StatePreviewReady,
		StateAwaitingApproval, StateApplying, StateApplied, StateFailed} {
		if !s.Valid() {
			t.Errorf("Expected %q to be valid", s)
		}
	}
	if State("deploying").Valid() {
		t.Error("Expected unknown state to be invalid")
	}
	if State("").Valid() {
		t.Error("Expected empty state to be invalid")
	}
}

func TestState_CanTransitionTo(t *testing.T) {
	legal := []struct{ from, to State }{
		{StateCreated, StatePlanning},
		{StatePlanning, StatePreviewReady},
		{StatePreviewReady, StateAwaitingApproval},
		{StateAwaitingApproval, StatePreviewReady}, // revision loop
		{StateAwaitingApproval, StateApplying},
		{StateApplying, StateApplied},
		{StateFailed, StatePlanning}, // retry
		{StateCreated, StateFailed},
		{StatePlanning, StateFailed},
		{StatePreviewReady, StateFailed},
		{StateAwaitingApproval, StateFailed},
		{StateApplying, StateFailed},
	}
	for _, tc := range legal {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Errorf("Expected %s -> %s to be legal", tc.from, tc.to)
		}
	}

	illegal := []struct{ from, to State }{
		{StateCreated, StateApplying}, // no direct jump
		{StateCreated, StatePreviewReady},
		{StateCreated, StateApplied},
		{StatePlanning, StateApplying},
		{StatePreviewReady, StateApplied},
		{StateApplied, StatePlanning}, // terminal
		{StateApplied, StateFailed},   // terminal, even to failed
		{StateApplied, StateApplied},
		{StateFailed, StatePreviewReady},
		{StatePlanning, State("deploying")},
		{State("deploying"), StateFailed},
	}
	for _, tc := range illegal {
		if tc.from.CanTransitionTo(tc.to) {
			t.Errorf("Expected %s -> %s to be illegal", tc.from, tc.to)
		}
	}
}

func TestState_Terminal(t *testing.T) {
	if !StateApplied.Terminal() {
		t.Error("Expected applied to be terminal")
	}
	if StateFailed.Terminal() {
		t.Error("Expected failed to be non-terminal")
	}
}
