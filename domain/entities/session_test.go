package entities

import (
	"strings"
	"testing"
	"time"
)

func TestSessionCreation(t *testing.T) {
	session := NewSession("test-session-123")

	if session.ID != "test-session-123" {
		t.Errorf("Expected session ID %s, got %s", "test-session-123", session.ID)
	}

	if session.State != SessionStateInitializing {
		t.Errorf("Expected state %s, got %s", SessionStateInitializing, session.State)
	}

	if session.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}
}

func TestSessionTransitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []SessionState
		wantErr bool
	}{
		{"graceful stop", []SessionState{SessionStateActive, SessionStateStopping, SessionStateClosed}, false},
		{"provider failure", []SessionState{SessionStateActive, SessionStateClosed}, false},
		{"open failure", []SessionState{SessionStateClosed}, false},
		{"skip activation", []SessionState{SessionStateStopping}, true},
		{"reopen closed", []SessionState{SessionStateActive, SessionStateClosed, SessionStateActive}, true},
		{"stop twice", []SessionState{SessionStateActive, SessionStateStopping, SessionStateStopping}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := NewSession("s")
			var err error
			for _, state := range tt.path {
				if err = session.Transition(state); err != nil {
					break
				}
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("Transition() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSessionIsClosed(t *testing.T) {
	session := NewSession("s")
	if session.IsClosed() {
		t.Error("New session should not be closed")
	}

	_ = session.Transition(SessionStateActive)
	_ = session.Transition(SessionStateClosed)
	if !session.IsClosed() {
		t.Error("Session should be closed")
	}
}

func TestGenerateSessionID(t *testing.T) {
	now := time.Date(2025, 3, 7, 9, 5, 2, 0, time.Local)
	if got := GenerateSessionID(now); got != "20250307-090502" {
		t.Errorf("Expected 20250307-090502, got %s", got)
	}

	if err := ValidateSessionID(GenerateSessionID(time.Now())); err != nil {
		t.Errorf("Generated session ID should be valid, got: %v", err)
	}
}

func TestValidateSessionID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"session-1", false},
		{"20250307-090502", false},
		{"room:42.b_c", false},
		{"", true},
		{"has space", true},
		{"slash/inside", true},
		{strings.Repeat("a", 128), false},
		{strings.Repeat("a", 129), true},
	}

	for _, tt := range tests {
		if err := ValidateSessionID(tt.id); (err != nil) != tt.wantErr {
			t.Errorf("ValidateSessionID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
		}
	}
}

func TestClampConfidence(t *testing.T) {
	tests := map[float64]float64{-0.5: 0, 0: 0, 0.42: 0.42, 1: 1, 1.7: 1}
	for in, want := range tests {
		if got := ClampConfidence(in); got != want {
			t.Errorf("ClampConfidence(%v) = %v, want %v", in, got, want)
		}
	}
}
