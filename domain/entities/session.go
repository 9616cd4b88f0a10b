package entities

import (
	"fmt"
	"regexp"
	"time"
)

// SessionState represents the lifecycle state of a transcription session
type SessionState string

const (
	SessionStateInitializing SessionState = "initializing"
	SessionStateActive       SessionState = "active"
	SessionStateStopping     SessionState = "stopping"
	SessionStateClosed       SessionState = "closed"
)

// SessionIDLayout is the layout used for server generated session identifiers
const SessionIDLayout = "20060102-150405"

// TimestampLayout is ISO 8601 local time with microseconds and no zone
const TimestampLayout = "2006-01-02T15:04:05.000000"

// FormatTimestamp formats t for wire messages
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

const maxSessionIDLength = 128

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]+$`)

// Session represents one logical transcription conversation bound to one client connection
type Session struct {
	ID        string       `json:"id"`
	State     SessionState `json:"state"`
	CreatedAt time.Time    `json:"created_at"`
}

// NewSession creates a session in the initializing state
func NewSession(id string) *Session {
	return &Session{
		ID:        id,
		State:     SessionStateInitializing,
		CreatedAt: time.Now(),
	}
}

// allowed transitions, keyed by the current state
var sessionTransitions = map[SessionState][]SessionState{
	SessionStateInitializing: {SessionStateActive, SessionStateClosed},
	SessionStateActive:       {SessionStateStopping, SessionStateClosed},
	SessionStateStopping:     {SessionStateClosed},
}

// CanTransition reports whether the session may move to the given state
func (s *Session) CanTransition(to SessionState) bool {
	for _, next := range sessionTransitions[s.State] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves the session to the given state
func (s *Session) Transition(to SessionState) error {
	if !s.CanTransition(to) {
		return fmt.Errorf("invalid session transition from %s to %s", s.State, to)
	}
	s.State = to
	return nil
}

// IsClosed reports whether the session reached its terminal state
func (s *Session) IsClosed() bool {
	return s.State == SessionStateClosed
}

// GenerateSessionID returns a timestamp based identifier, e.g. 20250102-150405
func GenerateSessionID(now time.Time) string {
	return now.Format(SessionIDLayout)
}

// ValidateSessionID checks a client supplied session identifier
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session_id is empty")
	}
	if len(id) > maxSessionIDLength {
		return fmt.Errorf("session_id must be at most %d characters", maxSessionIDLength)
	}
	if !sessionIDPattern.MatchString(id) {
		return fmt.Errorf("session_id contains invalid characters")
	}
	return nil
}
