package entities

import "time"

// AudioChunk is one unit of raw audio bytes as received from the client
type AudioChunk struct {
	Data       []byte
	ReceivedAt time.Time
}

// EventKind classifies a transcript event
type EventKind string

const (
	EventPartial    EventKind = "partial"
	EventFinal      EventKind = "final"
	EventVoiceStart EventKind = "voice_start"
	EventVoiceEnd   EventKind = "voice_end"
	EventError      EventKind = "error"
)

// WordTiming holds word level timing of a final result. Offsets are in seconds.
type WordTiming struct {
	Word        string
	StartOffset float64
	EndOffset   float64
	Confidence  float64
	Speaker     int
}

// TranscriptEvent is produced by the recognition driver and never mutated afterwards.
// Text is empty for non-text kinds, Words is only set on final events and
// Error is only set on error events.
type TranscriptEvent struct {
	Kind            EventKind
	Text            string
	Confidence      float64
	ResultEndOffset float64
	Words           []WordTiming
	Error           string
	EmittedAt       time.Time
}

// IsFinal reports whether the event terminates an utterance
func (e TranscriptEvent) IsFinal() bool {
	return e.Kind == EventFinal
}

// NewErrorEvent wraps a provider failure as an error event
func NewErrorEvent(err error, now time.Time) TranscriptEvent {
	return TranscriptEvent{
		Kind:      EventError,
		Error:     err.Error(),
		EmittedAt: now,
	}
}

// ClampConfidence keeps a provider confidence score within [0, 1]
func ClampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}
