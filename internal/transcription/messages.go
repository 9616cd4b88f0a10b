package transcription

import (
	"time"

	"github.com/GPS-Demos/suny-ther-assist/domain/entities"
)

// MessageType defines the type of a relay message
type MessageType string

// Supported message types
const (
	MessageTypeReady       MessageType = "ready"
	MessageTypeTranscript  MessageType = "transcript"
	MessageTypeSpeechEvent MessageType = "speech_event"
	MessageTypeError       MessageType = "error"
	MessageTypeStop        MessageType = "stop"
	MessageTypeAudio       MessageType = "audio"
)

// Speech activity event names
const (
	SpeechStart = "speech_start"
	SpeechEnd   = "speech_end"
)

// Handshake is the first message a client sends
type Handshake struct {
	SessionID string         `json:"session_id,omitempty"`
	Config    map[string]any `json:"config,omitempty"`
}

// ControlMessage is a JSON text frame sent during an active session
type ControlMessage struct {
	Type MessageType `json:"type"`
	// Data is base64 audio for MessageTypeAudio
	Data string `json:"data,omitempty"`
}

// BaseMessage defines the common structure for all outbound messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp"`
}

// ReadyConfig carries the negotiated audio parameters
type ReadyConfig struct {
	SampleRate      int           `json:"sample_rate"`
	Encoding        string        `json:"encoding"`
	ChunkDurationMs int           `json:"chunk_duration_ms"`
	Features        ReadyFeatures `json:"features"`
}

// ReadyFeatures lists the enabled recognition features
type ReadyFeatures struct {
	InterimResults bool `json:"interim_results"`
}

// ReadyMessage acknowledges the handshake
type ReadyMessage struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Timestamp string      `json:"timestamp"`
	Config    ReadyConfig `json:"config"`
}

// TranscriptMessage is a partial transcript
type TranscriptMessage struct {
	BaseMessage
	Transcript      string  `json:"transcript"`
	Confidence      float64 `json:"confidence"`
	IsFinal         bool    `json:"is_final"`
	ResultEndOffset float64 `json:"result_end_offset"`
}

// FinalTranscriptMessage is a final transcript, always carrying the words field
type FinalTranscriptMessage struct {
	TranscriptMessage
	Words []WordMessage `json:"words"`
}

// WordMessage is the wire form of a word timing
type WordMessage struct {
	Word       string  `json:"word"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	Confidence float64 `json:"confidence"`
	Speaker    int     `json:"speaker"`
}

// SpeechEventMessage marks detected start or end of speech
type SpeechEventMessage struct {
	BaseMessage
	Event string `json:"event"`
}

// ErrorMessage reports an unrecoverable provider error
type ErrorMessage struct {
	BaseMessage
	Error string `json:"error"`
}

// NewReadyMessage creates the handshake acknowledgement
func NewReadyMessage(sessionID string, cfg ReadyConfig, now time.Time) *ReadyMessage {
	return &ReadyMessage{
		Type:      MessageTypeReady,
		SessionID: sessionID,
		Timestamp: entities.FormatTimestamp(now),
		Config:    cfg,
	}
}

// NewOutboundMessage maps a transcript event to its wire message
func NewOutboundMessage(ev entities.TranscriptEvent) any {
	base := BaseMessage{Timestamp: entities.FormatTimestamp(ev.EmittedAt)}

	switch ev.Kind {
	case entities.EventPartial, entities.EventFinal:
		base.Type = MessageTypeTranscript
		msg := TranscriptMessage{
			BaseMessage:     base,
			Transcript:      ev.Text,
			Confidence:      ev.Confidence,
			IsFinal:         ev.IsFinal(),
			ResultEndOffset: ev.ResultEndOffset,
		}
		if !ev.IsFinal() {
			return &msg
		}
		words := make([]WordMessage, 0, len(ev.Words))
		for _, w := range ev.Words {
			words = append(words, WordMessage{
				Word:       w.Word,
				StartTime:  w.StartOffset,
				EndTime:    w.EndOffset,
				Confidence: w.Confidence,
				Speaker:    w.Speaker,
			})
		}
		return &FinalTranscriptMessage{TranscriptMessage: msg, Words: words}

	case entities.EventVoiceStart, entities.EventVoiceEnd:
		base.Type = MessageTypeSpeechEvent
		event := SpeechStart
		if ev.Kind == entities.EventVoiceEnd {
			event = SpeechEnd
		}
		return &SpeechEventMessage{BaseMessage: base, Event: event}

	default:
		base.Type = MessageTypeError
		return &ErrorMessage{BaseMessage: base, Error: ev.Error}
	}
}
