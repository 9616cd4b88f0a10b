package repositories

import (
	"context"
	"time"
)

// RecognitionConfig is the session configuration sent to the recognizer before any audio
type RecognitionConfig struct {
	LanguageCodes        []string      `json:"language_codes" yaml:"language_codes"`
	Model                string        `json:"model" yaml:"model"`
	InterimResults       bool          `json:"interim_results" yaml:"interim_results"`
	VoiceActivityEvents  bool          `json:"voice_activity_events" yaml:"voice_activity_events"`
	SpeechStartTimeout   time.Duration `json:"speech_start_timeout" yaml:"speech_start_timeout"`
	SpeechEndTimeout     time.Duration `json:"speech_end_timeout" yaml:"speech_end_timeout"`
	AutomaticPunctuation bool          `json:"automatic_punctuation" yaml:"automatic_punctuation"`
	ProfanityFilter      bool          `json:"profanity_filter" yaml:"profanity_filter"`
	WordTimeOffsets      bool          `json:"word_time_offsets" yaml:"word_time_offsets"`
	WordConfidence       bool          `json:"word_confidence" yaml:"word_confidence"`
	MaxAlternatives      int32         `json:"max_alternatives" yaml:"max_alternatives"`
}

// AudioSource supplies audio to a streaming recognition call in arrival order.
// Next blocks until a chunk is available and returns io.EOF once the stream has ended.
type AudioSource interface {
	Next(ctx context.Context) ([]byte, error)
}

// SpeechEvent is a voice activity marker emitted by the recognizer
type SpeechEvent int

const (
	SpeechEventNone SpeechEvent = iota
	SpeechEventBegin
	SpeechEventEnd
)

// WordInfo is provider word level output
type WordInfo struct {
	Word         string
	StartOffset  time.Duration
	EndOffset    time.Duration
	Confidence   float32
	SpeakerLabel string
}

// Alternative is one recognition hypothesis
type Alternative struct {
	Transcript string
	Confidence float32
	Words      []WordInfo
}

// RecognitionResult is one result of a streaming response
type RecognitionResult struct {
	Alternatives    []Alternative
	IsFinal         bool
	ResultEndOffset time.Duration
}

// RecognitionResponse is one streaming response from the recognizer
type RecognitionResponse struct {
	Results     []RecognitionResult
	SpeechEvent SpeechEvent
}

// SpeechRecognizer abstracts streaming speech recognition services
type SpeechRecognizer interface {
	// StreamingRecognize sends cfg followed by audio pulled from source and calls
	// onResponse for every provider response in the order received. It blocks
	// until the provider finishes the stream, onResponse fails or ctx is done.
	StreamingRecognize(ctx context.Context, cfg RecognitionConfig, source AudioSource, onResponse func(*RecognitionResponse) error) error
}

// HealthChecker is implemented by providers that can probe their backend
type HealthChecker interface {
	Ping(ctx context.Context) error
}
