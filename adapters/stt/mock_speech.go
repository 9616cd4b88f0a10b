package stt

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GPS-Demos/suny-ther-assist/domain/repositories"
)

const mockChunkDuration = 100 * time.Millisecond

var defaultUtterances = []string{
	"I have been feeling anxious before work",
	"it gets worse on Sunday evenings",
	"breathing exercises help a little",
}

// MockRecognizer replays scripted utterances, revealing one word every few chunks
type MockRecognizer struct {
	utterances    []string
	chunksPerWord int
	logger        *zap.Logger
}

// NewMockRecognizer creates a mock recognizer. Empty utterances use a default script.
func NewMockRecognizer(utterances []string, chunksPerWord int, logger *zap.Logger) *MockRecognizer {
	if len(utterances) == 0 {
		utterances = defaultUtterances
	}
	if chunksPerWord <= 0 {
		chunksPerWord = 3
	}
	return &MockRecognizer{
		utterances:    utterances,
		chunksPerWord: chunksPerWord,
		logger:        logger,
	}
}

// mockStream tracks the progress through the script for one stream
type mockStream struct {
	utterances    []string
	chunksPerWord int

	chunks    int
	utterance int
	revealed  int
	// offset of the current utterance's first word
	start time.Duration
}

// StreamingRecognize implements repositories.SpeechRecognizer
func (m *MockRecognizer) StreamingRecognize(ctx context.Context, cfg repositories.RecognitionConfig, source repositories.AudioSource, onResponse func(*repositories.RecognitionResponse) error) error {
	m.logger.Info("Starting mock streaming recognition",
		zap.String("model", cfg.Model),
		zap.Strings("languageCodes", cfg.LanguageCodes))

	s := &mockStream{utterances: m.utterances, chunksPerWord: m.chunksPerWord}
	for {
		_, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			if resp := s.flush(); resp != nil {
				if err := onResponse(resp); err != nil {
					return err
				}
			}
			m.logger.Info("Mock streaming recognition finished", zap.Int("chunks", s.chunks))
			return nil
		}
		if err != nil {
			return err
		}

		for _, resp := range s.advance(cfg) {
			if err := onResponse(resp); err != nil {
				return err
			}
		}
	}
}

func (s *mockStream) words() []string {
	return strings.Fields(s.utterances[s.utterance%len(s.utterances)])
}

// advance consumes one chunk and returns the responses it triggers
func (s *mockStream) advance(cfg repositories.RecognitionConfig) []*repositories.RecognitionResponse {
	s.chunks++
	if s.chunks%s.chunksPerWord != 0 {
		return nil
	}

	var out []*repositories.RecognitionResponse
	if s.revealed == 0 {
		s.start = s.offset()
		if cfg.VoiceActivityEvents {
			out = append(out, &repositories.RecognitionResponse{SpeechEvent: repositories.SpeechEventBegin})
		}
	}

	s.revealed++
	words := s.words()
	if s.revealed < len(words) {
		if cfg.InterimResults {
			out = append(out, s.result(words[:s.revealed], false))
		}
		return out
	}

	out = append(out, s.result(words, true))
	if cfg.VoiceActivityEvents {
		out = append(out, &repositories.RecognitionResponse{SpeechEvent: repositories.SpeechEventEnd})
	}
	s.utterance++
	s.revealed = 0
	return out
}

// flush finalizes a partially revealed utterance at end of stream
func (s *mockStream) flush() *repositories.RecognitionResponse {
	if s.revealed == 0 {
		return nil
	}
	resp := s.result(s.words()[:s.revealed], true)
	s.revealed = 0
	return resp
}

func (s *mockStream) offset() time.Duration {
	return time.Duration(s.chunks) * mockChunkDuration
}

func (s *mockStream) result(words []string, final bool) *repositories.RecognitionResponse {
	wordDuration := time.Duration(s.chunksPerWord) * mockChunkDuration
	alt := repositories.Alternative{
		Transcript: strings.Join(words, " "),
		Confidence: 0.6,
	}
	if final {
		alt.Confidence = 0.95
		for i, w := range words {
			start := s.start + time.Duration(i)*wordDuration
			alt.Words = append(alt.Words, repositories.WordInfo{
				Word:         w,
				StartOffset:  start,
				EndOffset:    start + wordDuration,
				Confidence:   0.95,
				SpeakerLabel: "1",
			})
		}
	}

	return &repositories.RecognitionResponse{Results: []repositories.RecognitionResult{{
		Alternatives:    []repositories.Alternative{alt},
		IsFinal:         final,
		ResultEndOffset: s.offset(),
	}}}
}
