package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"github.com/GPS-Demos/suny-ther-assist/domain/entities"
	"github.com/GPS-Demos/suny-ther-assist/domain/repositories"
)

// ErrEmptyPrompt is returned when a generation request carries no prompt
var ErrEmptyPrompt = errors.New("prompt is required")

// ParseFailureMessage is reported when the model reply holds no JSON object
const ParseFailureMessage = "Failed to parse analysis response"

// first '{' through last '}', across lines
var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// GenerationRequest is one prompt plus its options
type GenerationRequest struct {
	Prompt  string                         `json:"prompt"`
	Options repositories.GenerationOptions `json:"options"`
	Stream  bool                           `json:"stream,omitempty"`
}

// AnalysisResult is the JSON object extracted from a model reply, enriched
// with a timestamp and the retrieval citations
type AnalysisResult map[string]any

// Failed reports whether the reply could not be parsed
func (r AnalysisResult) Failed() bool {
	_, failed := r["error"]
	return failed
}

// GenerationService turns model replies into structured analysis results
type GenerationService struct {
	generator  repositories.Generator
	datastores []string
	logger     *zap.Logger
	now        func() time.Time
}

// NewGenerationService creates a new generation service
func NewGenerationService(generator repositories.Generator, logger *zap.Logger) *GenerationService {
	return &GenerationService{
		generator: generator,
		logger:    logger,
		now:       time.Now,
	}
}

// WithDatastores sets the retrieval corpora used when a request names none
func (s *GenerationService) WithDatastores(datastores []string) *GenerationService {
	s.datastores = datastores
	return s
}

// Analyze runs a single generation and parses its reply. Provider failures
// are returned as errors; unparseable replies yield a failed result.
func (s *GenerationService) Analyze(ctx context.Context, req GenerationRequest) (AnalysisResult, error) {
	if req.Prompt == "" {
		return nil, ErrEmptyPrompt
	}

	generation, err := s.generator.Generate(ctx, req.Prompt, s.options(req))
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	return s.parse(generation), nil
}

// AnalyzeStream is Analyze with every text increment passed to onChunk
func (s *GenerationService) AnalyzeStream(ctx context.Context, req GenerationRequest, onChunk func(chunk string) error) (AnalysisResult, error) {
	if req.Prompt == "" {
		return nil, ErrEmptyPrompt
	}

	generation, err := s.generator.GenerateStream(ctx, req.Prompt, s.options(req), onChunk)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}

	s.logger.Info("Streaming complete",
		zap.Int("characters", len(generation.Text)),
		zap.Int("citations", len(generation.Citations)))

	return s.parse(generation), nil
}

func (s *GenerationService) options(req GenerationRequest) repositories.GenerationOptions {
	opts := req.Options
	if len(opts.Datastores) == 0 {
		opts.Datastores = s.datastores
	}
	return opts
}

func (s *GenerationService) parse(generation *repositories.Generation) AnalysisResult {
	match := jsonObjectPattern.FindString(generation.Text)
	if match == "" {
		s.logger.Error("No JSON found in response", zap.String("response", preview(generation.Text)))
		return AnalysisResult{"error": ParseFailureMessage}
	}

	var result AnalysisResult
	if err := json.Unmarshal([]byte(match), &result); err != nil {
		s.logger.Error("JSON decode error", zap.Error(err), zap.String("response", preview(generation.Text)))
		return AnalysisResult{"error": fmt.Sprintf("JSON parsing failed: %v", err)}
	}

	result["timestamp"] = entities.FormatTimestamp(s.now())
	if len(generation.Citations) > 0 {
		result["citations"] = generation.Citations
	}
	return result
}

// preview cuts text to 500 runes for logging
func preview(text string) string {
	runes := []rune(text)
	if len(runes) > 500 {
		return string(runes[:500]) + "..."
	}
	return text
}
