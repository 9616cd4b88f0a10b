package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/GPS-Demos/suny-ther-assist/domain/entities"
	"github.com/GPS-Demos/suny-ther-assist/domain/repositories"
)

const (
	defaultCitationTitle = "EBT Manual"
	maxExcerptLength     = 200
)

// ErrEmptyResponse is returned when the model produced no text
var ErrEmptyResponse = errors.New("no content generated")

// GeminiGenerator implements the Generator interface using Google's Gemini models
type GeminiGenerator struct {
	client      *genai.Client
	logger      *zap.Logger
	model       string
	timeout     time.Duration
	maxAttempts int
}

// NewGeminiGenerator creates a new Gemini generator
func NewGeminiGenerator(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiGenerator, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.APIKey == "" {
		location := config.Location
		if location == "" {
			location = defaultLocation
		}
		clientConfig = &genai.ClientConfig{
			Project:  config.Project,
			Location: location,
			Backend:  genai.BackendVertexAI,
		}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = defaultModel
		logger.Info("Using default model", zap.String("model", model))
	}

	timeoutSeconds := config.TimeoutSeconds
	if timeoutSeconds == 0 {
		timeoutSeconds = defaultTimeoutSeconds
	}

	maxAttempts := config.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &GeminiGenerator{
		client:      client,
		logger:      logger,
		model:       model,
		timeout:     time.Duration(timeoutSeconds) * time.Second,
		maxAttempts: maxAttempts,
	}, nil
}

// Generate implements repositories.Generator
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, opts repositories.GenerationOptions) (*repositories.Generation, error) {
	if err := ValidateGenerationOptions(opts); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	config := buildContentConfig(opts)

	var response *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		response, err = g.client.Models.GenerateContent(ctx, g.model, contents, config)
		if err == nil {
			break
		}

		g.logger.Warn("Failed to generate content, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err))

		if attempt < g.maxAttempts-1 {
			select {
			case <-time.After(time.Duration(attempt+1) * time.Second):
			case <-ctx.Done():
				return nil, fmt.Errorf("failed to generate content: %w", ctx.Err())
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	text := responseText(response)
	if text == "" {
		return nil, ErrEmptyResponse
	}

	generation := &repositories.Generation{
		Text:      text,
		Citations: citationsFromResponse(response),
	}

	g.logger.Info("Generated content",
		zap.String("model", g.model),
		zap.Int("length", len(text)),
		zap.Int("citations", len(generation.Citations)))

	return generation, nil
}

// GenerateStream implements repositories.Generator. Streams are not retried once started.
func (g *GeminiGenerator) GenerateStream(ctx context.Context, prompt string, opts repositories.GenerationOptions, onChunk func(chunk string) error) (*repositories.Generation, error) {
	if err := ValidateGenerationOptions(opts); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	var text strings.Builder
	var citations []entities.Citation
	chunks := 0
	for response, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, buildContentConfig(opts)) {
		if err != nil {
			return nil, fmt.Errorf("failed to stream content: %w", err)
		}
		chunks++

		if chunk := responseText(response); chunk != "" {
			text.WriteString(chunk)
			if err := onChunk(chunk); err != nil {
				return nil, err
			}
		}

		// grounding metadata usually arrives with the last chunk
		if c := citationsFromResponse(response); len(c) > 0 {
			citations = c
		}
	}

	if text.Len() == 0 {
		return nil, ErrEmptyResponse
	}

	g.logger.Info("Streaming complete",
		zap.String("model", g.model),
		zap.Int("chunks", chunks),
		zap.Int("length", text.Len()),
		zap.Int("citations", len(citations)))

	return &repositories.Generation{Text: text.String(), Citations: citations}, nil
}

// responseText concatenates the text parts of the first candidate
func responseText(response *genai.GenerateContentResponse) string {
	if response == nil || len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return ""
	}

	var text strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			text.WriteString(part.Text)
		}
	}
	return text.String()
}

// citationsFromResponse maps grounding chunks to numbered citations, [1] being the first chunk
func citationsFromResponse(response *genai.GenerateContentResponse) []entities.Citation {
	if response == nil || len(response.Candidates) == 0 {
		return nil
	}
	metadata := response.Candidates[0].GroundingMetadata
	if metadata == nil || len(metadata.GroundingChunks) == 0 {
		return nil
	}

	citations := make([]entities.Citation, 0, len(metadata.GroundingChunks))
	for idx, chunk := range metadata.GroundingChunks {
		citation := entities.Citation{CitationNumber: idx + 1}

		if chunk != nil && chunk.RetrievedContext != nil {
			rc := chunk.RetrievedContext
			source := &entities.CitationSource{
				Title:   rc.Title,
				URI:     rc.URI,
				Excerpt: truncate(rc.Text, maxExcerptLength),
			}
			if source.Title == "" {
				source.Title = defaultCitationTitle
			}
			if rc.RAGChunk != nil && rc.RAGChunk.PageSpan != nil {
				source.Pages = &entities.PageRange{
					First: int(rc.RAGChunk.PageSpan.FirstPage),
					Last:  int(rc.RAGChunk.PageSpan.LastPage),
				}
			}
			citation.Source = source
		}

		citations = append(citations, citation)
	}
	return citations
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
