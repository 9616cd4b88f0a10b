package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/GPS-Demos/suny-ther-assist/domain/repositories"
)

var (
	_ repositories.Generator = &GeminiGenerator{}
	_ repositories.Generator = &MockGenerator{}
)

func TestValidateGeminiConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  GeminiConfig
		wantErr bool
	}{
		{"api key", GeminiConfig{APIKey: "k"}, false},
		{"vertex project", GeminiConfig{Project: "p", Location: "global"}, false},
		{"missing credentials", GeminiConfig{}, true},
		{"negative timeout", GeminiConfig{APIKey: "k", TimeoutSeconds: -1}, true},
		{"negative attempts", GeminiConfig{APIKey: "k", MaxAttempts: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateGeminiConfig(tt.config); (err != nil) != tt.wantErr {
				t.Errorf("ValidateGeminiConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateGenerationOptions(t *testing.T) {
	tests := []struct {
		name    string
		opts    repositories.GenerationOptions
		wantErr bool
	}{
		{"empty", repositories.GenerationOptions{}, false},
		{"full", repositories.GenerationOptions{Temperature: genai.Ptr[float32](0.3), MaxOutputTokens: 4096, SafetyThreshold: "OFF", ThinkingBudget: genai.Ptr[int32](8192)}, false},
		{"hot temperature", repositories.GenerationOptions{Temperature: genai.Ptr[float32](2.5)}, true},
		{"negative tokens", repositories.GenerationOptions{MaxOutputTokens: -5}, true},
		{"unknown threshold", repositories.GenerationOptions{SafetyThreshold: "SOMETIMES"}, true},
		{"bad thinking budget", repositories.GenerationOptions{ThinkingBudget: genai.Ptr[int32](-2)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGenerationOptions(tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateGenerationOptions() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, repositories.ErrInvalidOptions) {
				t.Errorf("Expected ErrInvalidOptions, got %v", err)
			}
		})
	}
}

func TestBuildContentConfig(t *testing.T) {
	config := buildContentConfig(repositories.GenerationOptions{
		Temperature:     genai.Ptr[float32](0.2),
		MaxOutputTokens: 2048,
		SafetyThreshold: "OFF",
		Datastores:      []string{"projects/p/locations/global/collections/default_collection/dataStores/ebt-corpus"},
		ThinkingBudget:  genai.Ptr[int32](0),
	})

	if *config.Temperature != 0.2 || config.MaxOutputTokens != 2048 {
		t.Errorf("Unexpected sampling config %+v", config)
	}
	if len(config.SafetySettings) != 4 {
		t.Fatalf("Expected 4 safety settings, got %d", len(config.SafetySettings))
	}
	for _, s := range config.SafetySettings {
		if s.Threshold != genai.HarmBlockThresholdOff {
			t.Errorf("Expected OFF threshold for %s, got %s", s.Category, s.Threshold)
		}
	}
	if len(config.Tools) != 1 || !strings.HasSuffix(config.Tools[0].Retrieval.VertexAISearch.Datastore, "ebt-corpus") {
		t.Errorf("Unexpected tools %+v", config.Tools)
	}
	if config.ThinkingConfig == nil || *config.ThinkingConfig.ThinkingBudget != 0 {
		t.Errorf("Expected zero thinking budget, got %+v", config.ThinkingConfig)
	}

	bare := buildContentConfig(repositories.GenerationOptions{})
	if bare.SafetySettings != nil || bare.Tools != nil || bare.ThinkingConfig != nil {
		t.Errorf("Expected provider defaults, got %+v", bare)
	}
}

func TestCitationsFromResponse(t *testing.T) {
	longText := strings.Repeat("a", 250)
	response := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			GroundingMetadata: &genai.GroundingMetadata{
				GroundingChunks: []*genai.GroundingChunk{
					{RetrievedContext: &genai.GroundingChunkRetrievedContext{
						Title: "CBT for Anxiety",
						URI:   "gs://ebt-corpus/cbt.pdf",
						Text:  longText,
						RAGChunk: &genai.RAGChunk{
							PageSpan: &genai.RAGChunkPageSpan{FirstPage: 12, LastPage: 13},
						},
					}},
					{RetrievedContext: &genai.GroundingChunkRetrievedContext{Text: "short"}},
					{},
				},
			},
		}},
	}

	citations := citationsFromResponse(response)
	if len(citations) != 3 {
		t.Fatalf("Expected 3 citations, got %d", len(citations))
	}

	first := citations[0]
	if first.CitationNumber != 1 || first.Source.Title != "CBT for Anxiety" || first.Source.URI != "gs://ebt-corpus/cbt.pdf" {
		t.Errorf("Unexpected first citation %+v", first.Source)
	}
	if len(first.Source.Excerpt) != 200 {
		t.Errorf("Expected 200 char excerpt, got %d", len(first.Source.Excerpt))
	}
	if first.Source.Pages == nil || first.Source.Pages.First != 12 || first.Source.Pages.Last != 13 {
		t.Errorf("Unexpected pages %+v", first.Source.Pages)
	}

	if citations[1].Source.Title != "EBT Manual" || citations[1].Source.Pages != nil {
		t.Errorf("Unexpected second citation %+v", citations[1].Source)
	}
	if citations[2].CitationNumber != 3 || citations[2].Source != nil {
		t.Errorf("Unexpected third citation %+v", citations[2])
	}

	if citationsFromResponse(&genai.GenerateContentResponse{}) != nil {
		t.Error("Expected no citations without candidates")
	}
}

func TestResponseTextSkipsThoughts(t *testing.T) {
	response := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: `{"a":`},
				{Text: `1}`},
			}},
		}},
	}
	if got := responseText(response); got != `{"a":1}` {
		t.Errorf("Expected joined text, got %q", got)
	}
}

func TestMockGeneratorStream(t *testing.T) {
	g := &MockGenerator{Response: "abcdefghij", ChunkSize: 4}

	var chunks []string
	generation, err := g.GenerateStream(context.Background(), "prompt", repositories.GenerationOptions{Datastores: []string{"ds"}}, func(c string) error {
		chunks = append(chunks, c)
		return nil
	})
	if err != nil {
		t.Fatalf("GenerateStream() error = %v", err)
	}
	if strings.Join(chunks, "|") != "abcd|efgh|ij" {
		t.Errorf("Unexpected chunks %v", chunks)
	}
	if generation.Text != "abcdefghij" || len(generation.Citations) != 1 {
		t.Errorf("Unexpected generation %+v", generation)
	}
}
