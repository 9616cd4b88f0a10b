package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"go.uber.org/zap/zaptest"

	"github.com/GPS-Demos/suny-ther-assist/domain/entities"
	"github.com/GPS-Demos/suny-ther-assist/domain/repositories"
)

type stubGenerator struct {
	text      string
	citations []entities.Citation
	chunks    []string
	err       error
	prompt    string
	opts      repositories.GenerationOptions
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string, opts repositories.GenerationOptions) (*repositories.Generation, error) {
	g.prompt = prompt
	g.opts = opts
	if g.err != nil {
		return nil, g.err
	}
	return &repositories.Generation{Text: g.text, Citations: g.citations}, nil
}

func (g *stubGenerator) GenerateStream(ctx context.Context, prompt string, opts repositories.GenerationOptions, onChunk func(string) error) (*repositories.Generation, error) {
	g.prompt = prompt
	if g.err != nil {
		return nil, g.err
	}
	for _, c := range g.chunks {
		if err := onChunk(c); err != nil {
			return nil, err
		}
	}
	return &repositories.Generation{Text: g.text, Citations: g.citations}, nil
}

func newTestService(t *testing.T, gen repositories.Generator) *GenerationService {
	s := NewGenerationService(gen, zaptest.NewLogger(t))
	s.now = func() time.Time { return time.Date(2025, 3, 7, 9, 5, 2, 123456000, time.Local) }
	return s
}

func TestAnalyze_ExtractsJSON(t *testing.T) {
	gen := &stubGenerator{
		text: "Here is the analysis:\n```json\n{\"alerts\": [],\n \"summary\": \"ok\"}\n```",
		citations: []entities.Citation{
			{CitationNumber: 1, Source: &entities.CitationSource{Title: "EBT Manual"}},
		},
	}
	s := newTestService(t, gen)

	result, err := s.Analyze(context.Background(), GenerationRequest{Prompt: "analyze"})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if result.Failed() {
		t.Fatalf("Expected success, got %v", result)
	}
	if result["summary"] != "ok" {
		t.Errorf("Expected summary ok, got %v", result["summary"])
	}
	if result["timestamp"] != "2025-03-07T09:05:02.123456" {
		t.Errorf("Unexpected timestamp %v", result["timestamp"])
	}
	citations, ok := result["citations"].([]entities.Citation)
	if !ok || len(citations) != 1 {
		t.Errorf("Expected one citation, got %v", result["citations"])
	}
	if gen.prompt != "analyze" {
		t.Errorf("Prompt not forwarded: %q", gen.prompt)
	}
}

func TestAnalyze_NoCitations(t *testing.T) {
	s := newTestService(t, &stubGenerator{text: `{"a": 1}`})

	result, err := s.Analyze(context.Background(), GenerationRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if _, ok := result["citations"]; ok {
		t.Errorf("Expected no citations key, got %v", result)
	}
}

func TestAnalyze_ParseFailures(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"no json", "I cannot help with that.", ParseFailureMessage},
		{"broken json", "{not json}", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(t, &stubGenerator{text: tt.text})

			result, err := s.Analyze(context.Background(), GenerationRequest{Prompt: "p"})
			if err != nil {
				t.Fatalf("Analyze() error = %v", err)
			}
			if !result.Failed() {
				t.Fatalf("Expected failed result, got %v", result)
			}
			if tt.want != "" && result["error"] != tt.want {
				t.Errorf("Expected error %q, got %v", tt.want, result["error"])
			}
		})
	}
}

func TestAnalyze_Errors(t *testing.T) {
	s := newTestService(t, &stubGenerator{err: errors.New("quota exceeded")})

	if _, err := s.Analyze(context.Background(), GenerationRequest{}); !errors.Is(err, ErrEmptyPrompt) {
		t.Errorf("Expected ErrEmptyPrompt, got %v", err)
	}
	if _, err := s.Analyze(context.Background(), GenerationRequest{Prompt: "p"}); err == nil {
		t.Error("Expected provider error")
	}
}

func TestAnalyzeStream(t *testing.T) {
	gen := &stubGenerator{
		text:   `{"alerts": []}`,
		chunks: []string{`{"alerts"`, `: []}`},
	}
	s := newTestService(t, gen)

	var got []string
	result, err := s.AnalyzeStream(context.Background(), GenerationRequest{Prompt: "p", Stream: true}, func(chunk string) error {
		got = append(got, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("AnalyzeStream() error = %v", err)
	}
	if len(got) != 2 || got[0] != `{"alerts"` {
		t.Errorf("Unexpected chunks %v", got)
	}
	if result.Failed() {
		t.Errorf("Expected success, got %v", result)
	}
}

func TestAnalyze_DefaultDatastores(t *testing.T) {
	gen := &stubGenerator{text: `{}`}
	s := newTestService(t, gen).WithDatastores([]string{"ds/ebt-corpus"})

	if _, err := s.Analyze(context.Background(), GenerationRequest{Prompt: "p"}); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(gen.opts.Datastores) != 1 || gen.opts.Datastores[0] != "ds/ebt-corpus" {
		t.Errorf("Expected default datastore, got %v", gen.opts.Datastores)
	}

	req := GenerationRequest{Prompt: "p", Options: repositories.GenerationOptions{Datastores: []string{"ds/other"}}}
	if _, err := s.Analyze(context.Background(), req); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if gen.opts.Datastores[0] != "ds/other" {
		t.Errorf("Expected request datastore to win, got %v", gen.opts.Datastores)
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"short", "hello", "hello"},
		{"exact", strings.Repeat("a", 500), strings.Repeat("a", 500)},
		{"ascii cut", strings.Repeat("a", 501), strings.Repeat("a", 500) + "..."},
		{"multibyte cut", strings.Repeat("é", 600), strings.Repeat("é", 500) + "..."},
		{"multibyte under limit", strings.Repeat("治", 400), strings.Repeat("治", 400)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := preview(tt.text)
			if got != tt.want {
				t.Errorf("preview() returned %d runes, want %d", utf8.RuneCountInString(got), utf8.RuneCountInString(tt.want))
			}
			if !utf8.ValidString(got) {
				t.Error("preview() split a multibyte character")
			}
		})
	}
}
