package llm

import (
	"context"
	"strings"

	"github.com/GPS-Demos/suny-ther-assist/domain/entities"
	"github.com/GPS-Demos/suny-ther-assist/domain/repositories"
)

const mockResponse = `{"summary": "Client reports anticipatory anxiety before work [1].", "alerts": [], "techniques_detected": ["psychoeducation"]}`

// MockGenerator is a placeholder implementation of the Generator interface
type MockGenerator struct {
	// Response overrides the canned reply
	Response string
	// ChunkSize controls how GenerateStream splits the reply
	ChunkSize int
}

// NewMockGenerator creates a new mock generator
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{Response: mockResponse, ChunkSize: 16}
}

// Generate implements repositories.Generator
func (g *MockGenerator) Generate(ctx context.Context, prompt string, opts repositories.GenerationOptions) (*repositories.Generation, error) {
	if err := ValidateGenerationOptions(opts); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &repositories.Generation{Text: g.Response, Citations: g.citations(opts)}, nil
}

// GenerateStream implements repositories.Generator
func (g *MockGenerator) GenerateStream(ctx context.Context, prompt string, opts repositories.GenerationOptions, onChunk func(chunk string) error) (*repositories.Generation, error) {
	if err := ValidateGenerationOptions(opts); err != nil {
		return nil, err
	}

	size := g.ChunkSize
	if size <= 0 {
		size = len(g.Response)
	}

	var text strings.Builder
	for start := 0; start < len(g.Response); start += size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+size, len(g.Response))
		chunk := g.Response[start:end]
		text.WriteString(chunk)
		if err := onChunk(chunk); err != nil {
			return nil, err
		}
	}

	return &repositories.Generation{Text: text.String(), Citations: g.citations(opts)}, nil
}

// citations returns one citation per datastore when retrieval is enabled
func (g *MockGenerator) citations(opts repositories.GenerationOptions) []entities.Citation {
	var citations []entities.Citation
	for idx, datastore := range opts.Datastores {
		citations = append(citations, entities.Citation{
			CitationNumber: idx + 1,
			Source: &entities.CitationSource{
				Title:   defaultCitationTitle,
				URI:     datastore,
				Excerpt: "Mock retrieved passage",
				Pages:   &entities.PageRange{First: 1, Last: 1},
			},
		})
	}
	return citations
}
