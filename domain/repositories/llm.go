package repositories

import (
	"context"
	"errors"

	"github.com/GPS-Demos/suny-ther-assist/domain/entities"
)

// ErrInvalidOptions is returned for out of range generation options
var ErrInvalidOptions = errors.New("invalid generation options")

// GenerationOptions are the structured options of one generation request
type GenerationOptions struct {
	Temperature     *float32 `json:"temperature,omitempty"`
	MaxOutputTokens int32    `json:"max_output_tokens,omitempty"`
	// SafetyThreshold applies to every harm category, e.g. "OFF" or "BLOCK_ONLY_HIGH"
	SafetyThreshold string `json:"safety_threshold,omitempty"`
	// Datastores lists the retrieval corpora the model may ground on
	Datastores     []string `json:"datastores,omitempty"`
	ThinkingBudget *int32   `json:"thinking_budget,omitempty"`
}

// Generation is the result of a generation request
type Generation struct {
	Text      string              `json:"text"`
	Citations []entities.Citation `json:"citations,omitempty"`
}

// Generator abstracts generative text providers
type Generator interface {
	// Generate takes a prompt and returns the complete model reply
	Generate(ctx context.Context, prompt string, opts GenerationOptions) (*Generation, error)
	// GenerateStream calls onChunk for every text increment and returns the aggregated reply
	GenerateStream(ctx context.Context, prompt string, opts GenerationOptions, onChunk func(chunk string) error) (*Generation, error)
}
