package llm

import (
	"fmt"

	"google.golang.org/genai"

	"github.com/GPS-Demos/suny-ther-assist/domain/repositories"
)

const (
	defaultModel          = "gemini-2.5-flash"
	defaultLocation       = "global"
	defaultTimeoutSeconds = 120
	defaultMaxAttempts    = 3
)

// GeminiConfig configures the Gemini client
type GeminiConfig struct {
	// APIKey selects the Gemini API backend; otherwise Vertex AI is used with Project and Location
	APIKey         string
	Project        string
	Location       string
	Model          string
	TimeoutSeconds int
	MaxAttempts    int
}

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" && config.Project == "" {
		return fmt.Errorf("either a Gemini API key or a Google Cloud project is required")
	}

	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}

	if config.MaxAttempts < 0 {
		return fmt.Errorf("max attempts must be positive, got %d", config.MaxAttempts)
	}

	return nil
}

// ValidateGenerationOptions validates per request options
func ValidateGenerationOptions(opts repositories.GenerationOptions) error {
	if opts.Temperature != nil && (*opts.Temperature < 0 || *opts.Temperature > 2) {
		return fmt.Errorf("%w: temperature must be between 0 and 2, got %f", repositories.ErrInvalidOptions, *opts.Temperature)
	}

	if opts.MaxOutputTokens < 0 {
		return fmt.Errorf("%w: max_output_tokens must be positive, got %d", repositories.ErrInvalidOptions, opts.MaxOutputTokens)
	}

	if opts.ThinkingBudget != nil && *opts.ThinkingBudget < -1 {
		return fmt.Errorf("%w: thinking_budget must be -1 (dynamic) or greater, got %d", repositories.ErrInvalidOptions, *opts.ThinkingBudget)
	}

	if opts.SafetyThreshold != "" {
		if _, ok := safetyThresholds[opts.SafetyThreshold]; !ok {
			return fmt.Errorf("%w: unsupported safety_threshold %q", repositories.ErrInvalidOptions, opts.SafetyThreshold)
		}
	}

	return nil
}

var safetyThresholds = map[string]genai.HarmBlockThreshold{
	"OFF":                    genai.HarmBlockThresholdOff,
	"BLOCK_NONE":             genai.HarmBlockThresholdBlockNone,
	"BLOCK_ONLY_HIGH":        genai.HarmBlockThresholdBlockOnlyHigh,
	"BLOCK_MEDIUM_AND_ABOVE": genai.HarmBlockThresholdBlockMediumAndAbove,
	"BLOCK_LOW_AND_ABOVE":    genai.HarmBlockThresholdBlockLowAndAbove,
}

// safetyCategories receive the same threshold
var safetyCategories = []genai.HarmCategory{
	genai.HarmCategoryHarassment,
	genai.HarmCategoryHateSpeech,
	genai.HarmCategorySexuallyExplicit,
	genai.HarmCategoryDangerousContent,
}

// buildContentConfig converts generation options to the Gemini request config
func buildContentConfig(opts repositories.GenerationOptions) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature:     opts.Temperature,
		MaxOutputTokens: opts.MaxOutputTokens,
	}

	if threshold, ok := safetyThresholds[opts.SafetyThreshold]; ok {
		for _, category := range safetyCategories {
			config.SafetySettings = append(config.SafetySettings, &genai.SafetySetting{
				Category:  category,
				Threshold: threshold,
			})
		}
	}

	for _, datastore := range opts.Datastores {
		config.Tools = append(config.Tools, &genai.Tool{
			Retrieval: &genai.Retrieval{
				VertexAISearch: &genai.VertexAISearch{Datastore: datastore},
			},
		})
	}

	if opts.ThinkingBudget != nil {
		config.ThinkingConfig = &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(*opts.ThinkingBudget),
		}
	}

	return config
}
