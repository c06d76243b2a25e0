package services

import (
	"context"
	"errors"
	"fmt"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// GenerationRequest carries one outbound request to the generation service.
// Zero values leave the provider default in place.
type GenerationRequest struct {
	Model           string
	Prompt          string
	Temperature     float64
	TopP            float64
	MaxOutputTokens int
	StopSequences   []string
	Seed            *int64
}

// TextGenerator is the generation service contract consumed by the engine.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	Ping(ctx context.Context) error
	Provider() string
	DefaultModel() string
}

// Embedder turns text into a vector for the corpus index.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// classifyGenerationError maps a transport error to the engine taxonomy.
func classifyGenerationError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrGenerationTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
}
