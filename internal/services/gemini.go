package services

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"alfredoptarigan/assessment-engine/internal/logger"
)

const (
	defaultGeminiModel      = "gemini-2.5-flash"
	defaultGeminiEmbedModel = "text-embedding-004"

	// maxEmbeddingInput bounds embedding input to roughly 10k tokens.
	maxEmbeddingInput = 40000
)

type GeminiService interface {
	TextGenerator
	Embedder
}

type geminiService struct {
	client     *genai.Client
	modelName  string
	embedModel string
	log        *zap.Logger
}

func NewGeminiService(apiKey, modelName, embedModel string, log *zap.Logger) (GeminiService, error) {
	ctx := context.Background()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	if modelName == "" {
		modelName = defaultGeminiModel
	}
	if embedModel == "" {
		embedModel = defaultGeminiEmbedModel
	}

	return &geminiService{
		client:     client,
		modelName:  modelName,
		embedModel: embedModel,
		log:        logger.WithGeneration(logger.OrNop(log), ProviderGemini, modelName),
	}, nil
}

func (g *geminiService) Provider() string     { return ProviderGemini }
func (g *geminiService) DefaultModel() string { return g.modelName }

// Ping fetches model metadata, which is cheap and needs no generation quota.
func (g *geminiService) Ping(ctx context.Context) error {
	if _, err := g.client.Models.Get(ctx, g.modelName, nil); err != nil {
		return classifyGenerationError(ctx, err)
	}
	return nil
}

// GenerateEmbedding implements Embedder.
func (g *geminiService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if len(text) > maxEmbeddingInput {
		text = text[:maxEmbeddingInput]
	}

	result, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if result == nil || len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}

	return result.Embeddings[0].Values, nil
}

// Generate implements TextGenerator.
func (g *geminiService) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = g.modelName
	}

	temperature := float32(req.Temperature)
	config := &genai.GenerateContentConfig{
		Temperature:   &temperature,
		StopSequences: req.StopSequences,
	}
	if req.TopP > 0 {
		topP := float32(req.TopP)
		config.TopP = &topP
	}
	if req.MaxOutputTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxOutputTokens)
	}
	if req.Seed != nil {
		seed := int32(*req.Seed % math.MaxInt32)
		config.Seed = &seed
	}

	g.log.Debug("gemini request",
		zap.String("model", model),
		zap.Float64("temperature", req.Temperature),
		zap.Int("prompt_length", len(req.Prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(req.Prompt, logger.DefaultPreviewLength)),
	)

	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), config)
	if err != nil {
		g.log.Warn("gemini request failed", zap.String("model", model), zap.Error(err))
		return "", classifyGenerationError(ctx, err)
	}

	if resp == nil {
		return "", fmt.Errorf("%w: nil response", ErrGenerationMalformedOutput)
	}

	text := resp.Text()
	g.log.Debug("gemini response",
		zap.String("model", model),
		zap.Int("response_length", len(text)),
		zap.String("response_preview", logger.TruncateForLog(text, logger.DefaultPreviewLength)),
	)

	return text, nil
}
