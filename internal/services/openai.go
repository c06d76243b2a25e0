package services

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"alfredoptarigan/assessment-engine/internal/logger"
)

const defaultOpenAIModel = "gpt-4o-mini"

type openAIService struct {
	client    openai.Client
	modelName string
	log       *zap.Logger
}

// NewOpenAIService builds a TextGenerator over any OpenAI-compatible chat endpoint.
func NewOpenAIService(apiKey, baseURL, modelName string, log *zap.Logger) TextGenerator {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if modelName == "" {
		modelName = defaultOpenAIModel
	}

	return &openAIService{
		client:    openai.NewClient(opts...),
		modelName: modelName,
		log:       logger.WithGeneration(logger.OrNop(log), ProviderOpenAI, modelName),
	}
}

func (o *openAIService) Provider() string     { return ProviderOpenAI }
func (o *openAIService) DefaultModel() string { return o.modelName }

func (o *openAIService) Ping(ctx context.Context) error {
	if _, err := o.client.Models.Get(ctx, o.modelName); err != nil {
		return classifyGenerationError(ctx, err)
	}
	return nil
}

func (o *openAIService) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = o.modelName
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.TopP > 0 {
		params.TopP = openai.Float(req.TopP)
	}
	if req.MaxOutputTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxOutputTokens))
	}
	if req.Seed != nil {
		params.Seed = openai.Int(*req.Seed)
	}
	if len(req.StopSequences) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{OfStringArray: req.StopSequences}
	}

	o.log.Debug("openai request",
		zap.String("model", model),
		zap.Float64("temperature", req.Temperature),
		zap.Int("prompt_length", len(req.Prompt)),
		zap.String("prompt_preview", logger.TruncateForLog(req.Prompt, logger.DefaultPreviewLength)),
	)

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		o.log.Warn("openai request failed", zap.String("model", model), zap.Error(err))
		return "", classifyGenerationError(ctx, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrGenerationMalformedOutput)
	}

	text := resp.Choices[0].Message.Content
	o.log.Debug("openai response",
		zap.String("model", model),
		zap.Int("response_length", len(text)),
		zap.String("response_preview", logger.TruncateForLog(text, logger.DefaultPreviewLength)),
	)

	return text, nil
}
