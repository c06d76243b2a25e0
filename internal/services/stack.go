package services

import (
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"alfredoptarigan/assessment-engine/internal/config"
	"alfredoptarigan/assessment-engine/internal/logger"
)

// GenerationStack bundles the model-facing services built from configuration.
type GenerationStack struct {
	Generator TextGenerator // nil when no provider is configured
	Embedder  Embedder      // nil unless the gemini key is set
	Probe     AvailabilityProbe
	Spacer    RequestSpacer
	Bank      FallbackBank
	Tests     TestGenerator
	Evaluator AnswerEvaluator
	Scorer    ResumeScorer

	redis *redis.Client
}

// NewGenerationStack builds the generation services. With offline set, or
// without credentials for the configured provider, every test comes from the
// fallback bank and every verdict from the local rules.
func NewGenerationStack(cfg *config.Config, offline bool, log *zap.Logger) (*GenerationStack, error) {
	log = logger.OrNop(log)
	gen := cfg.Generation

	bank, err := NewFallbackBank()
	if err != nil {
		return nil, err
	}

	stack := &GenerationStack{Bank: bank}

	if !offline {
		if gen.GeminiAPIKey != "" {
			gemini, err := NewGeminiService(gen.GeminiAPIKey, gen.Model, gen.EmbeddingModel, log)
			if err != nil {
				return nil, fmt.Errorf("failed to initialize gemini: %w", err)
			}
			stack.Embedder = gemini
			if gen.Provider == ProviderGemini {
				stack.Generator = gemini
			}
		}
		if gen.Provider == ProviderOpenAI && gen.OpenAIAPIKey != "" {
			stack.Generator = NewOpenAIService(gen.OpenAIAPIKey, gen.OpenAIBaseURL, gen.Model, log)
		}
		if stack.Generator == nil {
			log.Warn("no credentials for generation provider, serving fallback tests only",
				zap.String(logger.FieldProvider, gen.Provider))
		}
	}

	stack.Probe = NewAvailabilityProbe(stack.Generator, gen.ProbeTimeout, log)

	switch cfg.RateLimit.Backend {
	case "redis":
		stack.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RateLimit.RedisPassword,
			DB:       cfg.RateLimit.RedisDB,
		})
		stack.Spacer = NewRedisSpacer(stack.redis, cfg.RateLimit.Key, gen.MinSpacing, log)
	default:
		stack.Spacer = NewIntervalSpacer(gen.MinSpacing)
	}

	stack.Tests = NewTestGenerator(
		stack.Generator,
		stack.Probe,
		stack.Spacer,
		NewUniquenessEvaluator(),
		bank,
		GeneratorOptions{
			MaxAttempts:     gen.MaxAttempts,
			RequestTimeout:  gen.RequestTimeout,
			EscalationModel: gen.EscalationModel,
			TopP:            gen.TopP,
			MaxOutputTokens: gen.MaxOutputTokens,
			StopSequences:   gen.StopSequences,
		},
		log,
	)
	stack.Evaluator = NewAnswerEvaluator(stack.Generator, stack.Spacer, gen.EvaluationTimeout, log)
	stack.Scorer = NewResumeScorer(stack.Generator, stack.Spacer, gen.EvaluationTimeout, log)

	return stack, nil
}

func (s *GenerationStack) Close() error {
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
