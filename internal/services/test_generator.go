package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/assessment-engine/internal/logger"
	"alfredoptarigan/assessment-engine/internal/models"
)

const (
	DefaultMaxGenerationAttempts = 3
	DefaultGenerationTimeout     = 300 * time.Second

	baseTemperature      = 0.3
	temperatureStep      = 0.2
	maxTemperature       = 0.9
	escalateAfterAttempt = 2
)

var errDuplicateQuestionSet = errors.New("question set too similar to a prior test")

type generationState int

const (
	stateAttempting generationState = iota
	stateUnique
	stateExhausted
)

func (s generationState) String() string {
	switch s {
	case stateAttempting:
		return "attempting"
	case stateUnique:
		return "unique"
	case stateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// GenerationResult is a validated five-question test and how it was produced.
type GenerationResult struct {
	Questions []models.GeneratedQuestion
	Source    string
	Model     string
	Attempts  int
}

type GeneratorOptions struct {
	MaxAttempts     int
	RequestTimeout  time.Duration
	EscalationModel string
	TopP            float64
	MaxOutputTokens int
	StopSequences   []string
}

// TestGenerator produces a test for a job that is novel against the corpus.
type TestGenerator interface {
	Generate(ctx context.Context, job models.JobRequirement, corpus []QuestionSet) (*GenerationResult, error)
}

type testGenerator struct {
	generator     TextGenerator
	probe         AvailabilityProbe
	spacer        RequestSpacer
	uniqueness    UniquenessEvaluator
	bank          FallbackBank
	promptBuilder *PromptBuilder
	opts          GeneratorOptions
	newSeed       func() int64
	log           *zap.Logger
}

// NewTestGenerator wires the orchestrator. generator and probe may be nil, in
// which case every test comes from the fallback bank.
func NewTestGenerator(
	generator TextGenerator,
	probe AvailabilityProbe,
	spacer RequestSpacer,
	uniqueness UniquenessEvaluator,
	bank FallbackBank,
	opts GeneratorOptions,
	log *zap.Logger,
) TestGenerator {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxGenerationAttempts
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultGenerationTimeout
	}
	if spacer == nil {
		spacer = NewIntervalSpacer(DefaultMinSpacing)
	}
	if uniqueness == nil {
		uniqueness = NewUniquenessEvaluator()
	}
	if bank == nil {
		bank = MustFallbackBank()
	}

	return &testGenerator{
		generator:     generator,
		probe:         probe,
		spacer:        spacer,
		uniqueness:    uniqueness,
		bank:          bank,
		promptBuilder: NewPromptBuilder(),
		opts:          opts,
		newSeed:       func() int64 { return rand.Int64N(math.MaxInt32) },
		log:           logger.OrNop(log),
	}
}

// Generate always returns QuestionsPerTest valid questions unless job itself is invalid.
func (g *testGenerator) Generate(ctx context.Context, job models.JobRequirement, corpus []QuestionSet) (*GenerationResult, error) {
	if strings.TrimSpace(job.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidJobRequirement)
	}

	if !g.available(ctx) {
		g.log.Info("generation service unavailable, using fallback bank", zap.String("job_title", job.Title))
		return g.fallback(job, 1, 0), nil
	}

	// One base seed per run; attempt n samples with base+n.
	baseSeed := g.newSeed()
	state := stateAttempting
	n := 1
	var lastErr error
	for state == stateAttempting {
		questions, model, err := g.attempt(ctx, job, corpus, n, baseSeed+int64(n))
		if err == nil {
			state = stateUnique
			g.log.Info("generated unique test",
				zap.Int("attempt", n),
				zap.String(logger.FieldModel, model),
				zap.String("state", state.String()),
			)
			return &GenerationResult{
				Questions: questions,
				Source:    models.SourceAI,
				Model:     model,
				Attempts:  n,
			}, nil
		}

		lastErr = err
		g.log.Warn("generation attempt failed", zap.Int("attempt", n), zap.Error(err))

		if n >= g.opts.MaxAttempts || ctx.Err() != nil {
			state = stateExhausted
			continue
		}
		n++
	}

	if errors.Is(lastErr, errDuplicateQuestionSet) {
		lastErr = fmt.Errorf("%w: %v", ErrUniquenessExhausted, lastErr)
	}
	g.log.Info("generation budget exhausted, using fallback bank",
		zap.Int("attempts", n),
		zap.String("state", state.String()),
		zap.NamedError("last_error", lastErr),
	)
	return g.fallback(job, n, n), nil
}

func (g *testGenerator) available(ctx context.Context) bool {
	if g.generator == nil {
		return false
	}
	if g.probe == nil {
		return true
	}
	return g.probe.Available(ctx)
}

// attempt runs one generation attempt n (1-indexed) through parsing and the uniqueness check.
func (g *testGenerator) attempt(ctx context.Context, job models.JobRequirement, corpus []QuestionSet, n int, seed int64) ([]models.GeneratedQuestion, string, error) {
	model := g.modelFor(n)
	req := GenerationRequest{
		Model:           model,
		Prompt:          g.promptBuilder.BuildTestGenerationPrompt(job, n, len(corpus) > 0),
		Temperature:     temperatureFor(n),
		TopP:            g.opts.TopP,
		MaxOutputTokens: g.opts.MaxOutputTokens,
		StopSequences:   g.opts.StopSequences,
		Seed:            &seed,
	}

	if err := g.spacer.Wait(ctx); err != nil {
		return nil, model, fmt.Errorf("waiting for request slot: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, g.opts.RequestTimeout)
	defer cancel()

	g.log.Debug("generation attempt",
		zap.Int("attempt", n),
		zap.String(logger.FieldModel, model),
		zap.Float64("temperature", req.Temperature),
		zap.Int64("seed", seed),
		zap.Int("corpus_size", len(corpus)),
	)

	text, err := g.generator.Generate(reqCtx, req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrGenerationTimeout) {
			err = fmt.Errorf("%w: %v", ErrGenerationTimeout, err)
		}
		return nil, model, err
	}

	questions, err := ParseQuestions(text)
	if err != nil {
		return nil, model, err
	}

	if !g.uniqueness.IsUnique(questions, corpus) {
		return nil, model, errDuplicateQuestionSet
	}
	return questions, model, nil
}

// modelFor escalates to the alternate model once n passes escalateAfterAttempt.
func (g *testGenerator) modelFor(n int) string {
	if n > escalateAfterAttempt && g.opts.EscalationModel != "" {
		return g.opts.EscalationModel
	}
	return g.generator.DefaultModel()
}

func temperatureFor(n int) float64 {
	return math.Min(baseTemperature+temperatureStep*float64(n), maxTemperature)
}

func (g *testGenerator) fallback(job models.JobRequirement, seed, attempts int) *GenerationResult {
	return &GenerationResult{
		Questions: g.bank.Select(job, seed),
		Source:    models.SourceFallback,
		Attempts:  attempts,
	}
}
