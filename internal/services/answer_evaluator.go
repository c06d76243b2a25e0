package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"alfredoptarigan/assessment-engine/internal/logger"
	"alfredoptarigan/assessment-engine/internal/models"
)

const (
	DefaultEvaluationTimeout = 60 * time.Second

	// Heuristic verdict for coding answers when the model cannot judge them.
	FallbackMinCodingAnswerLength = 20
	FallbackCorrectScore          = 80.0
	FallbackIncorrectScore        = 20.0
	FallbackCodingFeedback        = "Automatic review was unavailable; this answer was scored on completeness only."

	codingEvaluationTemperature = 0.2
)

// EvaluationOutcome holds per-question verdicts and the aggregate percentage.
type EvaluationOutcome struct {
	Verdicts   []models.QuestionVerdict
	Percentage float64
}

// AnswerEvaluator grades submitted answers and completes the attempt.
type AnswerEvaluator interface {
	Evaluate(ctx context.Context, attempt *models.TestAttempt, answers []string) (*EvaluationOutcome, error)
}

type answerEvaluator struct {
	generator     TextGenerator
	spacer        RequestSpacer
	promptBuilder *PromptBuilder
	timeout       time.Duration
	now           func() time.Time
	log           *zap.Logger
}

// NewAnswerEvaluator builds an evaluator. generator may be nil, in which case
// coding answers always take the heuristic path. A nil spacer skips spacing.
func NewAnswerEvaluator(generator TextGenerator, spacer RequestSpacer, timeout time.Duration, log *zap.Logger) AnswerEvaluator {
	if timeout <= 0 {
		timeout = DefaultEvaluationTimeout
	}
	return &answerEvaluator{
		generator:     generator,
		spacer:        spacer,
		promptBuilder: NewPromptBuilder(),
		timeout:       timeout,
		now:           time.Now,
		log:           logger.OrNop(log),
	}
}

// Evaluate grades answers one at a time, records them on attempt and moves it to completed.
func (e *answerEvaluator) Evaluate(ctx context.Context, attempt *models.TestAttempt, answers []string) (*EvaluationOutcome, error) {
	if len(answers) != len(attempt.Questions) {
		return nil, fmt.Errorf("%w: got %d answers for %d questions",
			ErrAnswerCountMismatch, len(answers), len(attempt.Questions))
	}
	if attempt.Status == models.StatusCompleted {
		return nil, fmt.Errorf("%w: attempt %s is already completed", models.ErrInvalidStatusTransition, attempt.ID)
	}

	verdicts := make([]models.QuestionVerdict, 0, len(answers))
	correct := 0
	for i, q := range attempt.Questions {
		var v models.QuestionVerdict
		if q.Kind == models.KindCoding {
			v = e.judgeCoding(ctx, q, answers[i])
		} else {
			v = exactVerdict(q, answers[i])
		}
		v.Index = i
		if v.Correct {
			correct++
		}
		verdicts = append(verdicts, v)
	}

	percentage := 0.0
	if len(verdicts) > 0 {
		percentage = float64(correct) / float64(len(verdicts)) * 100
	}

	submitted := make([]string, len(answers))
	copy(submitted, answers)
	attempt.SubmittedAnswers = submitted
	attempt.Verdicts = verdicts
	attempt.Score = &percentage
	if err := attempt.Advance(models.StatusCompleted, e.now()); err != nil {
		return nil, err
	}

	e.log.Info("answers evaluated",
		zap.String("attempt_id", attempt.ID.String()),
		zap.Int("correct", correct),
		zap.Int("total", len(verdicts)),
		zap.Float64("percentage", percentage),
	)

	return &EvaluationOutcome{Verdicts: verdicts, Percentage: percentage}, nil
}

func exactVerdict(q models.GeneratedQuestion, answer string) models.QuestionVerdict {
	v := models.QuestionVerdict{Source: models.VerdictSourceExact}
	if answer == q.CorrectAnswer {
		v.Correct = true
		v.Score = 100
	}
	return v
}

func (e *answerEvaluator) judgeCoding(ctx context.Context, q models.GeneratedQuestion, answer string) models.QuestionVerdict {
	if e.generator == nil {
		return fallbackCodingVerdict(answer)
	}

	text, err := e.requestVerdict(ctx, q, answer)
	if err == nil {
		var v models.QuestionVerdict
		v, err = parseCodingVerdict(text)
		if err == nil {
			return v
		}
	}

	e.log.Warn("coding evaluation failed, using heuristic verdict",
		zap.Error(fmt.Errorf("%w: %v", ErrEvaluationService, err)))
	return fallbackCodingVerdict(answer)
}

func (e *answerEvaluator) requestVerdict(ctx context.Context, q models.GeneratedQuestion, answer string) (string, error) {
	if e.spacer != nil {
		if err := e.spacer.Wait(ctx); err != nil {
			return "", fmt.Errorf("waiting for request slot: %w", err)
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	return e.generator.Generate(reqCtx, GenerationRequest{
		Prompt:      e.promptBuilder.BuildCodingEvaluationPrompt(q, answer),
		Temperature: codingEvaluationTemperature,
	})
}

func parseCodingVerdict(text string) (models.QuestionVerdict, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &raw); err != nil {
		return models.QuestionVerdict{}, fmt.Errorf("%w: %v", ErrGenerationMalformedOutput, err)
	}

	correctVal, ok := firstPresent(raw, "correct", "is_correct", "isCorrect")
	if !ok {
		return models.QuestionVerdict{}, fmt.Errorf("%w: verdict has no correct field", ErrGenerationMalformedOutput)
	}

	v := models.QuestionVerdict{
		Correct: coerceBool(correctVal),
		Source:  models.VerdictSourceModel,
	}
	if fb, ok := firstPresent(raw, "feedback", "comment"); ok {
		v.Feedback = coerceString(fb)
	}

	score := math.NaN()
	if s, ok := raw["score"]; ok {
		score = coerceFloat(s)
	}
	if math.IsNaN(score) {
		score = 0
		if v.Correct {
			score = 100
		}
	}
	v.Score = math.Max(0, math.Min(100, score))
	return v, nil
}

func fallbackCodingVerdict(answer string) models.QuestionVerdict {
	correct := len([]rune(strings.TrimSpace(answer))) > FallbackMinCodingAnswerLength
	score := FallbackIncorrectScore
	if correct {
		score = FallbackCorrectScore
	}
	return models.QuestionVerdict{
		Correct:  correct,
		Feedback: FallbackCodingFeedback,
		Score:    score,
		Source:   models.VerdictSourceFallback,
	}
}
