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

// Heuristic scoring constants.
const (
	HeuristicBaseScore       = 50.0
	HeuristicSkillBonus      = 10.0
	HeuristicExperienceBonus = 15.0

	resumeScoringTemperature = 0.3
)

// ExperienceKeywords mark a resume as describing work experience. Matching is a
// plain substring test, so "ans" also matches inside longer words.
var ExperienceKeywords = []string{"experience", "années", "years", "ans"}

// ResumeScorer decides how well a resume fits a job. It never fails.
type ResumeScorer interface {
	Score(ctx context.Context, resumeText string, job models.JobRequirement) models.ResumeAnalysisResult
}

type resumeScorer struct {
	generator     TextGenerator
	spacer        RequestSpacer
	promptBuilder *PromptBuilder
	chunker       TextChunker
	timeout       time.Duration
	log           *zap.Logger
}

// NewResumeScorer builds a scorer. generator may be nil, in which case every
// resume is scored heuristically. A nil spacer skips spacing.
func NewResumeScorer(generator TextGenerator, spacer RequestSpacer, timeout time.Duration, log *zap.Logger) ResumeScorer {
	if timeout <= 0 {
		timeout = DefaultEvaluationTimeout
	}
	return &resumeScorer{
		generator:     generator,
		spacer:        spacer,
		promptBuilder: NewPromptBuilder(),
		chunker:       NewTextChunker(),
		timeout:       timeout,
		log:           logger.OrNop(log),
	}
}

func (s *resumeScorer) Score(ctx context.Context, resumeText string, job models.JobRequirement) models.ResumeAnalysisResult {
	if s.generator != nil {
		result, err := s.scoreWithModel(ctx, resumeText, job)
		if err == nil {
			return result
		}
		s.log.Warn("resume scoring failed, using heuristic", zap.String("job_title", job.Title), zap.Error(err))
	}
	return HeuristicResumeScore(resumeText, job)
}

func (s *resumeScorer) scoreWithModel(ctx context.Context, resumeText string, job models.JobRequirement) (models.ResumeAnalysisResult, error) {
	if s.spacer != nil {
		if err := s.spacer.Wait(ctx); err != nil {
			return models.ResumeAnalysisResult{}, fmt.Errorf("waiting for request slot: %w", err)
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	excerpt := s.chunker.Excerpt(resumeText, maxResumePromptRunes)
	text, err := s.generator.Generate(reqCtx, GenerationRequest{
		Prompt:      s.promptBuilder.BuildResumeScoringPrompt(excerpt, job),
		Temperature: resumeScoringTemperature,
	})
	if err != nil {
		return models.ResumeAnalysisResult{}, err
	}
	return parseResumeScore(text)
}

// parseResumeScore reads the model verdict. The model's own match flag is
// ignored; match is always score >= MatchThreshold.
func parseResumeScore(text string) (models.ResumeAnalysisResult, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &raw); err != nil {
		return models.ResumeAnalysisResult{}, fmt.Errorf("%w: %v", ErrGenerationMalformedOutput, err)
	}

	scoreVal, ok := firstPresent(raw, "score", "fit_score", "match_score")
	if !ok {
		return models.ResumeAnalysisResult{}, fmt.Errorf("%w: no score field", ErrGenerationMalformedOutput)
	}
	score := coerceFloat(scoreVal)
	if math.IsNaN(score) {
		return models.ResumeAnalysisResult{}, fmt.Errorf("%w: score %v is not a number", ErrGenerationMalformedOutput, scoreVal)
	}
	score = clampScore(score)

	result := models.ResumeAnalysisResult{
		Score:         score,
		Match:         score >= models.MatchThreshold,
		MissingSkills: []string{},
		Source:        models.AnalysisSourceAI,
	}
	if fb, ok := firstPresent(raw, "feedback", "summary"); ok {
		result.Feedback = coerceString(fb)
	}
	if ms, ok := firstPresent(raw, "missing_skills", "missingSkills"); ok {
		if skills := coerceStringSlice(ms); skills != nil {
			result.MissingSkills = skills
		}
	}
	return result, nil
}

// HeuristicResumeScore scores a resume without the model: base 50, +10 per
// required skill found, +15 when an experience keyword appears, clamped to 0..100.
func HeuristicResumeScore(resumeText string, job models.JobRequirement) models.ResumeAnalysisResult {
	lowerText := strings.ToLower(resumeText)

	score := HeuristicBaseScore
	found := []string{}
	missing := []string{}
	for _, skill := range job.RequiredSkills {
		needle := strings.ToLower(strings.TrimSpace(skill))
		if needle == "" {
			continue
		}
		if strings.Contains(lowerText, needle) {
			found = append(found, skill)
			score += HeuristicSkillBonus
		} else {
			missing = append(missing, skill)
		}
	}

	for _, kw := range ExperienceKeywords {
		if strings.Contains(lowerText, kw) {
			score += HeuristicExperienceBonus
			break
		}
	}

	score = clampScore(score)
	return models.ResumeAnalysisResult{
		Score:         score,
		Match:         score >= models.MatchThreshold,
		Feedback:      heuristicFeedback(found, missing),
		MissingSkills: missing,
		Source:        models.AnalysisSourceHeuristic,
	}
}

func heuristicFeedback(found, missing []string) string {
	total := len(found) + len(missing)
	if total == 0 {
		return "The job lists no required skills to check the resume against."
	}
	if len(missing) == 0 {
		return fmt.Sprintf("The resume mentions all %d required skills.", total)
	}
	return fmt.Sprintf("The resume mentions %d of %d required skills; missing: %s.",
		len(found), total, strings.Join(missing, ", "))
}

func clampScore(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}
