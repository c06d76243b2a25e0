package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/assessment-engine/internal/logger"
	"alfredoptarigan/assessment-engine/internal/models"
	"alfredoptarigan/assessment-engine/internal/repositories"
)

// TestIndexer records issued tests in a secondary corpus index.
type TestIndexer interface {
	IndexTest(ctx context.Context, attempt *models.TestAttempt, job models.JobRequirement) error
	DeleteTest(ctx context.Context, attemptID uuid.UUID) error
}

// AssessmentService drives the assessment workflow for applications.
type AssessmentService interface {
	GenerateTestForApplication(ctx context.Context, applicationID uuid.UUID) (*models.TestAttempt, error)
	GetTest(ctx context.Context, attemptID uuid.UUID) (*models.TestAttempt, error)
	StartTest(ctx context.Context, attemptID uuid.UUID) (*models.TestAttempt, error)
	SubmitAnswers(ctx context.Context, attemptID uuid.UUID, answers []string) (*models.TestAttempt, *EvaluationOutcome, error)

	RequestResumeAnalysis(ctx context.Context, applicationID uuid.UUID) error
	AnalyzeResume(ctx context.Context, applicationID uuid.UUID) error
	GetResumeAnalysis(ctx context.Context, applicationID uuid.UUID) (*models.Application, *models.ResumeAnalysis, error)

	CompleteCategoryAssessment(ctx context.Context, id uuid.UUID, set models.CategoryScoreSet) (*models.CategoryAssessment, error)
}

type AssessmentDeps struct {
	Applications repositories.ApplicationRepository
	Attempts     repositories.TestAttemptRepository
	Analyses     repositories.ResumeAnalysisRepository
	Assessments  repositories.CategoryAssessmentRepository

	Generator TestGenerator
	Evaluator AnswerEvaluator
	Scorer    ResumeScorer
	Extractor ResumeTextExtractor
	Corpus    CorpusSource
	Indexer   TestIndexer // optional
}

type assessmentService struct {
	deps AssessmentDeps
	now  func() time.Time
	log  *zap.Logger
}

func NewAssessmentService(deps AssessmentDeps, log *zap.Logger) AssessmentService {
	return &assessmentService{
		deps: deps,
		now:  time.Now,
		log:  logger.OrNop(log),
	}
}

// GenerateTestForApplication issues a test for a shortlisted application. A
// test that was generated but not started is replaced wholesale.
func (s *assessmentService) GenerateTestForApplication(ctx context.Context, applicationID uuid.UUID) (*models.TestAttempt, error) {
	app, err := s.deps.Applications.FindByID(applicationID)
	if err != nil {
		return nil, err
	}
	if app.Status != models.ApplicationShortlisted {
		return nil, fmt.Errorf("%w: application %s is %s", ErrApplicationNotEligible, app.ID, app.Status)
	}

	previous, err := s.deps.Attempts.FindByApplicationID(app.ID)
	switch {
	case err == nil && previous.Status != models.StatusCreated:
		return nil, fmt.Errorf("%w: attempt %s is %s", ErrAttemptAlreadyStarted, previous.ID, previous.Status)
	case err != nil && !errors.Is(err, repositories.ErrNotFound):
		return nil, err
	}

	job := app.Job.Requirement()
	corpus, err := s.deps.Corpus.PriorQuestionSets(ctx, job, app.CandidateID)
	if err != nil {
		s.log.Warn("test corpus unavailable, generating without uniqueness history",
			zap.String("application_id", app.ID.String()), zap.Error(err))
		corpus = nil
	}

	result, err := s.deps.Generator.Generate(ctx, job, corpus)
	if err != nil {
		return nil, err
	}

	now := s.now()
	attempt := &models.TestAttempt{
		ID:                 uuid.New(),
		ApplicationID:      app.ID,
		CandidateID:        app.CandidateID,
		JobID:              app.JobID,
		Questions:          result.Questions,
		Status:             models.StatusCreated,
		Source:             result.Source,
		Model:              result.Model,
		GenerationAttempts: result.Attempts,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.deps.Attempts.Replace(attempt); err != nil {
		return nil, err
	}

	s.log.Info("test issued",
		zap.String("application_id", app.ID.String()),
		zap.String("attempt_id", attempt.ID.String()),
		zap.String("source", attempt.Source),
		zap.Int("corpus_size", len(corpus)),
	)

	s.indexTest(ctx, attempt, job, previous)
	return attempt, nil
}

// indexTest is best effort: the index only narrows future corpus reads.
func (s *assessmentService) indexTest(ctx context.Context, attempt *models.TestAttempt, job models.JobRequirement, replaced *models.TestAttempt) {
	if s.deps.Indexer == nil {
		return
	}
	if replaced != nil {
		if err := s.deps.Indexer.DeleteTest(ctx, replaced.ID); err != nil {
			s.log.Warn("failed to remove replaced test from index", zap.String("attempt_id", replaced.ID.String()), zap.Error(err))
		}
	}
	if err := s.deps.Indexer.IndexTest(ctx, attempt, job); err != nil {
		s.log.Warn("failed to index test", zap.String("attempt_id", attempt.ID.String()), zap.Error(err))
	}
}

func (s *assessmentService) GetTest(_ context.Context, attemptID uuid.UUID) (*models.TestAttempt, error) {
	return s.deps.Attempts.FindByID(attemptID)
}

func (s *assessmentService) StartTest(_ context.Context, attemptID uuid.UUID) (*models.TestAttempt, error) {
	attempt, err := s.deps.Attempts.FindByID(attemptID)
	if err != nil {
		return nil, err
	}
	if err := attempt.Advance(models.StatusInProgress, s.now()); err != nil {
		return nil, err
	}
	if err := s.deps.Attempts.Save(attempt); err != nil {
		return nil, err
	}
	return attempt, nil
}

func (s *assessmentService) SubmitAnswers(ctx context.Context, attemptID uuid.UUID, answers []string) (*models.TestAttempt, *EvaluationOutcome, error) {
	attempt, err := s.deps.Attempts.FindByID(attemptID)
	if err != nil {
		return nil, nil, err
	}

	outcome, err := s.deps.Evaluator.Evaluate(ctx, attempt, answers)
	if err != nil {
		return nil, nil, err
	}
	if err := s.deps.Attempts.Save(attempt); err != nil {
		return nil, nil, err
	}
	return attempt, outcome, nil
}

// RequestResumeAnalysis puts the application back in the analysis queue.
func (s *assessmentService) RequestResumeAnalysis(_ context.Context, applicationID uuid.UUID) error {
	app, err := s.deps.Applications.FindByID(applicationID)
	if err != nil {
		return err
	}
	if app.ResumeRef == "" {
		return fmt.Errorf("%w: application %s", ErrResumeMissing, app.ID)
	}
	if app.Status == models.ApplicationAnalyzing || app.Status == models.ApplicationPending {
		return nil
	}
	return s.deps.Applications.UpdateStatus(app.ID, models.ApplicationPending)
}

// AnalyzeResume scores a pending application's resume and shortlists or
// rejects it. Scoring never fails; only reading the resume can.
func (s *assessmentService) AnalyzeResume(ctx context.Context, applicationID uuid.UUID) error {
	claimed, err := s.deps.Applications.ClaimForAnalysis(applicationID)
	if err != nil {
		return err
	}
	if !claimed {
		s.log.Debug("application already claimed or not pending", zap.String("application_id", applicationID.String()))
		return nil
	}

	app, err := s.deps.Applications.FindByID(applicationID)
	if err != nil {
		return err
	}

	text, err := s.deps.Extractor.ExtractText(ctx, app.ResumeRef)
	if err != nil {
		if ferr := s.deps.Applications.RecordAnalysisFailure(app.ID); ferr != nil {
			s.log.Error("failed to record analysis failure", zap.String("application_id", app.ID.String()), zap.Error(ferr))
		}
		return fmt.Errorf("failed to extract resume text: %w", err)
	}

	result := s.deps.Scorer.Score(ctx, text, app.Job.Requirement())

	analysis := &models.ResumeAnalysis{
		ID:            uuid.New(),
		ApplicationID: app.ID,
		Score:         result.Score,
		Match:         result.Match,
		Feedback:      result.Feedback,
		MissingSkills: result.MissingSkills,
		Source:        result.Source,
		CreatedAt:     s.now(),
	}
	if err := s.deps.Analyses.Upsert(analysis); err != nil {
		if ferr := s.deps.Applications.RecordAnalysisFailure(app.ID); ferr != nil {
			s.log.Error("failed to record analysis failure", zap.String("application_id", app.ID.String()), zap.Error(ferr))
		}
		return err
	}

	status := models.ApplicationRejected
	if result.Match {
		status = models.ApplicationShortlisted
	}

	s.log.Info("resume analyzed",
		zap.String("application_id", app.ID.String()),
		zap.Float64("score", result.Score),
		zap.Bool("match", result.Match),
		zap.String("source", result.Source),
	)
	return s.deps.Applications.UpdateStatus(app.ID, status)
}

func (s *assessmentService) GetResumeAnalysis(_ context.Context, applicationID uuid.UUID) (*models.Application, *models.ResumeAnalysis, error) {
	app, err := s.deps.Applications.FindByID(applicationID)
	if err != nil {
		return nil, nil, err
	}
	analysis, err := s.deps.Analyses.FindByApplicationID(applicationID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return app, nil, nil
		}
		return nil, nil, err
	}
	return app, analysis, nil
}

// CompleteCategoryAssessment merges the final subscores and computes the
// overall score. The aggregate is only ever computed on this transition.
func (s *assessmentService) CompleteCategoryAssessment(_ context.Context, id uuid.UUID, set models.CategoryScoreSet) (*models.CategoryAssessment, error) {
	if err := validateScoreSet(set); err != nil {
		return nil, err
	}

	assessment, err := s.deps.Assessments.FindByID(id)
	if err != nil {
		return nil, err
	}
	if assessment.Status == models.AssessmentCompleted {
		return nil, fmt.Errorf("%w: assessment %s is already completed", models.ErrInvalidStatusTransition, id)
	}

	assessment.ApplyScoreSet(set)
	overall := AggregateCategoryScore(assessment.ScoreSet())
	now := s.now()

	assessment.OverallScore = &overall
	assessment.Status = models.AssessmentCompleted
	assessment.CompletedAt = &now

	if err := s.deps.Assessments.Save(assessment); err != nil {
		return nil, err
	}

	s.log.Info("category assessment completed", zap.String("assessment_id", id.String()), zap.Int("overall_score", overall))
	return assessment, nil
}

func validateScoreSet(set models.CategoryScoreSet) error {
	for _, g := range models.CategoryGroups {
		values, _ := set.Group(g)
		for name, v := range values {
			if v < 0 || v > 100 {
				return fmt.Errorf("%w: %s.%s = %v", ErrInvalidCategoryScore, g, name, v)
			}
		}
	}
	return nil
}
