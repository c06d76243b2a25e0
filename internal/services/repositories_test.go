package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/assessment-engine/internal/models"
	"alfredoptarigan/assessment-engine/internal/repositories"
)

// In-memory repositories used by the workflow tests.

type memApplications struct {
	mu   sync.Mutex
	apps map[uuid.UUID]models.Application
}

func newMemApplications(apps ...models.Application) *memApplications {
	m := &memApplications{apps: make(map[uuid.UUID]models.Application)}
	for _, app := range apps {
		m.apps[app.ID] = app
	}
	return m
}

func (m *memApplications) Create(app *models.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apps[app.ID] = *app
	return nil
}

func (m *memApplications) FindByID(id uuid.UUID) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return nil, fmt.Errorf("application %s: %w", id, repositories.ErrNotFound)
	}
	return &app, nil
}

func (m *memApplications) UpdateStatus(id uuid.UUID, status models.ApplicationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok {
		return fmt.Errorf("application %s: %w", id, repositories.ErrNotFound)
	}
	app.Status = status
	app.UpdatedAt = time.Now()
	m.apps[id] = app
	return nil
}

func (m *memApplications) ClaimForAnalysis(id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.apps[id]
	if !ok || app.Status != models.ApplicationPending {
		return false, nil
	}
	app.Status = models.ApplicationAnalyzing
	app.UpdatedAt = time.Now()
	m.apps[id] = app
	return true, nil
}

func (m *memApplications) RecordAnalysisFailure(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app := m.apps[id]
	app.Status = models.ApplicationPending
	app.AnalysisFailures++
	app.UpdatedAt = time.Now()
	m.apps[id] = app
	return nil
}

func (m *memApplications) FindPendingAnalyses(limit, maxFailures int) ([]models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []models.Application
	for _, app := range m.apps {
		if len(pending) == limit {
			break
		}
		if app.Status == models.ApplicationPending && app.AnalysisFailures < maxFailures {
			pending = append(pending, app)
		}
	}
	return pending, nil
}

func (m *memApplications) ReclaimStaleAnalyses(cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var reclaimed int64
	for id, app := range m.apps {
		if app.Status == models.ApplicationAnalyzing && app.UpdatedAt.Before(cutoff) {
			app.Status = models.ApplicationPending
			app.UpdatedAt = time.Now()
			m.apps[id] = app
			reclaimed++
		}
	}
	return reclaimed, nil
}

func (m *memApplications) status(id uuid.UUID) models.ApplicationStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apps[id].Status
}

type memAttempts struct {
	mu       sync.Mutex
	attempts []models.TestAttempt
	listErr  error
}

func (m *memAttempts) FindByID(id uuid.UUID) (*models.TestAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attempts {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("test attempt %s: %w", id, repositories.ErrNotFound)
}

func (m *memAttempts) FindByApplicationID(applicationID uuid.UUID) (*models.TestAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.attempts {
		if a.ApplicationID == applicationID {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("test attempt for application %s: %w", applicationID, repositories.ErrNotFound)
}

func (m *memAttempts) Replace(attempt *models.TestAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.attempts[:0]
	for _, a := range m.attempts {
		if a.ApplicationID != attempt.ApplicationID {
			kept = append(kept, a)
		}
	}
	m.attempts = append(kept, *attempt)
	return nil
}

func (m *memAttempts) Save(attempt *models.TestAttempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.attempts {
		if a.ID == attempt.ID {
			m.attempts[i] = *attempt
			return nil
		}
	}
	return fmt.Errorf("test attempt %s: %w", attempt.ID, repositories.ErrNotFound)
}

func (m *memAttempts) ListQuestionSetsExcludingCandidate(candidateID uuid.UUID, limit int) ([][]models.GeneratedQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var sets [][]models.GeneratedQuestion
	for _, a := range m.attempts {
		if len(sets) == limit {
			break
		}
		if a.CandidateID != candidateID {
			sets = append(sets, a.Questions)
		}
	}
	return sets, nil
}

func (m *memAttempts) ListRecent(limit int) ([]models.TestAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.attempts) < limit {
		limit = len(m.attempts)
	}
	return append([]models.TestAttempt(nil), m.attempts[:limit]...), nil
}

func (m *memAttempts) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.attempts)
}

type memAnalyses struct {
	mu       sync.Mutex
	analyses map[uuid.UUID]models.ResumeAnalysis
}

func newMemAnalyses() *memAnalyses {
	return &memAnalyses{analyses: make(map[uuid.UUID]models.ResumeAnalysis)}
}

func (m *memAnalyses) Upsert(analysis *models.ResumeAnalysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses[analysis.ApplicationID] = *analysis
	return nil
}

func (m *memAnalyses) FindByApplicationID(applicationID uuid.UUID) (*models.ResumeAnalysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.analyses[applicationID]
	if !ok {
		return nil, fmt.Errorf("resume analysis for %s: %w", applicationID, repositories.ErrNotFound)
	}
	return &a, nil
}

type memAssessments struct {
	mu          sync.Mutex
	assessments map[uuid.UUID]models.CategoryAssessment
}

func newMemAssessments(items ...models.CategoryAssessment) *memAssessments {
	m := &memAssessments{assessments: make(map[uuid.UUID]models.CategoryAssessment)}
	for _, a := range items {
		m.assessments[a.ID] = a
	}
	return m
}

func (m *memAssessments) Create(assessment *models.CategoryAssessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assessments[assessment.ID] = *assessment
	return nil
}

func (m *memAssessments) FindByID(id uuid.UUID) (*models.CategoryAssessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assessments[id]
	if !ok {
		return nil, fmt.Errorf("category assessment %s: %w", id, repositories.ErrNotFound)
	}
	return &a, nil
}

func (m *memAssessments) Save(assessment *models.CategoryAssessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assessments[assessment.ID] = *assessment
	return nil
}

type recordingTestGenerator struct {
	corpus []QuestionSet
	calls  int
}

func (g *recordingTestGenerator) Generate(_ context.Context, job models.JobRequirement, corpus []QuestionSet) (*GenerationResult, error) {
	g.calls++
	g.corpus = corpus
	return &GenerationResult{
		Questions: sampleQuestions(models.QuestionsPerTest, job.Title),
		Source:    models.SourceAI,
		Model:     "stub-model",
		Attempts:  1,
	}, nil
}

type stubExtractor struct {
	text string
	err  error
}

func (e stubExtractor) ExtractText(context.Context, string) (string, error) {
	return e.text, e.err
}

type recordingIndexer struct {
	indexed []uuid.UUID
	deleted []uuid.UUID
}

func (i *recordingIndexer) IndexTest(_ context.Context, attempt *models.TestAttempt, _ models.JobRequirement) error {
	i.indexed = append(i.indexed, attempt.ID)
	return nil
}

func (i *recordingIndexer) DeleteTest(_ context.Context, attemptID uuid.UUID) error {
	i.deleted = append(i.deleted, attemptID)
	return nil
}
