package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"alfredoptarigan/assessment-engine/internal/models"
	"alfredoptarigan/assessment-engine/internal/repositories"
)

const DefaultCorpusLimit = 500

// CorpusSource reads the historical test corpus: question sets issued to
// other candidates. The corpus is read-only here.
type CorpusSource interface {
	PriorQuestionSets(ctx context.Context, job models.JobRequirement, excludeCandidate uuid.UUID) ([]QuestionSet, error)
}

type repositoryCorpus struct {
	attemptRepo repositories.TestAttemptRepository
	limit       int
}

// NewRepositoryCorpus reads the most recent issued tests from postgres.
func NewRepositoryCorpus(attemptRepo repositories.TestAttemptRepository, limit int) CorpusSource {
	if limit <= 0 {
		limit = DefaultCorpusLimit
	}
	return &repositoryCorpus{attemptRepo: attemptRepo, limit: limit}
}

func (c *repositoryCorpus) PriorQuestionSets(_ context.Context, _ models.JobRequirement, excludeCandidate uuid.UUID) ([]QuestionSet, error) {
	sets, err := c.attemptRepo.ListQuestionSetsExcludingCandidate(excludeCandidate, c.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load test corpus: %w", err)
	}

	corpus := make([]QuestionSet, 0, len(sets))
	for _, set := range sets {
		corpus = append(corpus, QuestionSet(set))
	}
	return corpus, nil
}
