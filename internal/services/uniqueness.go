package services

import (
	"strings"

	"alfredoptarigan/assessment-engine/internal/models"
)

const (
	SimilarityThreshold   = 0.7
	TokenOverlapThreshold = 0.6

	exactMatchScore   = 1.0
	partialMatchScore = 0.5
)

// QuestionSet is one historical test's questions, as read from the corpus.
type QuestionSet []models.GeneratedQuestion

// UniquenessEvaluator decides whether a candidate question set is novel
// against the historical corpus.
type UniquenessEvaluator interface {
	IsUnique(candidate []models.GeneratedQuestion, corpus []QuestionSet) bool
	Similarity(a, b []models.GeneratedQuestion) float64
}

type uniquenessEvaluator struct {
	threshold float64
}

func NewUniquenessEvaluator() UniquenessEvaluator {
	return &uniquenessEvaluator{threshold: SimilarityThreshold}
}

// IsUnique compares against every historical test with the same question count.
// An empty corpus is always unique.
func (u *uniquenessEvaluator) IsUnique(candidate []models.GeneratedQuestion, corpus []QuestionSet) bool {
	for _, prior := range corpus {
		if len(prior) != len(candidate) {
			continue
		}
		if u.Similarity(candidate, prior) > u.threshold {
			return false
		}
	}
	return true
}

// Similarity averages per-position scores: 1.0 for identical question text,
// 0.5 for token overlap above TokenOverlapThreshold, else 0.
func (u *uniquenessEvaluator) Similarity(a, b []models.GeneratedQuestion) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var total float64
	for i := range a {
		switch {
		case a[i].QuestionText == b[i].QuestionText:
			total += exactMatchScore
		case tokenOverlap(a[i].QuestionText, b[i].QuestionText) > TokenOverlapThreshold:
			total += partialMatchScore
		}
	}
	return total / float64(len(a))
}

// tokenOverlap is |common lowercase tokens| / max(len(tokens a), len(tokens b)).
func tokenOverlap(a, b string) float64 {
	tokensA := strings.Fields(strings.ToLower(a))
	tokensB := strings.Fields(strings.ToLower(b))

	longest := max(len(tokensA), len(tokensB))
	if longest == 0 {
		return 0
	}

	setB := make(map[string]struct{}, len(tokensB))
	for _, t := range tokensB {
		setB[t] = struct{}{}
	}

	common := make(map[string]struct{})
	for _, t := range tokensA {
		if _, ok := setB[t]; ok {
			common[t] = struct{}{}
		}
	}
	return float64(len(common)) / float64(longest)
}
