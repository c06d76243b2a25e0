package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"alfredoptarigan/assessment-engine/internal/models"
)

func TestHeuristicResumeScoreNoMatches(t *testing.T) {
	t.Parallel()

	job := models.JobRequirement{Title: "Platform Engineer", RequiredSkills: []string{"Go", "Kubernetes", "Terraform"}}
	result := HeuristicResumeScore("Barista. Latte art champion. Loves hiking.", job)

	if result.Score != HeuristicBaseScore || result.Match {
		t.Fatalf("score/match = %v/%v, want 50/false", result.Score, result.Match)
	}
	if !reflect.DeepEqual(result.MissingSkills, job.RequiredSkills) {
		t.Fatalf("missing = %v", result.MissingSkills)
	}
	if result.Source != models.AnalysisSourceHeuristic {
		t.Fatalf("source = %s", result.Source)
	}
}

func TestHeuristicResumeScoreIsMonotonicInSkills(t *testing.T) {
	t.Parallel()

	job := models.JobRequirement{Title: "Backend Dev", RequiredSkills: []string{"Python", "Django", "Redis"}}
	resumes := []string{
		"Worked at a bakery.",
		"Wrote Python scripts.",
		"Wrote Python services with Django.",
		"Wrote Python services with Django backed by Redis.",
	}

	previous := -1.0
	for i, resume := range resumes {
		score := HeuristicResumeScore(resume, job).Score
		if score <= previous {
			t.Fatalf("resume %d scored %v, not above %v", i, score, previous)
		}
		previous = score
	}
	if previous != 80 {
		t.Fatalf("all skills without experience = %v, want 80", previous)
	}
}

func TestHeuristicResumeScoreExperienceAndClamp(t *testing.T) {
	t.Parallel()

	job := models.JobRequirement{Title: "Backend Dev", RequiredSkills: []string{"Python", "React", "SQL"}}

	tests := []struct {
		name   string
		resume string
		score  float64
		match  bool
	}{
		{name: "experience keyword once", resume: "Five years of experience with Python.", score: 75, match: true},
		{name: "french keyword", resume: "Dix années de Python.", score: 75, match: true},
		{name: "ans inside a word counts", resume: "Python translations.", score: 75, match: true},
		{name: "all skills with experience", resume: "PYTHON, react and sql; 6 years experience", score: 95, match: true},
		{name: "one skill no experience", resume: "python", score: 60, match: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := HeuristicResumeScore(tt.resume, job)
			if result.Score != tt.score || result.Match != tt.match {
				t.Fatalf("score/match = %v/%v, want %v/%v", result.Score, result.Match, tt.score, tt.match)
			}
		})
	}

	many := models.JobRequirement{Title: "Full Stack", RequiredSkills: []string{"go", "sql", "css", "html", "git", "aws"}}
	if got := HeuristicResumeScore("go sql css html git aws, 10 years", many).Score; got != 100 {
		t.Fatalf("score = %v, want clamp at 100", got)
	}
}

func TestHeuristicResumeScoreSkipsBlankSkills(t *testing.T) {
	t.Parallel()

	job := models.JobRequirement{Title: "Dev", RequiredSkills: []string{"", "  "}}
	result := HeuristicResumeScore("anything", job)
	if result.Score != HeuristicBaseScore {
		t.Fatalf("score = %v, want %v", result.Score, HeuristicBaseScore)
	}
	if len(result.MissingSkills) != 0 || result.Feedback == "" {
		t.Fatalf("result = %+v", result)
	}
}

func TestResumeScorerUsesModelScoreAndRecomputesMatch(t *testing.T) {
	t.Parallel()

	job := backendJob()
	tests := []struct {
		name  string
		text  string
		score float64
		match bool
	}{
		{name: "model says no match above threshold", text: `{"score": 80, "match": false, "feedback": "solid", "missing_skills": ["React"]}`, score: 80, match: true},
		{name: "model says match below threshold", text: `{"score": "60", "match": true}`, score: 60, match: false},
		{name: "threshold is inclusive", text: `{"fit_score": 75}`, score: 75, match: true},
		{name: "clamped", text: `Result: {"score": 130}`, score: 100, match: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gen := &stubGenerator{responses: []stubResponse{{text: tt.text}}}
			result := NewResumeScorer(gen, nil, 0, nil).Score(context.Background(), "resume text", job)
			if result.Source != models.AnalysisSourceAI {
				t.Fatalf("source = %s, want ai", result.Source)
			}
			if result.Score != tt.score || result.Match != tt.match {
				t.Fatalf("score/match = %v/%v, want %v/%v", result.Score, result.Match, tt.score, tt.match)
			}
			if result.MissingSkills == nil {
				t.Fatalf("missing skills should never be nil")
			}
		})
	}
}

func TestResumeScorerFallsBackToHeuristic(t *testing.T) {
	t.Parallel()

	job := backendJob()
	resume := "Python developer with 4 years of experience."
	want := HeuristicResumeScore(resume, job)

	for name, gen := range map[string]*stubGenerator{
		"service error":  {responses: []stubResponse{{err: errors.New("quota exceeded")}}},
		"no score field": {responses: []stubResponse{{text: `{"feedback": "great"}`}}},
		"not a number":   {responses: []stubResponse{{text: `{"score": "high"}`}}},
	} {
		got := NewResumeScorer(gen, nil, 0, nil).Score(context.Background(), resume, job)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: result = %+v, want %+v", name, got, want)
		}
	}

	if got := NewResumeScorer(nil, nil, 0, nil).Score(context.Background(), resume, job); !reflect.DeepEqual(got, want) {
		t.Fatalf("nil generator: result = %+v", got)
	}
}

func TestResumeScorerWaitsForRequestSlot(t *testing.T) {
	t.Parallel()

	job := backendJob()
	gen := &stubGenerator{responses: []stubResponse{{text: `{"score": 90}`}}}
	spacer := &countingSpacer{}

	if got := NewResumeScorer(gen, spacer, 0, nil).Score(context.Background(), "resume text", job); got.Source != models.AnalysisSourceAI {
		t.Fatalf("source = %s, want ai", got.Source)
	}
	if spacer.waits != 1 {
		t.Fatalf("waits = %d, want 1", spacer.waits)
	}

	resume := "Python developer with 4 years of experience."
	got := NewResumeScorer(gen, failingSpacer{err: context.DeadlineExceeded}, 0, nil).Score(context.Background(), resume, job)
	if want := HeuristicResumeScore(resume, job); !reflect.DeepEqual(got, want) {
		t.Fatalf("result = %+v, want heuristic %+v", got, want)
	}
	if len(gen.calls()) != 1 {
		t.Fatalf("calls = %d, want 1", len(gen.calls()))
	}
}

func TestResumeScorerSendsExcerpt(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{responses: []stubResponse{{text: `{"score": 70}`}}}
	resume := strings.Repeat("Built payment systems in Go. ", 2000)

	NewResumeScorer(gen, nil, 0, nil).Score(context.Background(), resume, backendJob())

	calls := gen.calls()
	if len(calls) != 1 {
		t.Fatalf("calls = %d", len(calls))
	}
	if len([]rune(calls[0].Prompt)) >= len([]rune(resume)) {
		t.Fatalf("prompt carries the whole resume")
	}
}
