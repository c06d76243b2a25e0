package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"alfredoptarigan/assessment-engine/internal/models"
)

func attemptWith(questions []models.GeneratedQuestion, status models.AttemptStatus) *models.TestAttempt {
	return &models.TestAttempt{
		ID:        uuid.New(),
		Questions: questions,
		Status:    status,
	}
}

func correctAnswers(questions []models.GeneratedQuestion) []string {
	answers := make([]string, len(questions))
	for i, q := range questions {
		answers[i] = q.CorrectAnswer
	}
	return answers
}

func codingQuestion() models.GeneratedQuestion {
	return models.GeneratedQuestion{
		QuestionText:  "Write a function that reverses a string in Go.",
		Kind:          models.KindCoding,
		Options:       []string{"func reverse(s string) string { r := []rune(s); ... }", "strings.Reverse(s)"},
		CorrectAnswer: "func reverse(s string) string { r := []rune(s); ... }",
		Explanation:   "Convert to runes and swap from both ends.",
	}
}

func TestEvaluateAllCorrect(t *testing.T) {
	t.Parallel()

	questions := sampleQuestions(5, "tls")
	attempt := attemptWith(questions, models.StatusInProgress)
	evaluator := NewAnswerEvaluator(nil, nil, 0, nil)

	outcome, err := evaluator.Evaluate(context.Background(), attempt, correctAnswers(questions))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if outcome.Percentage != 100 {
		t.Fatalf("percentage = %v, want 100", outcome.Percentage)
	}
	if attempt.Status != models.StatusCompleted || attempt.CompletedAt == nil {
		t.Fatalf("attempt status = %s, completed_at = %v", attempt.Status, attempt.CompletedAt)
	}
	if attempt.Score == nil || *attempt.Score != 100 {
		t.Fatalf("attempt score = %v", attempt.Score)
	}
	for i, v := range outcome.Verdicts {
		if !v.Correct || v.Index != i || v.Source != models.VerdictSourceExact || v.Score != 100 {
			t.Fatalf("verdict %d = %+v", i, v)
		}
	}
}

func TestEvaluatePartialScore(t *testing.T) {
	t.Parallel()

	questions := sampleQuestions(5, "dns")
	answers := correctAnswers(questions)
	answers[1] = "alpha"
	answers[3] = "Beta" // exact match is case sensitive
	answers[4] = " beta"

	attempt := attemptWith(questions, models.StatusInProgress)
	outcome, err := NewAnswerEvaluator(nil, nil, 0, nil).Evaluate(context.Background(), attempt, answers)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if outcome.Percentage != 40 {
		t.Fatalf("percentage = %v, want 40", outcome.Percentage)
	}
	if len(attempt.SubmittedAnswers) != 5 || attempt.SubmittedAnswers[1] != "alpha" {
		t.Fatalf("submitted answers = %q", attempt.SubmittedAnswers)
	}
}

func TestEvaluateRejectsAnswerCountMismatch(t *testing.T) {
	t.Parallel()

	questions := sampleQuestions(5, "ssh")
	attempt := attemptWith(questions, models.StatusInProgress)

	_, err := NewAnswerEvaluator(nil, nil, 0, nil).Evaluate(context.Background(), attempt, correctAnswers(questions)[:4])
	if !errors.Is(err, ErrAnswerCountMismatch) {
		t.Fatalf("err = %v, want ErrAnswerCountMismatch", err)
	}
	if !IsCallerError(err) {
		t.Fatalf("count mismatch should be a caller error")
	}
	if attempt.Status != models.StatusInProgress || attempt.Verdicts != nil {
		t.Fatalf("attempt modified on rejected submission: %+v", attempt)
	}
}

func TestEvaluateRejectsCompletedAttempt(t *testing.T) {
	t.Parallel()

	questions := sampleQuestions(5, "ftp")
	attempt := attemptWith(questions, models.StatusCompleted)

	_, err := NewAnswerEvaluator(nil, nil, 0, nil).Evaluate(context.Background(), attempt, correctAnswers(questions))
	if !errors.Is(err, models.ErrInvalidStatusTransition) {
		t.Fatalf("err = %v, want ErrInvalidStatusTransition", err)
	}
}

func TestEvaluateCodingWithModelVerdict(t *testing.T) {
	t.Parallel()

	questions := append(sampleQuestions(4, "udp"), codingQuestion())
	gen := &stubGenerator{responses: []stubResponse{
		{text: "```json\n{\"correct\": \"yes\", \"feedback\": \"Handles unicode.\", \"score\": \"90%\"}\n```"},
	}}
	attempt := attemptWith(questions, models.StatusInProgress)

	answers := correctAnswers(questions)
	answers[4] = "func reverse(s string) string { runes := []rune(s); slices.Reverse(runes); return string(runes) }"

	outcome, err := NewAnswerEvaluator(gen, nil, 0, nil).Evaluate(context.Background(), attempt, answers)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	v := outcome.Verdicts[4]
	if !v.Correct || v.Source != models.VerdictSourceModel || v.Score != 90 || v.Feedback != "Handles unicode." {
		t.Fatalf("coding verdict = %+v", v)
	}
	if outcome.Percentage != 100 {
		t.Fatalf("percentage = %v, want 100", outcome.Percentage)
	}

	calls := gen.calls()
	if len(calls) != 1 {
		t.Fatalf("generator calls = %d, want 1 (coding question only)", len(calls))
	}
	if !strings.Contains(calls[0].Prompt, "slices.Reverse") {
		t.Fatalf("prompt does not carry the candidate answer")
	}
}

func TestEvaluateSpacesEachCodingRequest(t *testing.T) {
	t.Parallel()

	questions := append(sampleQuestions(3, "arp"), codingQuestion(), codingQuestion())
	gen := &stubGenerator{responses: []stubResponse{{text: `{"correct": true, "feedback": "ok", "score": 100}`}}}
	spacer := &countingSpacer{}

	outcome, err := NewAnswerEvaluator(gen, spacer, 0, nil).Evaluate(context.Background(), attemptWith(questions, models.StatusInProgress), correctAnswers(questions))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if outcome.Percentage != 100 {
		t.Fatalf("percentage = %v, want 100", outcome.Percentage)
	}
	if spacer.waits != 2 || len(gen.calls()) != 2 {
		t.Fatalf("waits/calls = %d/%d, want 2/2", spacer.waits, len(gen.calls()))
	}
}

func TestEvaluateUsesHeuristicWhenSpacingFails(t *testing.T) {
	t.Parallel()

	questions := append(sampleQuestions(4, "dns"), codingQuestion())
	answers := correctAnswers(questions)
	answers[4] = strings.Repeat("return reversed; ", 3)
	gen := &stubGenerator{responses: []stubResponse{{text: `{"correct": false, "score": 0}`}}}

	outcome, err := NewAnswerEvaluator(gen, failingSpacer{err: context.Canceled}, 0, nil).Evaluate(context.Background(), attemptWith(questions, models.StatusInProgress), answers)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if v := outcome.Verdicts[4]; v.Source != models.VerdictSourceFallback || !v.Correct {
		t.Fatalf("coding verdict = %+v", v)
	}
	if len(gen.calls()) != 0 {
		t.Fatalf("generator called %d times without a request slot", len(gen.calls()))
	}
}

func TestEvaluateCodingFallsBackWhenModelFails(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		generator TextGenerator
		answer    string
		correct   bool
		score     float64
	}{
		{
			name:      "service error with long answer",
			generator: &stubGenerator{responses: []stubResponse{{err: ErrGenerationUnavailable}}},
			answer:    "for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 { r[i], r[j] = r[j], r[i] }",
			correct:   true,
			score:     FallbackCorrectScore,
		},
		{
			name:      "malformed verdict with short answer",
			generator: &stubGenerator{responses: []stubResponse{{text: "looks fine to me"}}},
			answer:    "reverse it",
			correct:   false,
			score:     FallbackIncorrectScore,
		},
		{
			name:    "no generator, exactly twenty runes",
			answer:  strings.Repeat("x", FallbackMinCodingAnswerLength),
			correct: false,
			score:   FallbackIncorrectScore,
		},
		{
			name:    "no generator, padded short answer",
			answer:  "   short   " + strings.Repeat(" ", 30),
			correct: false,
			score:   FallbackIncorrectScore,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			questions := append(sampleQuestions(4, "icmp"), codingQuestion())
			answers := correctAnswers(questions)
			answers[4] = tt.answer

			outcome, err := NewAnswerEvaluator(tt.generator, nil, 0, nil).Evaluate(context.Background(), attemptWith(questions, models.StatusInProgress), answers)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			v := outcome.Verdicts[4]
			if v.Correct != tt.correct || v.Score != tt.score || v.Source != models.VerdictSourceFallback {
				t.Fatalf("verdict = %+v", v)
			}
			if v.Feedback != FallbackCodingFeedback {
				t.Fatalf("feedback = %q", v.Feedback)
			}
		})
	}
}

func TestParseCodingVerdict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		correct bool
		score   float64
		wantErr bool
	}{
		{name: "score defaults from correct", text: `{"is_correct": true}`, correct: true, score: 100},
		{name: "score clamped", text: `{"correct": false, "score": 140}`, correct: false, score: 100},
		{name: "missing correct field", text: `{"score": 50}`, wantErr: true},
		{name: "not json", text: "correct!", wantErr: true},
	}

	for _, tt := range tests {
		v, err := parseCodingVerdict(tt.text)
		if tt.wantErr {
			if !errors.Is(err, ErrGenerationMalformedOutput) {
				t.Fatalf("%s: err = %v, want ErrGenerationMalformedOutput", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if v.Correct != tt.correct || v.Score != tt.score {
			t.Fatalf("%s: verdict = %+v", tt.name, v)
		}
	}
}
