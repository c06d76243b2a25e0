package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"alfredoptarigan/assessment-engine/internal/models"
)

type stubResponse struct {
	text  string
	err   error
	block bool // wait for the request context to end
}

// stubGenerator replays responses in order, repeating the last one.
type stubGenerator struct {
	mu        sync.Mutex
	responses []stubResponse
	requests  []GenerationRequest
	pingErr   error
	model     string
}

func (g *stubGenerator) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	g.mu.Lock()
	g.requests = append(g.requests, req)
	var resp stubResponse
	if len(g.responses) > 0 {
		idx := min(len(g.requests), len(g.responses)) - 1
		resp = g.responses[idx]
	}
	g.mu.Unlock()

	if resp.block {
		<-ctx.Done()
		return "", classifyGenerationError(ctx, ctx.Err())
	}
	return resp.text, resp.err
}

func (g *stubGenerator) Ping(context.Context) error { return g.pingErr }
func (g *stubGenerator) Provider() string           { return "stub" }

func (g *stubGenerator) DefaultModel() string {
	if g.model == "" {
		return "stub-model"
	}
	return g.model
}

func (g *stubGenerator) calls() []GenerationRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]GenerationRequest(nil), g.requests...)
}

type stubProbe struct {
	available bool
}

func (p stubProbe) Available(context.Context) bool { return p.available }

type countingSpacer struct {
	mu    sync.Mutex
	waits int
}

func (s *countingSpacer) Wait(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waits++
	return nil
}

type failingSpacer struct {
	err error
}

func (s failingSpacer) Wait(context.Context) error { return s.err }

// sampleQuestions returns n valid multiple choice questions whose text is
// built from the words of topic so different topics share no tokens.
func sampleQuestions(n int, topic string) []models.GeneratedQuestion {
	questions := make([]models.GeneratedQuestion, n)
	for i := range questions {
		questions[i] = models.GeneratedQuestion{
			QuestionText:  fmt.Sprintf("%s%d %s%d %s%d?", topic, i, topic, i+10, topic, i+20),
			Kind:          models.KindMultipleChoice,
			Options:       []string{"alpha", "beta", "gamma", "delta"},
			CorrectAnswer: "beta",
			Explanation:   "beta is the documented behaviour",
		}
	}
	return questions
}

func questionsJSON(t *testing.T, questions []models.GeneratedQuestion) string {
	t.Helper()
	data, err := json.Marshal(questions)
	if err != nil {
		t.Fatalf("marshal questions: %v", err)
	}
	return string(data)
}

func backendJob() models.JobRequirement {
	return models.JobRequirement{
		Title:                "Backend Dev",
		RequiredSkills:       []string{"Python", "React"},
		ExperienceDescriptor: "3+ years",
	}
}
