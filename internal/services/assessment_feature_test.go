package services

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"alfredoptarigan/assessment-engine/internal/models"
)

// TestAssessmentScenarios runs the candidate assessment feature scenarios.
func TestAssessmentScenarios(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "assessment",
		ScenarioInitializer: InitializeAssessmentScenario,
		Options: &godog.Options{
			Format:   "progress",
			Paths:    []string{filepath.Join("features", "assessment.feature")},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeAssessmentScenario wires the assessment steps.
func InitializeAssessmentScenario(ctx *godog.ScenarioContext) {
	state := &assessmentScenario{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		state.reset()
		return ctx, nil
	})

	ctx.Step(`^a job "([^"]+)" requiring "([^"]*)" with experience "([^"]*)"$`, state.givenJob)
	ctx.Step(`^the generation service is unreachable$`, state.givenUnreachable)
	ctx.Step(`^the generation service always answers "([^"]*)"$`, state.givenConstantAnswer)
	ctx.Step(`^the generation service returns (\d+) valid questions$`, state.givenValidQuestions)
	ctx.Step(`^a test is generated$`, state.whenTestGenerated)
	ctx.Step(`^the test has (\d+) questions$`, state.thenQuestionCount)
	ctx.Step(`^the test source is "([^"]+)"$`, state.thenSource)
	ctx.Step(`^the test took (\d+) generation attempts$`, state.thenAttempts)
	ctx.Step(`^the fallback topics are "([^"]+)"$`, state.thenTopics)

	ctx.Step(`^an issued test with (\d+) multiple choice questions$`, state.givenIssuedTest)
	ctx.Step(`^the candidate answers (\d+) questions correctly$`, state.whenAnswered)
	ctx.Step(`^the score is (\d+) percent$`, state.thenPercentage)
	ctx.Step(`^the test is completed$`, state.thenCompleted)

	ctx.Step(`^the resume "([^"]*)" is scored heuristically$`, state.whenResumeScored)
	ctx.Step(`^the resume score is (\d+)$`, state.thenResumeScore)
	ctx.Step(`^the resume match is (true|false)$`, state.thenResumeMatch)

	ctx.Step(`^perfect subscores for "([^"]+)"$`, state.givenPerfectGroups)
	ctx.Step(`^the category scores are aggregated$`, state.whenAggregated)
	ctx.Step(`^the overall score is (\d+)$`, state.thenOverall)
}

type assessmentScenario struct {
	job       models.JobRequirement
	generator *stubGenerator
	probe     stubProbe
	bank      FallbackBank
	result    *GenerationResult

	attempt *models.TestAttempt
	outcome *EvaluationOutcome

	resume models.ResumeAnalysisResult

	scores  models.CategoryScoreSet
	overall int
}

func (s *assessmentScenario) reset() {
	*s = assessmentScenario{
		generator: &stubGenerator{},
		probe:     stubProbe{available: true},
		bank:      MustFallbackBank(),
	}
}

func splitList(list string) []string {
	var items []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func (s *assessmentScenario) givenJob(title, skills, experience string) error {
	s.job = models.JobRequirement{
		Title:                title,
		RequiredSkills:       splitList(skills),
		ExperienceDescriptor: experience,
	}
	return nil
}

func (s *assessmentScenario) givenUnreachable() error {
	s.probe = stubProbe{available: false}
	return nil
}

func (s *assessmentScenario) givenConstantAnswer(text string) error {
	s.generator.responses = []stubResponse{{text: text}}
	return nil
}

func (s *assessmentScenario) givenValidQuestions(n int) error {
	data, err := json.Marshal(sampleQuestions(n, "scenario"))
	if err != nil {
		return err
	}
	s.generator.responses = []stubResponse{{text: string(data)}}
	return nil
}

func (s *assessmentScenario) whenTestGenerated() error {
	generator := NewTestGenerator(s.generator, s.probe, &countingSpacer{}, nil, s.bank, GeneratorOptions{}, nil)
	result, err := generator.Generate(context.Background(), s.job, nil)
	if err != nil {
		return err
	}
	s.result = result
	return nil
}

func (s *assessmentScenario) thenQuestionCount(n int) error {
	if got := len(s.result.Questions); got != n {
		return fmt.Errorf("expected %d questions, got %d", n, got)
	}
	for i, q := range s.result.Questions {
		if !q.Valid() {
			return fmt.Errorf("question %d is invalid: %+v", i, q)
		}
	}
	return nil
}

func (s *assessmentScenario) thenSource(source string) error {
	if s.result.Source != source {
		return fmt.Errorf("expected source %q, got %q", source, s.result.Source)
	}
	return nil
}

func (s *assessmentScenario) thenAttempts(n int) error {
	if s.result.Attempts != n {
		return fmt.Errorf("expected %d attempts, got %d", n, s.result.Attempts)
	}
	return nil
}

func (s *assessmentScenario) thenTopics(list string) error {
	got := strings.Join(s.bank.Topics(s.job), ", ")
	if got != list {
		return fmt.Errorf("expected topics %q, got %q", list, got)
	}
	return nil
}

func (s *assessmentScenario) givenIssuedTest(n int) error {
	s.attempt = &models.TestAttempt{
		Questions: sampleQuestions(n, "graded"),
		Status:    models.StatusCreated,
	}
	return nil
}

func (s *assessmentScenario) whenAnswered(correct int) error {
	answers := make([]string, len(s.attempt.Questions))
	for i, q := range s.attempt.Questions {
		if i < correct {
			answers[i] = q.CorrectAnswer
		} else {
			answers[i] = "not an option"
		}
	}
	outcome, err := NewAnswerEvaluator(nil, nil, 0, nil).Evaluate(context.Background(), s.attempt, answers)
	if err != nil {
		return err
	}
	s.outcome = outcome
	return nil
}

func (s *assessmentScenario) thenPercentage(score int) error {
	if s.outcome.Percentage != float64(score) {
		return fmt.Errorf("expected %d percent, got %v", score, s.outcome.Percentage)
	}
	return nil
}

func (s *assessmentScenario) thenCompleted() error {
	if s.attempt.Status != models.StatusCompleted || s.attempt.CompletedAt == nil {
		return fmt.Errorf("attempt is %s", s.attempt.Status)
	}
	return nil
}

func (s *assessmentScenario) whenResumeScored(text string) error {
	s.resume = NewResumeScorer(nil, nil, 0, nil).Score(context.Background(), text, s.job)
	return nil
}

func (s *assessmentScenario) thenResumeScore(score int) error {
	if s.resume.Score != float64(score) {
		return fmt.Errorf("expected resume score %d, got %v", score, s.resume.Score)
	}
	return nil
}

func (s *assessmentScenario) thenResumeMatch(match string) error {
	want, err := strconv.ParseBool(match)
	if err != nil {
		return err
	}
	if s.resume.Match != want {
		return fmt.Errorf("expected match %v, got %v", want, s.resume.Match)
	}
	return nil
}

func (s *assessmentScenario) givenPerfectGroups(list string) error {
	for _, name := range splitList(list) {
		group := models.CategoryGroup(name)
		fields, ok := models.CategorySubfields[group]
		if !ok {
			return fmt.Errorf("unknown category group %q", name)
		}
		scores := make(map[string]float64, len(fields))
		for _, field := range fields {
			scores[field] = 100
		}
		switch group {
		case models.GroupPersonality:
			s.scores.Personality = scores
		case models.GroupCognitive:
			s.scores.Cognitive = scores
		case models.GroupEmotional:
			s.scores.Emotional = scores
		case models.GroupBehavioral:
			s.scores.Behavioral = scores
		case models.GroupVocal:
			s.scores.Vocal = scores
		}
	}
	return nil
}

func (s *assessmentScenario) whenAggregated() error {
	s.overall = AggregateCategoryScore(s.scores)
	return nil
}

func (s *assessmentScenario) thenOverall(score int) error {
	if s.overall != score {
		return fmt.Errorf("expected overall score %d, got %d", score, s.overall)
	}
	return nil
}
