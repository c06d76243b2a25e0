package services

import (
	"fmt"
	"strings"

	"alfredoptarigan/assessment-engine/internal/models"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildTestGenerationPrompt creates the prompt for one generation attempt.
// distinct is set once prior tests exist for the corpus.
func (pb *PromptBuilder) BuildTestGenerationPrompt(job models.JobRequirement, attempt int, distinct bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are a senior technical interviewer writing a screening test for a %s position.

REQUIRED SKILLS:
%s
`, job.Title, formatSkills(job.RequiredSkills))

	if job.ExperienceDescriptor != "" {
		fmt.Fprintf(&b, "\nEXPERIENCE LEVEL:\n%s\n", job.ExperienceDescriptor)
	}

	fmt.Fprintf(&b, `
Write exactly %d questions that test the required skills. Mix multiple_choice, short_answer and coding questions.
`, models.QuestionsPerTest)

	if distinct {
		fmt.Fprintf(&b, `
Other candidates have already received tests for similar roles. Produce distinct, non-generic content:
avoid textbook definitions and common interview questions, and ground each question in a concrete scenario.
This is generation attempt %d, so vary topics and phrasing.
`, attempt)
	}

	b.WriteString(`
Return ONLY a JSON array in the following format:
[
  {
    "question": "<question text, at least 10 characters>",
    "type": "multiple_choice | short_answer | coding",
    "options": ["<option 1>", "<option 2>", "<option 3>", "<option 4>"],
    "correct_answer": "<the exact text of the correct option>",
    "explanation": "<one or two sentences explaining the answer>"
  }
]

Every question needs between 2 and 6 options, including coding and short_answer questions
(use them as reference answers). correct_answer must repeat one option verbatim.`)

	return b.String()
}

// BuildCodingEvaluationPrompt creates the prompt for judging one free-form answer.
func (pb *PromptBuilder) BuildCodingEvaluationPrompt(question models.GeneratedQuestion, answer string) string {
	return fmt.Sprintf(`You are an expert technical evaluator grading a candidate's answer to a coding question.

QUESTION:
%s

REFERENCE ANSWER:
%s

EXPLANATION OF THE REFERENCE:
%s

CANDIDATE ANSWER:
%s

Judge whether the candidate's answer is correct. It does not have to match the reference verbatim;
equivalent working solutions are correct.

Return your response in the following JSON format:
{
  "correct": <true|false>,
  "feedback": "<one to three sentences of feedback for the candidate>",
  "score": <0-100>
}`,
		question.QuestionText, question.CorrectAnswer, question.Explanation, answer)
}

// BuildResumeScoringPrompt creates the prompt for resume-to-job fit scoring.
func (pb *PromptBuilder) BuildResumeScoringPrompt(resumeText string, job models.JobRequirement) string {
	return fmt.Sprintf(`You are an expert HR recruiter evaluating a candidate's resume for a %s position.

REQUIRED SKILLS:
%s

EXPERIENCE LEVEL:
%s

CANDIDATE RESUME:
%s

Score how well the resume fits the position from 0 to 100, and list the required skills
the resume does not demonstrate.

Return your response in the following JSON format:
{
  "score": <0-100>,
  "match": <true|false>,
  "feedback": "<detailed feedback 2-4 sentences explaining strengths and gaps>",
  "missing_skills": ["<skill>", "..."]
}

Be objective. Base the score only on evidence in the resume.`,
		job.Title, formatSkills(job.RequiredSkills), orNotSpecified(job.ExperienceDescriptor), resumeText)
}

// BuildCorpusQuery creates the text embedded to find prior tests for similar jobs.
func (pb *PromptBuilder) BuildCorpusQuery(job models.JobRequirement) string {
	return fmt.Sprintf("Technical screening test for %s requiring %s",
		job.Title, strings.Join(job.RequiredSkills, ", "))
}

func formatSkills(skills []string) string {
	if len(skills) == 0 {
		return "- Not specified"
	}
	lines := make([]string, 0, len(skills))
	for _, skill := range skills {
		lines = append(lines, "- "+skill)
	}
	return strings.Join(lines, "\n")
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Not specified"
	}
	return s
}
