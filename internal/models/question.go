package models

type QuestionKind string

const (
	KindMultipleChoice QuestionKind = "multiple_choice"
	KindCoding         QuestionKind = "coding"
	KindShortAnswer    QuestionKind = "short_answer"
)

const (
	MinQuestionTextLength = 10
	MinOptions            = 2
	MaxOptions            = 6
	MaxOptionLength       = 500
)

// GeneratedQuestion is a single validated test question, including the answer key.
type GeneratedQuestion struct {
	QuestionText  string       `json:"question"`
	Kind          QuestionKind `json:"type"`
	Options       []string     `json:"options"`
	CorrectAnswer string       `json:"correct_answer"`
	Explanation   string       `json:"explanation"`
}

// Valid reports whether the question satisfies the minimum shape every issued question must have.
func (q GeneratedQuestion) Valid() bool {
	return len([]rune(q.QuestionText)) >= MinQuestionTextLength &&
		len(q.Options) >= MinOptions &&
		q.CorrectAnswer != "" &&
		q.Explanation != ""
}

// PublicQuestion is the candidate-facing view of a question. It never carries the answer key.
type PublicQuestion struct {
	Index        int          `json:"index"`
	QuestionText string       `json:"question"`
	Kind         QuestionKind `json:"type"`
	Options      []string     `json:"options"`
}

func ToPublicQuestions(questions []GeneratedQuestion) []PublicQuestion {
	public := make([]PublicQuestion, 0, len(questions))
	for i, q := range questions {
		options := make([]string, len(q.Options))
		copy(options, q.Options)
		public = append(public, PublicQuestion{
			Index:        i,
			QuestionText: q.QuestionText,
			Kind:         q.Kind,
			Options:      options,
		})
	}
	return public
}

// QuestionVerdict is the evaluation outcome for one submitted answer.
type QuestionVerdict struct {
	Index    int     `json:"index"`
	Correct  bool    `json:"correct"`
	Feedback string  `json:"feedback,omitempty"`
	Score    float64 `json:"score"`
	Source   string  `json:"source"`
}

const (
	VerdictSourceExact    = "exact_match"
	VerdictSourceModel    = "model"
	VerdictSourceFallback = "fallback"
)
