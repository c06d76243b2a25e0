package models

type UploadResponse struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	ResumeRef    string `json:"resume_ref"`
}

type AnalyzeResumeResponse struct {
	ApplicationID string `json:"application_id"`
	Status        string `json:"status"`
}

type ResumeAnalysisResponse struct {
	ApplicationID     string                `json:"application_id"`
	ApplicationStatus string                `json:"application_status"`
	Result            *ResumeAnalysisResult `json:"result,omitempty"`
}

// TestResponse is the outward test payload. Questions never include answer keys.
type TestResponse struct {
	ID            string           `json:"id"`
	ApplicationID string           `json:"application_id"`
	Status        string           `json:"status"`
	Questions     []PublicQuestion `json:"questions"`
	Score         *float64         `json:"score,omitempty"`
}

type SubmitAnswersRequest struct {
	Answers []string `json:"answers"`
}

type SubmitAnswersResponse struct {
	ID         string            `json:"id"`
	Status     string            `json:"status"`
	Percentage float64           `json:"percentage"`
	Verdicts   []QuestionVerdict `json:"verdicts"`
}

type CompleteAssessmentResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	OverallScore int    `json:"overall_score"`
}

func NewTestResponse(attempt *TestAttempt) TestResponse {
	return TestResponse{
		ID:            attempt.ID.String(),
		ApplicationID: attempt.ApplicationID.String(),
		Status:        string(attempt.Status),
		Questions:     ToPublicQuestions(attempt.Questions),
		Score:         attempt.Score,
	}
}
