package services

import "errors"

// Service-side failures. These are caught inside the engine and degrade to
// deterministic fallbacks; callers never see them from the public operations.
var (
	ErrGenerationUnavailable      = errors.New("generation service unavailable")
	ErrGenerationTimeout          = errors.New("generation request timed out")
	ErrGenerationMalformedOutput  = errors.New("generation output malformed")
	ErrInsufficientValidQuestions = errors.New("insufficient valid questions")
	ErrUniquenessExhausted        = errors.New("no unique question set within attempt budget")
	ErrEvaluationService          = errors.New("evaluation service error")
	ErrResumeFormatUnsupported    = errors.New("resume format unsupported")
)

// Caller errors.
var (
	ErrAnswerCountMismatch    = errors.New("answer count does not match question count")
	ErrInvalidJobRequirement  = errors.New("invalid job requirement")
	ErrApplicationNotEligible = errors.New("application is not eligible for a test")
	ErrAttemptAlreadyStarted  = errors.New("test attempt already started")
	ErrResumeMissing          = errors.New("application has no resume")
	ErrInvalidCategoryScore   = errors.New("category subscore out of range")
)

// IsCallerError reports whether err should be surfaced to the caller as a rejected request.
func IsCallerError(err error) bool {
	return errors.Is(err, ErrAnswerCountMismatch) ||
		errors.Is(err, ErrInvalidJobRequirement) ||
		errors.Is(err, ErrApplicationNotEligible) ||
		errors.Is(err, ErrAttemptAlreadyStarted) ||
		errors.Is(err, ErrResumeMissing) ||
		errors.Is(err, ErrInvalidCategoryScore)
}
