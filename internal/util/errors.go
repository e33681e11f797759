package util

import (
	"errors"
	"time"
)

var (
	ErrExamNotFound       = errors.New("exam not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrForbidden          = errors.New("permission denied")
	ErrExamNotAvailable   = errors.New("exam not available")
	ErrExamNotStarted     = errors.New("exam has not started yet")
	ErrExamEnded          = errors.New("exam has ended")
	ErrAlreadySubmitted   = errors.New("exam already submitted")
	ErrConflict           = errors.New("concurrent update conflict")
	ErrValidation         = errors.New("validation failed")
)

// AlreadySubmittedError carries the prior result so callers can show a summary
// instead of a bare rejection.
type AlreadySubmittedError struct {
	SubmissionID string    `json:"submissionId"`
	Score        int       `json:"score"`
	TotalPoints  int       `json:"totalPoints"`
	Percentage   int       `json:"percentage"`
	SubmittedAt  time.Time `json:"submittedAt"`
	TimeSpent    int       `json:"timeSpent"`
	Status       string    `json:"status"`
}

func (e *AlreadySubmittedError) Error() string {
	return ErrAlreadySubmitted.Error()
}

func (e *AlreadySubmittedError) Is(target error) bool {
	return target == ErrAlreadySubmitted
}

type ValidationError struct {
	Message string
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
