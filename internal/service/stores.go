package service

import (
	"context"
	"examhub_backend/internal/model"
	"examhub_backend/internal/repository"
	"time"
)

// ExamStore is satisfied by repository.ExamRepository and memstore.Store.
type ExamStore interface {
	CreateExam(ctx context.Context, exam *model.Exam) error
	FindExamByID(ctx context.Context, id string) (*model.Exam, error)
	UpdateExam(ctx context.Context, exam *model.Exam) error
	UpdateExamStatus(ctx context.Context, id string, from []model.ExamStatus, to model.ExamStatus) error
	ListExams(ctx context.Context, filter repository.ExamFilter) ([]model.Exam, int64, error)
	FindExamIDsToActivate(ctx context.Context, now time.Time) ([]string, error)
	FindExamIDsToComplete(ctx context.Context, now time.Time) ([]string, error)
}

// SubmissionStore is satisfied by repository.SubmissionRepository and memstore.Store.
type SubmissionStore interface {
	FindSubmissionByID(ctx context.Context, id string) (*model.Submission, error)
	FindLatestSubmission(ctx context.Context, examID string, studentID uint) (*model.Submission, error)
	CreateOrFetchSubmission(ctx context.Context, s *model.Submission) (*model.Submission, bool, error)
	ConditionalUpdateSubmission(ctx context.Context, s *model.Submission, expected ...model.SubmissionStatus) error
	ListSubmissionsForExam(ctx context.Context, examID string) ([]model.Submission, error)
}

var (
	_ ExamStore       = (*repository.ExamRepository)(nil)
	_ SubmissionStore = (*repository.SubmissionRepository)(nil)
)
