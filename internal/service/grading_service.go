package service

import (
	"context"
	"examhub_backend/internal/model"
	"examhub_backend/internal/util"
	"examhub_backend/pkg/logger"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type GradingService struct {
	Exams       ExamStore
	Submissions SubmissionStore
	Now         func() time.Time
}

func NewGradingService(exams ExamStore, submissions SubmissionStore) *GradingService {
	return &GradingService{Exams: exams, Submissions: submissions, Now: time.Now}
}

// GradeReq overrides awarded points by question index. Indexes not listed
// keep their automatic score.
type GradeReq struct {
	Points   map[int]int `json:"points"`
	Feedback string      `json:"feedback"`
}

func (s *GradingService) GradeSubmission(ctx context.Context, actor model.Identity, submissionID string, req GradeReq) (*model.Submission, error) {
	sub, err := s.Submissions.FindSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	exam, err := s.Exams.FindExamByID(ctx, sub.ExamID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(exam.TeacherID) {
		return nil, util.ErrForbidden
	}
	if !sub.Status.IsTerminal() {
		return nil, util.NewValidationError("submission has not been handed in")
	}

	answers := alignAnswers(exam.Questions, sub.AnswerList())
	for idx, pts := range req.Points {
		if idx < 0 || idx >= len(exam.Questions) {
			return nil, util.NewValidationError(fmt.Sprintf("question index %d is out of range", idx))
		}
		limit := exam.Questions[idx].Points
		if pts < 0 || pts > limit {
			return nil, util.NewValidationError(fmt.Sprintf("question %d: points must be between 0 and %d", idx, limit))
		}
		answers[idx].PointsAwarded = pts
		answers[idx].IsCorrect = pts == limit && limit > 0
	}

	score, total := 0, exam.TotalPoints()
	for _, a := range answers {
		score += a.PointsAwarded
	}

	prior := sub.Status
	now := s.Now()
	grader := actor.UserID
	sub.Answers = datatypes.NewJSONType(answers)
	sub.Score = score
	sub.TotalPoints = total
	sub.Percentage = Percentage(score, total)
	sub.Status = model.SubmissionGraded
	sub.GradedBy = &grader
	sub.GradedAt = &now
	sub.Feedback = req.Feedback

	if err := s.Submissions.ConditionalUpdateSubmission(ctx, sub, prior); err != nil {
		return nil, err
	}
	logger.Log.Info("Submission graded",
		zap.String("submissionID", sub.ID),
		zap.Uint("gradedBy", grader),
		zap.Int("score", score))
	return sub, nil
}

func (s *GradingService) ListSubmissions(ctx context.Context, actor model.Identity, examID string) (*SubmissionDetailList, error) {
	exam, err := s.Exams.FindExamByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(exam.TeacherID) {
		return nil, util.ErrForbidden
	}
	subs, err := s.Submissions.ListSubmissionsForExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	return &SubmissionDetailList{Questions: exam.Questions, Submissions: subs}, nil
}

// SubmissionDetailList is the teacher drill-down: every attempt next to the answer keys.
type SubmissionDetailList struct {
	Questions   []model.Question   `json:"questions"`
	Submissions []model.Submission `json:"submissions"`
}

// alignAnswers returns one record per question, filling gaps left by
// submissions scored against an older question bank.
func alignAnswers(questions []model.Question, recorded []model.AnswerRecord) []model.AnswerRecord {
	out := make([]model.AnswerRecord, len(questions))
	for i := range questions {
		out[i] = model.AnswerRecord{QuestionID: questions[i].ID, Index: i}
	}
	for _, a := range recorded {
		if a.Index >= 0 && a.Index < len(out) {
			a.QuestionID = questions[a.Index].ID
			out[a.Index] = a
		}
	}
	return out
}
