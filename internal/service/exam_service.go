package service

import (
	"context"
	"encoding/json"
	"examhub_backend/internal/model"
	"examhub_backend/internal/repository"
	"examhub_backend/internal/util"
	"examhub_backend/pkg/logger"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type ExamService struct {
	Exams ExamStore
	Now   func() time.Time
}

func NewExamService(exams ExamStore) *ExamService {
	return &ExamService{Exams: exams, Now: time.Now}
}

type QuestionReq struct {
	Type          model.QuestionType `json:"type" binding:"required,questiontype"`
	Prompt        string             `json:"prompt" binding:"required"`
	Options       []string           `json:"options"`
	CorrectAnswer json.RawMessage    `json:"correctAnswer"`
	Points        int                `json:"points" binding:"min=0"`
	Explanation   string             `json:"explanation"`
}

type ExamReq struct {
	CourseID            uint             `json:"courseId" binding:"required"`
	Title               string           `json:"title" binding:"required"`
	Description         string           `json:"description"`
	Duration            int              `json:"duration" binding:"required,min=1"`
	StartTime           *time.Time       `json:"startTime"`
	EndTime             *time.Time       `json:"endTime"`
	Status              model.ExamStatus `json:"status" binding:"omitempty,examstatus"`
	MaxAttempts         *int             `json:"maxAttempts"`
	AllowLateSubmission *bool            `json:"allowLateSubmission"`
	ShuffleQuestions    bool             `json:"shuffleQuestions"`
	PassingScore        *int             `json:"passingScore"`
	Questions           []QuestionReq    `json:"questions" binding:"dive"`
}

type ExamListResult struct {
	Exams []model.Exam `json:"exams"`
	Total int64        `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

func (s *ExamService) CreateExam(ctx context.Context, actor model.Identity, req ExamReq) (*model.Exam, error) {
	if actor.Role != model.Teacher && !actor.IsAdmin() {
		return nil, util.ErrForbidden
	}
	if err := validateExamReq(&req); err != nil {
		return nil, err
	}

	exam := &model.Exam{
		CourseID:  req.CourseID,
		TeacherID: actor.UserID,
		Status:    model.ExamDraft,
	}
	if req.Status != "" {
		exam.Status = req.Status
	}
	applyExamReq(exam, &req)

	if err := s.Exams.CreateExam(ctx, exam); err != nil {
		return nil, err
	}
	logger.Log.Info("Exam created",
		zap.String("examID", exam.ID),
		zap.Uint("teacherID", exam.TeacherID),
		zap.Int("questions", len(exam.Questions)))
	return exam, nil
}

// UpdateExam replaces all editable fields and the question bank. Owner and
// course stay fixed; status changes go through UpdateStatus.
func (s *ExamService) UpdateExam(ctx context.Context, actor model.Identity, examID string, req ExamReq) (*model.Exam, error) {
	exam, err := s.GetExam(ctx, actor, examID)
	if err != nil {
		return nil, err
	}
	if req.CourseID != 0 && req.CourseID != exam.CourseID {
		return nil, util.NewValidationError("courseId cannot be changed")
	}
	if err := validateExamReq(&req); err != nil {
		return nil, err
	}

	applyExamReq(exam, &req)
	if err := s.Exams.UpdateExam(ctx, exam); err != nil {
		return nil, err
	}
	return exam, nil
}

// GetExam returns the full definition, answer keys included, to its owner or an admin.
func (s *ExamService) GetExam(ctx context.Context, actor model.Identity, examID string) (*model.Exam, error) {
	exam, err := s.Exams.FindExamByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if !actor.CanManage(exam.TeacherID) {
		return nil, util.ErrForbidden
	}
	return exam, nil
}

// ListExams lists the caller's exams; admins see everyone's.
func (s *ExamService) ListExams(ctx context.Context, actor model.Identity, filter repository.ExamFilter) (*ExamListResult, error) {
	if !actor.IsAdmin() {
		if actor.Role != model.Teacher {
			return nil, util.ErrForbidden
		}
		filter.TeacherID = actor.UserID
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	exams, total, err := s.Exams.ListExams(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ExamListResult{Exams: exams, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *ExamService) UpdateStatus(ctx context.Context, actor model.Identity, examID string, status model.ExamStatus) (*model.Exam, error) {
	if !status.Valid() {
		return nil, util.NewValidationError(fmt.Sprintf("unknown status %q", status))
	}
	exam, err := s.GetExam(ctx, actor, examID)
	if err != nil {
		return nil, err
	}
	if !exam.Status.CanTransitionTo(status) {
		return nil, util.NewValidationError(fmt.Sprintf("cannot move exam from %s to %s", exam.Status, status))
	}
	if status != model.ExamDraft && len(exam.Questions) == 0 {
		return nil, util.NewValidationError("exam has no questions")
	}

	if err := s.Exams.UpdateExamStatus(ctx, examID, []model.ExamStatus{exam.Status}, status); err != nil {
		return nil, err
	}
	logger.Log.Info("Exam status changed",
		zap.String("examID", examID),
		zap.String("from", string(exam.Status)),
		zap.String("to", string(status)))
	exam.Status = status
	return exam, nil
}

// TransitionScheduledExams 后台定时任务：开放到期的考试，关闭已结束的考试
func (s *ExamService) TransitionScheduledExams(ctx context.Context) (activated, completed int, err error) {
	now := s.Now()

	toActivate, err := s.Exams.FindExamIDsToActivate(ctx, now)
	if err != nil {
		return 0, 0, err
	}
	for _, id := range toActivate {
		if err := s.Exams.UpdateExamStatus(ctx, id, []model.ExamStatus{model.ExamPublished}, model.ExamActive); err != nil {
			// another sweep or a teacher got there first
			logger.Log.Warn("Failed to activate exam", zap.String("examID", id), zap.Error(err))
			continue
		}
		activated++
	}

	toComplete, err := s.Exams.FindExamIDsToComplete(ctx, now)
	if err != nil {
		return activated, 0, err
	}
	for _, id := range toComplete {
		from := []model.ExamStatus{model.ExamPublished, model.ExamActive}
		if err := s.Exams.UpdateExamStatus(ctx, id, from, model.ExamCompleted); err != nil {
			logger.Log.Warn("Failed to complete exam", zap.String("examID", id), zap.Error(err))
			continue
		}
		completed++
	}

	if activated > 0 || completed > 0 {
		logger.Log.Info("Scheduled exam transitions applied",
			zap.Int("activated", activated),
			zap.Int("completed", completed))
	}
	return activated, completed, nil
}

func validateExamReq(req *ExamReq) error {
	if strings.TrimSpace(req.Title) == "" {
		return util.NewValidationError("title is required")
	}
	if req.Duration < 1 {
		return util.NewValidationError("duration must be at least 1 minute")
	}
	if req.MaxAttempts != nil && *req.MaxAttempts < 1 {
		return util.NewValidationError("maxAttempts must be at least 1")
	}
	if req.PassingScore != nil && *req.PassingScore < 0 {
		return util.NewValidationError("passingScore must not be negative")
	}
	if req.StartTime != nil && req.EndTime != nil && !req.EndTime.After(*req.StartTime) {
		return util.NewValidationError("endTime must be after startTime")
	}
	if req.Status != "" && !req.Status.Valid() {
		return util.NewValidationError(fmt.Sprintf("unknown status %q", req.Status))
	}

	for i := range req.Questions {
		if err := validateQuestionReq(i, &req.Questions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateQuestionReq(i int, q *QuestionReq) error {
	if !q.Type.Valid() {
		return util.NewValidationError(fmt.Sprintf("question %d: unknown type %q", i, q.Type))
	}
	if strings.TrimSpace(q.Prompt) == "" {
		return util.NewValidationError(fmt.Sprintf("question %d: prompt is required", i))
	}
	if q.Points < 0 {
		return util.NewValidationError(fmt.Sprintf("question %d: points must not be negative", i))
	}

	probe := model.Question{Type: q.Type, Prompt: q.Prompt, CorrectAnswer: datatypes.JSON(q.CorrectAnswer)}
	key, err := probe.Key()
	if err != nil {
		return util.NewValidationError(fmt.Sprintf("question %d: %v", i, err))
	}
	if k, ok := key.(model.ChoiceKey); ok {
		if len(q.Options) < 2 {
			return util.NewValidationError(fmt.Sprintf("question %d: multiple-choice needs at least two options", i))
		}
		if k.Index < 0 || k.Index >= len(q.Options) {
			return util.NewValidationError(fmt.Sprintf("question %d: correctAnswer %d is out of range", i, k.Index))
		}
	}
	return nil
}

func applyExamReq(exam *model.Exam, req *ExamReq) {
	exam.Title = strings.TrimSpace(req.Title)
	exam.Description = req.Description
	exam.Duration = req.Duration
	exam.StartTime = req.StartTime
	exam.EndTime = req.EndTime
	exam.ShuffleQuestions = req.ShuffleQuestions
	exam.PassingScore = req.PassingScore

	exam.MaxAttempts = 1
	if req.MaxAttempts != nil {
		exam.MaxAttempts = *req.MaxAttempts
	}
	exam.AllowLateSubmission = true
	if req.AllowLateSubmission != nil {
		exam.AllowLateSubmission = *req.AllowLateSubmission
	}

	questions := make([]model.Question, len(req.Questions))
	for i, q := range req.Questions {
		questions[i] = model.Question{
			Type:          q.Type,
			Prompt:        q.Prompt,
			CorrectAnswer: datatypes.JSON(q.CorrectAnswer),
			Points:        q.Points,
			Explanation:   q.Explanation,
			Order:         i,
		}
		if q.Type == model.MultipleChoice {
			questions[i].Options = datatypes.NewJSONType(q.Options)
		} else {
			questions[i].Options = datatypes.NewJSONType([]string{})
		}
	}
	exam.Questions = questions
}
