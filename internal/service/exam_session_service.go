package service

import (
	"context"
	"encoding/json"
	"examhub_backend/internal/model"
	"examhub_backend/internal/util"
	"examhub_backend/pkg/logger"
	"examhub_backend/pkg/monitoring"
	"examhub_backend/pkg/tracing"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type ExamSessionService struct {
	Exams       ExamStore
	Submissions SubmissionStore
	Now         func() time.Time
}

func NewExamSessionService(exams ExamStore, submissions SubmissionStore) *ExamSessionService {
	return &ExamSessionService{Exams: exams, Submissions: submissions, Now: time.Now}
}

// SessionQuestion is a question as delivered to a student. It has no answer key.
type SessionQuestion struct {
	ID      string             `json:"id"`
	Type    model.QuestionType `json:"type"`
	Prompt  string             `json:"prompt"`
	Options []string           `json:"options,omitempty"`
	Points  int                `json:"points"`
	Order   int                `json:"order"`
}

type ExamSessionView struct {
	ExamID               string            `json:"examId"`
	Title                string            `json:"title"`
	Description          string            `json:"description"`
	Duration             int               `json:"duration"`
	TotalPoints          int               `json:"totalPoints"`
	Questions            []SessionQuestion `json:"questions"`
	StartTime            *time.Time        `json:"startTime"`
	EndTime              *time.Time        `json:"endTime"`
	SubmissionID         string            `json:"submissionId"`
	Attempt              int               `json:"attempt"`
	StartedAt            time.Time         `json:"startedAt"`
	TimeRemainingSeconds int               `json:"timeRemainingSeconds"`
	Resumed              bool              `json:"resumed"`
}

type SubmissionResult struct {
	SubmissionID     string                 `json:"submissionId"`
	Score            int                    `json:"score"`
	TotalPoints      int                    `json:"totalPoints"`
	Percentage       int                    `json:"percentage"`
	TimeSpentMinutes int                    `json:"timeSpentMinutes"`
	SubmittedAt      time.Time              `json:"submittedAt"`
	IsLate           bool                   `json:"isLate"`
	Status           model.SubmissionStatus `json:"status"`
}

// SessionState is the student's standing on one exam, as shown before or during an attempt.
type SessionState struct {
	ExamID               string                 `json:"examId"`
	State                string                 `json:"state"` // not_started, in_progress or the terminal status
	SubmissionID         string                 `json:"submissionId,omitempty"`
	Attempt              int                    `json:"attempt"`
	AttemptsRemaining    int                    `json:"attemptsRemaining"`
	StartedAt            *time.Time             `json:"startedAt,omitempty"`
	TimeRemainingSeconds int                    `json:"timeRemainingSeconds"`
	Result               *SubmissionResult      `json:"result,omitempty"`
	ExamStatus           model.ExamStatus       `json:"examStatus"`
}

const stateNotStarted = "not_started"

// StartExam creates the student's next attempt or resumes the open one.
func (s *ExamSessionService) StartExam(ctx context.Context, examID string, studentID uint) (*ExamSessionView, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ExamSessionService.StartExam",
		trace.WithAttributes(attribute.String("exam.id", examID), attribute.Int64("student.id", int64(studentID))))
	defer span.End()

	view, outcome, err := s.startExam(ctx, examID, studentID)
	if err != nil {
		monitoring.ExamSessions.WithLabelValues("rejected").Inc()
		recordSpanError(span, err)
		return nil, err
	}
	monitoring.ExamSessions.WithLabelValues(outcome).Inc()
	return view, nil
}

func (s *ExamSessionService) startExam(ctx context.Context, examID string, studentID uint) (*ExamSessionView, string, error) {
	exam, err := s.Exams.FindExamByID(ctx, examID)
	if err != nil {
		return nil, "", err
	}
	if !exam.IsTakeable() {
		return nil, "", util.ErrExamNotAvailable
	}

	now := s.Now()
	if exam.NotStartedAt(now) {
		return nil, "", util.ErrExamNotStarted
	}
	if exam.EndedAt(now) {
		return nil, "", util.ErrExamEnded
	}

	latest, err := s.Submissions.FindLatestSubmission(ctx, examID, studentID)
	if err != nil {
		return nil, "", err
	}

	attempt := 1
	if latest != nil {
		if latest.Status == model.SubmissionInProgress {
			return buildSessionView(exam, latest, now, true), "resumed", nil
		}
		if latest.Attempt >= maxAttempts(exam) {
			return nil, "", alreadySubmitted(latest)
		}
		attempt = latest.Attempt + 1
	}

	sub, created, err := s.Submissions.CreateOrFetchSubmission(ctx, &model.Submission{
		ExamID:    examID,
		StudentID: studentID,
		Attempt:   attempt,
		StartedAt: now,
		Status:    model.SubmissionInProgress,
		Answers:   datatypes.NewJSONType([]model.AnswerRecord{}),
	})
	if err != nil {
		return nil, "", err
	}
	if !created {
		// a concurrent request created this attempt first
		if sub.Status.IsTerminal() {
			return nil, "", alreadySubmitted(sub)
		}
		return buildSessionView(exam, sub, now, true), "resumed", nil
	}

	logger.Log.Info("Exam session started",
		zap.String("examID", examID),
		zap.Uint("studentID", studentID),
		zap.Int("attempt", attempt),
		zap.String("submissionID", sub.ID))
	return buildSessionView(exam, sub, now, false), "created", nil
}

// SubmitAnswers scores answers and finalizes the submission. Only one call per
// submission can succeed; a concurrent loser gets ErrConflict.
func (s *ExamSessionService) SubmitAnswers(ctx context.Context, submissionID string, studentID uint, answers []json.RawMessage) (*SubmissionResult, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ExamSessionService.SubmitAnswers",
		trace.WithAttributes(attribute.String("submission.id", submissionID), attribute.Int64("student.id", int64(studentID))))
	defer span.End()

	res, err := s.submitAnswers(ctx, submissionID, studentID, answers)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	monitoring.ExamSubmissions.WithLabelValues(string(res.Status)).Inc()
	return res, nil
}

func (s *ExamSessionService) submitAnswers(ctx context.Context, submissionID string, studentID uint, answers []json.RawMessage) (*SubmissionResult, error) {
	sub, err := s.Submissions.FindSubmissionByID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.StudentID != studentID {
		return nil, util.ErrForbidden
	}
	if sub.Status.IsTerminal() {
		return nil, alreadySubmitted(sub)
	}

	exam, err := s.Exams.FindExamByID(ctx, sub.ExamID)
	if err != nil {
		return nil, err
	}
	if len(answers) > len(exam.Questions) {
		return nil, util.NewValidationError(fmt.Sprintf("got %d answers for %d questions", len(answers), len(exam.Questions)))
	}

	now := s.Now()
	late := exam.EndedAt(now)
	if late && !exam.AllowLateSubmission {
		return nil, util.ErrExamEnded
	}

	start := time.Now()
	scored := Score(exam.Questions, answers)
	monitoring.ScoringDuration.Observe(time.Since(start).Seconds())

	sub.Answers = datatypes.NewJSONType(scored.Answers)
	sub.Score = scored.Score
	sub.TotalPoints = scored.TotalPoints
	sub.Percentage = scored.Percentage
	sub.SubmittedAt = &now
	sub.TimeSpent = sub.TimeSpentMinutes(now)
	sub.IsLate = late
	sub.Status = model.SubmissionSubmitted
	if late {
		sub.Status = model.SubmissionLate
	}

	if err := s.Submissions.ConditionalUpdateSubmission(ctx, sub, model.SubmissionInProgress); err != nil {
		return nil, err
	}

	logger.Log.Info("Exam submitted",
		zap.String("submissionID", sub.ID),
		zap.String("examID", sub.ExamID),
		zap.Uint("studentID", studentID),
		zap.Int("score", sub.Score),
		zap.Int("totalPoints", sub.TotalPoints),
		zap.Bool("late", late))
	return toSubmissionResult(sub), nil
}

// GetSession reports the student's latest attempt without changing anything.
func (s *ExamSessionService) GetSession(ctx context.Context, examID string, studentID uint) (*SessionState, error) {
	exam, err := s.Exams.FindExamByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	latest, err := s.Submissions.FindLatestSubmission(ctx, examID, studentID)
	if err != nil {
		return nil, err
	}

	state := &SessionState{
		ExamID:            examID,
		State:             stateNotStarted,
		AttemptsRemaining: maxAttempts(exam),
		ExamStatus:        exam.Status,
	}
	if latest == nil {
		return state, nil
	}

	state.SubmissionID = latest.ID
	state.Attempt = latest.Attempt
	state.State = string(latest.Status)
	startedAt := latest.StartedAt
	state.StartedAt = &startedAt

	if latest.Status == model.SubmissionInProgress {
		state.AttemptsRemaining = maxAttempts(exam) - latest.Attempt + 1
		state.TimeRemainingSeconds = latest.RemainingSeconds(exam.Duration, s.Now())
		return state, nil
	}
	state.AttemptsRemaining = maxAttempts(exam) - latest.Attempt
	if state.AttemptsRemaining < 0 {
		state.AttemptsRemaining = 0
	}
	state.Result = toSubmissionResult(latest)
	return state, nil
}

func buildSessionView(exam *model.Exam, sub *model.Submission, now time.Time, resumed bool) *ExamSessionView {
	questions := make([]SessionQuestion, len(exam.Questions))
	for i := range exam.Questions {
		q := &exam.Questions[i]
		questions[i] = SessionQuestion{
			ID:     q.ID,
			Type:   q.Type,
			Prompt: q.Prompt,
			Points: q.Points,
			Order:  i,
		}
		if q.Type == model.MultipleChoice {
			questions[i].Options = q.OptionList()
		}
	}
	if exam.ShuffleQuestions {
		questions = shuffleQuestions(questions, sub.ID)
	}

	return &ExamSessionView{
		ExamID:               exam.ID,
		Title:                exam.Title,
		Description:          exam.Description,
		Duration:             exam.Duration,
		TotalPoints:          exam.TotalPoints(),
		Questions:            questions,
		StartTime:            exam.StartTime,
		EndTime:              exam.EndTime,
		SubmissionID:         sub.ID,
		Attempt:              sub.Attempt,
		StartedAt:            sub.StartedAt,
		TimeRemainingSeconds: sub.RemainingSeconds(exam.Duration, now),
		Resumed:              resumed,
	}
}

// shuffleQuestions permutes questions with a seed derived from the submission
// id, so a resumed attempt sees the same order.
func shuffleQuestions(questions []SessionQuestion, submissionID string) []SessionQuestion {
	h := fnv.New64a()
	h.Write([]byte(submissionID))
	r := rand.New(rand.NewSource(int64(h.Sum64())))

	out := make([]SessionQuestion, len(questions))
	for i, j := range r.Perm(len(questions)) {
		out[i] = questions[j]
	}
	return out
}

func maxAttempts(exam *model.Exam) int {
	if exam.MaxAttempts < 1 {
		return 1
	}
	return exam.MaxAttempts
}

func alreadySubmitted(sub *model.Submission) *util.AlreadySubmittedError {
	e := &util.AlreadySubmittedError{
		SubmissionID: sub.ID,
		Score:        sub.Score,
		TotalPoints:  sub.TotalPoints,
		Percentage:   sub.Percentage,
		TimeSpent:    sub.TimeSpent,
		Status:       string(sub.Status),
	}
	if sub.SubmittedAt != nil {
		e.SubmittedAt = *sub.SubmittedAt
		e.TimeSpent = sub.TimeSpentMinutes(*sub.SubmittedAt)
	}
	return e
}

func toSubmissionResult(sub *model.Submission) *SubmissionResult {
	res := &SubmissionResult{
		SubmissionID:     sub.ID,
		Score:            sub.Score,
		TotalPoints:      sub.TotalPoints,
		Percentage:       sub.Percentage,
		TimeSpentMinutes: sub.TimeSpent,
		IsLate:           sub.IsLate,
		Status:           sub.Status,
	}
	if sub.SubmittedAt != nil {
		res.SubmittedAt = *sub.SubmittedAt
	}
	return res
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
