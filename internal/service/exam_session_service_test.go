package service

import (
	"context"
	"encoding/json"
	"errors"
	"examhub_backend/internal/model"
	"examhub_backend/internal/repository/memstore"
	"examhub_backend/internal/util"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionService(t *testing.T) (*ExamSessionService, *memstore.Store, *clock) {
	t.Helper()
	store := memstore.New()
	clk := &clock{now: t0}
	svc := NewExamSessionService(store, store)
	svc.Now = clk.Now
	return svc, store, clk
}

func TestStartExam_CreatesFirstAttempt(t *testing.T) {
	svc, store, clk := newSessionService(t)
	exam := seedExam(t, store, nil)
	clk.Advance(5 * time.Minute)

	view, err := svc.StartExam(context.Background(), exam.ID, studentID)
	require.NoError(t, err)

	assert.Equal(t, exam.ID, view.ExamID)
	assert.Equal(t, 1, view.Attempt)
	assert.Equal(t, clk.now, view.StartedAt)
	assert.Equal(t, 3600, view.TimeRemainingSeconds)
	assert.Equal(t, 11, view.TotalPoints)
	assert.False(t, view.Resumed)
	require.Len(t, view.Questions, 4)
	assert.Equal(t, []string{"A", "B", "C"}, view.Questions[0].Options)
	assert.Nil(t, view.Questions[1].Options)

	sub, err := store.FindSubmissionByID(context.Background(), view.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionInProgress, sub.Status)
	assert.Nil(t, sub.SubmittedAt)
}

func TestStartExam_RedactsAnswerKeys(t *testing.T) {
	svc, store, _ := newSessionService(t)
	exam := seedExam(t, store, nil)

	view, err := svc.StartExam(context.Background(), exam.ID, studentID)
	require.NoError(t, err)

	data, err := json.Marshal(view)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "correctAnswer")
	assert.NotContains(t, string(data), "explanation")
	assert.NotContains(t, string(data), "Paris")
}

func TestStartExam_ResumesInProgressAttempt(t *testing.T) {
	svc, store, clk := newSessionService(t)
	exam := seedExam(t, store, nil)

	first, err := svc.StartExam(context.Background(), exam.ID, studentID)
	require.NoError(t, err)

	clk.Advance(10 * time.Minute)
	second, err := svc.StartExam(context.Background(), exam.ID, studentID)
	require.NoError(t, err)

	assert.Equal(t, first.SubmissionID, second.SubmissionID)
	assert.Equal(t, first.StartedAt, second.StartedAt)
	assert.Equal(t, 3000, second.TimeRemainingSeconds)
	assert.True(t, second.Resumed)
}

func TestStartExam_TimeRemainingNeverNegative(t *testing.T) {
	svc, store, clk := newSessionService(t)
	exam := seedExam(t, store, nil)

	_, err := svc.StartExam(context.Background(), exam.ID, studentID)
	require.NoError(t, err)

	clk.Advance(90 * time.Minute)
	view, err := svc.StartExam(context.Background(), exam.ID, studentID)
	require.NoError(t, err)
	assert.Zero(t, view.TimeRemainingSeconds)
}

func TestStartExam_Gates(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(e *model.Exam)
		offset time.Duration
		want   error
	}{
		{"draft", func(e *model.Exam) { e.Status = model.ExamDraft }, 0, util.ErrExamNotAvailable},
		{"completed", func(e *model.Exam) { e.Status = model.ExamCompleted }, 0, util.ErrExamNotAvailable},
		{"before start", nil, -time.Second, util.ErrExamNotStarted},
		{"after end", nil, 2*time.Hour + time.Second, util.ErrExamEnded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, clk := newSessionService(t)
			exam := seedExam(t, store, tt.mutate)
			clk.Advance(tt.offset)

			_, err := svc.StartExam(context.Background(), exam.ID, studentID)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestStartExam_UnscheduledPublishedExam(t *testing.T) {
	svc, store, _ := newSessionService(t)
	exam := seedExam(t, store, func(e *model.Exam) {
		e.Status = model.ExamPublished
		e.StartTime, e.EndTime = nil, nil
	})

	_, err := svc.StartExam(context.Background(), exam.ID, studentID)
	assert.NoError(t, err)
}

func TestStartExam_NotFound(t *testing.T) {
	svc, _, _ := newSessionService(t)

	_, err := svc.StartExam(context.Background(), "missing", studentID)
	assert.ErrorIs(t, err, util.ErrExamNotFound)
}

func TestStartExam_AlreadySubmittedCarriesResult(t *testing.T) {
	svc, store, clk := newSessionService(t)
	exam := seedExam(t, store, nil)
	submittedAt := t0.Add(42 * time.Minute)
	store.PutSubmission(&model.Submission{
		UUIDBase:    model.UUIDBase{ID: "sub-1"},
		ExamID:      exam.ID,
		StudentID:   studentID,
		Attempt:     1,
		Score:       7,
		TotalPoints: 11,
		Percentage:  64,
		StartedAt:   t0,
		SubmittedAt: &submittedAt,
		TimeSpent:   42,
		Status:      model.SubmissionSubmitted,
	})
	clk.Advance(time.Hour)

	_, err := svc.StartExam(context.Background(), exam.ID, studentID)
	require.ErrorIs(t, err, util.ErrAlreadySubmitted)

	var already *util.AlreadySubmittedError
	require.True(t, errors.As(err, &already))
	assert.Equal(t, "sub-1", already.SubmissionID)
	assert.Equal(t, 7, already.Score)
	assert.Equal(t, submittedAt, already.SubmittedAt)
	assert.Equal(t, 42, already.TimeSpent)
}

func TestStartExam_NextAttemptWithinLimit(t *testing.T) {
	svc, store, clk := newSessionService(t)
	exam := seedExam(t, store, func(e *model.Exam) { e.MaxAttempts = 2 })

	first, err := svc.StartExam(context.Background(), exam.ID, studentID)
	require.NoError(t, err)
	clk.Advance(20 * time.Minute)
	_, err = svc.SubmitAnswers(context.Background(), first.SubmissionID, studentID, raw(`1`))
	require.NoError(t, err)

	second, err := svc.StartExam(context.Background(), exam.ID, studentID)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Attempt)
	assert.NotEqual(t, first.SubmissionID, second.SubmissionID)
	assert.Equal(t, 3600, second.TimeRemainingSeconds)

	_, err = svc.SubmitAnswers(context.Background(), second.SubmissionID, studentID, raw(`1`))
	require.NoError(t, err)
	_, err = svc.StartExam(context.Background(), exam.ID, studentID)
	assert.ErrorIs(t, err, util.ErrAlreadySubmitted)
}

func TestStartExam_ConcurrentStartsShareOneAttempt(t *testing.T) {
	svc, store, _ := newSessionService(t)
	exam := seedExam(t, store, nil)

	const n = 8
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			view, err := svc.StartExam(context.Background(), exam.ID, studentID)
			if assert.NoError(t, err) {
				ids[i] = view.SubmissionID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	subs, err := store.ListSubmissionsForExam(context.Background(), exam.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestStartExam_ShuffleIsStablePerSubmission(t *testing.T) {
	svc, store, _ := newSessionService(t)
	exam := seedExam(t, store, func(e *model.Exam) {
		e.ShuffleQuestions = true
		for i := 0; i < 6; i++ {
			e.Questions = append(e.Questions, question(model.TrueFalse, `false`, 1))
		}
	})

	first, err := svc.StartExam(context.Background(), exam.ID, studentID)
	require.NoError(t, err)
	again, err := svc.StartExam(context.Background(), exam.ID, studentID)
	require.NoError(t, err)

	assert.Equal(t, first.Questions, again.Questions)

	seen := make(map[int]bool)
	for _, q := range first.Questions {
		require.False(t, seen[q.Order])
		seen[q.Order] = true
		assert.Equal(t, exam.Questions[q.Order].ID, q.ID)
	}
	assert.Len(t, seen, len(exam.Questions))
}

func TestSubmitAnswers_ScoresAndFinalizes(t *testing.T) {
	svc, store, clk := newSessionService(t)
	exam := seedExam(t, store, nil)
	view, err := svc.StartExam(context.Background(), exam.ID, studentID)
	require.NoError(t, err)

	clk.Advance(25*time.Minute + 30*time.Second)
	res, err := svc.SubmitAnswers(context.Background(), view.SubmissionID, studentID,
		raw(`1`, `true`, `" paris "`, `"a long essay"`))
	require.NoError(t, err)

	assert.Equal(t, 6, res.Score)
	assert.Equal(t, 11, res.TotalPoints)
	assert.Equal(t, 55, res.Percentage)
	assert.Equal(t, 25, res.TimeSpentMinutes)
	assert.Equal(t, clk.now, res.SubmittedAt)
	assert.False(t, res.IsLate)
	assert.Equal(t, model.SubmissionSubmitted, res.Status)

	sub, err := store.FindSubmissionByID(context.Background(), view.SubmissionID)
	require.NoError(t, err)
	require.NotNil(t, sub.SubmittedAt)
	answers := sub.AnswerList()
	require.Len(t, answers, 4)
	assert.False(t, answers[3].IsCorrect)
	assert.Zero(t, answers[3].PointsAwarded)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "correctAnswer")
}

func TestSubmitAnswers_LateSubmission(t *testing.T) {
	svc, store, clk := newSessionService(t)
	exam := seedExam(t, store, func(e *model.Exam) {
		start := t0.Add(-time.Hour)
		e.StartTime, e.EndTime = &start, &t0
	})
	clk.now = t0.Add(-30 * time.Minute)
	view, err := svc.StartExam(context.Background(), exam.ID, studentID)
	require.NoError(t, err)

	clk.now = t0.Add(time.Second)
	res, err := svc.SubmitAnswers(context.Background(), view.SubmissionID, studentID, raw(`1`))
	require.NoError(t, err)

	assert.Equal(t, model.SubmissionLate, res.Status)
	assert.True(t, res.IsLate)
	assert.Equal(t, 30, res.TimeSpentMinutes)
}

func TestSubmitAnswers_LateRejectedWhenDisallowed(t *testing.T) {
	svc, store, clk := newSessionService(t)
	exam := seedExam(t, store, func(e *model.Exam) {
		start := t0.Add(-time.Hour)
		e.StartTime, e.EndTime = &start, &t0
		e.AllowLateSubmission = false
	})
	clk.now = t0.Add(-30 * time.Minute)
	view, err := svc.StartExam(context.Background(), exam.ID, studentID)
	require.NoError(t, err)

	clk.now = t0.Add(time.Second)
	_, err = svc.SubmitAnswers(context.Background(), view.SubmissionID, studentID, raw(`1`))
	assert.ErrorIs(t, err, util.ErrExamEnded)

	sub, err := store.FindSubmissionByID(context.Background(), view.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionInProgress, sub.Status)
}

func TestSubmitAnswers_RejectsResubmission(t *testing.T) {
	svc, store, _ := newSessionService(t)
	exam := seedExam(t, store, nil)
	view, err := svc.StartExam(context.Background(), exam.ID, studentID)
	require.NoError(t, err)

	first, err := svc.SubmitAnswers(context.Background(), view.SubmissionID, studentID, raw(`1`))
	require.NoError(t, err)

	_, err = svc.SubmitAnswers(context.Background(), view.SubmissionID, studentID, raw(`1`, `true`, `"Paris"`))
	var already *util.AlreadySubmittedError
	require.True(t, errors.As(err, &already))
	assert.Equal(t, first.Score, already.Score)

	sub, err := store.FindSubmissionByID(context.Background(), view.SubmissionID)
	require.NoError(t, err)
	assert.Equal(t, first.Score, sub.Score)
}

func TestSubmitAnswers_ConcurrentSubmitsScoreOnce(t *testing.T) {
	svc, store, _ := newSessionService(t)
	exam := seedExam(t, store, nil)
	view, err := svc.StartExam(context.Background(), exam.ID, studentID)
	require.NoError(t, err)

	const n = 10
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.SubmitAnswers(context.Background(), view.SubmissionID, studentID, raw(`1`))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, util.ErrAlreadySubmitted) || errors.Is(err, util.ErrConflict), "unexpected error %v", err)
	}
	assert.Equal(t, 1, succeeded)
}

func TestSubmitAnswers_OwnershipAndValidation(t *testing.T) {
	svc, store, _ := newSessionService(t)
	exam := seedExam(t, store, nil)
	view, err := svc.StartExam(context.Background(), exam.ID, studentID)
	require.NoError(t, err)

	_, err = svc.SubmitAnswers(context.Background(), view.SubmissionID, studentID+1, raw(`1`))
	assert.ErrorIs(t, err, util.ErrForbidden)

	_, err = svc.SubmitAnswers(context.Background(), "missing", studentID, raw(`1`))
	assert.ErrorIs(t, err, util.ErrSubmissionNotFound)

	_, err = svc.SubmitAnswers(context.Background(), view.SubmissionID, studentID, raw(`1`, `1`, `1`, `1`, `1`))
	assert.ErrorIs(t, err, util.ErrValidation)
}

func TestGetSession(t *testing.T) {
	svc, store, clk := newSessionService(t)
	exam := seedExam(t, store, nil)

	state, err := svc.GetSession(context.Background(), exam.ID, studentID)
	require.NoError(t, err)
	assert.Equal(t, "not_started", state.State)
	assert.Equal(t, 1, state.AttemptsRemaining)

	view, err := svc.StartExam(context.Background(), exam.ID, studentID)
	require.NoError(t, err)
	clk.Advance(15 * time.Minute)

	state, err = svc.GetSession(context.Background(), exam.ID, studentID)
	require.NoError(t, err)
	assert.Equal(t, "in_progress", state.State)
	assert.Equal(t, view.SubmissionID, state.SubmissionID)
	assert.Equal(t, 2700, state.TimeRemainingSeconds)
	assert.Nil(t, state.Result)

	_, err = svc.SubmitAnswers(context.Background(), view.SubmissionID, studentID, raw(`1`))
	require.NoError(t, err)

	state, err = svc.GetSession(context.Background(), exam.ID, studentID)
	require.NoError(t, err)
	assert.Equal(t, "submitted", state.State)
	assert.Zero(t, state.AttemptsRemaining)
	require.NotNil(t, state.Result)
	assert.Equal(t, 2, state.Result.Score)
}
