package service

import (
	"context"
	"encoding/json"
	"examhub_backend/internal/model"
	"examhub_backend/internal/repository/memstore"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

const (
	teacherID = uint(10)
	studentID = uint(100)
)

var (
	teacher = model.Identity{UserID: teacherID, Role: model.Teacher}
	admin   = model.Identity{UserID: 1, Role: model.Admin}
)

// clock is a settable time source shared by the services under test.
type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func question(typ model.QuestionType, correct string, points int, options ...string) model.Question {
	q := model.Question{
		Type:          typ,
		Prompt:        string(typ) + " prompt",
		CorrectAnswer: datatypes.JSON(correct),
		Points:        points,
		Explanation:   "because",
		Options:       datatypes.NewJSONType([]string{}),
	}
	if options != nil {
		q.Options = datatypes.NewJSONType(options)
	}
	return q
}

// sampleQuestions is worth 11 points: choice 2, true-false 1, blank 3, essay 5.
func sampleQuestions() []model.Question {
	return []model.Question{
		question(model.MultipleChoice, `1`, 2, "A", "B", "C"),
		question(model.TrueFalse, `true`, 1),
		question(model.FillBlank, `"Paris"`, 3),
		question(model.Essay, `"mention the treaty"`, 5),
	}
}

func seedExam(t *testing.T, store *memstore.Store, mutate func(e *model.Exam)) *model.Exam {
	t.Helper()
	start, end := t0, t0.Add(2*time.Hour)
	exam := &model.Exam{
		CourseID:            1,
		TeacherID:           teacherID,
		Title:               "Midterm",
		Description:         "Chapters 1-4",
		Duration:            60,
		StartTime:           &start,
		EndTime:             &end,
		Status:              model.ExamActive,
		MaxAttempts:         1,
		AllowLateSubmission: true,
		Questions:           sampleQuestions(),
	}
	if mutate != nil {
		mutate(exam)
	}
	require.NoError(t, store.CreateExam(context.Background(), exam))
	return exam
}

func raw(values ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(values))
	for i, v := range values {
		out[i] = json.RawMessage(v)
	}
	return out
}

func studentIdentity() model.Identity {
	return model.Identity{UserID: studentID, Role: model.Student}
}
