package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type ExamStatus string

const (
	ExamDraft     ExamStatus = "draft"
	ExamPublished ExamStatus = "published"
	ExamActive    ExamStatus = "active"
	ExamCompleted ExamStatus = "completed"
)

func (s ExamStatus) Valid() bool {
	switch s {
	case ExamDraft, ExamPublished, ExamActive, ExamCompleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether an exam in status s may move to next.
// Exams only move forward; completed is final.
func (s ExamStatus) CanTransitionTo(next ExamStatus) bool {
	rank := map[ExamStatus]int{ExamDraft: 0, ExamPublished: 1, ExamActive: 2, ExamCompleted: 3}
	cur, ok1 := rank[s]
	nxt, ok2 := rank[next]
	if !ok1 || !ok2 {
		return false
	}
	return nxt > cur
}

// DefaultPassingScore applies when neither the request nor the exam sets one.
const DefaultPassingScore = 5

// swagger:model Exam
type Exam struct {
	UUIDBase
	CourseID            uint       `gorm:"index;type:bigint unsigned" json:"courseId"`
	TeacherID           uint       `gorm:"index;type:bigint unsigned" json:"teacherId"`
	Title               string     `gorm:"size:255;not null" json:"title"`
	Description         string     `gorm:"type:text" json:"description"`
	Duration            int        `gorm:"not null" json:"duration"` // Minutes
	StartTime           *time.Time `gorm:"index" json:"startTime"`
	EndTime             *time.Time `gorm:"index" json:"endTime"`
	Status              ExamStatus `gorm:"size:20;not null;index" json:"status"`
	MaxAttempts         int        `gorm:"not null" json:"maxAttempts"`
	AllowLateSubmission bool       `json:"allowLateSubmission"`
	ShuffleQuestions    bool       `json:"shuffleQuestions"`
	PassingScore        *int       `json:"passingScore,omitempty"`
	Questions           []Question `gorm:"foreignKey:ExamID" json:"questions"`
}

func (Exam) TableName() string {
	return "exams"
}

// TotalPoints is always derived from the question bank, never stored.
func (e *Exam) TotalPoints() int {
	total := 0
	for _, q := range e.Questions {
		total += q.Points
	}
	return total
}

// IsTakeable reports whether students may start the exam in its current lifecycle state.
func (e *Exam) IsTakeable() bool {
	return e.Status == ExamPublished || e.Status == ExamActive
}

func (e *Exam) NotStartedAt(now time.Time) bool {
	return e.StartTime != nil && now.Before(*e.StartTime)
}

func (e *Exam) EndedAt(now time.Time) bool {
	return e.EndTime != nil && now.After(*e.EndTime)
}

func (e *Exam) EffectivePassingScore(fallback int) int {
	if e.PassingScore != nil {
		return *e.PassingScore
	}
	return fallback
}

func (e Exam) MarshalJSON() ([]byte, error) {
	type alias Exam
	return json.Marshal(struct {
		alias
		TotalPoints int `json:"totalPoints"`
	}{alias(e), e.TotalPoints()})
}

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple-choice"
	TrueFalse      QuestionType = "true-false"
	Essay          QuestionType = "essay"
	FillBlank      QuestionType = "fill-blank"
)

func (t QuestionType) Valid() bool {
	switch t {
	case MultipleChoice, TrueFalse, Essay, FillBlank:
		return true
	}
	return false
}

// swagger:model Question
type Question struct {
	UUIDBase
	ExamID        string                       `gorm:"index;type:varchar(36)" json:"examId"`
	Type          QuestionType                 `gorm:"size:30;not null" json:"type"`
	Prompt        string                       `gorm:"type:text;not null" json:"prompt"`
	Options       datatypes.JSONType[[]string] `json:"options"`
	CorrectAnswer datatypes.JSON               `json:"correctAnswer"`
	Points        int                          `gorm:"default:0" json:"points"`
	Explanation   string                       `gorm:"type:text" json:"explanation"`
	Order         int                          `gorm:"default:0" json:"order"`
}

func (Question) TableName() string {
	return "exam_questions"
}

func (q *Question) OptionList() []string {
	return q.Options.Data()
}
