package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type SubmissionStatus string

const (
	SubmissionInProgress SubmissionStatus = "in_progress"
	SubmissionSubmitted  SubmissionStatus = "submitted"
	SubmissionGraded     SubmissionStatus = "graded"
	SubmissionLate       SubmissionStatus = "late"
)

// IsTerminal reports whether answers have been handed in.
func (s SubmissionStatus) IsTerminal() bool {
	return s == SubmissionSubmitted || s == SubmissionGraded || s == SubmissionLate
}

// Scored reports whether the submission counts towards exam statistics.
func (s SubmissionStatus) Scored() bool {
	return s.IsTerminal()
}

// AnswerRecord is one scored answer. Index is the question's position in the exam.
type AnswerRecord struct {
	QuestionID    string          `json:"questionId"`
	Index         int             `json:"index"`
	Answer        json.RawMessage `json:"answer"`
	IsCorrect     bool            `json:"isCorrect"`
	PointsAwarded int             `json:"pointsAwarded"`
}

// swagger:model Submission
type Submission struct {
	UUIDBase
	ExamID      string                             `gorm:"type:varchar(36);not null;uniqueIndex:uk_exam_student_attempt,priority:1" json:"examId"`
	StudentID   uint                               `gorm:"type:bigint unsigned;not null;uniqueIndex:uk_exam_student_attempt,priority:2;index" json:"studentId"`
	Attempt     int                                `gorm:"not null;uniqueIndex:uk_exam_student_attempt,priority:3" json:"attempt"`
	Answers     datatypes.JSONType[[]AnswerRecord] `json:"answers"`
	Score       int                                `gorm:"default:0" json:"score"`
	TotalPoints int                                `gorm:"default:0" json:"totalPoints"`
	Percentage  int                                `gorm:"default:0" json:"percentage"`
	StartedAt   time.Time                          `json:"startedAt"`
	SubmittedAt *time.Time                         `json:"submittedAt"`
	TimeSpent   int                                `gorm:"default:0" json:"timeSpent"` // Minutes
	Status      SubmissionStatus                   `gorm:"size:20;not null;index" json:"status"`
	IsLate      bool                               `json:"isLate"`
	GradedBy    *uint                              `gorm:"type:bigint unsigned" json:"gradedBy,omitempty"`
	GradedAt    *time.Time                         `json:"gradedAt,omitempty"`
	Feedback    string                             `gorm:"type:text" json:"feedback,omitempty"`
}

func (Submission) TableName() string {
	return "exam_submissions"
}

func (s *Submission) AnswerList() []AnswerRecord {
	return s.Answers.Data()
}

// TimeSpentMinutes is the whole minutes between start and t.
func (s *Submission) TimeSpentMinutes(t time.Time) int {
	d := t.Sub(s.StartedAt)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

// RemainingSeconds is what is left of a duration-minute allowance at now.
func (s *Submission) RemainingSeconds(duration int, now time.Time) int {
	left := duration*60 - int(now.Sub(s.StartedAt)/time.Second)
	if left < 0 {
		return 0
	}
	return left
}
