package service

import (
	"context"
	"examhub_backend/internal/model"
	"math"
)

type ExamStatsService struct {
	Exams               ExamStore
	Submissions         SubmissionStore
	DefaultPassingScore int
}

func NewExamStatsService(exams ExamStore, submissions SubmissionStore, defaultPassingScore int) *ExamStatsService {
	return &ExamStatsService{Exams: exams, Submissions: submissions, DefaultPassingScore: defaultPassingScore}
}

type ExamStats struct {
	TotalSubmissions int     `json:"totalSubmissions"`
	AverageScore     float64 `json:"averageScore"`
	HighestScore     int     `json:"highestScore"`
	LowestScore      int     `json:"lowestScore"`
	PassRate         float64 `json:"passRate"`
	PassingScore     int     `json:"passingScore"`
}

type ExamStatsReport struct {
	Stats       ExamStats          `json:"stats"`
	Submissions []model.Submission `json:"submissions"`
}

// ComputeExamStats summarizes the scored submissions of one exam. passingScore
// overrides the exam's own threshold when non-nil.
func (s *ExamStatsService) ComputeExamStats(ctx context.Context, examID string, passingScore *int) (*ExamStatsReport, error) {
	exam, err := s.Exams.FindExamByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	all, err := s.Submissions.ListSubmissionsForExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	fallback := s.DefaultPassingScore
	if fallback <= 0 {
		fallback = model.DefaultPassingScore
	}
	threshold := exam.EffectivePassingScore(fallback)
	if passingScore != nil {
		threshold = *passingScore
	}

	scored := make([]model.Submission, 0, len(all))
	for _, sub := range all {
		// in_progress rows have no final score yet
		if sub.Status.Scored() {
			scored = append(scored, sub)
		}
	}

	return &ExamStatsReport{
		Stats:       summarize(scored, threshold),
		Submissions: scored,
	}, nil
}

func summarize(subs []model.Submission, passingScore int) ExamStats {
	stats := ExamStats{PassingScore: passingScore}
	if len(subs) == 0 {
		return stats
	}

	sum, passed := 0, 0
	stats.HighestScore = subs[0].Score
	stats.LowestScore = subs[0].Score
	for _, sub := range subs {
		sum += sub.Score
		if sub.Score > stats.HighestScore {
			stats.HighestScore = sub.Score
		}
		if sub.Score < stats.LowestScore {
			stats.LowestScore = sub.Score
		}
		if sub.Score >= passingScore {
			passed++
		}
	}

	n := float64(len(subs))
	stats.TotalSubmissions = len(subs)
	stats.AverageScore = round2(float64(sum) / n)
	stats.PassRate = round2(float64(passed) / n * 100)
	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
