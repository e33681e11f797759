package service

import (
	"encoding/json"
	"examhub_backend/internal/model"
	"math"
	"strings"
)

type ScoreResult struct {
	Answers     []model.AnswerRecord `json:"answers"`
	Score       int                  `json:"score"`
	TotalPoints int                  `json:"totalPoints"`
	Percentage  int                  `json:"percentage"`
}

// Score grades answers positionally against questions. A missing or
// malformed answer is marked wrong; Score never fails.
func Score(questions []model.Question, answers []json.RawMessage) ScoreResult {
	res := ScoreResult{Answers: make([]model.AnswerRecord, 0, len(questions))}

	for i := range questions {
		q := &questions[i]
		var answer json.RawMessage
		if i < len(answers) {
			answer = answers[i]
		}

		correct := isCorrect(q, answer)
		awarded := 0
		if correct {
			awarded = q.Points
		}

		res.Answers = append(res.Answers, model.AnswerRecord{
			QuestionID:    q.ID,
			Index:         i,
			Answer:        answer,
			IsCorrect:     correct,
			PointsAwarded: awarded,
		})
		res.Score += awarded
		res.TotalPoints += q.Points
	}

	res.Percentage = Percentage(res.Score, res.TotalPoints)
	return res
}

// Percentage is round(score/total*100), or 0 when total is 0.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}

func isCorrect(q *model.Question, answer json.RawMessage) bool {
	key, err := q.Key()
	if err != nil {
		return false
	}

	switch k := key.(type) {
	case model.ChoiceKey:
		idx, ok := model.ParseChoice(answer)
		return ok && idx == k.Index
	case model.TrueFalseKey:
		v, ok := model.ParseTrueFalse(answer)
		return ok && v == k.Value
	case model.BlankKey:
		s, ok := model.ParseBlank(answer)
		return ok && strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(k.Text))
	case model.EssayKey:
		// graded by hand
		return false
	}
	return false
}
