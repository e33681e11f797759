package service

import (
	"encoding/json"
	"examhub_backend/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore_PerQuestionRules(t *testing.T) {
	tests := []struct {
		name     string
		question model.Question
		answer   string
		correct  bool
	}{
		{"choice exact index", question(model.MultipleChoice, `1`, 2, "A", "B", "C"), `1`, true},
		{"choice numeric string", question(model.MultipleChoice, `1`, 2, "A", "B", "C"), `"1"`, true},
		{"choice key stored as string", question(model.MultipleChoice, `"2"`, 2, "A", "B", "C"), `2`, true},
		{"choice integer prefix", question(model.MultipleChoice, `1`, 2, "A", "B", "C"), `"1) B"`, true},
		{"choice wrong index", question(model.MultipleChoice, `1`, 2, "A", "B", "C"), `0`, false},
		{"choice non numeric", question(model.MultipleChoice, `1`, 2, "A", "B", "C"), `"B"`, false},
		{"true-false boolean", question(model.TrueFalse, `true`, 1), `true`, true},
		{"true-false string true", question(model.TrueFalse, `true`, 1), `"true"`, true},
		{"true-false string false", question(model.TrueFalse, `false`, 1), `"False "`, true},
		{"true-false mismatch", question(model.TrueFalse, `false`, 1), `true`, false},
		{"true-false not a boolean", question(model.TrueFalse, `true`, 1), `"yes"`, false},
		{"true-false number", question(model.TrueFalse, `true`, 1), `1`, false},
		{"blank trimmed case-insensitive", question(model.FillBlank, `"Paris"`, 3), `" paris "`, true},
		{"blank numeric key", question(model.FillBlank, `42`, 3), `"42"`, true},
		{"blank different text", question(model.FillBlank, `"Paris"`, 3), `"Lyon"`, false},
		{"essay never auto-scored", question(model.Essay, `"treaty"`, 5), `"treaty"`, false},
		{"malformed answer", question(model.FillBlank, `"Paris"`, 3), `{`, false},
		{"null answer", question(model.TrueFalse, `true`, 1), `null`, false},
		{"broken key", question(model.MultipleChoice, `"x"`, 2, "A", "B"), `0`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Score([]model.Question{tt.question}, raw(tt.answer))
			require.Len(t, res.Answers, 1)
			assert.Equal(t, tt.correct, res.Answers[0].IsCorrect)
			if tt.correct {
				assert.Equal(t, tt.question.Points, res.Answers[0].PointsAwarded)
			} else {
				assert.Zero(t, res.Answers[0].PointsAwarded)
			}
			assert.Equal(t, tt.question.Points, res.TotalPoints)
		})
	}
}

func TestScore_MultipleChoiceScenario(t *testing.T) {
	questions := []model.Question{question(model.MultipleChoice, `1`, 2, "A", "B", "C")}

	res := Score(questions, raw(`1`))

	assert.Equal(t, 2, res.Score)
	assert.Equal(t, 2, res.TotalPoints)
	assert.Equal(t, 100, res.Percentage)
	assert.True(t, res.Answers[0].IsCorrect)
}

func TestScore_MissingAnswersAreWrong(t *testing.T) {
	res := Score(sampleQuestions(), raw(`1`))

	require.Len(t, res.Answers, 4)
	assert.True(t, res.Answers[0].IsCorrect)
	for i, a := range res.Answers[1:] {
		assert.False(t, a.IsCorrect, "answer %d", i+1)
		assert.Equal(t, i+1, a.Index)
	}
	assert.Equal(t, 2, res.Score)
	assert.Equal(t, 11, res.TotalPoints)
	assert.Equal(t, 18, res.Percentage)
}

func TestScore_Idempotent(t *testing.T) {
	questions := sampleQuestions()
	answers := raw(`1`, `"true"`, `" paris "`, `"an essay"`)

	first := Score(questions, answers)
	second := Score(questions, answers)

	assert.Equal(t, first, second)
	assert.Equal(t, 6, first.Score)
	assert.Equal(t, 55, first.Percentage)
}

func TestScore_EmptyExam(t *testing.T) {
	res := Score(nil, nil)

	assert.Empty(t, res.Answers)
	assert.Zero(t, res.TotalPoints)
	assert.Zero(t, res.Percentage)
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		score, total, want int
	}{
		{0, 0, 0},
		{0, 3, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{3, 3, 100},
	}
	for _, tt := range tests {
		got := Percentage(tt.score, tt.total)
		assert.Equal(t, tt.want, got, "%d/%d", tt.score, tt.total)
		assert.GreaterOrEqual(t, got, 0)
		assert.LessOrEqual(t, got, 100)
	}
}

func TestScore_RecordsRawAnswer(t *testing.T) {
	res := Score([]model.Question{question(model.FillBlank, `"Paris"`, 3)}, raw(`"paris"`))

	assert.Equal(t, json.RawMessage(`"paris"`), res.Answers[0].Answer)
}
