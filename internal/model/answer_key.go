package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AnswerKey is the decoded correctAnswer of a question. The concrete type is
// fixed by Question.Type: ChoiceKey, TrueFalseKey, BlankKey or EssayKey.
type AnswerKey interface {
	questionType() QuestionType
}

type ChoiceKey struct{ Index int }

type TrueFalseKey struct{ Value bool }

type BlankKey struct{ Text string }

// EssayKey holds an optional grading hint; essays are never auto-scored.
type EssayKey struct{ Hint string }

func (ChoiceKey) questionType() QuestionType    { return MultipleChoice }
func (TrueFalseKey) questionType() QuestionType { return TrueFalse }
func (BlankKey) questionType() QuestionType     { return FillBlank }
func (EssayKey) questionType() QuestionType     { return Essay }

// Key decodes CorrectAnswer according to the question type.
func (q *Question) Key() (AnswerKey, error) {
	raw := json.RawMessage(q.CorrectAnswer)
	switch q.Type {
	case MultipleChoice:
		idx, ok := ParseChoice(raw)
		if !ok {
			return nil, fmt.Errorf("question %q: correctAnswer is not an option index", q.Prompt)
		}
		return ChoiceKey{Index: idx}, nil
	case TrueFalse:
		v, ok := ParseTrueFalse(raw)
		if !ok {
			return nil, fmt.Errorf("question %q: correctAnswer is not a boolean", q.Prompt)
		}
		return TrueFalseKey{Value: v}, nil
	case FillBlank:
		s, ok := ParseBlank(raw)
		if !ok {
			return nil, fmt.Errorf("question %q: correctAnswer is not text", q.Prompt)
		}
		return BlankKey{Text: s}, nil
	case Essay:
		hint, _ := ParseBlank(raw)
		return EssayKey{Hint: hint}, nil
	}
	return nil, fmt.Errorf("unknown question type %q", q.Type)
}

// ParseChoice coerces a raw answer to an option index. Numbers are truncated;
// strings are read up to the first non-digit, so "2" and "2)" both give 2.
func ParseChoice(raw json.RawMessage) (int, bool) {
	v, ok := decode(raw)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int(t), true
	case string:
		return leadingInt(t)
	}
	return 0, false
}

// ParseTrueFalse accepts JSON booleans and the strings "true"/"false"
// (trimmed, any case). Everything else is not a true-false answer.
func ParseTrueFalse(raw json.RawMessage) (bool, bool) {
	v, ok := decode(raw)
	if !ok {
		return false, false
	}
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// ParseBlank returns the text of a fill-blank answer. Numbers are compared
// through their JSON text.
func ParseBlank(raw json.RawMessage) (string, bool) {
	v, ok := decode(raw)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strings.TrimSpace(string(raw)), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

func decode(raw json.RawMessage) (interface{}, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return nil, false
	}
	return v, true
}

func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
