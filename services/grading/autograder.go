package grading

import (
	"strings"

	courseModels "lms/models/course"

	"github.com/samber/lo"
)

// Outcome is the auto-grader's verdict for one answer.
type Outcome struct {
	Gradable     bool
	IsCorrect    bool
	PointsEarned float64
}

// NeedsManualGrading reports whether answers to questionType go to an instructor.
func NeedsManualGrading(questionType string) bool {
	return questionType == courseModels.QuestionEssay || questionType == courseModels.QuestionFileUpload
}

// Evaluate grades a single answer. Options must be loaded on q for choice questions.
// Scoring is binary: full points or nothing.
func Evaluate(q courseModels.Question, selected []uint, answerText string) Outcome {
	var correct bool
	switch q.Type {
	case courseModels.QuestionMultipleChoice, courseModels.QuestionTrueFalse:
		correct = GradeChoice(selected, q.Options)
	case courseModels.QuestionShortAnswer, courseModels.QuestionEnumeration:
		correct = GradeText(answerText, q)
	default:
		return Outcome{}
	}

	out := Outcome{Gradable: true, IsCorrect: correct}
	if correct {
		out.PointsEarned = q.Points
	}
	return out
}

// GradeChoice is an exact, order-independent set match against the correct options.
// A question without any correct option can never be answered correctly.
func GradeChoice(selected []uint, options []courseModels.QuestionOption) bool {
	correctIDs := lo.FilterMap(options, func(o courseModels.QuestionOption, _ int) (uint, bool) {
		return o.ID, o.IsCorrect
	})
	if len(correctIDs) == 0 {
		return false
	}
	chosen := lo.Uniq(selected)
	if len(chosen) != len(correctIDs) {
		return false
	}
	return lo.Every(correctIDs, chosen)
}

// GradeText matches the trimmed answer case-insensitively against the union of
// the question's acceptable answers and its correct_answer.
func GradeText(answer string, q courseModels.Question) bool {
	given := normalizeText(answer)
	if given == "" {
		return false
	}
	for _, candidate := range AcceptedAnswers(q) {
		if candidate == given {
			return true
		}
	}
	return false
}

// AcceptedAnswers returns the normalized, de-duplicated answers a text question accepts.
func AcceptedAnswers(q courseModels.Question) []string {
	raw := append(q.AcceptableAnswerList(), q.CorrectAnswer)
	normalized := lo.Map(raw, func(s string, _ int) string { return normalizeText(s) })
	return lo.Uniq(lo.Compact(normalized))
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// TrueFalseOptions builds the implicit True/False pair for a question authored without options.
func TrueFalseOptions(questionID uint, correctAnswer string) []courseModels.QuestionOption {
	isTrue := IsTruthy(correctAnswer)
	return []courseModels.QuestionOption{
		{QuestionID: questionID, OptionText: "True", IsCorrect: isTrue, OrderIndex: 0},
		{QuestionID: questionID, OptionText: "False", IsCorrect: !isTrue, OrderIndex: 1},
	}
}

func IsTruthy(s string) bool {
	switch normalizeText(s) {
	case "true", "t", "yes", "1":
		return true
	}
	return false
}
