package grading

import (
	"testing"

	courseModels "lms/models/course"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func option(id uint, correct bool) courseModels.QuestionOption {
	return courseModels.QuestionOption{Model: gorm.Model{ID: id}, IsCorrect: correct}
}

func TestGradeChoice(t *testing.T) {
	options := []courseModels.QuestionOption{option(1, true), option(2, false), option(3, true)}

	assert.True(t, GradeChoice([]uint{3, 1}, options), "order does not matter")
	assert.True(t, GradeChoice([]uint{1, 3, 3}, options), "duplicates collapse")
	assert.False(t, GradeChoice([]uint{1}, options), "subset is wrong")
	assert.False(t, GradeChoice([]uint{1, 2, 3}, options), "superset is wrong")
	assert.False(t, GradeChoice(nil, options))

	noCorrect := []courseModels.QuestionOption{option(1, false), option(2, false)}
	assert.False(t, GradeChoice(nil, noCorrect))
}

func TestGradeText(t *testing.T) {
	q := courseModels.Question{
		Type:              courseModels.QuestionShortAnswer,
		CorrectAnswer:     "Goroutine",
		AcceptableAnswers: datatypes.JSON(`["green thread", " Go Routine "]`),
	}

	assert.True(t, GradeText("  goroutine ", q))
	assert.True(t, GradeText("GREEN THREAD", q))
	assert.True(t, GradeText("go routine", q))
	assert.False(t, GradeText("thread", q))
	assert.False(t, GradeText("   ", q))

	malformed := courseModels.Question{CorrectAnswer: "chan", AcceptableAnswers: datatypes.JSON(`{bad`)}
	assert.True(t, GradeText("CHAN", malformed))
}

func TestEvaluate(t *testing.T) {
	choice := courseModels.Question{
		Type:    courseModels.QuestionMultipleChoice,
		Points:  4,
		Options: []courseModels.QuestionOption{option(1, false), option(2, true)},
	}
	assert.Equal(t, Outcome{Gradable: true, IsCorrect: true, PointsEarned: 4}, Evaluate(choice, []uint{2}, ""))
	assert.Equal(t, Outcome{Gradable: true}, Evaluate(choice, []uint{1}, ""))

	essay := courseModels.Question{Type: courseModels.QuestionEssay, Points: 10}
	assert.Equal(t, Outcome{}, Evaluate(essay, nil, "long text"))
	assert.True(t, NeedsManualGrading(courseModels.QuestionEssay))
	assert.True(t, NeedsManualGrading(courseModels.QuestionFileUpload))
	assert.False(t, NeedsManualGrading(courseModels.QuestionEnumeration))
}

func TestTrueFalseOptions(t *testing.T) {
	opts := TrueFalseOptions(5, " TRUE ")
	assert.Equal(t, "True", opts[0].OptionText)
	assert.True(t, opts[0].IsCorrect)
	assert.False(t, opts[1].IsCorrect)
	assert.Equal(t, uint(5), opts[1].QuestionID)

	opts = TrueFalseOptions(5, "false")
	assert.False(t, opts[0].IsCorrect)
	assert.True(t, opts[1].IsCorrect)
}
