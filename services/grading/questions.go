package grading

import (
	"context"
	"errors"
	"strings"

	courseModels "lms/models/course"
	"lms/utils"

	"github.com/bytedance/sonic"
	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OptionInput struct {
	OptionText string `json:"option_text" validate:"required"`
	IsCorrect  bool   `json:"is_correct"`
}

type QuestionInput struct {
	Type              string        `json:"type" validate:"required,oneof=multiple_choice true_false enumeration short_answer essay file_upload"`
	QuestionText      string        `json:"question_text" validate:"required,min=3"`
	Points            float64       `json:"points" validate:"gt=0"`
	CorrectAnswer     string        `json:"correct_answer"`
	AcceptableAnswers []string      `json:"acceptable_answers"`
	OrderIndex        int           `json:"order_index"`
	Options           []OptionInput `json:"options" validate:"dive"`
}

// validateQuestion checks what struct tags cannot: answer keys per question type.
func validateQuestion(in QuestionInput) error {
	fields := make(map[string]string)
	switch in.Type {
	case courseModels.QuestionMultipleChoice:
		if len(in.Options) < 2 {
			fields["options"] = "At least two options are required!"
		} else if !lo.SomeBy(in.Options, func(o OptionInput) bool { return o.IsCorrect }) {
			fields["options"] = "At least one option must be correct!"
		}
	case courseModels.QuestionTrueFalse:
		if len(in.Options) == 0 {
			answer := strings.ToLower(strings.TrimSpace(in.CorrectAnswer))
			if answer != "true" && answer != "false" {
				fields["correct_answer"] = "Correct answer must be true or false!"
			}
		} else if len(in.Options) != 2 || lo.CountBy(in.Options, func(o OptionInput) bool { return o.IsCorrect }) != 1 {
			fields["options"] = "True/false questions need exactly two options with one correct!"
		}
	case courseModels.QuestionShortAnswer, courseModels.QuestionEnumeration:
		if strings.TrimSpace(in.CorrectAnswer) == "" && len(lo.Compact(in.AcceptableAnswers)) == 0 {
			fields["correct_answer"] = "Correct answer or acceptable answers are required!"
		}
	}
	if len(fields) > 0 {
		return utils.ValidationError("Validation failed!", fields)
	}
	return nil
}

// CreateQuestion adds a question to an activity. True/false questions authored
// without options get an implicit True/False pair derived from correct_answer.
func (s *Service) CreateQuestion(ctx context.Context, rc utils.RequestContext, activityID uint, in QuestionInput) (*courseModels.Question, error) {
	if err := validateQuestion(in); err != nil {
		return nil, err
	}
	db := s.DB.WithContext(ctx)

	var activity courseModels.Activity
	if err := db.Where("id = ? AND is_deleted = ?", activityID, false).First(&activity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("Activity not found!")
		}
		return nil, utils.Internal("Failed to fetch activity", err)
	}
	course, err := findCourse(db, activity.CourseID)
	if err != nil {
		return nil, err
	}
	if !rc.CanManage(course.InstructorID) {
		return nil, utils.Forbidden("You are not the instructor of this course!")
	}

	question := courseModels.Question{
		ActivityID:    activityID,
		Type:          in.Type,
		QuestionText:  strings.TrimSpace(in.QuestionText),
		Points:        in.Points,
		CorrectAnswer: strings.TrimSpace(in.CorrectAnswer),
		OrderIndex:    in.OrderIndex,
	}
	if answers := lo.Compact(in.AcceptableAnswers); len(answers) > 0 {
		raw, err := sonic.Marshal(answers)
		if err != nil {
			return nil, utils.Internal("Failed to encode acceptable answers", err)
		}
		question.AcceptableAnswers = datatypes.JSON(raw)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&question).Error; err != nil {
			return err
		}
		for i, o := range in.Options {
			option := courseModels.QuestionOption{
				QuestionID: question.ID,
				OptionText: strings.TrimSpace(o.OptionText),
				IsCorrect:  o.IsCorrect,
				OrderIndex: i,
			}
			if err := tx.Create(&option).Error; err != nil {
				return err
			}
			question.Options = append(question.Options, option)
		}
		return EnsureTrueFalseOptions(tx, &question)
	})
	if err != nil {
		return nil, utils.Internal("Failed to create question", err)
	}

	s.InvalidateCourse(ctx, activity.CourseID)
	return &question, nil
}

// EnsureTrueFalseOptions creates the implicit option pair for a true/false question that has none.
func EnsureTrueFalseOptions(tx *gorm.DB, q *courseModels.Question) error {
	if q.Type != courseModels.QuestionTrueFalse || len(q.Options) > 0 {
		return nil
	}
	options := TrueFalseOptions(q.ID, q.CorrectAnswer)
	if err := tx.Create(&options).Error; err != nil {
		return err
	}
	q.Options = options
	return nil
}
