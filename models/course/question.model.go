package course

import (
	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	QuestionMultipleChoice = "multiple_choice"
	QuestionTrueFalse      = "true_false"
	QuestionEnumeration    = "enumeration"
	QuestionShortAnswer    = "short_answer"
	QuestionEssay          = "essay"
	QuestionFileUpload     = "file_upload"
)

var QuestionTypes = []string{
	QuestionMultipleChoice, QuestionTrueFalse, QuestionEnumeration,
	QuestionShortAnswer, QuestionEssay, QuestionFileUpload,
}

// Question belongs to the quiz or assignment of an activity
type Question struct {
	gorm.Model
	ActivityID        uint           `json:"activity_id" gorm:"index;not null"`
	Type              string         `json:"type" gorm:"not null"`
	QuestionText      string         `json:"question_text" gorm:"type:text"`
	Points            float64        `json:"points" gorm:"default:1"`
	CorrectAnswer     string         `json:"correct_answer"`
	AcceptableAnswers datatypes.JSON `json:"acceptable_answers"` // JSON array of strings
	OrderIndex        int            `json:"order_index" gorm:"default:0"`
	IsDeleted         bool           `json:"-" gorm:"default:false"`

	Options []QuestionOption `json:"options,omitempty" gorm:"foreignKey:QuestionID"`
}

// AcceptableAnswerList decodes AcceptableAnswers, ignoring malformed content.
func (q Question) AcceptableAnswerList() []string {
	if len(q.AcceptableAnswers) == 0 {
		return nil
	}
	var answers []string
	if err := sonic.Unmarshal(q.AcceptableAnswers, &answers); err != nil {
		return nil
	}
	return answers
}

// QuestionOption represents an option for a choice question
type QuestionOption struct {
	gorm.Model
	QuestionID uint   `json:"question_id" gorm:"index;not null"`
	OptionText string `json:"option_text"`
	IsCorrect  bool   `json:"is_correct" gorm:"default:false"`
	OrderIndex int    `json:"order_index" gorm:"default:0"`
}
