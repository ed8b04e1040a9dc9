package course

import (
	"time"

	"gorm.io/gorm"
)

// Activity type names. Weights of the activity_type scheme are keyed by these.
const (
	ActivityQuiz       = "Quiz"
	ActivityAssignment = "Assignment"
	ActivityAssessment = "Assessment"
	ActivityExercise   = "Exercise"
)

var ActivityTypeNames = []string{ActivityQuiz, ActivityAssignment, ActivityAssessment, ActivityExercise}

type ActivityType struct {
	gorm.Model
	Name        string `json:"name" gorm:"uniqueIndex;not null"`
	Description string `json:"description"`
}

// Activity is a gradable unit attached to a module
type Activity struct {
	gorm.Model
	CourseID       uint       `json:"course_id" gorm:"index;not null"`
	ModuleID       uint       `json:"module_id" gorm:"index;not null"`
	ActivityTypeID uint       `json:"activity_type_id" gorm:"index;not null"`
	Title          string     `json:"title"`
	Description    string     `json:"description" gorm:"type:text"`
	DueDate        *time.Time `json:"due_date"`
	OrderIndex     int        `json:"order_index" gorm:"default:0"`
	IsPublished    bool       `json:"is_published" gorm:"default:false"`
	IsDeleted      bool       `json:"-" gorm:"default:false"`

	ActivityType ActivityType `json:"activity_type" gorm:"foreignKey:ActivityTypeID"`
	Quiz         *Quiz        `json:"quiz,omitempty" gorm:"foreignKey:ActivityID"`
	Assignment   *Assignment  `json:"assignment,omitempty" gorm:"foreignKey:ActivityID"`
	Questions    []Question   `json:"questions,omitempty" gorm:"foreignKey:ActivityID"`
}

// Quiz holds quiz-specific settings of an activity
type Quiz struct {
	gorm.Model
	ActivityID       uint `json:"activity_id" gorm:"uniqueIndex;not null"`
	TimeLimitMinutes int  `json:"time_limit_minutes" gorm:"default:0"`
	ShuffleQuestions bool `json:"shuffle_questions" gorm:"default:false"`
}

// Assignment holds assignment-specific settings of an activity
type Assignment struct {
	gorm.Model
	ActivityID      uint   `json:"activity_id" gorm:"uniqueIndex;not null"`
	Instructions    string `json:"instructions" gorm:"type:text"`
	AllowFileUpload bool   `json:"allow_file_upload" gorm:"default:false"`
}
