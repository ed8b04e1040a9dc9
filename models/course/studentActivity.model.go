package course

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StudentActivity statuses, in forward order.
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusSubmitted  = "submitted"
	StatusCompleted  = "completed"
	StatusGraded     = "graded"
)

// StatusRank orders activity statuses; completed and graded share the terminal rank.
func StatusRank(status string) int {
	switch status {
	case StatusInProgress:
		return 1
	case StatusSubmitted:
		return 2
	case StatusCompleted, StatusGraded:
		return 3
	default:
		return 0
	}
}

// IsDone reports whether the status counts toward course progress.
func IsDone(status string) bool {
	return status == StatusCompleted || status == StatusGraded
}

// StudentActivity is one row per (student, activity)
type StudentActivity struct {
	gorm.Model
	UserID      uint       `json:"user_id" gorm:"uniqueIndex:idx_student_activity_user_activity;not null"`
	ActivityID  uint       `json:"activity_id" gorm:"uniqueIndex:idx_student_activity_user_activity;not null"`
	CourseID    uint       `json:"course_id" gorm:"index;not null"`
	ModuleID    uint       `json:"module_id" gorm:"index;not null"`
	Status      string     `json:"status" gorm:"default:'not_started'"`
	Score       *float64   `json:"score"`
	MaxScore    *float64   `json:"max_score"`
	Percentage  *float64   `json:"percentage"`
	Feedback    string     `json:"feedback" gorm:"type:text"`
	StartedAt   *time.Time `json:"started_at"`
	SubmittedAt *time.Time `json:"submitted_at"`
	GradedAt    *time.Time `json:"graded_at"`
	CompletedAt *time.Time `json:"completed_at"`

	Progress *StudentActivityProgress `json:"progress,omitempty" gorm:"foreignKey:StudentActivityID"`
}

// StudentActivityProgress is the authoritative mutable record of a student's attempt
type StudentActivityProgress struct {
	gorm.Model
	StudentActivityID uint       `json:"student_activity_id" gorm:"uniqueIndex:idx_progress_student_activity_type;not null"`
	ActivityTypeID    uint       `json:"activity_type_id" gorm:"uniqueIndex:idx_progress_student_activity_type;not null"`
	UserID            uint       `json:"user_id" gorm:"index;not null"`
	ActivityID        uint       `json:"activity_id" gorm:"index;not null"`
	SubmissionStatus  string     `json:"submission_status" gorm:"default:'not_started'"`
	AnsweredQuestions int        `json:"answered_questions" gorm:"default:0"`
	TotalQuestions    int        `json:"total_questions" gorm:"default:0"`
	AutoGradedScore   *float64   `json:"auto_graded_score"`
	Score             *float64   `json:"score"`
	MaxScore          float64    `json:"max_score" gorm:"default:0"`
	PercentageScore   *float64   `json:"percentage_score"`
	RequiresGrading   bool       `json:"requires_grading" gorm:"default:false"`
	DueDate           *time.Time `json:"due_date"`
	ReminderSent      bool       `json:"reminder_sent" gorm:"default:false"`
	GradedAt          *time.Time `json:"graded_at"`
	GradedBy          *uint      `json:"graded_by"`
}

// StudentAnswer is one row per (student, question) for quizzes and assignments alike
type StudentAnswer struct {
	gorm.Model
	UserID          uint           `json:"user_id" gorm:"uniqueIndex:idx_student_answer_user_question;not null"`
	QuestionID      uint           `json:"question_id" gorm:"uniqueIndex:idx_student_answer_user_question;not null"`
	ActivityID      uint           `json:"activity_id" gorm:"index;not null"`
	AnswerText      string         `json:"answer_text" gorm:"type:text"`
	SelectedOptions datatypes.JSON `json:"selected_options"` // JSON array of option IDs
	FilePath        string         `json:"file_path"`
	IsCorrect       *bool          `json:"is_correct"`
	PointsEarned    *float64       `json:"points_earned"`
	Feedback        string         `json:"feedback" gorm:"type:text"`
}
