package course

import (
	"time"

	"gorm.io/gorm"
)

const (
	EnrollmentEnrolled  = "enrolled"
	EnrollmentCompleted = "completed"
	EnrollmentDropped   = "dropped"
	EnrollmentWithdrawn = "withdrawn"
)

// CourseEnrollment tracks a user's enrollment in a course with progress
type CourseEnrollment struct {
	gorm.Model
	UserID      uint       `json:"user_id" gorm:"uniqueIndex:idx_enrollment_user_course;not null"`
	CourseID    uint       `json:"course_id" gorm:"uniqueIndex:idx_enrollment_user_course;not null"`
	Status      string     `json:"status" gorm:"default:'enrolled'"` // enrolled, completed, dropped, withdrawn
	Progress    float64    `json:"progress" gorm:"default:0"`        // Completion percentage (0-100)
	EnrolledAt  time.Time  `json:"enrolled_at"`
	CompletedAt *time.Time `json:"completed_at"`
	WithdrawnAt *time.Time `json:"withdrawn_at"`

	Course Course `json:"course,omitempty" gorm:"foreignKey:CourseID"`
}
