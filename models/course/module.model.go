package course

import (
	"time"

	"gorm.io/gorm"
)

// Module represents a section/module within a course
type Module struct {
	gorm.Model
	CourseID    uint   `json:"course_id" gorm:"index;not null"`
	Title       string `json:"title"`
	Description string `json:"description"`
	OrderIndex  int    `json:"order_index" gorm:"default:0"` // Module order in course
	IsDeleted   bool   `json:"-" gorm:"default:false"`

	Lessons    []Lesson   `json:"lessons,omitempty" gorm:"foreignKey:ModuleID"`
	Activities []Activity `json:"activities,omitempty" gorm:"foreignKey:ModuleID"`
}

// ModuleCompletion is written once every lesson and activity of a module is done
type ModuleCompletion struct {
	gorm.Model
	UserID      uint      `json:"user_id" gorm:"uniqueIndex:idx_module_completion_user_module;not null"`
	CourseID    uint      `json:"course_id" gorm:"index;not null"`
	ModuleID    uint      `json:"module_id" gorm:"uniqueIndex:idx_module_completion_user_module;not null"`
	CompletedAt time.Time `json:"completed_at"`
}
