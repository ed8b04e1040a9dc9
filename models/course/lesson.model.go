package course

import "gorm.io/gorm"

// Lesson is readable content inside a module
type Lesson struct {
	gorm.Model
	CourseID    uint   `json:"course_id" gorm:"index;not null"`
	ModuleID    uint   `json:"module_id" gorm:"index;not null"`
	Title       string `json:"title"`
	Content     string `json:"content" gorm:"type:text"`
	VideoURL    string `json:"video_url"`
	OrderIndex  int    `json:"order_index" gorm:"default:0"`
	IsPublished bool   `json:"is_published" gorm:"default:false"`
	IsDeleted   bool   `json:"-" gorm:"default:false"`
}

// LessonCompletion tracks a user's completion of a lesson
type LessonCompletion struct {
	gorm.Model
	UserID   uint `json:"user_id" gorm:"uniqueIndex:idx_lesson_completion_user_lesson;not null"`
	CourseID uint `json:"course_id" gorm:"index;not null"`
	ModuleID uint `json:"module_id" gorm:"index;not null"`
	LessonID uint `json:"lesson_id" gorm:"uniqueIndex:idx_lesson_completion_user_lesson;not null"`
}
