package course

import "gorm.io/gorm"

// Document is an uploaded file that can be attached to courses, modules, lessons or activities
type Document struct {
	gorm.Model
	Title      string `json:"title"`
	FilePath   string `json:"file_path"`
	MimeType   string `json:"mime_type"`
	Size       int64  `json:"size"`
	UploadedBy uint   `json:"uploaded_by" gorm:"index"`
}

type CourseDocument struct {
	gorm.Model
	CourseID   uint     `json:"course_id" gorm:"index;not null"`
	DocumentID uint     `json:"document_id" gorm:"index;not null"`
	Document   Document `json:"document" gorm:"foreignKey:DocumentID"`
}

type ModuleDocument struct {
	gorm.Model
	ModuleID   uint     `json:"module_id" gorm:"index;not null"`
	DocumentID uint     `json:"document_id" gorm:"index;not null"`
	Document   Document `json:"document" gorm:"foreignKey:DocumentID"`
}

type LessonDocument struct {
	gorm.Model
	LessonID   uint     `json:"lesson_id" gorm:"index;not null"`
	DocumentID uint     `json:"document_id" gorm:"index;not null"`
	Document   Document `json:"document" gorm:"foreignKey:DocumentID"`
}

type ActivityDocument struct {
	gorm.Model
	ActivityID uint     `json:"activity_id" gorm:"index;not null"`
	DocumentID uint     `json:"document_id" gorm:"index;not null"`
	Document   Document `json:"document" gorm:"foreignKey:DocumentID"`
}
