package course

import "gorm.io/gorm"

const (
	SchemeModuleComponent = "module_component"
	SchemeActivityType    = "activity_type"
)

// GradeSetting is a global weight row
type GradeSetting struct {
	gorm.Model
	Scheme string  `json:"scheme" gorm:"uniqueIndex:idx_grade_setting_scheme_key;not null"`
	Key    string  `json:"key" gorm:"uniqueIndex:idx_grade_setting_scheme_key;not null"`
	Weight float64 `json:"weight" gorm:"not null"`
}

// CourseGradeSetting overrides the global weights for a single course
type CourseGradeSetting struct {
	gorm.Model
	CourseID uint    `json:"course_id" gorm:"uniqueIndex:idx_course_grade_setting;not null"`
	Scheme   string  `json:"scheme" gorm:"uniqueIndex:idx_course_grade_setting;not null"`
	Key      string  `json:"key" gorm:"uniqueIndex:idx_course_grade_setting;not null"`
	Weight   float64 `json:"weight" gorm:"not null"`
}
