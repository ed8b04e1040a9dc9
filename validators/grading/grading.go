package gradingValidator

import (
	"lms/middleware"
	courseModels "lms/models/course"
	"lms/validators"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

type StudentReportQuery struct {
	CourseID  uint `query:"course_id" validate:"omitempty,gt=0"`
	StudentID uint `query:"student_id" validate:"omitempty,gt=0"`
}

type InstructorReportQuery struct {
	CourseID uint `query:"course_id" validate:"required,gt=0"`
}

type GradeSettingsQuery struct {
	CourseID uint `query:"course_id" validate:"omitempty,gt=0"`
}

// WeightsRequest replaces one weight scheme. Omitting course_id targets the global weights.
type WeightsRequest struct {
	CourseID uint               `json:"course_id" validate:"omitempty,gt=0"`
	Weights  map[string]float64 `json:"weights" validate:"required,min=1,dive,gte=0,lte=100"`
}

func StudentReport() fiber.Handler {
	return validators.Query[StudentReportQuery]("validatedReport")
}

func InstructorReport() fiber.Handler {
	return validators.Query[InstructorReportQuery]("validatedReport")
}

func GradeSettings() fiber.Handler {
	return validators.Query[GradeSettingsQuery]("validatedSettingsQuery")
}

func UpdateWeights() fiber.Handler {
	return validators.Body[WeightsRequest]("validatedWeights")
}

// ResetCourseWeights checks the course_id and scheme route params.
func ResetCourseWeights() fiber.Handler {
	return func(c *fiber.Ctx) error {
		scheme := c.Params("scheme")
		if !lo.Contains([]string{courseModels.SchemeModuleComponent, courseModels.SchemeActivityType}, scheme) {
			return middleware.ValidationErrorResponse(c, map[string]string{
				"scheme": "Scheme must be one of: module_component, activity_type!",
			})
		}
		c.Locals("scheme", scheme)
		return validators.Params("course_id")(c)
	}
}
