package gradingController

import (
	"lms/middleware"
	"lms/services"
	"lms/services/grading"
	gradingValidator "lms/validators/grading"

	"github.com/gofiber/fiber/v2"
)

// GetStudentReport returns the caller's report for one course, or for every enrolled
// course when course_id is omitted. Instructors and admins may pass student_id.
func GetStudentReport(c *fiber.Ctx) error {
	rc, ok := middleware.GetRequestContext(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	reqData := c.Locals("validatedReport").(*gradingValidator.StudentReportQuery)

	studentID := rc.UserID
	if reqData.StudentID > 0 {
		studentID = reqData.StudentID
	}

	if reqData.CourseID == 0 {
		reports, err := services.App.Grades.StudentReports(c.UserContext(), rc, studentID)
		if err != nil {
			return middleware.ErrorResponse(c, err)
		}
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Reports fetched successfully!", reports)
	}

	report, err := services.App.Grades.StudentCourseReport(c.UserContext(), rc, studentID, reqData.CourseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Report fetched successfully!", report)
}

func GetInstructorReport(c *fiber.Ctx) error {
	rc, ok := middleware.GetRequestContext(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	reqData := c.Locals("validatedReport").(*gradingValidator.InstructorReportQuery)

	report, err := services.App.Grades.InstructorCourseReport(c.UserContext(), rc, reqData.CourseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Report fetched successfully!", report)
}

// GetGradeSettings returns the effective weights, with their source, globally or for a course
func GetGradeSettings(c *fiber.Ctx) error {
	reqData := c.Locals("validatedSettingsQuery").(*gradingValidator.GradeSettingsQuery)

	views, err := services.App.Grades.EffectiveWeights(c.UserContext(), reqData.CourseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Grade settings fetched successfully!", views)
}

// UpdateWeights returns a handler replacing the weights of scheme
func UpdateWeights(scheme string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc, ok := middleware.GetRequestContext(c)
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
		}
		reqData := c.Locals("validatedWeights").(*gradingValidator.WeightsRequest)

		view, err := services.App.Grades.UpdateWeights(c.UserContext(), rc, scheme, reqData.CourseID, grading.Weights(reqData.Weights))
		if err != nil {
			return middleware.ErrorResponse(c, err)
		}
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Grade settings updated successfully!", view)
	}
}

// ResetCourseWeights removes a course override so the global weights apply again
func ResetCourseWeights(c *fiber.Ctx) error {
	rc, ok := middleware.GetRequestContext(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	courseID := c.Locals("course_id").(uint)
	scheme := c.Locals("scheme").(string)

	if err := services.App.Grades.ResetCourseWeights(c.UserContext(), rc, courseID, scheme); err != nil {
		return middleware.ErrorResponse(c, err)
	}

	views, err := services.App.Grades.EffectiveWeights(c.UserContext(), courseID)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course grade settings reset!", views)
}
