package courseRoutes

import (
	controllers "lms/controllers/course"
	"lms/middleware"
	"lms/models"
	"lms/validators"
	courseValidator "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes sets up all user-facing course routes
func SetupCourseRoutes(app *fiber.App) {
	userGroup := app.Group("/course", middleware.JWTMiddleware)

	userGroup.Get("/list", courseValidator.CourseList(), controllers.GetAllCourses).Name("course.list")

	// Enrollment
	userGroup.Post("/:id/enroll", validators.Params("id"), controllers.EnrollInCourse).Name("course.enroll")
	userGroup.Post("/:id/withdraw", validators.Params("id"), controllers.WithdrawFromCourse).Name("course.withdraw")
	userGroup.Post("/:id/students/:student/drop", middleware.RequireRole(models.RoleAdmin, models.RoleInstructor),
		validators.Params("id", "student"), controllers.DropStudent).Name("course.student.drop")

	// Lesson completion feeds progress
	userGroup.Post("/:course_id/lessons/:lesson_id/complete", validators.Params("course_id", "lesson_id"), controllers.MarkLessonComplete).Name("course.lesson.complete")

	// Certificate request
	userGroup.Post("/:course_id/certificate/request", validators.Params("course_id"), controllers.RequestCertificate).Name("course.certificate.request")

	// User enrollments and certificates
	userEnrollGroup := app.Group("/user", middleware.JWTMiddleware)
	userEnrollGroup.Get("/enrollments", courseValidator.GetUserEnrollments(), controllers.GetUserEnrollmentsList).Name("user.enrollments")
	userEnrollGroup.Get("/certificates", controllers.GetUserCertificates).Name("user.certificates")
}
