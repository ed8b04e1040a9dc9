package courseRoutes

import (
	controllers "lms/controllers/course"
	"lms/middleware"
	"lms/models"
	"lms/validators"
	courseValidator "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupAdminCourseRoutes sets up course authoring, certificate and dashboard routes
func SetupAdminCourseRoutes(app *fiber.App) {
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleInstructor)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	adminGroup := app.Group("/admin/course", middleware.JWTMiddleware, staff)

	// Course authoring
	adminGroup.Post("/create", courseValidator.CreateCourse(), controllers.AdminCreateCourse).Name("admin.course.create")
	adminGroup.Put("/:id", middleware.CourseManagerMiddleware("id"), courseValidator.UpdateCourse(), controllers.AdminUpdateCourse).Name("admin.course.update")

	// Module / lesson / activity authoring
	adminGroup.Post("/:id/module", middleware.CourseManagerMiddleware("id"), courseValidator.CreateModule(), controllers.AdminCreateModule).Name("admin.module.create")
	adminGroup.Post("/:course_id/module/:module_id/lesson", middleware.CourseManagerMiddleware("course_id"),
		validators.Params("module_id"), courseValidator.CreateLesson(), controllers.AdminCreateLesson).Name("admin.lesson.create")
	adminGroup.Post("/:course_id/module/:module_id/activity", middleware.CourseManagerMiddleware("course_id"),
		validators.Params("module_id"), courseValidator.CreateActivity(), controllers.AdminCreateActivity).Name("admin.activity.create")

	activityGroup := app.Group("/admin/activity", middleware.JWTMiddleware, staff)
	activityGroup.Post("/:activity_id/question", validators.Params("activity_id"), courseValidator.CreateQuestion(), controllers.AdminCreateQuestion).Name("admin.question.create")

	// Certificate Management
	certGroup := app.Group("/admin/certificate", middleware.JWTMiddleware, adminOnly)
	certGroup.Get("/pending", controllers.AdminGetPendingCertificates).Name("admin.certificate.pending")
	certGroup.Post("/:request_id/approve", validators.Params("request_id"), controllers.AdminApproveCertificate).Name("admin.certificate.approve")
	certGroup.Post("/:request_id/reject", validators.Params("request_id"), courseValidator.RejectCertificate(), controllers.AdminRejectCertificate).Name("admin.certificate.reject")

	// Dashboard
	app.Get("/admin/dashboard/stats", middleware.JWTMiddleware, adminOnly, controllers.AdminDashboardStats).Name("admin.dashboard.stats")
}
