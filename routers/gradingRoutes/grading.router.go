package gradingRoutes

import (
	gradingController "lms/controllers/grading"
	submissionController "lms/controllers/submission"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"
	"lms/validators"
	gradingValidator "lms/validators/grading"
	submissionValidator "lms/validators/submission"

	"github.com/gofiber/fiber/v2"
)

// SetupGradingRoutes registers reports, student submissions, instructor grading and grade settings
func SetupGradingRoutes(app *fiber.App) {
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleInstructor)

	student := app.Group("/student", middleware.JWTMiddleware)
	student.Get("/report", gradingValidator.StudentReport(), gradingController.GetStudentReport).Name("student.report")
	student.Post("/activities/:activity/start", validators.Params("activity"), submissionController.StartActivity).Name("student.activity.start")
	student.Post("/activities/:activity/answers", validators.Params("activity"), submissionValidator.SaveAnswer(),
		submissionController.SaveAnswer(submissionController.ByActivity)).Name("student.activity.answers")
	student.Post("/activities/:activity/submit", validators.Params("activity"),
		submissionController.Submit(submissionController.ByActivity)).Name("student.activity.submit")
	student.Post("/assignments/:assignment/answers", validators.Params("assignment"), submissionValidator.SaveAnswer(),
		submissionController.SaveAnswer(submissionController.ByAssignment)).Name("student.assignment.answers")
	student.Post("/assignments/:assignment/submit", validators.Params("assignment"),
		submissionController.Submit(submissionController.ByAssignment)).Name("student.assignment.submit")
	student.Post("/quizzes/:quiz/answers", validators.Params("quiz"), submissionValidator.SaveAnswer(),
		submissionController.SaveAnswer(submissionController.ByQuiz)).Name("student.quiz.answers")
	student.Post("/quizzes/:quiz/submit", validators.Params("quiz"),
		submissionController.Submit(submissionController.ByQuiz)).Name("student.quiz.submit")

	instructor := app.Group("/instructor", middleware.JWTMiddleware, staff)
	instructor.Get("/report", gradingValidator.InstructorReport(), gradingController.GetInstructorReport).Name("instructor.report")
	instructor.Get("/activities/:activity/submissions", validators.Params("activity"), submissionController.ListSubmissions).Name("instructor.activity.submissions")
	instructor.Post("/assignments/:assignment/students/:student/grade", validators.Params("assignment", "student"),
		submissionValidator.GradeStudent(), submissionController.GradeStudent(submissionController.ByAssignment)).Name("instructor.assignment.grade")
	instructor.Post("/assignments/:assignment/bulk", validators.Params("assignment"),
		submissionValidator.BulkGrade(), submissionController.BulkGrade(submissionController.ByAssignment)).Name("instructor.assignment.bulk")
	instructor.Post("/activities/:activity/students/:student/grade", validators.Params("activity", "student"),
		submissionValidator.GradeStudent(), submissionController.GradeStudent(submissionController.ByActivity)).Name("instructor.activity.grade")
	instructor.Post("/activities/:activity/bulk", validators.Params("activity"),
		submissionValidator.BulkGrade(), submissionController.BulkGrade(submissionController.ByActivity)).Name("instructor.activity.bulk")

	settings := app.Group("/grade-settings", middleware.JWTMiddleware)
	settings.Get("/", gradingValidator.GradeSettings(), gradingController.GetGradeSettings).Name("grade-settings.index")
	settings.Post("/module-components", staff, gradingValidator.UpdateWeights(),
		gradingController.UpdateWeights(courseModels.SchemeModuleComponent)).Name("grade-settings.module-components")
	settings.Post("/activity-types", staff, gradingValidator.UpdateWeights(),
		gradingController.UpdateWeights(courseModels.SchemeActivityType)).Name("grade-settings.activity-types")
	settings.Delete("/courses/:course_id/:scheme", staff, gradingValidator.ResetCourseWeights(),
		gradingController.ResetCourseWeights).Name("grade-settings.course.reset")
}
