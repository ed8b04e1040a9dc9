package controllers

import (
	"lms/middleware"
	"lms/services"
	"lms/validators"
	courseValidator "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

func EnrollInCourse(c *fiber.Ctx) error {
	rc, ok := middleware.GetRequestContext(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	enrollment, err := services.App.Enrollment.Enroll(c.UserContext(), rc, validators.ParamID(c, "id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Enrolled successfully!", enrollment)
}

func WithdrawFromCourse(c *fiber.Ctx) error {
	rc, ok := middleware.GetRequestContext(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	enrollment, err := services.App.Enrollment.Withdraw(c.UserContext(), rc, validators.ParamID(c, "id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Withdrawn from course!", enrollment)
}

// DropStudent removes a student from a course. Instructor of the course or admin.
func DropStudent(c *fiber.Ctx) error {
	rc, ok := middleware.GetRequestContext(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	enrollment, err := services.App.Enrollment.Drop(c.UserContext(), rc, validators.ParamID(c, "id"), validators.ParamID(c, "student"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Student dropped from course!", enrollment)
}

func GetUserEnrollmentsList(c *fiber.Ctx) error {
	rc, ok := middleware.GetRequestContext(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	page, limit := 1, 10
	if reqData, ok := c.Locals("validatedEnrollmentList").(*courseValidator.EnrollmentListQuery); ok {
		if reqData.Page > 0 {
			page = reqData.Page
		}
		if reqData.Limit > 0 {
			limit = reqData.Limit
		}
	}

	enrollments, total, err := services.App.Enrollment.List(c.UserContext(), rc, page, limit)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollments fetched successfully!", fiber.Map{
		"enrollments": enrollments,
		"pagination": fiber.Map{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

func MarkLessonComplete(c *fiber.Ctx) error {
	rc, ok := middleware.GetRequestContext(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	result, err := services.App.Enrollment.MarkLessonComplete(c.UserContext(), rc,
		validators.ParamID(c, "course_id"), validators.ParamID(c, "lesson_id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson marked as complete!", fiber.Map{
		"progress":          result.Enrollment.Progress,
		"enrollment_status": result.Enrollment.Status,
		"course_completed":  result.CourseCompleted,
		"completed_modules": result.CompletedModules,
	})
}
