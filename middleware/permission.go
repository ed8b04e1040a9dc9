package middleware

import (
	"strconv"

	"lms/database"
	courseModels "lms/models/course"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// CourseManagerMiddleware loads the course named by the route param and lets the request
// through only for its instructor or an admin. The course is stored in Locals("course").
func CourseManagerMiddleware(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc, ok := GetRequestContext(c)
		if !ok {
			return JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized: User ID not found", nil)
		}

		courseID, err := strconv.Atoi(c.Params(param))
		if err != nil || courseID <= 0 {
			return ValidationErrorResponse(c, map[string]string{param: "Course ID must be a positive number!"})
		}

		var course courseModels.Course
		err = database.Database.Db.Where("id = ? AND is_deleted = ?", courseID, false).First(&course).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
			}
			return JsonResponse(c, fiber.StatusInternalServerError, false, "Server error while checking permissions!", nil)
		}

		if !rc.CanManage(course.InstructorID) {
			return JsonResponse(c, fiber.StatusForbidden, false, "You do not have permission to manage this course!", nil)
		}

		c.Locals("course", &course)
		return c.Next()
	}
}
