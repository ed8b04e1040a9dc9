package submissionController

import (
	"mime/multipart"
	"path/filepath"
	"strconv"

	"lms/config"
	"lms/middleware"
	"lms/services"
	"lms/services/submission"
	"lms/utils"
	"lms/validators"

	"github.com/gofiber/fiber/v2"
)

// ActivityResolver maps the route's id param to an activity id
type ActivityResolver func(c *fiber.Ctx) (uint, error)

func ByActivity(c *fiber.Ctx) (uint, error) {
	return validators.ParamID(c, "activity"), nil
}

func ByAssignment(c *fiber.Ctx) (uint, error) {
	return services.App.Submission.ActivityForAssignment(c.UserContext(), validators.ParamID(c, "assignment"))
}

func ByQuiz(c *fiber.Ctx) (uint, error) {
	return services.App.Submission.ActivityForQuiz(c.UserContext(), validators.ParamID(c, "quiz"))
}

func StartActivity(c *fiber.Ctx) error {
	rc, ok := middleware.GetRequestContext(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	attempt, err := services.App.Submission.StartActivity(c.UserContext(), rc, validators.ParamID(c, "activity"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Activity started!", attempt)
}

// SaveAnswer returns the answer handler for assignments, quizzes or any activity by id
func SaveAnswer(resolve ActivityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc, ok := middleware.GetRequestContext(c)
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
		}
		activityID, err := resolve(c)
		if err != nil {
			return middleware.ErrorResponse(c, err)
		}

		reqData := c.Locals("validatedAnswer").(*submission.AnswerInput)
		if file, ok := c.Locals("answerFile").(*multipart.FileHeader); ok && file != nil {
			dir := filepath.Join(config.AppConfig.UploadDir, "answers", strconv.FormatUint(uint64(rc.UserID), 10))
			path, err := utils.SaveUploadedFile(file, dir)
			if err != nil {
				return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to save file: "+err.Error(), nil)
			}
			reqData.FilePath = path
		}

		result, err := services.App.Submission.SaveAnswer(c.UserContext(), rc, activityID, *reqData)
		if err != nil {
			return middleware.ErrorResponse(c, err)
		}
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Answer saved successfully!", result)
	}
}

func Submit(resolve ActivityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc, ok := middleware.GetRequestContext(c)
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
		}
		activityID, err := resolve(c)
		if err != nil {
			return middleware.ErrorResponse(c, err)
		}

		result, err := services.App.Submission.SubmitActivity(c.UserContext(), rc, activityID)
		if err != nil {
			return middleware.ErrorResponse(c, err)
		}
		message := "Submitted successfully!"
		if result.AlreadySubmitted {
			message = "Already submitted!"
		}
		return middleware.JsonResponse(c, fiber.StatusOK, true, message, result)
	}
}

func ListSubmissions(c *fiber.Ctx) error {
	rc, ok := middleware.GetRequestContext(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	attempts, err := services.App.Submission.ListSubmissions(c.UserContext(), rc, validators.ParamID(c, "activity"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Submissions fetched successfully!", attempts)
}

// GradeStudent returns the manual grading handler for assignments or any activity
func GradeStudent(resolve ActivityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc, ok := middleware.GetRequestContext(c)
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
		}
		activityID, err := resolve(c)
		if err != nil {
			return middleware.ErrorResponse(c, err)
		}
		reqData := c.Locals("validatedGrade").(*submission.GradeInput)

		attempt, err := services.App.Submission.GradeStudent(c.UserContext(), rc, activityID, validators.ParamID(c, "student"), *reqData)
		if err != nil {
			return middleware.ErrorResponse(c, err)
		}
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Activity graded successfully!", attempt)
	}
}

func BulkGrade(resolve ActivityResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rc, ok := middleware.GetRequestContext(c)
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
		}
		activityID, err := resolve(c)
		if err != nil {
			return middleware.ErrorResponse(c, err)
		}
		reqData := c.Locals("validatedBulk").(*submission.BulkInput)

		result, err := services.App.Submission.BulkGrade(c.UserContext(), rc, activityID, *reqData)
		if err != nil {
			return middleware.ErrorResponse(c, err)
		}
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Bulk action applied successfully!", result)
	}
}
