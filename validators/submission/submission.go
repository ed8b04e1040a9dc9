package submissionValidator

import (
	"strconv"
	"strings"

	"lms/middleware"
	"lms/services/submission"
	"lms/validators"

	"github.com/gofiber/fiber/v2"
)

const maxUploadSize = 20 * 1024 * 1024

// SaveAnswer accepts a JSON body or a multipart form. In the multipart form selected_options
// may repeat or be comma separated, and an optional "file" part carries the upload.
func SaveAnswer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(submission.AnswerInput)
		errors := make(map[string]string)

		if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
			form, err := c.MultipartForm()
			if err != nil {
				return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid form data!", nil)
			}
			if id, err := strconv.ParseUint(first(form.Value["question_id"]), 10, 64); err == nil {
				reqData.QuestionID = uint(id)
			}
			reqData.AnswerText = first(form.Value["answer_text"])
			for _, raw := range form.Value["selected_options"] {
				for _, part := range strings.Split(raw, ",") {
					part = strings.TrimSpace(part)
					if part == "" {
						continue
					}
					id, err := strconv.ParseUint(part, 10, 64)
					if err != nil || id == 0 {
						errors["selected_options"] = "Selected options must be option IDs!"
						break
					}
					reqData.SelectedOptions = append(reqData.SelectedOptions, uint(id))
				}
			}
			if files := form.File["file"]; len(files) > 0 {
				if files[0].Size > maxUploadSize {
					errors["file"] = "File must be at most 20MB!"
				}
				c.Locals("answerFile", files[0])
			}
		} else if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		for field, msg := range validators.Struct(reqData) {
			errors[field] = msg
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedAnswer", reqData)
		return c.Next()
	}
}

func GradeStudent() fiber.Handler {
	return validators.Body[submission.GradeInput]("validatedGrade")
}

func BulkGrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(submission.BulkInput)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		errors := validators.Struct(reqData)
		if errors == nil {
			errors = make(map[string]string)
		}
		if reqData.Action == submission.BulkGrade && reqData.Score == nil {
			errors["score"] = "Score is required for the grade action!"
		}
		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}
		c.Locals("validatedBulk", reqData)
		return c.Next()
	}
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
