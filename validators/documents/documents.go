package documentsValidator

import (
	"strconv"
	"strings"

	"lms/middleware"
	"lms/validators"

	"github.com/gofiber/fiber/v2"
)

const maxDocumentSize = 50 * 1024 * 1024

type UploadDocumentRequest struct {
	Title string `form:"title" validate:"required,min=3,max=255"`
}

// UploadDocument checks the owner_id param, the title and the "file" part.
func UploadDocument() fiber.Handler {
	return func(c *fiber.Ctx) error {
		errors := make(map[string]string)

		ownerID, err := strconv.ParseUint(c.Params("owner_id"), 10, 64)
		if err != nil || ownerID == 0 {
			errors["owner_id"] = "owner_id must be a positive number!"
		}

		reqData := &UploadDocumentRequest{Title: strings.TrimSpace(c.FormValue("title"))}
		for field, msg := range validators.Struct(reqData) {
			errors[field] = msg
		}

		file, err := c.FormFile("file")
		if err != nil {
			errors["file"] = "file is required!"
		} else if file.Size > maxDocumentSize {
			errors["file"] = "File must be at most 50MB!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("owner_id", uint(ownerID))
		c.Locals("validatedDocument", reqData)
		c.Locals("documentFile", file)
		return c.Next()
	}
}

func ListDocuments() fiber.Handler {
	return validators.Params("owner_id")
}
