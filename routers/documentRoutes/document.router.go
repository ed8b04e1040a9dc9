package documentRoutes

import (
	documentsController "lms/controllers/documents"
	"lms/middleware"
	documentsValidator "lms/validators/documents"

	"github.com/gofiber/fiber/v2"
)

func SetupDocumentRoutes(app *fiber.App) {
	docGroup := app.Group("/documents", middleware.JWTMiddleware)
	docGroup.Post("/:owner_type/:owner_id", documentsValidator.UploadDocument(), documentsController.UploadDocument).Name("documents.upload")
	docGroup.Get("/:owner_type/:owner_id", documentsValidator.ListDocuments(), documentsController.ListDocuments).Name("documents.index")
}
