package documentsController

import (
	"mime/multipart"
	"path/filepath"

	"lms/config"
	"lms/middleware"
	courseModels "lms/models/course"
	"lms/services"
	"lms/utils"
	documentsValidator "lms/validators/documents"

	"github.com/gofiber/fiber/v2"
)

func UploadDocument(c *fiber.Ctx) error {
	rc, ok := middleware.GetRequestContext(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}
	ownerType := c.Params("owner_type")
	ownerID := c.Locals("owner_id").(uint)
	reqData := c.Locals("validatedDocument").(*documentsValidator.UploadDocumentRequest)
	file := c.Locals("documentFile").(*multipart.FileHeader)

	// Reject unknown owner types before touching the disk
	if _, err := services.App.Documents.Registry.Handler(ownerType); err != nil {
		return middleware.ErrorResponse(c, err)
	}

	path, err := utils.SaveUploadedFile(file, filepath.Join(config.AppConfig.UploadDir, "documents", ownerType))
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to save file: "+err.Error(), nil)
	}

	doc := courseModels.Document{
		Title:      reqData.Title,
		FilePath:   path,
		MimeType:   file.Header.Get(fiber.HeaderContentType),
		Size:       file.Size,
		UploadedBy: rc.UserID,
	}
	saved, err := services.App.Documents.Attach(c.UserContext(), rc, ownerType, ownerID, doc)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Document uploaded successfully!", fiber.Map{
		"document": saved,
		"url":      utils.GetFileURL(saved.FilePath),
	})
}

func ListDocuments(c *fiber.Ctx) error {
	rc, ok := middleware.GetRequestContext(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	docs, err := services.App.Documents.List(c.UserContext(), rc, c.Params("owner_type"), c.Locals("owner_id").(uint))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Documents fetched successfully!", docs)
}
