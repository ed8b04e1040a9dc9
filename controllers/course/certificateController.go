package controllers

import (
	"lms/middleware"
	"lms/services"
	"lms/validators"
	courseValidator "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

// RequestCertificate requests a certificate for a completed course
func RequestCertificate(c *fiber.Ctx) error {
	rc, ok := middleware.GetRequestContext(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	request, err := services.App.Certificates.Request(c.UserContext(), rc, validators.ParamID(c, "course_id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Certificate request submitted successfully!", request)
}

func GetUserCertificates(c *fiber.Ctx) error {
	rc, ok := middleware.GetRequestContext(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	certificates, pending, err := services.App.Certificates.ListForUser(c.UserContext(), rc)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificates fetched successfully!", fiber.Map{
		"certificates":     certificates,
		"pending_requests": pending,
	})
}

func AdminGetPendingCertificates(c *fiber.Ctx) error {
	rc, _ := middleware.GetRequestContext(c)

	requests, err := services.App.Certificates.ListPending(c.UserContext(), rc)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Pending certificate requests fetched successfully!", requests)
}

func AdminApproveCertificate(c *fiber.Ctx) error {
	rc, _ := middleware.GetRequestContext(c)

	certificate, err := services.App.Certificates.Approve(c.UserContext(), rc, validators.ParamID(c, "request_id"))
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate approved and issued successfully!", certificate)
}

func AdminRejectCertificate(c *fiber.Ctx) error {
	rc, _ := middleware.GetRequestContext(c)

	reqData, ok := c.Locals("validatedRejection").(*courseValidator.RejectCertificateRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	request, err := services.App.Certificates.Reject(c.UserContext(), rc, validators.ParamID(c, "request_id"), reqData.Reason)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate request rejected!", request)
}
