package courseValidator

import (
	"strings"
	"time"

	"lms/middleware"
	"lms/services/grading"
	"lms/validators"

	"github.com/gofiber/fiber/v2"
)

// ============ Course Validators ============

type CreateCourseRequest struct {
	Title        string `json:"title" validate:"required,min=3,max=255"`
	Description  string `json:"description" validate:"required,min=5"`
	InstructorID uint   `json:"instructor_id"`
	Duration     int64  `json:"duration" validate:"gte=0"`
	ThumbnailURL string `json:"thumbnail_url" validate:"omitempty,url"`
	Status       string `json:"status" validate:"omitempty,oneof=DRAFT ACTIVE INACTIVE"`
	IsPublished  bool   `json:"is_published"`
}

type UpdateCourseRequest struct {
	Title        *string `json:"title" validate:"omitempty,min=3,max=255"`
	Description  *string `json:"description" validate:"omitempty,min=5"`
	InstructorID *uint   `json:"instructor_id" validate:"omitempty,gt=0"`
	Duration     *int64  `json:"duration" validate:"omitempty,gte=0"`
	ThumbnailURL *string `json:"thumbnail_url" validate:"omitempty,url"`
	Status       *string `json:"status" validate:"omitempty,oneof=DRAFT ACTIVE INACTIVE"`
	IsPublished  *bool   `json:"is_published"`
}

func CreateCourse() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(CreateCourseRequest)
		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}
		reqData.Title = strings.TrimSpace(reqData.Title)
		reqData.Description = strings.TrimSpace(reqData.Description)

		if errs := validators.Struct(reqData); len(errs) > 0 {
			return middleware.ValidationErrorResponse(c, errs)
		}

		c.Locals("validatedCourse", reqData)
		return c.Next()
	}
}

func UpdateCourse() fiber.Handler {
	return validators.Body[UpdateCourseRequest]("validatedCourseUpdate")
}

// ============ Module / Lesson / Activity Validators ============

type CreateModuleRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=255"`
	Description string `json:"description"`
	OrderIndex  int    `json:"order_index" validate:"gte=0"`
}

type CreateLessonRequest struct {
	Title       string `json:"title" validate:"required,min=3,max=255"`
	Content     string `json:"content"`
	VideoURL    string `json:"video_url" validate:"omitempty,url"`
	OrderIndex  int    `json:"order_index" validate:"gte=0"`
	IsPublished bool   `json:"is_published"`
}

type CreateActivityRequest struct {
	ActivityType     string     `json:"activity_type" validate:"required,oneof=Quiz Assignment Assessment Exercise"`
	Title            string     `json:"title" validate:"required,min=3,max=255"`
	Description      string     `json:"description"`
	DueDate          *time.Time `json:"due_date"`
	OrderIndex       int        `json:"order_index" validate:"gte=0"`
	IsPublished      bool       `json:"is_published"`
	TimeLimitMinutes int        `json:"time_limit_minutes" validate:"gte=0"`
	ShuffleQuestions bool       `json:"shuffle_questions"`
	Instructions     string     `json:"instructions"`
	AllowFileUpload  bool       `json:"allow_file_upload"`
}

func CreateModule() fiber.Handler {
	return validators.Body[CreateModuleRequest]("validatedModule")
}

func CreateLesson() fiber.Handler {
	return validators.Body[CreateLessonRequest]("validatedLesson")
}

func CreateActivity() fiber.Handler {
	return validators.Body[CreateActivityRequest]("validatedActivity")
}

func CreateQuestion() fiber.Handler {
	return validators.Body[grading.QuestionInput]("validatedQuestion")
}

// ============ Enrollment / Certificate Validators ============

type EnrollmentListQuery struct {
	Page  int `query:"page" validate:"omitempty,gte=1"`
	Limit int `query:"limit" validate:"omitempty,gte=1,lte=100"`
}

func CourseList() fiber.Handler {
	return validators.Query[EnrollmentListQuery]("validatedList")
}

func GetUserEnrollments() fiber.Handler {
	return validators.Query[EnrollmentListQuery]("validatedEnrollmentList")
}

type RejectCertificateRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=1000"`
}

func RejectCertificate() fiber.Handler {
	return validators.Body[RejectCertificateRequest]("validatedRejection")
}
