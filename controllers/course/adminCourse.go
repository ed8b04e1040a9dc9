package controllers

import (
	"errors"
	"log"
	"strings"

	"lms/database"
	"lms/middleware"
	courseModels "lms/models/course"
	"lms/services"
	"lms/services/grading"
	"lms/validators"
	courseValidator "lms/validators/course"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AdminCreateCourse creates a new course. Instructors own what they create;
// admins may assign an instructor_id.
func AdminCreateCourse(c *fiber.Ctx) error {
	rc, ok := middleware.GetRequestContext(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	reqData, ok := c.Locals("validatedCourse").(*courseValidator.CreateCourseRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	instructorID := rc.UserID
	if rc.IsAdmin() && reqData.InstructorID > 0 {
		instructorID = reqData.InstructorID
	}
	status := reqData.Status
	if status == "" {
		status = courseModels.CourseDraft
	}

	course := courseModels.Course{
		Title:        reqData.Title,
		Description:  reqData.Description,
		InstructorID: instructorID,
		Duration:     reqData.Duration,
		ThumbnailURL: reqData.ThumbnailURL,
		Status:       status,
		IsPublished:  reqData.IsPublished,
	}

	if err := database.Database.Db.Create(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create course!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Course created successfully!", course)
}

// AdminUpdateCourse updates only the provided fields
func AdminUpdateCourse(c *fiber.Ctx) error {
	rc, _ := middleware.GetRequestContext(c)
	course := c.Locals("course").(*courseModels.Course)

	reqData, ok := c.Locals("validatedCourseUpdate").(*courseValidator.UpdateCourseRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	if reqData.Title != nil {
		course.Title = strings.TrimSpace(*reqData.Title)
	}
	if reqData.Description != nil {
		course.Description = strings.TrimSpace(*reqData.Description)
	}
	if reqData.InstructorID != nil {
		if !rc.IsAdmin() {
			return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Only admins can reassign a course!", nil)
		}
		course.InstructorID = *reqData.InstructorID
	}
	if reqData.Duration != nil {
		course.Duration = *reqData.Duration
	}
	if reqData.ThumbnailURL != nil {
		course.ThumbnailURL = *reqData.ThumbnailURL
	}
	if reqData.Status != nil {
		course.Status = *reqData.Status
	}
	if reqData.IsPublished != nil {
		course.IsPublished = *reqData.IsPublished
	}

	if err := database.Database.Db.Save(course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update course!", nil)
	}

	refreshCourse(c, course.ID, false)
	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course updated successfully!", course)
}

// AdminCreateModule adds a module to the course
func AdminCreateModule(c *fiber.Ctx) error {
	course := c.Locals("course").(*courseModels.Course)

	reqData, ok := c.Locals("validatedModule").(*courseValidator.CreateModuleRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	module := courseModels.Module{
		CourseID:    course.ID,
		Title:       strings.TrimSpace(reqData.Title),
		Description: strings.TrimSpace(reqData.Description),
		OrderIndex:  reqData.OrderIndex,
	}
	if err := database.Database.Db.Create(&module).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create module!", nil)
	}

	refreshCourse(c, course.ID, false)
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Module created successfully!", module)
}

// AdminCreateLesson adds a lesson to a module of the course
func AdminCreateLesson(c *fiber.Ctx) error {
	course := c.Locals("course").(*courseModels.Course)
	module, err := courseModule(course.ID, validators.ParamID(c, "module_id"))
	if err != nil {
		return moduleError(c, err)
	}

	reqData, ok := c.Locals("validatedLesson").(*courseValidator.CreateLessonRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	lesson := courseModels.Lesson{
		CourseID:    course.ID,
		ModuleID:    module.ID,
		Title:       strings.TrimSpace(reqData.Title),
		Content:     reqData.Content,
		VideoURL:    reqData.VideoURL,
		OrderIndex:  reqData.OrderIndex,
		IsPublished: reqData.IsPublished,
	}
	if err := database.Database.Db.Create(&lesson).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create lesson!", nil)
	}

	refreshCourse(c, course.ID, lesson.IsPublished)
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Lesson created successfully!", lesson)
}

// AdminCreateActivity adds an activity with its Quiz or Assignment settings row
func AdminCreateActivity(c *fiber.Ctx) error {
	course := c.Locals("course").(*courseModels.Course)
	module, err := courseModule(course.ID, validators.ParamID(c, "module_id"))
	if err != nil {
		return moduleError(c, err)
	}

	reqData, ok := c.Locals("validatedActivity").(*courseValidator.CreateActivityRequest)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	var activityType courseModels.ActivityType
	if err := database.Database.Db.Where("name = ?", reqData.ActivityType).First(&activityType).Error; err != nil {
		return middleware.ValidationErrorResponse(c, map[string]string{"activity_type": "Unknown activity type!"})
	}

	activity := courseModels.Activity{
		CourseID:       course.ID,
		ModuleID:       module.ID,
		ActivityTypeID: activityType.ID,
		Title:          strings.TrimSpace(reqData.Title),
		Description:    reqData.Description,
		DueDate:        reqData.DueDate,
		OrderIndex:     reqData.OrderIndex,
		IsPublished:    reqData.IsPublished,
	}

	err = database.Database.Db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&activity).Error; err != nil {
			return err
		}
		switch activityType.Name {
		case courseModels.ActivityQuiz:
			activity.Quiz = &courseModels.Quiz{
				ActivityID:       activity.ID,
				TimeLimitMinutes: reqData.TimeLimitMinutes,
				ShuffleQuestions: reqData.ShuffleQuestions,
			}
			return tx.Create(activity.Quiz).Error
		case courseModels.ActivityAssignment:
			activity.Assignment = &courseModels.Assignment{
				ActivityID:      activity.ID,
				Instructions:    reqData.Instructions,
				AllowFileUpload: reqData.AllowFileUpload,
			}
			return tx.Create(activity.Assignment).Error
		}
		return nil
	})
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create activity!", nil)
	}
	activity.ActivityType = activityType

	refreshCourse(c, course.ID, activity.IsPublished)
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Activity created successfully!", activity)
}

// AdminCreateQuestion adds a question to an activity
func AdminCreateQuestion(c *fiber.Ctx) error {
	rc, ok := middleware.GetRequestContext(c)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	reqData, ok := c.Locals("validatedQuestion").(*grading.QuestionInput)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	question, err := services.App.Grades.CreateQuestion(c.UserContext(), rc, validators.ParamID(c, "activity_id"), *reqData)
	if err != nil {
		return middleware.ErrorResponse(c, err)
	}
	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Question created successfully!", question)
}

// refreshCourse drops the cached reports of a course. When published content changed the
// progress denominator, stored enrollment progress is recomputed too.
func refreshCourse(c *fiber.Ctx, courseID uint, progressChanged bool) {
	services.App.Grades.InvalidateCourse(c.UserContext(), courseID)
	if !progressChanged {
		return
	}
	if _, err := services.App.Enrollment.ReconcileCourse(c.UserContext(), courseID); err != nil {
		log.Printf("[COURSE] Failed to recompute progress for course %d: %v", courseID, err)
	}
}

func courseModule(courseID, moduleID uint) (*courseModels.Module, error) {
	var module courseModels.Module
	err := database.Database.Db.Where("id = ? AND course_id = ? AND is_deleted = ?", moduleID, courseID, false).First(&module).Error
	return &module, err
}

func moduleError(c *fiber.Ctx, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Module not found!", nil)
	}
	return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch module!", nil)
}
