// Package enrollment manages course enrollments and the progress they carry.
package enrollment

import (
	"context"
	"errors"
	"log"
	"time"

	courseModels "lms/models/course"
	"lms/services/grading"
	"lms/utils"

	"gorm.io/gorm"
)

type Service struct {
	DB       *gorm.DB
	Grades   *grading.Service
	Notifier utils.Notifier
}

func NewService(db *gorm.DB, grades *grading.Service, notifier utils.Notifier) *Service {
	if notifier == nil {
		notifier = utils.NopNotifier{}
	}
	return &Service{DB: db, Grades: grades, Notifier: notifier}
}

// Enroll creates an enrollment. Any previous enrollment, including a terminal one, is a conflict.
func (s *Service) Enroll(ctx context.Context, rc utils.RequestContext, courseID uint) (*courseModels.CourseEnrollment, error) {
	if !rc.IsStudent() {
		return nil, utils.Forbidden("Only students can enroll in courses!")
	}
	db := s.DB.WithContext(ctx)

	var course courseModels.Course
	if err := db.Where("id = ? AND is_deleted = ? AND status = ?", courseID, false, courseModels.CourseActive).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("Course not found or not active!")
		}
		return nil, utils.Internal("Failed to fetch course", err)
	}

	var existing courseModels.CourseEnrollment
	err := db.Where("user_id = ? AND course_id = ?", rc.UserID, courseID).First(&existing).Error
	if err == nil {
		return nil, utils.Conflict("User already enrolled in this course!")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.Internal("Failed to check enrollment", err)
	}

	enrollment := courseModels.CourseEnrollment{
		UserID:     rc.UserID,
		CourseID:   courseID,
		Status:     courseModels.EnrollmentEnrolled,
		EnrolledAt: time.Now(),
	}
	if err := db.Create(&enrollment).Error; err != nil {
		return nil, utils.Internal("Failed to enroll in course", err)
	}
	log.Printf("[ENROLLMENT] User %d enrolled in course %d", rc.UserID, courseID)
	return &enrollment, nil
}

// Withdraw moves the caller's own active enrollment to withdrawn.
func (s *Service) Withdraw(ctx context.Context, rc utils.RequestContext, courseID uint) (*courseModels.CourseEnrollment, error) {
	return s.leave(ctx, rc.UserID, courseID, courseModels.EnrollmentWithdrawn)
}

// Drop removes a student from a course. Only the course instructor or an admin may drop.
func (s *Service) Drop(ctx context.Context, rc utils.RequestContext, courseID, studentID uint) (*courseModels.CourseEnrollment, error) {
	var course courseModels.Course
	if err := s.DB.WithContext(ctx).Where("id = ? AND is_deleted = ?", courseID, false).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("Course not found!")
		}
		return nil, utils.Internal("Failed to fetch course", err)
	}
	if !rc.CanManage(course.InstructorID) {
		return nil, utils.Forbidden("You are not the instructor of this course!")
	}
	return s.leave(ctx, studentID, courseID, courseModels.EnrollmentDropped)
}

func (s *Service) leave(ctx context.Context, userID, courseID uint, status string) (*courseModels.CourseEnrollment, error) {
	db := s.DB.WithContext(ctx)
	enrollment, err := findEnrollment(db, userID, courseID)
	if err != nil {
		return nil, err
	}
	if enrollment.Status != courseModels.EnrollmentEnrolled {
		return nil, utils.Conflict("Enrollment is not active!")
	}

	now := time.Now()
	enrollment.Status = status
	enrollment.WithdrawnAt = &now
	if err := db.Save(enrollment).Error; err != nil {
		return nil, utils.Internal("Failed to update enrollment", err)
	}
	s.Grades.Invalidate(ctx, userID, courseID)
	log.Printf("[ENROLLMENT] User %d %s from course %d", userID, status, courseID)
	return enrollment, nil
}

// List returns the caller's enrollments, newest first. page and limit of 0 return everything.
func (s *Service) List(ctx context.Context, rc utils.RequestContext, page, limit int) ([]courseModels.CourseEnrollment, int64, error) {
	db := s.DB.WithContext(ctx).Model(&courseModels.CourseEnrollment{}).Where("user_id = ?", rc.UserID).Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, utils.Internal("Failed to fetch enrollments", err)
	}

	query := db.Preload("Course").Order("created_at desc")
	if page > 0 && limit > 0 {
		query = query.Offset((page - 1) * limit).Limit(limit)
	}
	var enrollments []courseModels.CourseEnrollment
	if err := query.Find(&enrollments).Error; err != nil {
		return nil, 0, utils.Internal("Failed to fetch enrollments", err)
	}
	return enrollments, total, nil
}

// RequireActive returns the enrollment if the student is currently enrolled.
func RequireActive(db *gorm.DB, userID, courseID uint) (*courseModels.CourseEnrollment, error) {
	enrollment, err := findEnrollment(db, userID, courseID)
	if err != nil {
		if utils.IsKind(err, utils.KindNotFound) {
			return nil, utils.Forbidden("User not enrolled in this course!")
		}
		return nil, err
	}
	if enrollment.Status != courseModels.EnrollmentEnrolled && enrollment.Status != courseModels.EnrollmentCompleted {
		return nil, utils.Forbidden("Enrollment is not active!")
	}
	return enrollment, nil
}

func findEnrollment(db *gorm.DB, userID, courseID uint) (*courseModels.CourseEnrollment, error) {
	var enrollment courseModels.CourseEnrollment
	if err := db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("Enrollment not found!")
		}
		return nil, utils.Internal("Failed to fetch enrollment", err)
	}
	return &enrollment, nil
}
