// Package certificates issues completion certificates for finished enrollments.
package certificates

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"lms/models"
	courseModels "lms/models/course"
	"lms/services/grading"
	"lms/utils"

	"github.com/google/uuid"
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

// Request files a certificate request for a completed enrollment, snapshotting the final grade.
func (s *Service) Request(ctx context.Context, rc utils.RequestContext, courseID uint) (*courseModels.CertificateRequest, error) {
	db := s.DB.WithContext(ctx)

	var enrollment courseModels.CourseEnrollment
	if err := db.Where("user_id = ? AND course_id = ?", rc.UserID, courseID).First(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.Forbidden("User not enrolled in this course!")
		}
		return nil, utils.Internal("Failed to fetch enrollment", err)
	}
	if enrollment.Status != courseModels.EnrollmentCompleted {
		return nil, utils.Conflict("Please complete the course before requesting a certificate!")
	}

	var existing courseModels.CertificateRequest
	err := db.Where("user_id = ? AND course_id = ? AND status IN ?", rc.UserID, courseID,
		[]string{courseModels.CertificatePending, courseModels.CertificateApproved}).First(&existing).Error
	if err == nil {
		if existing.Status == courseModels.CertificatePending {
			return nil, utils.Conflict("Certificate request already pending!")
		}
		return nil, utils.Conflict("Certificate already issued!")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.Internal("Failed to check certificate requests", err)
	}

	report, err := s.Grades.StudentCourseReport(ctx, rc, rc.UserID, courseID)
	if err != nil {
		return nil, err
	}

	request := courseModels.CertificateRequest{
		UserID:       rc.UserID,
		CourseID:     courseID,
		EnrollmentID: enrollment.ID,
		Status:       courseModels.CertificatePending,
		FinalGrade:   report.OverallPercentage,
		LetterGrade:  report.LetterGrade,
		RequestedAt:  time.Now(),
	}
	if err := db.Create(&request).Error; err != nil {
		return nil, utils.Internal("Failed to submit certificate request", err)
	}
	return &request, nil
}

// Approve issues the certificate. Admin only.
func (s *Service) Approve(ctx context.Context, rc utils.RequestContext, requestID uint) (*courseModels.Certificate, error) {
	if !rc.IsAdmin() {
		return nil, utils.Forbidden("Access denied! Admin only.")
	}
	db := s.DB.WithContext(ctx)
	request, err := pendingRequest(db, requestID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	certificate := courseModels.Certificate{
		UserID:            request.UserID,
		CourseID:          request.CourseID,
		CertificateNumber: certificateNumber(request.CourseID, request.UserID),
		FinalGrade:        request.FinalGrade,
		LetterGrade:       request.LetterGrade,
		IssuedAt:          now,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		request.Status = courseModels.CertificateApproved
		request.ApprovedAt = &now
		request.ApprovedBy = &rc.UserID
		if err := tx.Save(request).Error; err != nil {
			return err
		}
		return tx.Create(&certificate).Error
	})
	if err != nil {
		return nil, utils.Internal("Failed to approve request", err)
	}

	var user models.User
	var course courseModels.Course
	if err := db.First(&user, request.UserID).Error; err != nil {
		log.Printf("[CERTIFICATE] Error fetching user %d: %v", request.UserID, err)
		return &certificate, nil
	}
	if err := db.First(&course, request.CourseID).Error; err != nil {
		log.Printf("[CERTIFICATE] Error fetching course %d: %v", request.CourseID, err)
		return &certificate, nil
	}
	s.Notifier.CertificateIssued(user, course, certificate)
	return &certificate, nil
}

// Reject closes a pending request with a reason. Admin only.
func (s *Service) Reject(ctx context.Context, rc utils.RequestContext, requestID uint, reason string) (*courseModels.CertificateRequest, error) {
	if !rc.IsAdmin() {
		return nil, utils.Forbidden("Access denied! Admin only.")
	}
	db := s.DB.WithContext(ctx)
	request, err := pendingRequest(db, requestID)
	if err != nil {
		return nil, err
	}
	request.Status = courseModels.CertificateRejected
	request.RejectionReason = strings.TrimSpace(reason)
	if err := db.Save(request).Error; err != nil {
		return nil, utils.Internal("Failed to reject request", err)
	}
	return request, nil
}

// ListForUser returns the caller's certificates and the number of pending requests.
func (s *Service) ListForUser(ctx context.Context, rc utils.RequestContext) ([]courseModels.Certificate, int64, error) {
	db := s.DB.WithContext(ctx)
	var certificates []courseModels.Certificate
	if err := db.Where("user_id = ?", rc.UserID).Order("issued_at desc").Find(&certificates).Error; err != nil {
		return nil, 0, utils.Internal("Failed to fetch certificates", err)
	}
	var pending int64
	if err := db.Model(&courseModels.CertificateRequest{}).
		Where("user_id = ? AND status = ?", rc.UserID, courseModels.CertificatePending).
		Count(&pending).Error; err != nil {
		return nil, 0, utils.Internal("Failed to fetch certificate requests", err)
	}
	return certificates, pending, nil
}

// ListPending returns pending requests, oldest first. Admin only.
func (s *Service) ListPending(ctx context.Context, rc utils.RequestContext) ([]courseModels.CertificateRequest, error) {
	if !rc.IsAdmin() {
		return nil, utils.Forbidden("Access denied! Admin only.")
	}
	var requests []courseModels.CertificateRequest
	if err := s.DB.WithContext(ctx).Where("status = ?", courseModels.CertificatePending).
		Order("requested_at asc").Find(&requests).Error; err != nil {
		return nil, utils.Internal("Failed to fetch certificate requests", err)
	}
	return requests, nil
}

func pendingRequest(db *gorm.DB, requestID uint) (*courseModels.CertificateRequest, error) {
	var request courseModels.CertificateRequest
	if err := db.First(&request, requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("Certificate request not found!")
		}
		return nil, utils.Internal("Failed to fetch certificate request", err)
	}
	if request.Status != courseModels.CertificatePending {
		return nil, utils.Conflict("Request is not pending!")
	}
	return &request, nil
}

func certificateNumber(courseID, userID uint) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	return fmt.Sprintf("CERT-%d-%d-%s", courseID, userID, suffix)
}
