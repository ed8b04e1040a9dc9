package controllers

import (
	"time"

	"lms/database"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

// AdminDashboardStats summarizes courses, enrollments, grading backlog and certificates
func AdminDashboardStats(c *fiber.Ctx) error {
	db := database.Database.Db

	var totalCourses, publishedCourses, pendingCertificates, awaitingGrading int64
	errs := []error{
		db.Model(&courseModels.Course{}).Where("is_deleted = ?", false).Count(&totalCourses).Error,
		db.Model(&courseModels.Course{}).Where("is_deleted = ? AND is_published = ?", false, true).Count(&publishedCourses).Error,
		db.Model(&courseModels.CertificateRequest{}).Where("status = ?", courseModels.CertificatePending).Count(&pendingCertificates).Error,
		db.Model(&courseModels.StudentActivity{}).Where("status = ?", courseModels.StatusSubmitted).Count(&awaitingGrading).Error,
	}
	if err, found := lo.Find(errs, func(err error) bool { return err != nil }); found {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch dashboard stats: "+err.Error(), nil)
	}

	type statusCount struct {
		Status string
		Total  int64
	}
	var byStatus []statusCount
	if err := db.Model(&courseModels.CourseEnrollment{}).Select("status, count(*) as total").
		Group("status").Scan(&byStatus).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch dashboard stats: "+err.Error(), nil)
	}
	enrollments := lo.SliceToMap(byStatus, func(s statusCount) (string, int64) { return s.Status, s.Total })

	type RecentEnrollment struct {
		UserName   string    `json:"user_name"`
		CourseName string    `json:"course_name"`
		Status     string    `json:"status"`
		EnrolledAt time.Time `json:"enrolled_at"`
	}

	var recentEnrollments []courseModels.CourseEnrollment
	db.Preload("Course").Order("created_at desc").Limit(5).Find(&recentEnrollments)

	userIDs := lo.Map(recentEnrollments, func(e courseModels.CourseEnrollment, _ int) uint { return e.UserID })
	var users []models.User
	if len(userIDs) > 0 {
		db.Where("id IN ?", userIDs).Find(&users)
	}
	names := lo.SliceToMap(users, func(u models.User) (uint, string) { return u.ID, u.Name })

	recent := lo.Map(recentEnrollments, func(e courseModels.CourseEnrollment, _ int) RecentEnrollment {
		return RecentEnrollment{
			UserName:   names[e.UserID],
			CourseName: e.Course.Title,
			Status:     e.Status,
			EnrolledAt: e.EnrolledAt,
		}
	})

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Dashboard stats fetched successfully!", fiber.Map{
		"stats": fiber.Map{
			"total_courses":        totalCourses,
			"published_courses":    publishedCourses,
			"enrollments":          enrollments,
			"pending_certificates": pendingCertificates,
			"awaiting_grading":     awaitingGrading,
		},
		"recent_enrollments": recent,
	})
}
