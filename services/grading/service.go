package grading

import (
	"context"
	"errors"
	"log"

	"lms/cache"
	"lms/models"
	courseModels "lms/models/course"
	"lms/utils"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// Service computes and caches grade reports.
type Service struct {
	DB       *gorm.DB
	Cache    cache.GradeCache
	Defaults map[string]Weights
}

func NewService(db *gorm.DB, gradeCache cache.GradeCache, defaults map[string]Weights) *Service {
	if gradeCache == nil {
		gradeCache = cache.NopGradeCache{}
	}
	if defaults == nil {
		defaults = builtinWeights
	}
	return &Service{DB: db, Cache: gradeCache, Defaults: defaults}
}

// StudentSummary is one row of the instructor report.
type StudentSummary struct {
	StudentID           uint    `json:"student_id"`
	Name                string  `json:"name"`
	Email               string  `json:"email"`
	EnrollmentStatus    string  `json:"enrollment_status"`
	Progress            float64 `json:"progress"`
	OverallPercentage   float64 `json:"overall_percentage"`
	LetterGrade         string  `json:"letter_grade"`
	ModuleAverage       float64 `json:"module_average"`
	CompletedActivities int     `json:"completed_activities"`
	TotalActivities     int     `json:"total_activities"`
}

type InstructorReport struct {
	CourseID     uint             `json:"course_id"`
	CourseTitle  string           `json:"course_title"`
	StudentCount int              `json:"student_count"`
	ClassAverage float64          `json:"class_average"`
	LetterGrade  string           `json:"letter_grade"`
	Distribution map[string]int   `json:"distribution"`
	Students     []StudentSummary `json:"students"`
}

// StudentCourseReport returns the report of one student. Students may only read their own.
func (s *Service) StudentCourseReport(ctx context.Context, rc utils.RequestContext, studentID, courseID uint) (*CourseReport, error) {
	db := s.DB.WithContext(ctx)

	course, err := findCourse(db, courseID)
	if err != nil {
		return nil, err
	}
	if _, err := findUser(db, studentID); err != nil {
		return nil, err
	}
	if rc.UserID != studentID && !rc.CanManage(course.InstructorID) {
		return nil, utils.Forbidden("You are not allowed to view this report!")
	}

	return s.courseReport(ctx, db, course, studentID)
}

// StudentReports returns a report per active or completed enrollment of the student.
func (s *Service) StudentReports(ctx context.Context, rc utils.RequestContext, studentID uint) ([]CourseReport, error) {
	db := s.DB.WithContext(ctx)
	if rc.UserID != studentID && !rc.IsAdmin() {
		return nil, utils.Forbidden("You are not allowed to view these reports!")
	}
	if _, err := findUser(db, studentID); err != nil {
		return nil, err
	}

	var enrollments []courseModels.CourseEnrollment
	if err := db.Preload("Course").
		Where("user_id = ? AND status IN ?", studentID, []string{courseModels.EnrollmentEnrolled, courseModels.EnrollmentCompleted}).
		Order("enrolled_at asc").
		Find(&enrollments).Error; err != nil {
		return nil, utils.Internal("Failed to fetch enrollments", err)
	}

	reports := make([]CourseReport, 0, len(enrollments))
	for _, e := range enrollments {
		if e.Course.ID == 0 || e.Course.IsDeleted {
			continue
		}
		report, err := s.courseReport(ctx, db, &e.Course, studentID)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *report)
	}
	return reports, nil
}

// InstructorCourseReport summarizes every enrolled student of a course.
func (s *Service) InstructorCourseReport(ctx context.Context, rc utils.RequestContext, courseID uint) (*InstructorReport, error) {
	db := s.DB.WithContext(ctx)

	course, err := findCourse(db, courseID)
	if err != nil {
		return nil, err
	}
	if !rc.CanManage(course.InstructorID) {
		return nil, utils.Forbidden("You are not the instructor of this course!")
	}

	var enrollments []courseModels.CourseEnrollment
	if err := db.Where("course_id = ? AND status IN ?", courseID, []string{courseModels.EnrollmentEnrolled, courseModels.EnrollmentCompleted}).
		Order("user_id asc").
		Find(&enrollments).Error; err != nil {
		return nil, utils.Internal("Failed to fetch enrollments", err)
	}

	userIDs := lo.Map(enrollments, func(e courseModels.CourseEnrollment, _ int) uint { return e.UserID })
	var users []models.User
	if len(userIDs) > 0 {
		if err := db.Where("id IN ?", userIDs).Find(&users).Error; err != nil {
			return nil, utils.Internal("Failed to fetch students", err)
		}
	}
	usersByID := lo.KeyBy(users, func(u models.User) uint { return u.ID })

	report := &InstructorReport{
		CourseID:     course.ID,
		CourseTitle:  course.Title,
		Distribution: make(map[string]int),
		Students:     make([]StudentSummary, 0, len(enrollments)),
	}
	for _, e := range enrollments {
		studentReport, err := s.courseReport(ctx, db, course, e.UserID)
		if err != nil {
			return nil, err
		}
		user := usersByID[e.UserID]
		report.Students = append(report.Students, StudentSummary{
			StudentID:           e.UserID,
			Name:                user.Name,
			Email:               user.Email,
			EnrollmentStatus:    e.Status,
			Progress:            e.Progress,
			OverallPercentage:   studentReport.OverallPercentage,
			LetterGrade:         studentReport.LetterGrade,
			ModuleAverage:       studentReport.ModuleAverage,
			CompletedActivities: studentReport.CompletedActivities,
			TotalActivities:     studentReport.TotalActivities,
		})
		report.Distribution[studentReport.LetterGrade]++
	}

	report.StudentCount = len(report.Students)
	if report.StudentCount > 0 {
		report.ClassAverage = round2(lo.MeanBy(report.Students, func(st StudentSummary) float64 { return st.OverallPercentage }))
	}
	report.LetterGrade = LetterGrade(report.ClassAverage)
	return report, nil
}

// Invalidate drops the cached report of (student, course). Cache failures are logged, not returned.
func (s *Service) Invalidate(ctx context.Context, studentID, courseID uint) {
	if err := s.Cache.Invalidate(ctx, studentID, courseID); err != nil {
		log.Printf("[GRADING] Failed to invalidate grades for student %d course %d: %v", studentID, courseID, err)
	}
}

// InvalidateCourse drops every cached report of a course.
func (s *Service) InvalidateCourse(ctx context.Context, courseID uint) {
	if err := s.Cache.InvalidateCourse(ctx, courseID); err != nil {
		log.Printf("[GRADING] Failed to invalidate grades for course %d: %v", courseID, err)
	}
}

func (s *Service) courseReport(ctx context.Context, db *gorm.DB, course *courseModels.Course, studentID uint) (*CourseReport, error) {
	var cached CourseReport
	if ok, err := s.Cache.Get(ctx, studentID, course.ID, &cached); err != nil {
		log.Printf("[GRADING] Cache read failed for student %d course %d: %v", studentID, course.ID, err)
	} else if ok {
		return &cached, nil
	}

	snap, err := LoadSnapshot(db, s.Defaults, course.ID)
	if err != nil {
		return nil, utils.Internal("Failed to load grade settings", err)
	}
	in, err := LoadCalculationInput(db, course, studentID)
	if err != nil {
		return nil, utils.Internal("Failed to load grades", err)
	}
	in.ModuleWeights = ResolveWeights(snap, course.ID, courseModels.SchemeModuleComponent)
	in.TypeWeights = ResolveWeights(snap, course.ID, courseModels.SchemeActivityType)

	report := Calculate(in)
	if err := s.Cache.Set(ctx, studentID, course.ID, report); err != nil {
		log.Printf("[GRADING] Cache write failed for student %d course %d: %v", studentID, course.ID, err)
	}
	return &report, nil
}

// LoadCalculationInput reads everything Calculate needs for one student in one course.
func LoadCalculationInput(db *gorm.DB, course *courseModels.Course, studentID uint) (CalculationInput, error) {
	in := CalculationInput{CourseID: course.ID, CourseTitle: course.Title, StudentID: studentID}

	var modules []courseModels.Module
	if err := db.Where("course_id = ? AND is_deleted = ?", course.ID, false).
		Order("order_index asc, id asc").Find(&modules).Error; err != nil {
		return in, err
	}

	type moduleCount struct {
		ModuleID uint
		Total    int
	}
	var lessonTotals []moduleCount
	if err := db.Model(&courseModels.Lesson{}).
		Select("module_id, COUNT(*) AS total").
		Where("course_id = ? AND is_deleted = ? AND is_published = ?", course.ID, false, true).
		Group("module_id").Scan(&lessonTotals).Error; err != nil {
		return in, err
	}
	var lessonDone []moduleCount
	if err := db.Model(&courseModels.LessonCompletion{}).
		Select("lesson_completions.module_id AS module_id, COUNT(*) AS total").
		Joins("JOIN lessons ON lessons.id = lesson_completions.lesson_id").
		Where("lesson_completions.user_id = ? AND lesson_completions.course_id = ? AND lessons.is_deleted = ? AND lessons.is_published = ? AND lessons.deleted_at IS NULL AND lesson_completions.deleted_at IS NULL",
			studentID, course.ID, false, true).
		Group("lesson_completions.module_id").Scan(&lessonDone).Error; err != nil {
		return in, err
	}
	totals := lo.SliceToMap(lessonTotals, func(m moduleCount) (uint, int) { return m.ModuleID, m.Total })
	done := lo.SliceToMap(lessonDone, func(m moduleCount) (uint, int) { return m.ModuleID, m.Total })

	in.Modules = lo.Map(modules, func(m courseModels.Module, _ int) ModuleInput {
		return ModuleInput{
			ModuleID:         m.ID,
			Title:            m.Title,
			TotalLessons:     totals[m.ID],
			CompletedLessons: done[m.ID],
		}
	})

	var activities []courseModels.Activity
	if err := db.Preload("ActivityType").
		Where("course_id = ? AND is_deleted = ? AND is_published = ?", course.ID, false, true).
		Order("module_id asc, order_index asc, id asc").Find(&activities).Error; err != nil {
		return in, err
	}
	var attempts []courseModels.StudentActivity
	if err := db.Where("user_id = ? AND course_id = ?", studentID, course.ID).Find(&attempts).Error; err != nil {
		return in, err
	}
	attemptByActivity := lo.KeyBy(attempts, func(sa courseModels.StudentActivity) uint { return sa.ActivityID })

	in.Activities = lo.Map(activities, func(a courseModels.Activity, _ int) ActivityInput {
		ai := ActivityInput{
			ActivityID: a.ID,
			ModuleID:   a.ModuleID,
			Title:      a.Title,
			Type:       a.ActivityType.Name,
			Status:     courseModels.StatusNotStarted,
		}
		if sa, ok := attemptByActivity[a.ID]; ok {
			ai.Status = sa.Status
			ai.Score = sa.Score
			ai.MaxScore = sa.MaxScore
		}
		return ai
	})
	return in, nil
}

func findCourse(db *gorm.DB, courseID uint) (*courseModels.Course, error) {
	var course courseModels.Course
	if err := db.Where("id = ? AND is_deleted = ?", courseID, false).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("Course not found!")
		}
		return nil, utils.Internal("Failed to fetch course", err)
	}
	return &course, nil
}

func findUser(db *gorm.DB, userID uint) (*models.User, error) {
	var user models.User
	if err := db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("Student not found!")
		}
		return nil, utils.Internal("Failed to fetch student", err)
	}
	return &user, nil
}
