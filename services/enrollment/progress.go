package enrollment

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"lms/models"
	courseModels "lms/models/course"
	"lms/utils"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// ProgressResult describes what RecomputeProgress changed.
type ProgressResult struct {
	Enrollment       courseModels.CourseEnrollment
	CourseCompleted  bool
	CompletedModules []uint
}

// RecomputeProgress refreshes the enrollment's progress inside tx.
// Progress is the share of published lessons and activities the student has finished;
// an activity counts once it is completed or graded. Reaching 100% completes the enrollment.
// Dropped and withdrawn enrollments are left untouched.
func RecomputeProgress(tx *gorm.DB, userID, courseID uint) (*ProgressResult, error) {
	var enrollment courseModels.CourseEnrollment
	if err := tx.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("Enrollment not found!")
		}
		return nil, err
	}
	result := &ProgressResult{Enrollment: enrollment}
	if enrollment.Status == courseModels.EnrollmentDropped || enrollment.Status == courseModels.EnrollmentWithdrawn {
		return result, nil
	}

	counts, err := countItems(tx, userID, courseID)
	if err != nil {
		return nil, err
	}
	var total, done int
	for _, c := range counts {
		total += c.totalLessons + c.totalActivities
		done += c.doneLessons + c.doneActivities
	}

	progress := 0.0
	if total > 0 {
		progress = math.Round(float64(done)/float64(total)*10000) / 100
	}

	completedModules, err := completeModules(tx, userID, courseID, counts)
	if err != nil {
		return nil, err
	}
	result.CompletedModules = completedModules

	enrollment.Progress = progress
	if progress >= 100 && enrollment.Status == courseModels.EnrollmentEnrolled {
		now := time.Now()
		enrollment.Status = courseModels.EnrollmentCompleted
		enrollment.CompletedAt = &now
		result.CourseCompleted = true
	}
	if err := tx.Save(&enrollment).Error; err != nil {
		return nil, err
	}
	result.Enrollment = enrollment
	return result, nil
}

// AfterProgress runs the side effects of a committed progress change.
func (s *Service) AfterProgress(ctx context.Context, result *ProgressResult) {
	if result == nil {
		return
	}
	e := result.Enrollment
	s.Grades.Invalidate(ctx, e.UserID, e.CourseID)
	for _, moduleID := range result.CompletedModules {
		log.Printf("[ENROLLMENT] User %d completed module %d", e.UserID, moduleID)
	}
	if !result.CourseCompleted {
		return
	}

	log.Printf("[ENROLLMENT] User %d completed course %d", e.UserID, e.CourseID)
	db := s.DB.WithContext(ctx)
	var user models.User
	var course courseModels.Course
	if err := db.First(&user, e.UserID).Error; err != nil {
		log.Printf("[ENROLLMENT] Error fetching user %d: %v", e.UserID, err)
		return
	}
	if err := db.First(&course, e.CourseID).Error; err != nil {
		log.Printf("[ENROLLMENT] Error fetching course %d: %v", e.CourseID, err)
		return
	}
	s.Notifier.CourseCompleted(user, course, e)
}

// MarkLessonComplete records a finished lesson. Marking the same lesson twice is a no-op.
func (s *Service) MarkLessonComplete(ctx context.Context, rc utils.RequestContext, courseID, lessonID uint) (*ProgressResult, error) {
	db := s.DB.WithContext(ctx)
	if _, err := RequireActive(db, rc.UserID, courseID); err != nil {
		return nil, err
	}

	var lesson courseModels.Lesson
	if err := db.Where("id = ? AND course_id = ? AND is_deleted = ? AND is_published = ?", lessonID, courseID, false, true).First(&lesson).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("Lesson not found!")
		}
		return nil, utils.Internal("Failed to fetch lesson", err)
	}

	var result *ProgressResult
	err := db.Transaction(func(tx *gorm.DB) error {
		var existing courseModels.LessonCompletion
		err := tx.Where("user_id = ? AND lesson_id = ?", rc.UserID, lessonID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			completion := courseModels.LessonCompletion{
				UserID:   rc.UserID,
				CourseID: courseID,
				ModuleID: lesson.ModuleID,
				LessonID: lessonID,
			}
			if err := tx.Create(&completion).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		result, err = RecomputeProgress(tx, rc.UserID, courseID)
		return err
	})
	if err != nil {
		return nil, utils.WrapInternal("Failed to mark lesson complete", err)
	}
	s.AfterProgress(ctx, result)
	return result, nil
}

// ReconcileAll recomputes every active enrollment. Returns how many enrollments changed.
func (s *Service) ReconcileAll(ctx context.Context) (int, error) {
	return s.reconcile(ctx, 0)
}

// ReconcileCourse recomputes the active enrollments of one course after its published
// lessons or activities changed.
func (s *Service) ReconcileCourse(ctx context.Context, courseID uint) (int, error) {
	return s.reconcile(ctx, courseID)
}

func (s *Service) reconcile(ctx context.Context, courseID uint) (int, error) {
	query := s.DB.WithContext(ctx).Where("status = ?", courseModels.EnrollmentEnrolled)
	if courseID != 0 {
		query = query.Where("course_id = ?", courseID)
	}
	var enrollments []courseModels.CourseEnrollment
	if err := query.Find(&enrollments).Error; err != nil {
		return 0, err
	}

	changed := 0
	for _, e := range enrollments {
		var result *ProgressResult
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			result, err = RecomputeProgress(tx, e.UserID, e.CourseID)
			return err
		})
		if err != nil {
			log.Printf("[ENROLLMENT] Failed to reconcile enrollment %d: %v", e.ID, err)
			continue
		}
		if result.Enrollment.Progress != e.Progress || result.CourseCompleted || len(result.CompletedModules) > 0 {
			changed++
			s.AfterProgress(ctx, result)
		}
	}
	return changed, nil
}

type moduleCounts struct {
	moduleID        uint
	totalLessons    int
	doneLessons     int
	totalActivities int
	doneActivities  int
}

type groupCount struct {
	ModuleID uint
	Total    int
}

func countItems(tx *gorm.DB, userID, courseID uint) ([]moduleCounts, error) {
	var moduleIDs []uint
	if err := tx.Model(&courseModels.Module{}).
		Where("course_id = ? AND is_deleted = ?", courseID, false).
		Order("order_index asc, id asc").
		Pluck("id", &moduleIDs).Error; err != nil {
		return nil, err
	}

	var totalLessons, doneLessons, totalActivities, doneActivities []groupCount
	if err := tx.Model(&courseModels.Lesson{}).
		Select("module_id, COUNT(*) AS total").
		Where("course_id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).
		Group("module_id").Scan(&totalLessons).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&courseModels.LessonCompletion{}).
		Select("lessons.module_id AS module_id, COUNT(*) AS total").
		Joins("JOIN lessons ON lessons.id = lesson_completions.lesson_id").
		Where("lesson_completions.user_id = ? AND lessons.course_id = ? AND lessons.is_deleted = ? AND lessons.is_published = ? AND lessons.deleted_at IS NULL",
			userID, courseID, false, true).
		Group("lessons.module_id").Scan(&doneLessons).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&courseModels.Activity{}).
		Select("module_id, COUNT(*) AS total").
		Where("course_id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).
		Group("module_id").Scan(&totalActivities).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&courseModels.StudentActivity{}).
		Select("activities.module_id AS module_id, COUNT(*) AS total").
		Joins("JOIN activities ON activities.id = student_activities.activity_id").
		Where("student_activities.user_id = ? AND activities.course_id = ? AND activities.is_deleted = ? AND activities.is_published = ? AND activities.deleted_at IS NULL AND student_activities.status IN ?",
			userID, courseID, false, true, []string{courseModels.StatusCompleted, courseModels.StatusGraded}).
		Group("activities.module_id").Scan(&doneActivities).Error; err != nil {
		return nil, err
	}

	toMap := func(rows []groupCount) map[uint]int {
		return lo.SliceToMap(rows, func(r groupCount) (uint, int) { return r.ModuleID, r.Total })
	}
	tl, dl, ta, da := toMap(totalLessons), toMap(doneLessons), toMap(totalActivities), toMap(doneActivities)

	return lo.Map(moduleIDs, func(id uint, _ int) moduleCounts {
		return moduleCounts{
			moduleID:        id,
			totalLessons:    tl[id],
			doneLessons:     dl[id],
			totalActivities: ta[id],
			doneActivities:  da[id],
		}
	}), nil
}

// completeModules writes a ModuleCompletion for every finished module that lacks one.
func completeModules(tx *gorm.DB, userID, courseID uint, counts []moduleCounts) ([]uint, error) {
	finished := lo.FilterMap(counts, func(c moduleCounts, _ int) (uint, bool) {
		total := c.totalLessons + c.totalActivities
		return c.moduleID, total > 0 && c.doneLessons >= c.totalLessons && c.doneActivities >= c.totalActivities
	})
	if len(finished) == 0 {
		return nil, nil
	}

	var already []uint
	if err := tx.Model(&courseModels.ModuleCompletion{}).
		Where("user_id = ? AND module_id IN ?", userID, finished).
		Pluck("module_id", &already).Error; err != nil {
		return nil, err
	}

	fresh, _ := lo.Difference(finished, already)
	now := time.Now()
	for _, moduleID := range fresh {
		completion := courseModels.ModuleCompletion{UserID: userID, CourseID: courseID, ModuleID: moduleID, CompletedAt: now}
		if err := tx.Create(&completion).Error; err != nil {
			return nil, err
		}
	}
	return fresh, nil
}
