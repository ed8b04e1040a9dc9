package submission

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"lms/models"
	courseModels "lms/models/course"
	"lms/services/enrollment"
	"lms/services/grading"
	"lms/utils"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

const (
	BulkGrade       = "grade"
	BulkApproveAll  = "approve_all"
	BulkResetGrades = "reset_grades"
)

type QuestionGrade struct {
	QuestionID uint    `json:"question_id" validate:"required,gt=0"`
	Points     float64 `json:"points" validate:"gte=0"`
	Feedback   string  `json:"feedback"`
}

type GradeInput struct {
	Grades   []QuestionGrade `json:"grades" validate:"required,min=1,dive"`
	Feedback string          `json:"feedback"`
}

type BulkInput struct {
	Action     string   `json:"action" validate:"required,oneof=grade approve_all reset_grades"`
	StudentIDs []uint   `json:"student_ids" validate:"dive,gt=0"`
	Score      *float64 `json:"score" validate:"omitempty,gte=0"`
	Feedback   string   `json:"feedback"`
}

type BulkResult struct {
	Action   string                         `json:"action"`
	Affected int                            `json:"affected"`
	Attempts []courseModels.StudentActivity `json:"attempts"`
}

// ListSubmissions returns every attempt of an activity with its progress row.
func (s *Service) ListSubmissions(ctx context.Context, rc utils.RequestContext, activityID uint) ([]courseModels.StudentActivity, error) {
	db := s.DB.WithContext(ctx)
	if _, err := s.managedActivity(db, rc, activityID); err != nil {
		return nil, err
	}
	var attempts []courseModels.StudentActivity
	if err := db.Preload("Progress").
		Where("activity_id = ?", activityID).
		Order("submitted_at desc, id asc").
		Find(&attempts).Error; err != nil {
		return nil, utils.Internal("Failed to fetch submissions", err)
	}
	return attempts, nil
}

// GradeStudent applies per-question points to one student's submission. Every write,
// including the enrollment progress, commits together or not at all.
func (s *Service) GradeStudent(ctx context.Context, rc utils.RequestContext, activityID, studentID uint, in GradeInput) (*courseModels.StudentActivity, error) {
	if len(in.Grades) == 0 {
		return nil, utils.FieldError("grades", "At least one grade is required!")
	}
	db := s.DB.WithContext(ctx)
	activity, err := s.managedActivity(db, rc, activityID)
	if err != nil {
		return nil, err
	}

	var attempt courseModels.StudentActivity
	var progressResult *enrollment.ProgressResult
	err = db.Transaction(func(tx *gorm.DB) error {
		sa, progress, err := submittedAttempt(tx, studentID, activity)
		if err != nil {
			return err
		}

		for _, g := range in.Grades {
			if err := applyQuestionGrade(tx, studentID, activityID, g); err != nil {
				return err
			}
		}

		total, maxScore, err := gradedTotal(tx, studentID, activityID)
		if err != nil {
			return err
		}
		markGraded(sa, progress, total, maxScore, rc.UserID)
		if in.Feedback != "" {
			sa.Feedback = in.Feedback
		}
		if err := saveAttempt(tx, sa, progress); err != nil {
			return err
		}

		progressResult, err = enrollment.RecomputeProgress(tx, studentID, activity.CourseID)
		if err != nil {
			return err
		}
		attempt = *sa
		attempt.Progress = progress
		return nil
	})
	if err != nil {
		return nil, utils.WrapInternal("Failed to grade assignment", err)
	}

	s.Enrollment.AfterProgress(ctx, progressResult)
	s.notifyGraded(ctx, *activity, attempt)
	return &attempt, nil
}

// BulkGrade runs one action over many students in a single transaction.
// An empty student list targets every submitted attempt of the activity.
func (s *Service) BulkGrade(ctx context.Context, rc utils.RequestContext, activityID uint, in BulkInput) (*BulkResult, error) {
	if !lo.Contains([]string{BulkGrade, BulkApproveAll, BulkResetGrades}, in.Action) {
		return nil, utils.FieldError("action", "Action must be one of grade, approve_all, reset_grades!")
	}
	if in.Action == BulkGrade && in.Score == nil {
		return nil, utils.FieldError("score", "Score is required for the grade action!")
	}
	db := s.DB.WithContext(ctx)
	activity, err := s.managedActivity(db, rc, activityID)
	if err != nil {
		return nil, err
	}

	studentIDs := lo.Uniq(in.StudentIDs)
	if len(studentIDs) == 0 {
		if err := db.Model(&courseModels.StudentActivity{}).
			Where("activity_id = ? AND status IN ?", activityID, []string{courseModels.StatusSubmitted, courseModels.StatusCompleted, courseModels.StatusGraded}).
			Order("user_id asc").
			Pluck("user_id", &studentIDs).Error; err != nil {
			return nil, utils.Internal("Failed to fetch submissions", err)
		}
	}

	result := &BulkResult{Action: in.Action, Attempts: make([]courseModels.StudentActivity, 0, len(studentIDs))}
	var progressResults []*enrollment.ProgressResult
	err = db.Transaction(func(tx *gorm.DB) error {
		for _, studentID := range studentIDs {
			sa, progress, err := submittedAttempt(tx, studentID, activity)
			if err != nil {
				return err
			}

			switch in.Action {
			case BulkGrade:
				if *in.Score > progress.MaxScore {
					return utils.FieldError("score", fmt.Sprintf("Score cannot exceed %.2f!", progress.MaxScore))
				}
				markGraded(sa, progress, *in.Score, progress.MaxScore, rc.UserID)
			case BulkApproveAll:
				markGraded(sa, progress, lo.FromPtr(progress.AutoGradedScore), progress.MaxScore, rc.UserID)
			case BulkResetGrades:
				resetGrade(sa, progress)
			}
			if in.Feedback != "" && in.Action != BulkResetGrades {
				sa.Feedback = in.Feedback
			}
			if err := saveAttempt(tx, sa, progress); err != nil {
				return err
			}

			pr, err := enrollment.RecomputeProgress(tx, studentID, activity.CourseID)
			if err != nil {
				return err
			}
			progressResults = append(progressResults, pr)

			attempt := *sa
			attempt.Progress = progress
			result.Attempts = append(result.Attempts, attempt)
		}
		return nil
	})
	if err != nil {
		return nil, utils.WrapInternal("Failed to apply bulk action", err)
	}

	for _, pr := range progressResults {
		s.Enrollment.AfterProgress(ctx, pr)
	}
	if in.Action != BulkResetGrades {
		for _, attempt := range result.Attempts {
			s.notifyGraded(ctx, *activity, attempt)
		}
	}
	result.Affected = len(result.Attempts)
	return result, nil
}

// managedActivity loads an activity the caller may grade.
func (s *Service) managedActivity(db *gorm.DB, rc utils.RequestContext, activityID uint) (*courseModels.Activity, error) {
	var activity courseModels.Activity
	if err := db.Preload("ActivityType").Where("id = ? AND is_deleted = ?", activityID, false).First(&activity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("Activity not found!")
		}
		return nil, utils.Internal("Failed to fetch activity", err)
	}
	var course courseModels.Course
	if err := db.Where("id = ? AND is_deleted = ?", activity.CourseID, false).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("Course not found!")
		}
		return nil, utils.Internal("Failed to fetch course", err)
	}
	if !rc.CanManage(course.InstructorID) {
		return nil, utils.Forbidden("You are not the instructor of this course!")
	}
	return &activity, nil
}

// submittedAttempt loads an attempt that has reached at least submitted.
func submittedAttempt(tx *gorm.DB, studentID uint, activity *courseModels.Activity) (*courseModels.StudentActivity, *courseModels.StudentActivityProgress, error) {
	var sa courseModels.StudentActivity
	if err := tx.Where("user_id = ? AND activity_id = ?", studentID, activity.ID).First(&sa).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, utils.NotFound(fmt.Sprintf("No submission found for student %d!", studentID))
		}
		return nil, nil, err
	}
	if courseModels.StatusRank(sa.Status) < courseModels.StatusRank(courseModels.StatusSubmitted) {
		return nil, nil, utils.Conflict(fmt.Sprintf("Student %d has not submitted this activity!", studentID))
	}

	var progress courseModels.StudentActivityProgress
	if err := tx.Where("student_activity_id = ? AND activity_type_id = ?", sa.ID, activity.ActivityTypeID).First(&progress).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, utils.NotFound(fmt.Sprintf("No progress found for student %d!", studentID))
		}
		return nil, nil, err
	}
	return &sa, &progress, nil
}

// applyQuestionGrade writes instructor points onto the answer, creating it for unanswered questions.
func applyQuestionGrade(tx *gorm.DB, studentID, activityID uint, g QuestionGrade) error {
	var question courseModels.Question
	if err := tx.Where("id = ? AND activity_id = ? AND is_deleted = ?", g.QuestionID, activityID, false).First(&question).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(fmt.Sprintf("Question %d not found in this activity!", g.QuestionID))
		}
		return err
	}
	if g.Points < 0 || g.Points > question.Points {
		return utils.FieldError("points", fmt.Sprintf("Points for question %d must be between 0 and %.2f!", question.ID, question.Points))
	}

	var answer courseModels.StudentAnswer
	err := tx.Where("user_id = ? AND question_id = ?", studentID, question.ID).First(&answer).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	answer.UserID = studentID
	answer.QuestionID = question.ID
	answer.ActivityID = activityID
	answer.PointsEarned = lo.ToPtr(g.Points)
	answer.IsCorrect = lo.ToPtr(question.Points > 0 && g.Points >= question.Points)
	answer.Feedback = g.Feedback
	return tx.Save(&answer).Error
}

// gradedTotal sums earned points over the activity's current questions.
func gradedTotal(tx *gorm.DB, studentID, activityID uint) (float64, float64, error) {
	var questions []courseModels.Question
	if err := tx.Where("activity_id = ? AND is_deleted = ?", activityID, false).Find(&questions).Error; err != nil {
		return 0, 0, err
	}
	ids := lo.Map(questions, func(q courseModels.Question, _ int) uint { return q.ID })
	maxScore := lo.SumBy(questions, func(q courseModels.Question) float64 { return q.Points })
	if len(ids) == 0 {
		return 0, maxScore, nil
	}

	var answers []courseModels.StudentAnswer
	if err := tx.Where("user_id = ? AND question_id IN ?", studentID, ids).Find(&answers).Error; err != nil {
		return 0, 0, err
	}
	total := lo.SumBy(answers, func(a courseModels.StudentAnswer) float64 { return lo.FromPtr(a.PointsEarned) })
	return math.Min(total, maxScore), maxScore, nil
}

func markGraded(sa *courseModels.StudentActivity, progress *courseModels.StudentActivityProgress, score, maxScore float64, graderID uint) {
	t := time.Now()
	pct := grading.Percentage(score, maxScore)

	sa.Status = courseModels.StatusGraded
	sa.Score = lo.ToPtr(score)
	sa.MaxScore = lo.ToPtr(maxScore)
	sa.Percentage = lo.ToPtr(pct)
	sa.GradedAt = &t
	if sa.CompletedAt == nil {
		sa.CompletedAt = &t
	}

	progress.SubmissionStatus = courseModels.StatusGraded
	progress.Score = lo.ToPtr(score)
	progress.MaxScore = maxScore
	progress.PercentageScore = lo.ToPtr(pct)
	progress.GradedAt = &t
	progress.GradedBy = lo.ToPtr(graderID)
}

func resetGrade(sa *courseModels.StudentActivity, progress *courseModels.StudentActivityProgress) {
	sa.Status = courseModels.StatusSubmitted
	sa.Score = nil
	sa.Percentage = nil
	sa.GradedAt = nil
	sa.CompletedAt = nil

	progress.SubmissionStatus = courseModels.StatusSubmitted
	progress.Score = nil
	progress.PercentageScore = nil
	progress.GradedAt = nil
	progress.GradedBy = nil
}

func saveAttempt(tx *gorm.DB, sa *courseModels.StudentActivity, progress *courseModels.StudentActivityProgress) error {
	if err := tx.Save(progress).Error; err != nil {
		return err
	}
	return tx.Save(sa).Error
}

func (s *Service) notifyGraded(ctx context.Context, activity courseModels.Activity, attempt courseModels.StudentActivity) {
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, attempt.UserID).Error; err != nil {
		return
	}
	s.Enrollment.Notifier.ActivityGraded(user, activity, attempt)
}
