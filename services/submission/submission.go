// Package submission runs the student side of quizzes and assignments: answering,
// auto-grading and submitting.
package submission

import (
	"context"
	"errors"
	"fmt"
	"time"

	courseModels "lms/models/course"
	"lms/services/enrollment"
	"lms/services/grading"
	"lms/utils"

	"github.com/bytedance/sonic"
	"github.com/jinzhu/now"
	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Service struct {
	DB         *gorm.DB
	Grades     *grading.Service
	Enrollment *enrollment.Service
}

func NewService(db *gorm.DB, grades *grading.Service, enrollments *enrollment.Service) *Service {
	return &Service{DB: db, Grades: grades, Enrollment: enrollments}
}

type AnswerInput struct {
	QuestionID      uint   `json:"question_id" validate:"required,gt=0"`
	SelectedOptions []uint `json:"selected_options"`
	AnswerText      string `json:"answer_text" validate:"max=10000"`
	FilePath        string `json:"-"`
}

type AnswerResult struct {
	Answer   courseModels.StudentAnswer           `json:"answer"`
	Progress courseModels.StudentActivityProgress `json:"progress"`
	Status   string                               `json:"status"`
}

type SubmitResult struct {
	Attempt          courseModels.StudentActivity         `json:"attempt"`
	Progress         courseModels.StudentActivityProgress `json:"progress"`
	AlreadySubmitted bool                                 `json:"already_submitted"`
	EnrollmentStatus string                               `json:"enrollment_status"`
	CourseProgress   float64                              `json:"course_progress"`
}

// StartActivity opens an attempt, moving not_started to in_progress.
func (s *Service) StartActivity(ctx context.Context, rc utils.RequestContext, activityID uint) (*courseModels.StudentActivity, error) {
	db := s.DB.WithContext(ctx)
	activity, err := s.studentActivity(db, rc, activityID)
	if err != nil {
		return nil, err
	}

	var attempt *courseModels.StudentActivity
	err = db.Transaction(func(tx *gorm.DB) error {
		sa, progress, err := ensureAttempt(tx, rc.UserID, activity)
		if err != nil {
			return err
		}
		if sa.Status == courseModels.StatusNotStarted {
			markStarted(sa, progress)
			if err := tx.Save(progress).Error; err != nil {
				return err
			}
			if err := tx.Save(sa).Error; err != nil {
				return err
			}
		}
		sa.Progress = progress
		attempt = sa
		return nil
	})
	if err != nil {
		return nil, utils.WrapInternal("Failed to start activity", err)
	}
	return attempt, nil
}

// SaveAnswer stores (or overwrites) one answer, auto-grades it and refreshes progress.
func (s *Service) SaveAnswer(ctx context.Context, rc utils.RequestContext, activityID uint, in AnswerInput) (*AnswerResult, error) {
	if in.QuestionID == 0 {
		return nil, utils.FieldError("question_id", "Question ID is required!")
	}
	db := s.DB.WithContext(ctx)
	activity, err := s.studentActivity(db, rc, activityID)
	if err != nil {
		return nil, err
	}

	var result AnswerResult
	var progressResult *enrollment.ProgressResult
	err = db.Transaction(func(tx *gorm.DB) error {
		var question courseModels.Question
		if err := tx.Preload("Options").
			Where("id = ? AND activity_id = ? AND is_deleted = ?", in.QuestionID, activityID, false).
			First(&question).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NotFound("Question not found in this activity!")
			}
			return err
		}
		if err := grading.EnsureTrueFalseOptions(tx, &question); err != nil {
			return err
		}
		if err := validateAnswer(question, in); err != nil {
			return err
		}

		sa, progress, err := ensureAttempt(tx, rc.UserID, activity)
		if err != nil {
			return err
		}
		if courseModels.StatusRank(sa.Status) >= courseModels.StatusRank(courseModels.StatusSubmitted) {
			return utils.Conflict("This activity has already been submitted!")
		}
		if sa.Status == courseModels.StatusNotStarted {
			markStarted(sa, progress)
		}

		answer, err := upsertAnswer(tx, rc.UserID, activityID, question, in)
		if err != nil {
			return err
		}
		if err := refreshCounters(tx, rc.UserID, activity, progress); err != nil {
			return err
		}
		if err := tx.Save(progress).Error; err != nil {
			return err
		}
		if err := tx.Save(sa).Error; err != nil {
			return err
		}

		progressResult, err = enrollment.RecomputeProgress(tx, rc.UserID, activity.CourseID)
		if err != nil {
			return err
		}
		result = AnswerResult{Answer: *answer, Progress: *progress, Status: sa.Status}
		return nil
	})
	if err != nil {
		return nil, utils.WrapInternal("Failed to save answer", err)
	}

	s.Enrollment.AfterProgress(ctx, progressResult)
	return &result, nil
}

// SubmitActivity finalizes an attempt. Submitting twice returns the stored attempt unchanged.
// Without manually graded questions the attempt completes with its auto-graded score;
// otherwise it waits in submitted for an instructor.
func (s *Service) SubmitActivity(ctx context.Context, rc utils.RequestContext, activityID uint) (*SubmitResult, error) {
	db := s.DB.WithContext(ctx)
	activity, err := s.studentActivity(db, rc, activityID)
	if err != nil {
		return nil, err
	}

	var result SubmitResult
	var progressResult *enrollment.ProgressResult
	err = db.Transaction(func(tx *gorm.DB) error {
		sa, progress, err := ensureAttempt(tx, rc.UserID, activity)
		if err != nil {
			return err
		}
		if courseModels.StatusRank(sa.Status) >= courseModels.StatusRank(courseModels.StatusSubmitted) {
			result = SubmitResult{Attempt: *sa, Progress: *progress, AlreadySubmitted: true}
			return nil
		}

		if err := refreshCounters(tx, rc.UserID, activity, progress); err != nil {
			return err
		}

		t := time.Now()
		if sa.StartedAt == nil {
			sa.StartedAt = &t
		}
		sa.SubmittedAt = &t
		maxScore := progress.MaxScore
		sa.MaxScore = &maxScore

		if progress.RequiresGrading {
			sa.Status = courseModels.StatusSubmitted
			progress.SubmissionStatus = courseModels.StatusSubmitted
		} else {
			score := lo.FromPtr(progress.AutoGradedScore)
			pct := grading.Percentage(score, maxScore)
			sa.Status = courseModels.StatusCompleted
			sa.Score = &score
			sa.Percentage = &pct
			sa.CompletedAt = &t
			progress.SubmissionStatus = courseModels.StatusCompleted
			progress.Score = &score
			progress.PercentageScore = &pct
		}

		if err := tx.Save(progress).Error; err != nil {
			return err
		}
		if err := tx.Save(sa).Error; err != nil {
			return err
		}

		progressResult, err = enrollment.RecomputeProgress(tx, rc.UserID, activity.CourseID)
		if err != nil {
			return err
		}
		result = SubmitResult{Attempt: *sa, Progress: *progress}
		return nil
	})
	if err != nil {
		return nil, utils.WrapInternal("Failed to submit activity", err)
	}

	if progressResult != nil {
		s.Enrollment.AfterProgress(ctx, progressResult)
		result.EnrollmentStatus = progressResult.Enrollment.Status
		result.CourseProgress = progressResult.Enrollment.Progress
	}
	return &result, nil
}

// studentActivity loads a published activity the caller is enrolled for.
func (s *Service) studentActivity(db *gorm.DB, rc utils.RequestContext, activityID uint) (*courseModels.Activity, error) {
	var activity courseModels.Activity
	if err := db.Preload("ActivityType").
		Where("id = ? AND is_deleted = ? AND is_published = ?", activityID, false, true).
		First(&activity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NotFound("Activity not found!")
		}
		return nil, utils.Internal("Failed to fetch activity", err)
	}
	if _, err := enrollment.RequireActive(db, rc.UserID, activity.CourseID); err != nil {
		return nil, err
	}
	return &activity, nil
}

// ensureAttempt returns the (student, activity) row and its progress row, creating both if missing.
func ensureAttempt(tx *gorm.DB, userID uint, activity *courseModels.Activity) (*courseModels.StudentActivity, *courseModels.StudentActivityProgress, error) {
	var sa courseModels.StudentActivity
	err := tx.Where("user_id = ? AND activity_id = ?", userID, activity.ID).First(&sa).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		sa = courseModels.StudentActivity{
			UserID:     userID,
			ActivityID: activity.ID,
			CourseID:   activity.CourseID,
			ModuleID:   activity.ModuleID,
			Status:     courseModels.StatusNotStarted,
		}
		if err := tx.Create(&sa).Error; err != nil {
			return nil, nil, err
		}
	} else if err != nil {
		return nil, nil, err
	}

	var progress courseModels.StudentActivityProgress
	err = tx.Where("student_activity_id = ? AND activity_type_id = ?", sa.ID, activity.ActivityTypeID).First(&progress).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		progress = courseModels.StudentActivityProgress{
			StudentActivityID: sa.ID,
			ActivityTypeID:    activity.ActivityTypeID,
			UserID:            userID,
			ActivityID:        activity.ID,
			SubmissionStatus:  sa.Status,
			DueDate:           dueDate(activity.DueDate),
		}
		if err := tx.Create(&progress).Error; err != nil {
			return nil, nil, err
		}
	} else if err != nil {
		return nil, nil, err
	}
	return &sa, &progress, nil
}

// dueDate pins a due date to the end of its day.
func dueDate(d *time.Time) *time.Time {
	if d == nil {
		return nil
	}
	end := now.With(*d).EndOfDay()
	return &end
}

func markStarted(sa *courseModels.StudentActivity, progress *courseModels.StudentActivityProgress) {
	t := time.Now()
	sa.Status = courseModels.StatusInProgress
	sa.StartedAt = &t
	progress.SubmissionStatus = courseModels.StatusInProgress
}

func validateAnswer(q courseModels.Question, in AnswerInput) error {
	switch q.Type {
	case courseModels.QuestionMultipleChoice, courseModels.QuestionTrueFalse:
		if len(in.SelectedOptions) == 0 {
			return utils.FieldError("selected_options", "Please select at least one option!")
		}
		optionIDs := lo.Map(q.Options, func(o courseModels.QuestionOption, _ int) uint { return o.ID })
		if unknown := lo.Without(in.SelectedOptions, optionIDs...); len(unknown) > 0 {
			return utils.FieldError("selected_options", fmt.Sprintf("Option %d does not belong to this question!", unknown[0]))
		}
		if q.Type == courseModels.QuestionTrueFalse && len(lo.Uniq(in.SelectedOptions)) > 1 {
			return utils.FieldError("selected_options", "Select a single option!")
		}
	case courseModels.QuestionFileUpload:
		if in.FilePath == "" && in.AnswerText == "" {
			return utils.FieldError("file", "A file is required!")
		}
	default:
		if in.AnswerText == "" {
			return utils.FieldError("answer_text", "Answer is required!")
		}
	}
	return nil
}

// upsertAnswer writes the (student, question) answer; the last write wins.
func upsertAnswer(tx *gorm.DB, userID, activityID uint, q courseModels.Question, in AnswerInput) (*courseModels.StudentAnswer, error) {
	var answer courseModels.StudentAnswer
	err := tx.Where("user_id = ? AND question_id = ?", userID, q.ID).First(&answer).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	answer.UserID = userID
	answer.QuestionID = q.ID
	answer.ActivityID = activityID
	answer.AnswerText = in.AnswerText
	if in.FilePath != "" {
		answer.FilePath = in.FilePath
	}
	answer.SelectedOptions = nil
	if len(in.SelectedOptions) > 0 {
		raw, err := sonic.Marshal(lo.Uniq(in.SelectedOptions))
		if err != nil {
			return nil, err
		}
		answer.SelectedOptions = datatypes.JSON(raw)
	}

	outcome := grading.Evaluate(q, in.SelectedOptions, in.AnswerText)
	if outcome.Gradable {
		answer.IsCorrect = lo.ToPtr(outcome.IsCorrect)
		answer.PointsEarned = lo.ToPtr(outcome.PointsEarned)
	} else {
		answer.IsCorrect = nil
		answer.PointsEarned = nil
	}

	if err := tx.Save(&answer).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

// refreshCounters recomputes answered/total counts and the auto-graded score from stored answers.
func refreshCounters(tx *gorm.DB, userID uint, activity *courseModels.Activity, progress *courseModels.StudentActivityProgress) error {
	var questions []courseModels.Question
	if err := tx.Where("activity_id = ? AND is_deleted = ?", activity.ID, false).Find(&questions).Error; err != nil {
		return err
	}
	questionIDs := lo.Map(questions, func(q courseModels.Question, _ int) uint { return q.ID })

	var answers []courseModels.StudentAnswer
	if len(questionIDs) > 0 {
		if err := tx.Where("user_id = ? AND question_id IN ?", userID, questionIDs).Find(&answers).Error; err != nil {
			return err
		}
	}

	progress.TotalQuestions = len(questions)
	progress.MaxScore = lo.SumBy(questions, func(q courseModels.Question) float64 { return q.Points })
	progress.AnsweredQuestions = lo.CountBy(answers, hasContent)
	progress.RequiresGrading = lo.SomeBy(questions, func(q courseModels.Question) bool {
		return grading.NeedsManualGrading(q.Type)
	})

	autoGradable := lo.SliceToMap(questions, func(q courseModels.Question) (uint, bool) {
		return q.ID, !grading.NeedsManualGrading(q.Type)
	})
	auto := lo.SumBy(answers, func(a courseModels.StudentAnswer) float64 {
		if !autoGradable[a.QuestionID] {
			return 0
		}
		return lo.FromPtr(a.PointsEarned)
	})
	pct := grading.Percentage(auto, progress.MaxScore)
	progress.AutoGradedScore = &auto
	if progress.GradedAt == nil {
		progress.PercentageScore = &pct
	}
	if progress.DueDate == nil {
		progress.DueDate = dueDate(activity.DueDate)
	}
	return nil
}

func hasContent(a courseModels.StudentAnswer) bool {
	return a.AnswerText != "" || a.FilePath != "" || len(a.SelectedOptions) > 0
}
