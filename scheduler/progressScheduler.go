// Package scheduler runs periodic progress reconciliation and due-date reminders.
package scheduler

import (
	"context"
	"log"
	"time"

	"lms/models"
	courseModels "lms/models/course"
	"lms/services/enrollment"
	"lms/utils"

	"github.com/jinzhu/now"
	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// ReminderWindow is how far ahead due dates trigger a reminder.
const ReminderWindow = 48 * time.Hour

type Scheduler struct {
	cron       *cron.Cron
	DB         *gorm.DB
	Enrollment *enrollment.Service
	Notifier   utils.Notifier
}

func New(db *gorm.DB, enrollments *enrollment.Service, notifier utils.Notifier) *Scheduler {
	if notifier == nil {
		notifier = utils.NopNotifier{}
	}
	return &Scheduler{cron: cron.New(), DB: db, Enrollment: enrollments, Notifier: notifier}
}

// Start registers both jobs and starts the cron runner.
func (s *Scheduler) Start(progressSpec, reminderSpec string) error {
	log.Println("[SCHEDULER] Initializing progress scheduler...")

	if _, err := s.cron.AddFunc(progressSpec, s.RunReconcile); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(reminderSpec, func() {
		log.Println("[SCHEDULER] Running due-date reminder check...")
		sent, err := s.SendDueReminders(context.Background(), time.Now())
		if err != nil {
			log.Printf("[SCHEDULER] Error sending reminders: %v", err)
			return
		}
		log.Printf("[SCHEDULER] Sent %d due-date reminders", sent)
	}); err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("[SCHEDULER] Started - progress %q, reminders %q", progressSpec, reminderSpec)
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) RunReconcile() {
	log.Println("[SCHEDULER] Running progress reconciliation...")
	changed, err := s.Enrollment.ReconcileAll(context.Background())
	if err != nil {
		log.Printf("[SCHEDULER] Error reconciling progress: %v", err)
		return
	}
	log.Printf("[SCHEDULER] Reconciled progress, %d enrollments changed", changed)
}

// SendDueReminders notifies enrolled students about published activities due between ref and
// the end of the day ReminderWindow later that they have not submitted. Attempts that already
// received a reminder are skipped.
func (s *Scheduler) SendDueReminders(ctx context.Context, ref time.Time) (int, error) {
	db := s.DB.WithContext(ctx)
	windowEnd := now.With(ref.Add(ReminderWindow)).EndOfDay()

	var activities []courseModels.Activity
	if err := db.Where("is_deleted = ? AND is_published = ? AND due_date IS NOT NULL", false, true).
		Where("due_date BETWEEN ? AND ?", ref, windowEnd).
		Find(&activities).Error; err != nil {
		return 0, err
	}
	log.Printf("[SCHEDULER] Found %d activities due soon", len(activities))

	sent := 0
	for _, activity := range activities {
		var enrollments []courseModels.CourseEnrollment
		if err := db.Where("course_id = ? AND status = ?", activity.CourseID, courseModels.EnrollmentEnrolled).
			Find(&enrollments).Error; err != nil {
			log.Printf("[SCHEDULER] Error fetching enrollments of course %d: %v", activity.CourseID, err)
			continue
		}
		userIDs := lo.Map(enrollments, func(e courseModels.CourseEnrollment, _ int) uint { return e.UserID })
		if len(userIDs) == 0 {
			continue
		}

		var attempts []courseModels.StudentActivity
		if err := db.Preload("Progress").Where("activity_id = ? AND user_id IN ?", activity.ID, userIDs).
			Find(&attempts).Error; err != nil {
			log.Printf("[SCHEDULER] Error fetching attempts of activity %d: %v", activity.ID, err)
			continue
		}
		attemptByUser := lo.KeyBy(attempts, func(sa courseModels.StudentActivity) uint { return sa.UserID })

		var users []models.User
		if err := db.Where("id IN ? AND is_deleted = ?", userIDs, false).Find(&users).Error; err != nil {
			log.Printf("[SCHEDULER] Error fetching users: %v", err)
			continue
		}

		for _, user := range users {
			sa, started := attemptByUser[user.ID]
			if started {
				if courseModels.StatusRank(sa.Status) >= courseModels.StatusRank(courseModels.StatusSubmitted) {
					continue
				}
				if sa.Progress != nil && sa.Progress.ReminderSent {
					continue
				}
			}

			s.Notifier.ActivityDueSoon(user, activity, *activity.DueDate)
			sent++

			if started && sa.Progress != nil {
				if err := db.Model(sa.Progress).Update("reminder_sent", true).Error; err != nil {
					log.Printf("[SCHEDULER] Error marking reminder for attempt %d: %v", sa.ID, err)
				}
			}
		}
	}
	return sent, nil
}
