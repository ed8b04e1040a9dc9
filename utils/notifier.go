package utils

import (
	"log"
	"time"

	"lms/models"
	courseModels "lms/models/course"

	"github.com/samber/lo"
)

// Notifier is told about milestones after the owning transaction commits.
type Notifier interface {
	CourseCompleted(user models.User, course courseModels.Course, enrollment courseModels.CourseEnrollment)
	ActivityGraded(user models.User, activity courseModels.Activity, attempt courseModels.StudentActivity)
	CertificateIssued(user models.User, course courseModels.Course, certificate courseModels.Certificate)
	ActivityDueSoon(user models.User, activity courseModels.Activity, dueDate time.Time)
}

type NopNotifier struct{}

func (NopNotifier) CourseCompleted(models.User, courseModels.Course, courseModels.CourseEnrollment) {}
func (NopNotifier) ActivityGraded(models.User, courseModels.Activity, courseModels.StudentActivity) {}
func (NopNotifier) CertificateIssued(models.User, courseModels.Course, courseModels.Certificate)    {}
func (NopNotifier) ActivityDueSoon(models.User, courseModels.Activity, time.Time)                  {}

// MailNotifier sends emails and, for completions, the completion webhook.
type MailNotifier struct {
	Webhook *WebhookClient
}

func (n MailNotifier) CourseCompleted(user models.User, course courseModels.Course, enrollment courseModels.CourseEnrollment) {
	SendCourseCompletedEmail(user.Email, user.Name, course.Title)

	event := CompletionEvent{
		Event:       "course.completed",
		UserID:      user.ID,
		CourseID:    course.ID,
		Progress:    enrollment.Progress,
		CompletedAt: enrollment.CompletedAt,
	}
	go func() {
		if err := n.Webhook.PostCompletion(event); err != nil {
			log.Printf("[WEBHOOK] %v", err)
		}
	}()
}

func (n MailNotifier) ActivityGraded(user models.User, activity courseModels.Activity, attempt courseModels.StudentActivity) {
	SendActivityGradedEmail(user.Email, user.Name, activity.Title, lo.FromPtr(attempt.Score), lo.FromPtr(attempt.MaxScore))
}

func (n MailNotifier) CertificateIssued(user models.User, course courseModels.Course, certificate courseModels.Certificate) {
	SendCertificateEmail(user.Email, user.Name, course.Title, certificate.CertificateNumber)
}

func (n MailNotifier) ActivityDueSoon(user models.User, activity courseModels.Activity, dueDate time.Time) {
	SendDueReminderEmail(user.Email, user.Name, activity.Title, dueDate)
}
