package scheduler

import (
	"context"
	"testing"
	"time"

	"lms/models"
	courseModels "lms/models/course"
	"lms/services/enrollment"
	"lms/services/grading"
	"lms/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startedAttempt(t *testing.T, f *testutil.Fixture, userID uint, a courseModels.Activity, status string) courseModels.StudentActivity {
	t.Helper()
	sa := courseModels.StudentActivity{UserID: userID, ActivityID: a.ID, CourseID: a.CourseID, ModuleID: a.ModuleID, Status: status}
	require.NoError(t, f.DB.Create(&sa).Error)
	progress := courseModels.StudentActivityProgress{
		StudentActivityID: sa.ID,
		ActivityTypeID:    a.ActivityTypeID,
		UserID:            userID,
		ActivityID:        a.ID,
		SubmissionStatus:  status,
	}
	require.NoError(t, f.DB.Create(&progress).Error)
	return sa
}

func TestSendDueReminders(t *testing.T) {
	f := testutil.New(t)
	notifier := &testutil.Notifier{}
	s := New(f.DB, enrollment.NewService(f.DB, grading.NewService(f.DB, nil, nil), notifier), notifier)

	ref := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	instructor := f.User(models.RoleInstructor)
	course := f.Course(instructor.ID)
	m := f.Module(course.ID, "Week 1")

	soon := ref.Add(26 * time.Hour)
	later := ref.Add(10 * 24 * time.Hour)
	past := ref.Add(-2 * time.Hour)
	dueSoon := f.Activity(m, courseModels.ActivityAssignment, &soon)
	f.Activity(m, courseModels.ActivityQuiz, &later)
	f.Activity(m, courseModels.ActivityExercise, &past)
	hidden := f.Activity(m, courseModels.ActivityAssessment, &soon)
	require.NoError(t, f.DB.Model(&hidden).Update("is_published", false).Error)

	idle := f.User(models.RoleStudent)
	working := f.User(models.RoleStudent)
	done := f.User(models.RoleStudent)
	gone := f.User(models.RoleStudent)
	for _, u := range []models.User{idle, working, done, gone} {
		f.Enroll(u.ID, course.ID)
	}
	require.NoError(t, f.DB.Model(&courseModels.CourseEnrollment{}).Where("user_id = ?", gone.ID).
		Update("status", courseModels.EnrollmentWithdrawn).Error)
	workingAttempt := startedAttempt(t, f, working.ID, dueSoon, courseModels.StatusInProgress)
	startedAttempt(t, f, done.ID, dueSoon, courseModels.StatusSubmitted)

	sent, err := s.SendDueReminders(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.ElementsMatch(t, []uint{idle.ID, working.ID}, notifier.DueSoon[dueSoon.ID])
	assert.Len(t, notifier.DueSoon, 1)

	var progress courseModels.StudentActivityProgress
	require.NoError(t, f.DB.Where("student_activity_id = ?", workingAttempt.ID).First(&progress).Error)
	assert.True(t, progress.ReminderSent)

	sent, err = s.SendDueReminders(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, 1, sent, "only the student without an attempt is reminded again")
}

func TestStartRejectsBadSpec(t *testing.T) {
	f := testutil.New(t)
	s := New(f.DB, nil, nil)
	assert.Error(t, s.Start("not a cron spec", "@hourly"))
}
