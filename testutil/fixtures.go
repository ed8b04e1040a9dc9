// Package testutil builds throwaway SQLite databases and course fixtures for package tests.
package testutil

import (
	"strings"
	"sync"
	"testing"
	"time"

	"lms/database"
	"lms/models"
	courseModels "lms/models/course"
	"lms/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Fixture creates rows in a fresh in-memory database.
type Fixture struct {
	t  *testing.T
	DB *gorm.DB
}

func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func New(t *testing.T) *Fixture {
	t.Helper()
	return &Fixture{t: t, DB: NewDB(t)}
}

func RC(u models.User) utils.RequestContext {
	return utils.RequestContext{UserID: u.ID, Role: u.Role}
}

func (f *Fixture) User(role string) models.User {
	f.t.Helper()
	u := models.User{
		Name:     strings.ToLower(role) + " user",
		Email:    strings.ToLower(role) + "-" + uuid.NewString()[:8] + "@example.com",
		Role:     role,
		Password: "secret",
	}
	require.NoError(f.t, f.DB.Create(&u).Error)
	return u
}

// Course creates an active, published course owned by instructorID.
func (f *Fixture) Course(instructorID uint) courseModels.Course {
	f.t.Helper()
	c := courseModels.Course{
		Title:        "Intro to Go",
		InstructorID: instructorID,
		Status:       courseModels.CourseActive,
		IsPublished:  true,
	}
	require.NoError(f.t, f.DB.Create(&c).Error)
	return c
}

func (f *Fixture) Module(courseID uint, title string) courseModels.Module {
	f.t.Helper()
	m := courseModels.Module{CourseID: courseID, Title: title}
	require.NoError(f.t, f.DB.Create(&m).Error)
	return m
}

func (f *Fixture) Lesson(m courseModels.Module, published bool) courseModels.Lesson {
	f.t.Helper()
	l := courseModels.Lesson{CourseID: m.CourseID, ModuleID: m.ID, Title: "Lesson", IsPublished: published}
	require.NoError(f.t, f.DB.Create(&l).Error)
	return l
}

// Activity creates a published activity of the named type in m.
func (f *Fixture) Activity(m courseModels.Module, typeName string, dueDate *time.Time) courseModels.Activity {
	f.t.Helper()
	var activityType courseModels.ActivityType
	require.NoError(f.t, f.DB.Where("name = ?", typeName).First(&activityType).Error)

	a := courseModels.Activity{
		CourseID:       m.CourseID,
		ModuleID:       m.ID,
		ActivityTypeID: activityType.ID,
		Title:          typeName + " 1",
		DueDate:        dueDate,
		IsPublished:    true,
	}
	require.NoError(f.t, f.DB.Create(&a).Error)
	switch typeName {
	case courseModels.ActivityQuiz:
		require.NoError(f.t, f.DB.Create(&courseModels.Quiz{ActivityID: a.ID}).Error)
	case courseModels.ActivityAssignment:
		require.NoError(f.t, f.DB.Create(&courseModels.Assignment{ActivityID: a.ID}).Error)
	}
	a.ActivityType = activityType
	return a
}

// Question stores q on activityID together with its options.
func (f *Fixture) Question(activityID uint, q courseModels.Question, options ...courseModels.QuestionOption) courseModels.Question {
	f.t.Helper()
	q.ActivityID = activityID
	require.NoError(f.t, f.DB.Create(&q).Error)
	for i := range options {
		options[i].QuestionID = q.ID
		options[i].OrderIndex = i
		require.NoError(f.t, f.DB.Create(&options[i]).Error)
	}
	q.Options = options
	return q
}

func (f *Fixture) Enroll(userID, courseID uint) courseModels.CourseEnrollment {
	f.t.Helper()
	e := courseModels.CourseEnrollment{
		UserID:     userID,
		CourseID:   courseID,
		Status:     courseModels.EnrollmentEnrolled,
		EnrolledAt: time.Now(),
	}
	require.NoError(f.t, f.DB.Create(&e).Error)
	return e
}

// Attempt records a finished attempt with the given score.
func (f *Fixture) Attempt(userID uint, a courseModels.Activity, status string, score, maxScore float64) courseModels.StudentActivity {
	f.t.Helper()
	sa := courseModels.StudentActivity{
		UserID:     userID,
		ActivityID: a.ID,
		CourseID:   a.CourseID,
		ModuleID:   a.ModuleID,
		Status:     status,
		Score:      &score,
		MaxScore:   &maxScore,
	}
	require.NoError(f.t, f.DB.Create(&sa).Error)
	return sa
}

func (f *Fixture) CompleteLesson(userID uint, l courseModels.Lesson) {
	f.t.Helper()
	require.NoError(f.t, f.DB.Create(&courseModels.LessonCompletion{
		UserID:   userID,
		CourseID: l.CourseID,
		ModuleID: l.ModuleID,
		LessonID: l.ID,
	}).Error)
}

// Notifier records every milestone it is told about.
type Notifier struct {
	mu           sync.Mutex
	Completed    []courseModels.CourseEnrollment
	Graded       []courseModels.StudentActivity
	Certificates []courseModels.Certificate
	DueSoon      map[uint][]uint
}

func (n *Notifier) CourseCompleted(_ models.User, _ courseModels.Course, enrollment courseModels.CourseEnrollment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Completed = append(n.Completed, enrollment)
}

func (n *Notifier) ActivityGraded(_ models.User, _ courseModels.Activity, attempt courseModels.StudentActivity) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Graded = append(n.Graded, attempt)
}

func (n *Notifier) CertificateIssued(_ models.User, _ courseModels.Course, certificate courseModels.Certificate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Certificates = append(n.Certificates, certificate)
}

// ActivityDueSoon records reminded user ids per activity.
func (n *Notifier) ActivityDueSoon(user models.User, activity courseModels.Activity, _ time.Time) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.DueSoon == nil {
		n.DueSoon = make(map[uint][]uint)
	}
	n.DueSoon[activity.ID] = append(n.DueSoon[activity.ID], user.ID)
}
