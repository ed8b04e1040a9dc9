package enrollment

import (
	"context"
	"testing"
	"time"

	"lms/cache"
	"lms/models"
	courseModels "lms/models/course"
	"lms/services/grading"
	"lms/testutil"
	"lms/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type enrollmentFixture struct {
	*testutil.Fixture
	notifier   *testutil.Notifier
	cache      *cache.MemoryGradeCache
	svc        *Service
	instructor models.User
	student    models.User
	course     courseModels.Course
}

func newEnrollmentFixture(t *testing.T) *enrollmentFixture {
	f := testutil.New(t)
	ef := &enrollmentFixture{Fixture: f, notifier: &testutil.Notifier{}, cache: cache.NewMemoryGradeCache(time.Minute)}
	ef.svc = NewService(f.DB, grading.NewService(f.DB, ef.cache, nil), ef.notifier)
	ef.instructor = f.User(models.RoleInstructor)
	ef.student = f.User(models.RoleStudent)
	ef.course = f.Course(ef.instructor.ID)
	return ef
}

func TestEnroll(t *testing.T) {
	ef := newEnrollmentFixture(t)
	ctx := context.Background()
	rc := testutil.RC(ef.student)

	e, err := ef.svc.Enroll(ctx, rc, ef.course.ID)
	require.NoError(t, err)
	assert.Equal(t, courseModels.EnrollmentEnrolled, e.Status)
	assert.Equal(t, 0.0, e.Progress)

	_, err = ef.svc.Enroll(ctx, rc, ef.course.ID)
	assert.True(t, utils.IsKind(err, utils.KindConflict))

	_, err = ef.svc.Enroll(ctx, testutil.RC(ef.instructor), ef.course.ID)
	assert.True(t, utils.IsKind(err, utils.KindForbidden), "only students enroll")

	draft := ef.Course(ef.instructor.ID)
	require.NoError(t, ef.DB.Model(&draft).Update("status", courseModels.CourseDraft).Error)
	_, err = ef.svc.Enroll(ctx, rc, draft.ID)
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
}

func TestWithdrawIsTerminal(t *testing.T) {
	ef := newEnrollmentFixture(t)
	ctx := context.Background()
	rc := testutil.RC(ef.student)
	ef.Enroll(ef.student.ID, ef.course.ID)

	e, err := ef.svc.Withdraw(ctx, rc, ef.course.ID)
	require.NoError(t, err)
	assert.Equal(t, courseModels.EnrollmentWithdrawn, e.Status)
	assert.NotNil(t, e.WithdrawnAt)

	_, err = ef.svc.Withdraw(ctx, rc, ef.course.ID)
	assert.True(t, utils.IsKind(err, utils.KindConflict))

	_, err = ef.svc.Enroll(ctx, rc, ef.course.ID)
	assert.True(t, utils.IsKind(err, utils.KindConflict), "withdrawn students cannot re-enroll")

	_, err = RequireActive(ef.DB, ef.student.ID, ef.course.ID)
	assert.True(t, utils.IsKind(err, utils.KindForbidden))
}

func TestDrop(t *testing.T) {
	ef := newEnrollmentFixture(t)
	ctx := context.Background()
	ef.Enroll(ef.student.ID, ef.course.ID)

	other := ef.User(models.RoleInstructor)
	_, err := ef.svc.Drop(ctx, testutil.RC(other), ef.course.ID, ef.student.ID)
	assert.True(t, utils.IsKind(err, utils.KindForbidden))

	e, err := ef.svc.Drop(ctx, testutil.RC(ef.instructor), ef.course.ID, ef.student.ID)
	require.NoError(t, err)
	assert.Equal(t, courseModels.EnrollmentDropped, e.Status)

	var pr *ProgressResult
	require.NoError(t, ef.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		pr, err = RecomputeProgress(tx, ef.student.ID, ef.course.ID)
		return err
	}))
	assert.Equal(t, courseModels.EnrollmentDropped, pr.Enrollment.Status, "dropped enrollments are left untouched")
}

func TestMarkLessonCompleteDrivesProgress(t *testing.T) {
	ef := newEnrollmentFixture(t)
	ctx := context.Background()
	rc := testutil.RC(ef.student)
	ef.Enroll(ef.student.ID, ef.course.ID)

	first := ef.Module(ef.course.ID, "One")
	second := ef.Module(ef.course.ID, "Two")
	l1 := ef.Lesson(first, true)
	l2 := ef.Lesson(second, true)
	draft := ef.Lesson(second, false)
	quiz := ef.Activity(second, courseModels.ActivityQuiz, nil)

	result, err := ef.svc.MarkLessonComplete(ctx, rc, ef.course.ID, l1.ID)
	require.NoError(t, err)
	assert.Equal(t, 33.33, result.Enrollment.Progress)
	assert.Equal(t, []uint{first.ID}, result.CompletedModules)

	again, err := ef.svc.MarkLessonComplete(ctx, rc, ef.course.ID, l1.ID)
	require.NoError(t, err)
	assert.Equal(t, 33.33, again.Enrollment.Progress)
	assert.Empty(t, again.CompletedModules, "module completion is recorded once")

	_, err = ef.svc.MarkLessonComplete(ctx, rc, ef.course.ID, draft.ID)
	assert.True(t, utils.IsKind(err, utils.KindNotFound), "draft lessons cannot be completed")

	result, err = ef.svc.MarkLessonComplete(ctx, rc, ef.course.ID, l2.ID)
	require.NoError(t, err)
	assert.Equal(t, 66.67, result.Enrollment.Progress)
	assert.False(t, result.CourseCompleted)

	ef.Attempt(ef.student.ID, quiz, courseModels.StatusCompleted, 3, 4)
	changed, err := ef.svc.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	var e courseModels.CourseEnrollment
	require.NoError(t, ef.DB.Where("user_id = ? AND course_id = ?", ef.student.ID, ef.course.ID).First(&e).Error)
	assert.Equal(t, courseModels.EnrollmentCompleted, e.Status)
	assert.Equal(t, 100.0, e.Progress)
	assert.NotNil(t, e.CompletedAt)
	require.Len(t, ef.notifier.Completed, 1)

	var completions int64
	require.NoError(t, ef.DB.Model(&courseModels.ModuleCompletion{}).Where("user_id = ?", ef.student.ID).Count(&completions).Error)
	assert.Equal(t, int64(2), completions)

	changed, err = ef.svc.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, changed, "completed enrollments are not reconciled")
}

func TestMarkLessonCompleteRequiresEnrollment(t *testing.T) {
	ef := newEnrollmentFixture(t)
	l := ef.Lesson(ef.Module(ef.course.ID, "One"), true)

	_, err := ef.svc.MarkLessonComplete(context.Background(), testutil.RC(ef.student), ef.course.ID, l.ID)
	assert.True(t, utils.IsKind(err, utils.KindForbidden))
}

func TestListEnrollments(t *testing.T) {
	ef := newEnrollmentFixture(t)
	second := ef.Course(ef.instructor.ID)
	ef.Enroll(ef.student.ID, ef.course.ID)
	ef.Enroll(ef.student.ID, second.ID)

	all, total, err := ef.svc.List(context.Background(), testutil.RC(ef.student), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, all, 2)

	page, total, err := ef.svc.List(context.Background(), testutil.RC(ef.student), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, page, 1)
	assert.NotZero(t, page[0].Course.ID)
}

func TestReconcileCourseOnlyTouchesThatCourse(t *testing.T) {
	ef := newEnrollmentFixture(t)
	ctx := context.Background()
	other := ef.Course(ef.instructor.ID)
	ef.Enroll(ef.student.ID, ef.course.ID)
	ef.Enroll(ef.student.ID, other.ID)

	for _, c := range []courseModels.Course{ef.course, other} {
		m := ef.Module(c.ID, "One")
		ef.CompleteLesson(ef.student.ID, ef.Lesson(m, true))
		ef.Lesson(m, true)
	}

	changed, err := ef.svc.ReconcileCourse(ctx, ef.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	progress := func(courseID uint) float64 {
		var e courseModels.CourseEnrollment
		require.NoError(t, ef.DB.Where("user_id = ? AND course_id = ?", ef.student.ID, courseID).First(&e).Error)
		return e.Progress
	}
	assert.Equal(t, 50.0, progress(ef.course.ID))
	assert.Equal(t, 0.0, progress(other.ID), "other courses wait for their own reconcile")
}
