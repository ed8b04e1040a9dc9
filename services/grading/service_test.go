package grading

import (
	"bytes"
	"context"
	"log"
	"os"
	"testing"
	"time"

	"lms/cache"
	"lms/models"
	courseModels "lms/models/course"
	"lms/testutil"
	"lms/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gradingFixture struct {
	*testutil.Fixture
	cache      *cache.MemoryGradeCache
	svc        *Service
	instructor models.User
	student    models.User
	course     courseModels.Course
	quiz       courseModels.Activity
}

// newGradingFixture builds one module with two published lessons, one draft lesson,
// a quiz scored 8/10 and an assignment the student never started.
func newGradingFixture(t *testing.T) *gradingFixture {
	f := testutil.New(t)
	gf := &gradingFixture{Fixture: f, cache: cache.NewMemoryGradeCache(time.Minute)}
	gf.svc = NewService(f.DB, gf.cache, nil)

	gf.instructor = f.User(models.RoleInstructor)
	gf.student = f.User(models.RoleStudent)
	gf.course = f.Course(gf.instructor.ID)
	f.Enroll(gf.student.ID, gf.course.ID)

	m := f.Module(gf.course.ID, "Basics")
	first := f.Lesson(m, true)
	f.Lesson(m, true)
	f.Lesson(m, false)
	f.CompleteLesson(gf.student.ID, first)

	gf.quiz = f.Activity(m, courseModels.ActivityQuiz, nil)
	f.Activity(m, courseModels.ActivityAssignment, nil)
	f.Attempt(gf.student.ID, gf.quiz, courseModels.StatusCompleted, 8, 10)
	return gf
}

func TestStudentCourseReportFromDatabase(t *testing.T) {
	gf := newGradingFixture(t)

	report, err := gf.svc.StudentCourseReport(context.Background(), testutil.RC(gf.student), gf.student.ID, gf.course.ID)
	require.NoError(t, err)

	require.Len(t, report.Modules, 1)
	m := report.Modules[0]
	assert.Equal(t, 2, m.TotalLessons, "draft lessons are not counted")
	assert.Equal(t, 50.0, m.LessonPercentage)
	assert.Equal(t, 40.0, m.ActivityPercentage)
	assert.Equal(t, 43.0, m.Score)

	assert.Equal(t, 34.29, report.OverallPercentage)
	assert.Equal(t, "F", report.LetterGrade)
	assert.Equal(t, 1, report.CompletedActivities)
	assert.Equal(t, 2, report.TotalActivities)
	assert.Equal(t, 1, gf.cache.Len())
}

func TestStudentCourseReportErrors(t *testing.T) {
	gf := newGradingFixture(t)
	ctx := context.Background()

	_, err := gf.svc.StudentCourseReport(ctx, testutil.RC(gf.student), gf.student.ID, 9999)
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
	assert.Equal(t, "Course not found!", err.Error())

	_, err = gf.svc.StudentCourseReport(ctx, testutil.RC(gf.instructor), 9999, gf.course.ID)
	require.Error(t, err)
	assert.Equal(t, "Student not found!", err.Error())

	other := gf.User(models.RoleStudent)
	_, err = gf.svc.StudentCourseReport(ctx, testutil.RC(other), gf.student.ID, gf.course.ID)
	assert.True(t, utils.IsKind(err, utils.KindForbidden))
}

func TestStudentReportsSkipsWithdrawnCourses(t *testing.T) {
	gf := newGradingFixture(t)
	second := gf.Course(gf.instructor.ID)
	e := gf.Enroll(gf.student.ID, second.ID)
	require.NoError(t, gf.DB.Model(&e).Update("status", courseModels.EnrollmentWithdrawn).Error)

	reports, err := gf.svc.StudentReports(context.Background(), testutil.RC(gf.student), gf.student.ID)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, gf.course.ID, reports[0].CourseID)
}

func TestInstructorCourseReport(t *testing.T) {
	gf := newGradingFixture(t)
	ctx := context.Background()
	idle := gf.User(models.RoleStudent)
	gf.Enroll(idle.ID, gf.course.ID)

	report, err := gf.svc.InstructorCourseReport(ctx, testutil.RC(gf.instructor), gf.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.StudentCount)
	assert.InDelta(t, 17.15, report.ClassAverage, 0.01)
	assert.Equal(t, 2, report.Distribution["F"])

	_, err = gf.svc.InstructorCourseReport(ctx, testutil.RC(gf.student), gf.course.ID)
	assert.True(t, utils.IsKind(err, utils.KindForbidden))
}

func TestUpdateWeightsRejectsInvalidSetWithoutWriting(t *testing.T) {
	gf := newGradingFixture(t)
	admin := gf.User(models.RoleAdmin)

	_, err := gf.svc.UpdateWeights(context.Background(), testutil.RC(admin), courseModels.SchemeModuleComponent, 0,
		Weights{ComponentLessons: 50, ComponentActivities: 40})
	require.Error(t, err)
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	var rows []courseModels.GradeSetting
	require.NoError(t, gf.DB.Where("scheme = ?", courseModels.SchemeModuleComponent).Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, row := range rows {
		if row.Key == ComponentLessons {
			assert.Equal(t, 30.0, row.Weight)
		}
	}
}

func TestUpdateWeightsPermissions(t *testing.T) {
	gf := newGradingFixture(t)
	ctx := context.Background()
	w := Weights{ComponentLessons: 50, ComponentActivities: 50}

	_, err := gf.svc.UpdateWeights(ctx, testutil.RC(gf.instructor), courseModels.SchemeModuleComponent, 0, w)
	assert.True(t, utils.IsKind(err, utils.KindForbidden), "instructors cannot change global weights")

	other := gf.User(models.RoleInstructor)
	_, err = gf.svc.UpdateWeights(ctx, testutil.RC(other), courseModels.SchemeModuleComponent, gf.course.ID, w)
	assert.True(t, utils.IsKind(err, utils.KindForbidden))
}

func TestGlobalWeightsInvalidateEveryCourse(t *testing.T) {
	gf := newGradingFixture(t)
	ctx := context.Background()
	admin := testutil.RC(gf.User(models.RoleAdmin))
	w := Weights{ComponentLessons: 40, ComponentActivities: 60}

	_, err := gf.svc.StudentCourseReport(ctx, testutil.RC(gf.student), gf.student.ID, gf.course.ID)
	require.NoError(t, err)
	require.Equal(t, 1, gf.cache.Len())

	_, err = gf.svc.UpdateWeights(ctx, admin, courseModels.SchemeModuleComponent, 0, w)
	require.NoError(t, err)
	assert.Zero(t, gf.cache.Len())

	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	require.NoError(t, gf.DB.Migrator().DropTable(&courseModels.Course{}))
	_, err = gf.svc.UpdateWeights(ctx, admin, courseModels.SchemeModuleComponent, 0, w)
	require.NoError(t, err, "the weights are stored even when invalidation cannot list courses")
	assert.Contains(t, buf.String(), "[GRADING] Failed to list courses")
}

func TestCourseOverrideInvalidatesAndReset(t *testing.T) {
	gf := newGradingFixture(t)
	ctx := context.Background()
	rc := testutil.RC(gf.student)

	_, err := gf.svc.StudentCourseReport(ctx, rc, gf.student.ID, gf.course.ID)
	require.NoError(t, err)
	require.Equal(t, 1, gf.cache.Len())

	view, err := gf.svc.UpdateWeights(ctx, testutil.RC(gf.instructor), courseModels.SchemeActivityType, gf.course.ID, Weights{
		courseModels.ActivityQuiz:       100,
		courseModels.ActivityAssignment: 0,
		courseModels.ActivityAssessment: 0,
		courseModels.ActivityExercise:   0,
	})
	require.NoError(t, err)
	assert.Equal(t, SourceCourse, view.Source)
	assert.Equal(t, 0, gf.cache.Len())

	report, err := gf.svc.StudentCourseReport(ctx, rc, gf.student.ID, gf.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 80.0, report.OverallPercentage)
	assert.Equal(t, "B-", report.LetterGrade)

	views, err := gf.svc.EffectiveWeights(ctx, gf.course.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, SourceGlobal, views[0].Source)
	assert.Equal(t, SourceCourse, views[1].Source)

	require.NoError(t, gf.svc.ResetCourseWeights(ctx, testutil.RC(gf.instructor), gf.course.ID, courseModels.SchemeActivityType))
	report, err = gf.svc.StudentCourseReport(ctx, rc, gf.student.ID, gf.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 34.29, report.OverallPercentage)

	err = gf.svc.ResetCourseWeights(ctx, testutil.RC(gf.instructor), gf.course.ID, "bogus")
	assert.True(t, utils.IsKind(err, utils.KindValidation))
}

func TestCreateQuestionAddsTrueFalseOptions(t *testing.T) {
	gf := newGradingFixture(t)

	q, err := gf.svc.CreateQuestion(context.Background(), testutil.RC(gf.instructor), gf.quiz.ID, QuestionInput{
		Type:          courseModels.QuestionTrueFalse,
		QuestionText:  "Go has generics",
		Points:        2,
		CorrectAnswer: "true",
	})
	require.NoError(t, err)
	require.Len(t, q.Options, 2)
	assert.Equal(t, "True", q.Options[0].OptionText)
	assert.True(t, q.Options[0].IsCorrect)
	assert.False(t, q.Options[1].IsCorrect)

	var count int64
	require.NoError(t, gf.DB.Model(&courseModels.QuestionOption{}).Where("question_id = ?", q.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	_, err = gf.svc.CreateQuestion(context.Background(), testutil.RC(gf.instructor), gf.quiz.ID, QuestionInput{
		Type:         courseModels.QuestionMultipleChoice,
		QuestionText: "Pick one",
		Points:       1,
		Options:      []OptionInput{{OptionText: "a"}, {OptionText: "b"}},
	})
	assert.True(t, utils.IsKind(err, utils.KindValidation), "multiple choice needs a correct option")
}
