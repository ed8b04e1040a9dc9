package submission

import (
	"context"
	"testing"
	"time"

	"lms/cache"
	"lms/models"
	courseModels "lms/models/course"
	"lms/services/enrollment"
	"lms/services/grading"
	"lms/testutil"
	"lms/utils"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submissionFixture struct {
	*testutil.Fixture
	notifier   *testutil.Notifier
	grades     *grading.Service
	svc        *Service
	instructor models.User
	student    models.User
	course     courseModels.Course
	module     courseModels.Module
}

func newSubmissionFixture(t *testing.T) *submissionFixture {
	f := testutil.New(t)
	sf := &submissionFixture{Fixture: f, notifier: &testutil.Notifier{}}
	sf.grades = grading.NewService(f.DB, cache.NewMemoryGradeCache(time.Minute), nil)
	sf.svc = NewService(f.DB, sf.grades, enrollment.NewService(f.DB, sf.grades, sf.notifier))

	sf.instructor = f.User(models.RoleInstructor)
	sf.student = f.User(models.RoleStudent)
	sf.course = f.Course(sf.instructor.ID)
	sf.module = f.Module(sf.course.ID, "Week 1")
	f.Enroll(sf.student.ID, sf.course.ID)
	return sf
}

func (sf *submissionFixture) attempt(t *testing.T, userID, activityID uint) courseModels.StudentActivity {
	t.Helper()
	var sa courseModels.StudentActivity
	require.NoError(t, sf.DB.Preload("Progress").Where("user_id = ? AND activity_id = ?", userID, activityID).First(&sa).Error)
	return sa
}

// essayAssignment has a 10 point essay and a 5 point short answer.
func (sf *submissionFixture) essayAssignment() (courseModels.Activity, courseModels.Question, courseModels.Question) {
	a := sf.Activity(sf.module, courseModels.ActivityAssignment, nil)
	essay := sf.Question(a.ID, courseModels.Question{Type: courseModels.QuestionEssay, QuestionText: "Explain channels", Points: 10})
	short := sf.Question(a.ID, courseModels.Question{Type: courseModels.QuestionShortAnswer, QuestionText: "Lightweight thread?", Points: 5, CorrectAnswer: "goroutine"})
	return a, essay, short
}

func (sf *submissionFixture) submitEssay(t *testing.T, student models.User, a courseModels.Activity, essay, short courseModels.Question) {
	t.Helper()
	ctx := context.Background()
	rc := testutil.RC(student)
	_, err := sf.svc.SaveAnswer(ctx, rc, a.ID, AnswerInput{QuestionID: essay.ID, AnswerText: "They pass values between goroutines."})
	require.NoError(t, err)
	_, err = sf.svc.SaveAnswer(ctx, rc, a.ID, AnswerInput{QuestionID: short.ID, AnswerText: "  Goroutine "})
	require.NoError(t, err)
	result, err := sf.svc.SubmitActivity(ctx, rc, a.ID)
	require.NoError(t, err)
	require.Equal(t, courseModels.StatusSubmitted, result.Attempt.Status)
}

func TestQuizWithImplicitTrueFalseOptionsCompletesCourse(t *testing.T) {
	sf := newSubmissionFixture(t)
	ctx := context.Background()
	rc := testutil.RC(sf.student)
	quiz := sf.Activity(sf.module, courseModels.ActivityQuiz, nil)

	tf, err := sf.grades.CreateQuestion(ctx, testutil.RC(sf.instructor), quiz.ID, grading.QuestionInput{
		Type: courseModels.QuestionTrueFalse, QuestionText: "Maps are ordered", Points: 5, CorrectAnswer: "false",
	})
	require.NoError(t, err)
	mc := sf.Question(quiz.ID,
		courseModels.Question{Type: courseModels.QuestionMultipleChoice, QuestionText: "Zero value of int", Points: 5},
		courseModels.QuestionOption{OptionText: "0", IsCorrect: true},
		courseModels.QuestionOption{OptionText: "nil"},
	)

	falseOption, ok := lo.Find(tf.Options, func(o courseModels.QuestionOption) bool { return o.OptionText == "False" })
	require.True(t, ok)

	saved, err := sf.svc.SaveAnswer(ctx, rc, quiz.ID, AnswerInput{QuestionID: tf.ID, SelectedOptions: []uint{falseOption.ID}})
	require.NoError(t, err)
	assert.True(t, *saved.Answer.IsCorrect)
	assert.Equal(t, 5.0, *saved.Answer.PointsEarned)
	assert.Equal(t, courseModels.StatusInProgress, saved.Status)
	assert.Equal(t, 1, saved.Progress.AnsweredQuestions)
	assert.Equal(t, 2, saved.Progress.TotalQuestions)

	_, err = sf.svc.SaveAnswer(ctx, rc, quiz.ID, AnswerInput{QuestionID: mc.ID, SelectedOptions: []uint{mc.Options[1].ID}})
	require.NoError(t, err)

	result, err := sf.svc.SubmitActivity(ctx, rc, quiz.ID)
	require.NoError(t, err)
	assert.False(t, result.AlreadySubmitted)
	assert.Equal(t, courseModels.StatusCompleted, result.Attempt.Status)
	assert.Equal(t, 5.0, *result.Attempt.Score)
	assert.Equal(t, 10.0, *result.Attempt.MaxScore)
	assert.Equal(t, 50.0, *result.Attempt.Percentage)
	assert.Equal(t, courseModels.EnrollmentCompleted, result.EnrollmentStatus)
	assert.Equal(t, 100.0, result.CourseProgress)
	require.Len(t, sf.notifier.Completed, 1)

	again, err := sf.svc.SubmitActivity(ctx, rc, quiz.ID)
	require.NoError(t, err)
	assert.True(t, again.AlreadySubmitted)
	assert.Equal(t, 5.0, *again.Attempt.Score)
	assert.Len(t, sf.notifier.Completed, 1, "completion is announced once")

	_, err = sf.svc.SaveAnswer(ctx, rc, quiz.ID, AnswerInput{QuestionID: mc.ID, SelectedOptions: []uint{mc.Options[0].ID}})
	assert.True(t, utils.IsKind(err, utils.KindConflict))
}

func TestSaveAnswerValidation(t *testing.T) {
	sf := newSubmissionFixture(t)
	ctx := context.Background()
	rc := testutil.RC(sf.student)
	quiz := sf.Activity(sf.module, courseModels.ActivityQuiz, nil)
	mc := sf.Question(quiz.ID,
		courseModels.Question{Type: courseModels.QuestionMultipleChoice, QuestionText: "Pick", Points: 1},
		courseModels.QuestionOption{OptionText: "a", IsCorrect: true},
		courseModels.QuestionOption{OptionText: "b"},
	)

	_, err := sf.svc.SaveAnswer(ctx, rc, quiz.ID, AnswerInput{QuestionID: mc.ID, SelectedOptions: []uint{99999}})
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	_, err = sf.svc.SaveAnswer(ctx, rc, quiz.ID, AnswerInput{QuestionID: mc.ID})
	assert.True(t, utils.IsKind(err, utils.KindValidation))

	_, err = sf.svc.SaveAnswer(ctx, rc, quiz.ID, AnswerInput{QuestionID: 99999, AnswerText: "x"})
	assert.True(t, utils.IsKind(err, utils.KindNotFound))

	var count int64
	require.NoError(t, sf.DB.Model(&courseModels.StudentActivity{}).Count(&count).Error)
	assert.Zero(t, count, "rejected answers leave no attempt behind")

	outsider := sf.User(models.RoleStudent)
	_, err = sf.svc.SaveAnswer(ctx, testutil.RC(outsider), quiz.ID, AnswerInput{QuestionID: mc.ID, SelectedOptions: []uint{mc.Options[0].ID}})
	assert.True(t, utils.IsKind(err, utils.KindForbidden))
}

func TestSaveAnswerOverwritesPreviousAnswer(t *testing.T) {
	sf := newSubmissionFixture(t)
	ctx := context.Background()
	rc := testutil.RC(sf.student)
	quiz := sf.Activity(sf.module, courseModels.ActivityQuiz, nil)
	mc := sf.Question(quiz.ID,
		courseModels.Question{Type: courseModels.QuestionMultipleChoice, QuestionText: "Pick", Points: 2},
		courseModels.QuestionOption{OptionText: "a", IsCorrect: true},
		courseModels.QuestionOption{OptionText: "b"},
	)

	_, err := sf.svc.SaveAnswer(ctx, rc, quiz.ID, AnswerInput{QuestionID: mc.ID, SelectedOptions: []uint{mc.Options[1].ID}})
	require.NoError(t, err)
	saved, err := sf.svc.SaveAnswer(ctx, rc, quiz.ID, AnswerInput{QuestionID: mc.ID, SelectedOptions: []uint{mc.Options[0].ID}})
	require.NoError(t, err)
	assert.Equal(t, 2.0, *saved.Progress.AutoGradedScore)

	var count int64
	require.NoError(t, sf.DB.Model(&courseModels.StudentAnswer{}).Where("user_id = ?", sf.student.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestStartActivity(t *testing.T) {
	sf := newSubmissionFixture(t)
	quiz := sf.Activity(sf.module, courseModels.ActivityQuiz, nil)

	sa, err := sf.svc.StartActivity(context.Background(), testutil.RC(sf.student), quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, courseModels.StatusInProgress, sa.Status)
	assert.NotNil(t, sa.StartedAt)
	require.NotNil(t, sa.Progress)
	assert.Equal(t, quiz.ActivityTypeID, sa.Progress.ActivityTypeID)

	_, err = sf.svc.StartActivity(context.Background(), testutil.RC(sf.student), 99999)
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
}

func TestManualGradingFlow(t *testing.T) {
	sf := newSubmissionFixture(t)
	ctx := context.Background()
	a, essay, short := sf.essayAssignment()
	sf.submitEssay(t, sf.student, a, essay, short)

	sa := sf.attempt(t, sf.student.ID, a.ID)
	require.NotNil(t, sa.Progress)
	assert.True(t, sa.Progress.RequiresGrading)
	assert.Equal(t, 5.0, *sa.Progress.AutoGradedScore)
	assert.Nil(t, sa.Score)

	var enrollmentRow courseModels.CourseEnrollment
	require.NoError(t, sf.DB.Where("user_id = ?", sf.student.ID).First(&enrollmentRow).Error)
	assert.Equal(t, 0.0, enrollmentRow.Progress, "submitted is not done")

	graded, err := sf.svc.GradeStudent(ctx, testutil.RC(sf.instructor), a.ID, sf.student.ID, GradeInput{
		Grades:   []QuestionGrade{{QuestionID: essay.ID, Points: 8, Feedback: "Good"}},
		Feedback: "Nice work",
	})
	require.NoError(t, err)
	assert.Equal(t, courseModels.StatusGraded, graded.Status)
	assert.Equal(t, 13.0, *graded.Score)
	assert.Equal(t, 15.0, *graded.MaxScore)
	assert.Equal(t, "Nice work", graded.Feedback)
	assert.Equal(t, sf.instructor.ID, *graded.Progress.GradedBy)
	assert.Len(t, sf.notifier.Graded, 1)
	assert.Len(t, sf.notifier.Completed, 1)

	require.NoError(t, sf.DB.Where("user_id = ?", sf.student.ID).First(&enrollmentRow).Error)
	assert.Equal(t, courseModels.EnrollmentCompleted, enrollmentRow.Status)
}

func TestExerciseAndQuizEssayReachGraded(t *testing.T) {
	sf := newSubmissionFixture(t)
	ctx := context.Background()
	rc := testutil.RC(sf.student)

	exercise := sf.Activity(sf.module, courseModels.ActivityExercise, nil)
	short := sf.Question(exercise.ID, courseModels.Question{Type: courseModels.QuestionShortAnswer, QuestionText: "Keyword for a goroutine", Points: 5, CorrectAnswer: "go"})
	quiz := sf.Activity(sf.module, courseModels.ActivityQuiz, nil)
	essay := sf.Question(quiz.ID, courseModels.Question{Type: courseModels.QuestionEssay, QuestionText: "Describe select", Points: 10})

	_, err := sf.svc.SaveAnswer(ctx, rc, exercise.ID, AnswerInput{QuestionID: short.ID, AnswerText: "Go"})
	require.NoError(t, err)
	result, err := sf.svc.SubmitActivity(ctx, rc, exercise.ID)
	require.NoError(t, err)
	assert.Equal(t, courseModels.StatusCompleted, result.Attempt.Status)
	assert.Equal(t, 5.0, *result.Attempt.Score)

	_, err = sf.svc.SaveAnswer(ctx, rc, quiz.ID, AnswerInput{QuestionID: essay.ID, AnswerText: "It waits on several channels."})
	require.NoError(t, err)
	result, err = sf.svc.SubmitActivity(ctx, rc, quiz.ID)
	require.NoError(t, err)
	assert.Equal(t, courseModels.StatusSubmitted, result.Attempt.Status)

	graded, err := sf.svc.GradeStudent(ctx, testutil.RC(sf.instructor), quiz.ID, sf.student.ID, GradeInput{
		Grades: []QuestionGrade{{QuestionID: essay.ID, Points: 7}},
	})
	require.NoError(t, err)
	assert.Equal(t, courseModels.StatusGraded, graded.Status)
	assert.Equal(t, 70.0, *graded.Percentage)

	var enrollmentRow courseModels.CourseEnrollment
	require.NoError(t, sf.DB.Where("user_id = ?", sf.student.ID).First(&enrollmentRow).Error)
	assert.Equal(t, courseModels.EnrollmentCompleted, enrollmentRow.Status)
	assert.Equal(t, 100.0, enrollmentRow.Progress)
}

func TestGradeStudentRollsBackOnBadInput(t *testing.T) {
	sf := newSubmissionFixture(t)
	ctx := context.Background()
	a, essay, short := sf.essayAssignment()
	sf.submitEssay(t, sf.student, a, essay, short)
	instructor := testutil.RC(sf.instructor)

	_, err := sf.svc.GradeStudent(ctx, instructor, a.ID, sf.student.ID, GradeInput{
		Grades: []QuestionGrade{{QuestionID: essay.ID, Points: 7}, {QuestionID: short.ID, Points: 6}},
	})
	assert.True(t, utils.IsKind(err, utils.KindValidation), "points above the question maximum")

	_, err = sf.svc.GradeStudent(ctx, instructor, a.ID, sf.student.ID, GradeInput{
		Grades: []QuestionGrade{{QuestionID: essay.ID, Points: 7}, {QuestionID: 99999, Points: 1}},
	})
	assert.True(t, utils.IsKind(err, utils.KindNotFound))

	sa := sf.attempt(t, sf.student.ID, a.ID)
	assert.Equal(t, courseModels.StatusSubmitted, sa.Status)
	var answer courseModels.StudentAnswer
	require.NoError(t, sf.DB.Where("user_id = ? AND question_id = ?", sf.student.ID, essay.ID).First(&answer).Error)
	assert.Nil(t, answer.PointsEarned, "the essay grade from the failed call was rolled back")

	other := sf.User(models.RoleInstructor)
	_, err = sf.svc.GradeStudent(ctx, testutil.RC(other), a.ID, sf.student.ID, GradeInput{
		Grades: []QuestionGrade{{QuestionID: essay.ID, Points: 7}},
	})
	assert.True(t, utils.IsKind(err, utils.KindForbidden))

	unsubmitted := sf.User(models.RoleStudent)
	sf.Enroll(unsubmitted.ID, sf.course.ID)
	_, err = sf.svc.StartActivity(ctx, testutil.RC(unsubmitted), a.ID)
	require.NoError(t, err)
	_, err = sf.svc.GradeStudent(ctx, instructor, a.ID, unsubmitted.ID, GradeInput{
		Grades: []QuestionGrade{{QuestionID: essay.ID, Points: 7}},
	})
	assert.True(t, utils.IsKind(err, utils.KindConflict))
}

func TestBulkActions(t *testing.T) {
	sf := newSubmissionFixture(t)
	ctx := context.Background()
	instructor := testutil.RC(sf.instructor)
	a, essay, short := sf.essayAssignment()

	second := sf.User(models.RoleStudent)
	sf.Enroll(second.ID, sf.course.ID)
	sf.submitEssay(t, sf.student, a, essay, short)
	sf.submitEssay(t, second, a, essay, short)

	_, err := sf.svc.BulkGrade(ctx, instructor, a.ID, BulkInput{Action: BulkGrade})
	assert.True(t, utils.IsKind(err, utils.KindValidation), "grade needs a score")

	_, err = sf.svc.BulkGrade(ctx, instructor, a.ID, BulkInput{Action: BulkGrade, Score: lo.ToPtr(20.0)})
	assert.True(t, utils.IsKind(err, utils.KindValidation))
	assert.Equal(t, courseModels.StatusSubmitted, sf.attempt(t, sf.student.ID, a.ID).Status)

	approved, err := sf.svc.BulkGrade(ctx, instructor, a.ID, BulkInput{Action: BulkApproveAll})
	require.NoError(t, err)
	assert.Equal(t, 2, approved.Affected)
	for _, attempt := range approved.Attempts {
		assert.Equal(t, courseModels.StatusGraded, attempt.Status)
		assert.Equal(t, 5.0, *attempt.Score)
	}
	assert.Len(t, sf.notifier.Graded, 2)

	reset, err := sf.svc.BulkGrade(ctx, instructor, a.ID, BulkInput{Action: BulkResetGrades, StudentIDs: []uint{second.ID}})
	require.NoError(t, err)
	assert.Equal(t, 1, reset.Affected)
	sa := sf.attempt(t, second.ID, a.ID)
	assert.Equal(t, courseModels.StatusSubmitted, sa.Status)
	assert.Nil(t, sa.Score)
	assert.Nil(t, sa.Progress.GradedBy)
	assert.Equal(t, courseModels.StatusGraded, sf.attempt(t, sf.student.ID, a.ID).Status)

	scored, err := sf.svc.BulkGrade(ctx, instructor, a.ID, BulkInput{Action: BulkGrade, StudentIDs: []uint{second.ID}, Score: lo.ToPtr(12.0)})
	require.NoError(t, err)
	assert.Equal(t, 80.0, *scored.Attempts[0].Percentage)

	list, err := sf.svc.ListSubmissions(ctx, instructor, a.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestActivityResolvers(t *testing.T) {
	sf := newSubmissionFixture(t)
	ctx := context.Background()
	quiz := sf.Activity(sf.module, courseModels.ActivityQuiz, nil)
	assignment := sf.Activity(sf.module, courseModels.ActivityAssignment, nil)

	var q courseModels.Quiz
	require.NoError(t, sf.DB.Where("activity_id = ?", quiz.ID).First(&q).Error)
	id, err := sf.svc.ActivityForQuiz(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, quiz.ID, id)

	var as courseModels.Assignment
	require.NoError(t, sf.DB.Where("activity_id = ?", assignment.ID).First(&as).Error)
	id, err = sf.svc.ActivityForAssignment(ctx, as.ID)
	require.NoError(t, err)
	assert.Equal(t, assignment.ID, id)

	_, err = sf.svc.ActivityForAssignment(ctx, 99999)
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
}
