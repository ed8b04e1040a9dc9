package certificates

import (
	"context"
	"fmt"
	"testing"

	"lms/models"
	courseModels "lms/models/course"
	"lms/services/grading"
	"lms/testutil"
	"lms/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type certificateFixture struct {
	*testutil.Fixture
	notifier *testutil.Notifier
	svc      *Service
	admin    models.User
	course   courseModels.Course
}

func newCertificateFixture(t *testing.T) *certificateFixture {
	f := testutil.New(t)
	cf := &certificateFixture{Fixture: f, notifier: &testutil.Notifier{}}
	cf.svc = NewService(f.DB, grading.NewService(f.DB, nil, nil), cf.notifier)
	cf.admin = f.User(models.RoleAdmin)
	cf.course = f.Course(f.User(models.RoleInstructor).ID)
	return cf
}

// graduate enrolls a student who finished the course with a 9/10 quiz.
func (cf *certificateFixture) graduate(t *testing.T, quiz courseModels.Activity) models.User {
	t.Helper()
	student := cf.User(models.RoleStudent)
	e := cf.Enroll(student.ID, cf.course.ID)
	require.NoError(t, cf.DB.Model(&e).Updates(map[string]interface{}{
		"status":   courseModels.EnrollmentCompleted,
		"progress": 100,
	}).Error)
	cf.Attempt(student.ID, quiz, courseModels.StatusCompleted, 9, 10)
	return student
}

func TestCertificateApproval(t *testing.T) {
	cf := newCertificateFixture(t)
	ctx := context.Background()
	quiz := cf.Activity(cf.Module(cf.course.ID, "Week 1"), courseModels.ActivityQuiz, nil)
	student := cf.graduate(t, quiz)
	rc := testutil.RC(student)

	request, err := cf.svc.Request(ctx, rc, cf.course.ID)
	require.NoError(t, err)
	assert.Equal(t, courseModels.CertificatePending, request.Status)
	assert.Equal(t, 90.0, request.FinalGrade)
	assert.Equal(t, "A-", request.LetterGrade)

	_, err = cf.svc.Request(ctx, rc, cf.course.ID)
	assert.True(t, utils.IsKind(err, utils.KindConflict))

	_, err = cf.svc.ListPending(ctx, rc)
	assert.True(t, utils.IsKind(err, utils.KindForbidden))
	pending, err := cf.svc.ListPending(ctx, testutil.RC(cf.admin))
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = cf.svc.Approve(ctx, rc, request.ID)
	assert.True(t, utils.IsKind(err, utils.KindForbidden))

	certificate, err := cf.svc.Approve(ctx, testutil.RC(cf.admin), request.ID)
	require.NoError(t, err)
	assert.Contains(t, certificate.CertificateNumber, fmt.Sprintf("CERT-%d-%d-", cf.course.ID, student.ID))
	assert.Equal(t, 90.0, certificate.FinalGrade)
	require.Len(t, cf.notifier.Certificates, 1)

	_, err = cf.svc.Approve(ctx, testutil.RC(cf.admin), request.ID)
	assert.True(t, utils.IsKind(err, utils.KindConflict))

	_, err = cf.svc.Request(ctx, rc, cf.course.ID)
	require.Error(t, err)
	assert.Equal(t, "Certificate already issued!", err.Error())

	certificates, pendingCount, err := cf.svc.ListForUser(ctx, rc)
	require.NoError(t, err)
	assert.Len(t, certificates, 1)
	assert.Zero(t, pendingCount)
}

func TestCertificateRejectionAllowsNewRequest(t *testing.T) {
	cf := newCertificateFixture(t)
	ctx := context.Background()
	quiz := cf.Activity(cf.Module(cf.course.ID, "Week 1"), courseModels.ActivityQuiz, nil)
	student := cf.graduate(t, quiz)
	rc := testutil.RC(student)

	request, err := cf.svc.Request(ctx, rc, cf.course.ID)
	require.NoError(t, err)

	rejected, err := cf.svc.Reject(ctx, testutil.RC(cf.admin), request.ID, "  Missing final project  ")
	require.NoError(t, err)
	assert.Equal(t, courseModels.CertificateRejected, rejected.Status)
	assert.Equal(t, "Missing final project", rejected.RejectionReason)

	_, err = cf.svc.Request(ctx, rc, cf.course.ID)
	assert.NoError(t, err)
	assert.Empty(t, cf.notifier.Certificates)
}

func TestCertificateRequiresCompletion(t *testing.T) {
	cf := newCertificateFixture(t)
	ctx := context.Background()

	outsider := cf.User(models.RoleStudent)
	_, err := cf.svc.Request(ctx, testutil.RC(outsider), cf.course.ID)
	assert.True(t, utils.IsKind(err, utils.KindForbidden))

	learner := cf.User(models.RoleStudent)
	cf.Enroll(learner.ID, cf.course.ID)
	_, err = cf.svc.Request(ctx, testutil.RC(learner), cf.course.ID)
	assert.True(t, utils.IsKind(err, utils.KindConflict))

	_, err = cf.svc.Approve(ctx, testutil.RC(cf.admin), 99999)
	assert.True(t, utils.IsKind(err, utils.KindNotFound))
}
