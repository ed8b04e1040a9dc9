package courseRoutes

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"lms/cache"
	"lms/config"
	"lms/database"
	"lms/middleware"
	"lms/models"
	courseModels "lms/models/course"
	"lms/services"
	"lms/testutil"
	"lms/utils"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAdminApp(t *testing.T) (*fiber.App, *testutil.Fixture) {
	t.Helper()
	previous := config.AppConfig
	config.AppConfig = &config.Config{JWTKey: "test-secret"}
	t.Cleanup(func() { config.AppConfig = previous })

	f := testutil.New(t)
	database.Database.Db = f.DB
	services.Init(f.DB, cache.NewMemoryGradeCache(time.Minute), utils.NopNotifier{})

	app := fiber.New(fiber.Config{JSONEncoder: sonic.Marshal, JSONDecoder: sonic.Unmarshal})
	SetupAdminCourseRoutes(app)
	return app, f
}

func send(t *testing.T, app *fiber.App, method, path string, u models.User, body interface{}) (int, string) {
	t.Helper()
	tok, err := middleware.GenerateJWT(u.ID, u.Name, u.Role, u.Email)
	require.NoError(t, err)
	raw, err := sonic.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(out)
}

func TestAuthoringRefreshesReportsAndProgress(t *testing.T) {
	app, f := setupAdminApp(t)
	ctx := context.Background()
	instructor := f.User(models.RoleInstructor)
	student := f.User(models.RoleStudent)
	course := f.Course(instructor.ID)
	f.Enroll(student.ID, course.ID)
	first := f.Module(course.ID, "Week 1")
	done := f.Lesson(first, true)
	f.Lesson(first, true)
	f.CompleteLesson(student.ID, done)

	_, err := services.App.Enrollment.ReconcileAll(ctx)
	require.NoError(t, err)
	progress := func() float64 {
		var e courseModels.CourseEnrollment
		require.NoError(t, f.DB.Where("user_id = ? AND course_id = ?", student.ID, course.ID).First(&e).Error)
		return e.Progress
	}
	require.Equal(t, 50.0, progress())

	report := func() (int, string) {
		r, err := services.App.Grades.StudentCourseReport(ctx, testutil.RC(student), student.ID, course.ID)
		require.NoError(t, err)
		return len(r.Modules), r.CourseTitle
	}
	modules, _ := report()
	require.Equal(t, 1, modules)

	status, body := send(t, app, "POST", fmt.Sprintf("/admin/course/%d/module", course.ID), instructor,
		map[string]interface{}{"title": "Week 2"})
	require.Equal(t, fiber.StatusCreated, status, body)
	modules, _ = report()
	assert.Equal(t, 2, modules, "a new module shows up in the next report")

	status, body = send(t, app, "PUT", fmt.Sprintf("/admin/course/%d", course.ID), instructor,
		map[string]interface{}{"title": "Advanced Go"})
	require.Equal(t, fiber.StatusOK, status, body)
	_, title := report()
	assert.Equal(t, "Advanced Go", title)

	var second courseModels.Module
	require.NoError(t, f.DB.Where("course_id = ? AND title = ?", course.ID, "Week 2").First(&second).Error)

	status, body = send(t, app, "POST", fmt.Sprintf("/admin/course/%d/module/%d/lesson", course.ID, second.ID), instructor,
		map[string]interface{}{"title": "Draft notes"})
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, 50.0, progress(), "draft lessons do not change progress")

	status, body = send(t, app, "POST", fmt.Sprintf("/admin/course/%d/module/%d/activity", course.ID, second.ID), instructor,
		map[string]interface{}{"activity_type": courseModels.ActivityExercise, "title": "Channel drills", "is_published": true})
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, 33.33, progress(), "a published activity is part of the progress denominator right away")
}
