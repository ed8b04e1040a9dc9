package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Title   string             `json:"title" validate:"required,min=3"`
	Status  string             `json:"status" validate:"omitempty,oneof=DRAFT ACTIVE"`
	Weights map[string]float64 `json:"weights" validate:"omitempty,dive,gte=0,lte=100"`
}

func TestStructMessages(t *testing.T) {
	errs := Struct(&sampleRequest{Status: "LIVE", Weights: map[string]float64{"Quiz": 120}})
	assert.Equal(t, "title is required!", errs["title"])
	assert.Equal(t, "status must be one of: DRAFT, ACTIVE!", errs["status"])
	assert.Equal(t, "weights[Quiz] must be at most 100!", errs["weights[Quiz]"])

	errs = Struct(&sampleRequest{Title: "Go"})
	assert.Equal(t, "title must be at least 3 characters long!", errs["title"])

	assert.Empty(t, Struct(&sampleRequest{Title: "Go basics"}))
}

func TestBodyAndParams(t *testing.T) {
	app := fiber.New()
	app.Post("/courses/:course_id", Params("course_id"), Body[sampleRequest]("req"), func(c *fiber.Ctx) error {
		req := c.Locals("req").(*sampleRequest)
		assert.Equal(t, uint(12), ParamID(c, "course_id"))
		return c.SendString(req.Title)
	})

	send := func(path, body string) int {
		req := httptest.NewRequest("POST", path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, send("/courses/12", `{"title":"Go basics"}`))
	assert.Equal(t, fiber.StatusUnprocessableEntity, send("/courses/12", `{"title":""}`))
	assert.Equal(t, fiber.StatusBadRequest, send("/courses/12", `{"title":`))
	assert.Equal(t, fiber.StatusUnprocessableEntity, send("/courses/0", `{"title":"Go basics"}`))
}
