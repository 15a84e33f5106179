package handler_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/penmark-edu/penmark-api/internal/handler"
	"github.com/penmark-edu/penmark-api/internal/models"
	"github.com/penmark-edu/penmark-api/internal/service"
)

type mockSeedService struct {
	rosterErr    error
	examsErr     error
	created      int64
	lastToken    string
	lastStudents []models.Student
}

func (m *mockSeedService) SeedRoster(_ context.Context, token string, students []models.Student) (int64, error) {
	m.lastToken = token
	m.lastStudents = students
	if m.rosterErr != nil {
		return 0, m.rosterErr
	}
	return m.created, nil
}

func (m *mockSeedService) SeedExamTemplates(_ context.Context, token, teacherID string, templates []models.ExamTemplate) (int64, error) {
	m.lastToken = token
	if m.examsErr != nil {
		return 0, m.examsErr
	}
	return m.created, nil
}

func newSeedApp(svc *mockSeedService) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/seed", withTeacher("teacher-1"))
	handler.NewSeedHandler(svc, zerolog.New(io.Discard)).Register(group)
	return app
}

func TestSeedRosterSuccess(t *testing.T) {
	svc := &mockSeedService{created: 2}
	app := newSeedApp(svc)

	body := `{"students":[{"name":"Maya Chen","email":"maya@example.com"},{"name":"Alex Rivera","email":"alex@example.com"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/seed/roster", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Seed-Token", "secret")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "secret", svc.lastToken)
	require.Len(t, svc.lastStudents, 2)
}

func TestSeedRosterForbidden(t *testing.T) {
	app := newSeedApp(&mockSeedService{rosterErr: service.ErrSeedUnauthorized})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/seed/roster", strings.NewReader(`{"students":[]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Seed-Token", "wrong")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestSeedExamsDisabled(t *testing.T) {
	app := newSeedApp(&mockSeedService{examsErr: service.ErrSeedDisabled})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/seed/exams", strings.NewReader(`{"templates":[]}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
