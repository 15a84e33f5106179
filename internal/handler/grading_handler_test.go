package handler_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/penmark-edu/penmark-api/internal/handler"
	"github.com/penmark-edu/penmark-api/internal/models"
	"github.com/penmark-edu/penmark-api/internal/service"
	"github.com/penmark-edu/penmark-api/pkg/gradeapi"
)

type mockGradingService struct {
	result models.GradingResult
	err    error
	graded int
}

func (m *mockGradingService) Grade(_ context.Context, submissionID string) (models.GradingResult, error) {
	m.graded++
	if m.err != nil {
		return models.GradingResult{}, m.err
	}
	return m.result, nil
}

func (m *mockGradingService) GetBySubmission(_ context.Context, submissionID string) (models.GradingResult, error) {
	if m.err != nil {
		return models.GradingResult{}, m.err
	}
	return m.result, nil
}

func newGradingApp(svc *mockGradingService) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/submissions", withTeacher("teacher-1"))
	handler.NewGradingHandler(svc, zerolog.New(io.Discard)).Register(group)
	return app
}

func TestGradeSubmission(t *testing.T) {
	svc := &mockGradingService{result: models.GradingResult{
		ID:              "grade-1",
		SubmissionID:    "submission-1",
		Status:          models.SubmissionStatusCompleted,
		AIScore:         82.5,
		FinalScore:      82.5,
		ConfidenceScore: 91,
		QuestionScores:  "[]",
	}}
	app := newGradingApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions/submission-1/grade", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Success bool                   `json:"success"`
		Data    gradeapi.GradingResult `json:"data"`
	}
	decodeResponse(t, resp, &response)

	require.True(t, response.Success)
	require.Equal(t, "grade-1", response.Data.GradeID)
	require.InDelta(t, 82.5, response.Data.AIScore, 0.001)
	require.Equal(t, 1, svc.graded)
}

func TestGradeSubmissionNotFound(t *testing.T) {
	app := newGradingApp(&mockGradingService{err: service.ErrSubmissionNotFound})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions/missing/grade", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestGradeSubmissionEmptyRubric(t *testing.T) {
	app := newGradingApp(&mockGradingService{err: service.ErrEmptyRubric})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions/submission-1/grade", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestFetchGradingResult(t *testing.T) {
	svc := &mockGradingService{result: models.GradingResult{
		ID:           "grade-1",
		SubmissionID: "submission-1",
		Status:       models.SubmissionStatusCompleted,
		NeedsReview:  true,
	}}
	app := newGradingApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/submissions/submission-1/grade", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Data gradeapi.GradingResult `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.True(t, response.Data.NeedsReview)
	require.Zero(t, svc.graded)
}
