package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/penmark-edu/penmark-api/internal/handler"
	"github.com/penmark-edu/penmark-api/internal/middleware"
	"github.com/penmark-edu/penmark-api/internal/models"
	"github.com/penmark-edu/penmark-api/internal/repository"
	"github.com/penmark-edu/penmark-api/internal/service"
	"github.com/penmark-edu/penmark-api/pkg/gradeapi"
)

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func withTeacher(teacherID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(middleware.TeacherLocalKey, teacherID)
		return c.Next()
	}
}

type mockUploadService struct {
	submission models.Submission
	stored     []models.Submission
	failed     int
	err        error

	lastExamID    string
	lastStudentID string
	lastTeacherID string
}

func (m *mockUploadService) Upload(_ context.Context, examTemplateID, studentID, teacherID string, file *multipart.FileHeader) (models.Submission, error) {
	m.lastExamID = examTemplateID
	m.lastStudentID = studentID
	m.lastTeacherID = teacherID
	if m.err != nil {
		return models.Submission{}, m.err
	}
	return m.submission, nil
}

func (m *mockUploadService) UploadBatch(_ context.Context, examTemplateID, studentID, teacherID string, files []*multipart.FileHeader) ([]models.Submission, int, error) {
	m.lastExamID = examTemplateID
	m.lastStudentID = studentID
	m.lastTeacherID = teacherID
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.stored, m.failed, nil
}

type mockSubmissionRepo struct {
	submissions []models.Submission
}

func (m *mockSubmissionRepo) List(_ context.Context, _ repository.SubmissionFilter) ([]models.Submission, error) {
	return m.submissions, nil
}

func (m *mockSubmissionRepo) GetByID(_ context.Context, _ string) (models.Submission, error) {
	return models.Submission{}, nil
}

func (m *mockSubmissionRepo) Create(_ context.Context, _ *models.Submission) error { return nil }

func (m *mockSubmissionRepo) Update(_ context.Context, _ *models.Submission) error { return nil }

func newSubmissionApp(svc *mockUploadService) *fiber.App {
	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	app := fiber.New()
	group := app.Group("/api/v1/submissions", withTeacher("teacher-1"))
	handler.NewSubmissionHandler(svc, &mockSubmissionRepo{}, validate, logger).Register(group)
	return app
}

func multipartBody(t *testing.T, field string, names ...string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, name := range names {
		part, err := writer.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte{0x89, 0x50, 0x4E, 0x47})
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestSubmissionUploadSuccess(t *testing.T) {
	svc := &mockUploadService{submission: models.Submission{
		ID:       "submission-1",
		FileURL:  "https://cdn.example.com/scan.jpg",
		FileName: "scan.jpg",
		Status:   models.SubmissionStatusPending,
	}}
	app := newSubmissionApp(svc)

	examID := uuid.NewString()
	studentID := uuid.NewString()
	body, contentType := multipartBody(t, "file", "scan.jpg")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions/upload?assignmentId="+examID+"&studentId="+studentID, body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var response struct {
		Success bool                  `json:"success"`
		Data    gradeapi.UploadResult `json:"data"`
	}
	decodeResponse(t, resp, &response)

	require.True(t, response.Success)
	require.Equal(t, "submission-1", response.Data.SubmissionID)
	require.Equal(t, gradeapi.StatusPending, response.Data.Status)
	require.Equal(t, examID, svc.lastExamID)
	require.Equal(t, studentID, svc.lastStudentID)
	require.Equal(t, "teacher-1", svc.lastTeacherID)
}

func TestSubmissionUploadRequiresIdentifiers(t *testing.T) {
	app := newSubmissionApp(&mockUploadService{})

	body, contentType := multipartBody(t, "file", "scan.jpg")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/submissions/upload", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSubmissionUploadRequiresFile(t *testing.T) {
	app := newSubmissionApp(&mockUploadService{})

	req := httptest.NewRequest(http.MethodPost,
		"/api/v1/submissions/upload?assignmentId="+uuid.NewString()+"&studentId="+uuid.NewString(), nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSubmissionUploadErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
		message    string
	}{
		{name: "too_large", err: service.ErrFileTooLarge, statusCode: fiber.StatusRequestEntityTooLarge, message: "File exceeds 10 MB limit."},
		{name: "bad_type", err: service.ErrFileTypeNotAllowed, statusCode: fiber.StatusBadRequest, message: "Invalid file type. Accepted: JPEG, PNG, PDF, HEIC."},
		{name: "missing_exam", err: service.ErrExamNotFound, statusCode: fiber.StatusNotFound, message: "exam template not found"},
		{name: "missing_student", err: service.ErrStudentNotFound, statusCode: fiber.StatusNotFound, message: "student not found"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newSubmissionApp(&mockUploadService{err: tc.err})

			body, contentType := multipartBody(t, "file", "scan.jpg")
			req := httptest.NewRequest(http.MethodPost,
				"/api/v1/submissions/upload?assignmentId="+uuid.NewString()+"&studentId="+uuid.NewString(), body)
			req.Header.Set("Content-Type", contentType)

			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)

			var response struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
			}
			decodeResponse(t, resp, &response)
			require.False(t, response.Success)
			require.Equal(t, tc.message, response.Message)
		})
	}
}

func TestSubmissionBatchUpload(t *testing.T) {
	svc := &mockUploadService{
		stored: []models.Submission{
			{ID: "s-1", FileName: "page1.jpg", Status: models.SubmissionStatusPending},
			{ID: "s-2", FileName: "page2.jpg", Status: models.SubmissionStatusPending},
		},
		failed: 1,
	}
	app := newSubmissionApp(svc)

	body, contentType := multipartBody(t, "files", "page1.jpg", "page2.jpg", "notes.txt")
	req := httptest.NewRequest(http.MethodPost,
		"/api/v1/submissions/upload/batch?assignmentId="+uuid.NewString()+"&studentId="+uuid.NewString(), body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var response struct {
		Success bool                       `json:"success"`
		Data    gradeapi.BatchUploadResult `json:"data"`
	}
	decodeResponse(t, resp, &response)

	require.True(t, response.Success)
	require.Equal(t, 2, response.Data.TotalUploaded)
	require.Equal(t, 1, response.Data.TotalFailed)
}
