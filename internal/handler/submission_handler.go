package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/penmark-edu/penmark-api/internal/dto"
	"github.com/penmark-edu/penmark-api/internal/middleware"
	"github.com/penmark-edu/penmark-api/internal/repository"
	"github.com/penmark-edu/penmark-api/internal/service"
	"github.com/penmark-edu/penmark-api/internal/utils"
)

// User-facing rejection messages for invalid uploads. The client surfaces
// these verbatim, so the wording is part of the contract.
const (
	msgInvalidFileType = "Invalid file type. Accepted: JPEG, PNG, PDF, HEIC."
	msgFileTooLarge    = "File exceeds 10 MB limit."
)

// SubmissionHandler manages submission upload and listing endpoints.
type SubmissionHandler struct {
	uploads     service.UploadService
	submissions repository.SubmissionRepository
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(uploads service.UploadService, submissions repository.SubmissionRepository, validator *validator.Validate, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		uploads:     uploads,
		submissions: submissions,
		validator:   validator,
		logger:      logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("/upload", h.upload)
	router.Post("/upload/batch", h.uploadBatch)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	filter := repository.SubmissionFilter{}
	if examTemplateID := c.Query("assignmentId"); examTemplateID != "" {
		filter.ExamTemplateID = &examTemplateID
	}
	if studentID := c.Query("studentId"); studentID != "" {
		filter.StudentID = &studentID
	}
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}

	submissions, err := h.submissions.List(c.Context(), filter)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list submissions")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list submissions")
	}

	results := make([]interface{}, 0, len(submissions))
	for _, submission := range submissions {
		results = append(results, dto.NewUploadResult(submission))
	}

	return utils.SendSuccess(c, "submissions retrieved", results)
}

func (h *SubmissionHandler) upload(c *fiber.Ctx) error {
	params, err := h.parseParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	teacherID := middleware.TeacherIDFromContext(c)
	submission, err := h.uploads.Upload(c.Context(), params.AssignmentID, params.StudentID, teacherID, file)
	if err != nil {
		return h.handleUploadError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission uploaded", dto.NewUploadResult(submission))
}

func (h *SubmissionHandler) uploadBatch(c *fiber.Ctx) error {
	params, err := h.parseParams(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "at least one file is required")
	}

	teacherID := middleware.TeacherIDFromContext(c)
	stored, failed, err := h.uploads.UploadBatch(c.Context(), params.AssignmentID, params.StudentID, teacherID, form.File["files"])
	if err != nil {
		return h.handleUploadError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "batch upload processed", dto.NewBatchUploadResult(stored, failed))
}

func (h *SubmissionHandler) parseParams(c *fiber.Ctx) (dto.UploadParams, error) {
	var params dto.UploadParams
	if err := c.QueryParser(&params); err != nil {
		return dto.UploadParams{}, errors.New("invalid query parameters")
	}
	if err := h.validator.Struct(params); err != nil {
		return dto.UploadParams{}, errors.New("assignmentId and studentId are required")
	}
	return params, nil
}

func (h *SubmissionHandler) handleUploadError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrFileRequired):
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	case errors.Is(err, service.ErrFileTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, msgFileTooLarge)
	case errors.Is(err, service.ErrFileTypeNotAllowed):
		return utils.SendError(c, fiber.StatusBadRequest, msgInvalidFileType)
	case errors.Is(err, service.ErrExamNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "exam template not found")
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("upload failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "upload failed")
	}
}
