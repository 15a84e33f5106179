package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/penmark-edu/penmark-api/internal/dto"
	"github.com/penmark-edu/penmark-api/internal/middleware"
	"github.com/penmark-edu/penmark-api/internal/service"
	"github.com/penmark-edu/penmark-api/internal/utils"
)

// RosterHandler manages students and exam templates.
type RosterHandler struct {
	service   service.RosterService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewRosterHandler builds a roster handler instance.
func NewRosterHandler(service service.RosterService, validator *validator.Validate, logger zerolog.Logger) *RosterHandler {
	return &RosterHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "roster_handler").Logger(),
	}
}

// RegisterStudents attaches student routes.
func (h *RosterHandler) RegisterStudents(router fiber.Router) {
	router.Get("", h.listStudents)
	router.Post("", h.createStudent)
}

// RegisterExams attaches exam template routes.
func (h *RosterHandler) RegisterExams(router fiber.Router) {
	router.Get("", h.listExams)
	router.Post("", h.createExam)
	router.Get("/:id", h.getExam)
}

func (h *RosterHandler) listStudents(c *fiber.Ctx) error {
	students, err := h.service.ListStudents(c.Context())
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list students")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list students")
	}

	return utils.SendSuccess(c, "students retrieved", dto.NewStudentResponseSlice(students))
}

func (h *RosterHandler) createStudent(c *fiber.Ctx) error {
	var payload dto.StudentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "name and a valid email are required")
	}

	student, err := h.service.CreateStudent(c.Context(), payload)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to create student")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to create student")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "student created", dto.NewStudentResponse(student))
}

func (h *RosterHandler) listExams(c *fiber.Ctx) error {
	teacherID := middleware.TeacherIDFromContext(c)

	templates, err := h.service.ListExamTemplates(c.Context(), teacherID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list exam templates")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list exam templates")
	}

	return utils.SendSuccess(c, "exam templates retrieved", dto.NewExamTemplateResponseSlice(templates))
}

func (h *RosterHandler) getExam(c *fiber.Ctx) error {
	template, err := h.service.GetExamTemplate(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, service.ErrExamTemplateNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "exam template not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load exam template")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load exam template")
	}

	return utils.SendSuccess(c, "exam template retrieved", dto.NewExamTemplateResponse(template))
}

func (h *RosterHandler) createExam(c *fiber.Ctx) error {
	var payload dto.ExamTemplateCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "title and a non-empty rubric are required")
	}

	teacherID := middleware.TeacherIDFromContext(c)
	template, err := h.service.CreateExamTemplate(c.Context(), teacherID, payload)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to create exam template")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to create exam template")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "exam template created", dto.NewExamTemplateResponse(template))
}
