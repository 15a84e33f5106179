package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/penmark-edu/penmark-api/internal/dto"
	"github.com/penmark-edu/penmark-api/internal/service"
	"github.com/penmark-edu/penmark-api/internal/utils"
)

// GradingHandler triggers grading runs and exposes their results.
type GradingHandler struct {
	service service.GradingService
	logger  zerolog.Logger
}

// NewGradingHandler builds a grading handler instance.
func NewGradingHandler(service service.GradingService, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		service: service,
		logger:  logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register attaches grading routes to the submissions router group.
func (h *GradingHandler) Register(router fiber.Router) {
	router.Post("/:id/grade", h.grade)
	router.Get("/:id/grade", h.result)
}

func (h *GradingHandler) grade(c *fiber.Ctx) error {
	submissionID := c.Params("id")

	result, err := h.service.Grade(c.Context(), submissionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission graded", dto.NewGradingResultResponse(result))
}

func (h *GradingHandler) result(c *fiber.Ctx) error {
	submissionID := c.Params("id")

	result, err := h.service.GetBySubmission(c.Context(), submissionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "grading result retrieved", dto.NewGradingResultResponse(result))
}

func (h *GradingHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrSubmissionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "submission not found")
	case errors.Is(err, service.ErrEmptyRubric):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, "exam template has no rubric questions")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("grading request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "grading failed")
	}
}
