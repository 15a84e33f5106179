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

// ThresholdHandler serves the per-teacher review threshold settings.
type ThresholdHandler struct {
	service   service.ThresholdService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewThresholdHandler builds a threshold handler instance.
func NewThresholdHandler(service service.ThresholdService, validator *validator.Validate, logger zerolog.Logger) *ThresholdHandler {
	return &ThresholdHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "threshold_handler").Logger(),
	}
}

// Register attaches threshold routes to the teachers router group.
func (h *ThresholdHandler) Register(router fiber.Router) {
	router.Get("/me/grading-threshold", h.get)
	router.Put("/me/grading-threshold", h.update)
}

func (h *ThresholdHandler) get(c *fiber.Ctx) error {
	teacherID := middleware.TeacherIDFromContext(c)

	threshold, err := h.service.Get(c.Context(), teacherID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to resolve threshold")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to resolve threshold")
	}

	return utils.SendSuccess(c, "threshold retrieved", threshold)
}

func (h *ThresholdHandler) update(c *fiber.Ctx) error {
	var payload dto.ThresholdUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "threshold must be between 0 and 1")
	}

	teacherID := middleware.TeacherIDFromContext(c)
	threshold, err := h.service.Update(c.Context(), teacherID, &payload.Threshold)
	if err != nil {
		if errors.Is(err, service.ErrThresholdOutOfRange) {
			return utils.SendError(c, fiber.StatusBadRequest, "threshold must be between 0 and 1")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to update threshold")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to update threshold")
	}

	return utils.SendSuccess(c, "threshold updated", threshold)
}
