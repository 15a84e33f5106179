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
	"github.com/penmark-edu/penmark-api/pkg/gradeapi"
)

// ReviewHandler serves the teacher review queue.
type ReviewHandler struct {
	service   service.ReviewService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewReviewHandler builds a review handler instance.
func NewReviewHandler(service service.ReviewService, validator *validator.Validate, logger zerolog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "review_handler").Logger(),
	}
}

// Register attaches review routes to the grading router group.
func (h *ReviewHandler) Register(router fiber.Router) {
	router.Get("/reviews/pending", h.pending)
	router.Patch("/:id/review", h.review)
}

func (h *ReviewHandler) pending(c *fiber.Ctx) error {
	teacherID := middleware.TeacherIDFromContext(c)

	results, err := h.service.ListPending(c.Context(), teacherID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list pending reviews")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list pending reviews")
	}

	return utils.SendSuccess(c, "pending reviews retrieved", dto.NewGradingResultResponseSlice(results))
}

func (h *ReviewHandler) review(c *fiber.Ctx) error {
	gradeID := c.Params("id")

	var payload dto.ReviewRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "finalScore must be between 0 and 100")
	}

	teacherID := middleware.TeacherIDFromContext(c)
	result, err := h.service.SubmitReview(c.Context(), gradeID, teacherID, payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrGradingNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "grading result not found")
		case errors.Is(err, service.ErrAlreadyReviewed):
			return utils.SendError(c, fiber.StatusConflict, "grading result already reviewed")
		case errors.Is(err, gradeapi.ErrMalformedQuestionScores):
			return utils.SendError(c, fiber.StatusBadRequest, "questionScores must be a JSON-encoded score array")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to submit review")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to submit review")
		}
	}

	return utils.SendSuccess(c, "review submitted", dto.NewGradingResultResponse(result))
}
