package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/penmark-edu/penmark-api/internal/middleware"
	"github.com/penmark-edu/penmark-api/internal/models"
	"github.com/penmark-edu/penmark-api/internal/service"
	"github.com/penmark-edu/penmark-api/internal/utils"
)

// SeedHandler exposes tooling endpoints for seeding demo data.
type SeedHandler struct {
	service service.SeedService
	logger  zerolog.Logger
}

// NewSeedHandler constructs a seed handler.
func NewSeedHandler(service service.SeedService, logger zerolog.Logger) *SeedHandler {
	return &SeedHandler{
		service: service,
		logger:  logger.With().Str("component", "seed_handler").Logger(),
	}
}

// Register wires seed routes.
func (h *SeedHandler) Register(router fiber.Router) {
	router.Post("/roster", h.roster)
	router.Post("/exams", h.exams)
}

type seedRosterRequest struct {
	Students []models.Student `json:"students"`
}

type seedExamsRequest struct {
	Templates []models.ExamTemplate `json:"templates"`
}

func (h *SeedHandler) roster(c *fiber.Ctx) error {
	token := c.Get("X-Seed-Token")
	var payload seedRosterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	created, err := h.service.SeedRoster(c.Context(), token, payload.Students)
	if err != nil {
		return h.seedError(c, err)
	}

	return utils.SendSuccess(c, "roster seeded", fiber.Map{"created": created})
}

func (h *SeedHandler) exams(c *fiber.Ctx) error {
	token := c.Get("X-Seed-Token")
	var payload seedExamsRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	teacherID := middleware.TeacherIDFromContext(c)
	created, err := h.service.SeedExamTemplates(c.Context(), token, teacherID, payload.Templates)
	if err != nil {
		return h.seedError(c, err)
	}

	return utils.SendSuccess(c, "exam templates seeded", fiber.Map{"created": created})
}

func (h *SeedHandler) seedError(c *fiber.Ctx, err error) error {
	switch err {
	case service.ErrSeedDisabled:
		return utils.SendError(c, fiber.StatusForbidden, "seeding disabled")
	case service.ErrSeedUnauthorized:
		return utils.SendError(c, fiber.StatusForbidden, "invalid token")
	default:
		h.logger.Error().Err(err).Msg("seed operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "seed operation failed")
	}
}
