package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/carelog/patient-records-api/storage"
)

// maxAdvancedResults caps advanced search output; there is no pagination on
// this endpoint.
const maxAdvancedResults = 100

// SearchHandler owns the structured advanced-search endpoint.
type SearchHandler struct {
	patients storage.PatientStore
	log      zerolog.Logger
}

func NewSearchHandler(patients storage.PatientStore, log zerolog.Logger) *SearchHandler {
	return &SearchHandler{patients: patients, log: log}
}

func (h *SearchHandler) Register(router fiber.Router) {
	router.Post("/advanced", h.handleAdvanced)
}

func (h *SearchHandler) handleAdvanced(c *fiber.Ctx) error {
	var criteria storage.AdvancedCriteria
	if err := c.BodyParser(&criteria); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot parse JSON"})
	}

	patients, err := h.patients.Search(c.Context(), criteria, maxAdvancedResults)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidDateFormat) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid date format"})
		}
		h.log.Error().Err(err).Msg("advanced search failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot search patients"})
	}

	return c.JSON(fiber.Map{
		"patients": patients,
		"total":    len(patients),
		"query":    criteria,
	})
}
