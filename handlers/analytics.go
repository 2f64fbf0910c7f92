package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/carelog/patient-records-api/storage"
)

// AnalyticsHandler serves the read-only dashboard reports.
type AnalyticsHandler struct {
	analytics storage.AnalyticsStore
	log       zerolog.Logger
}

func NewAnalyticsHandler(analytics storage.AnalyticsStore, log zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, log: log}
}

func (h *AnalyticsHandler) Register(router fiber.Router) {
	router.Get("/dashboard", h.handleDashboard)
	router.Get("/gender", h.handleGender)
	router.Get("/age", h.handleAge)
	router.Get("/diseases", h.handleDiseases)
	router.Get("/patients-over-time", h.handlePatientsOverTime)
}

func (h *AnalyticsHandler) handleDashboard(c *fiber.Ctx) error {
	stats, err := h.analytics.Dashboard(c.Context())
	if err != nil {
		return h.fail(c, "dashboard", err)
	}
	return c.JSON(stats)
}

func (h *AnalyticsHandler) handleGender(c *fiber.Ctx) error {
	rows, err := h.analytics.GenderDistribution(c.Context())
	if err != nil {
		return h.fail(c, "gender distribution", err)
	}
	return c.JSON(rows)
}

func (h *AnalyticsHandler) handleAge(c *fiber.Ctx) error {
	rows, err := h.analytics.AgeDistribution(c.Context())
	if err != nil {
		return h.fail(c, "age distribution", err)
	}
	return c.JSON(rows)
}

func (h *AnalyticsHandler) handleDiseases(c *fiber.Ctx) error {
	rows, err := h.analytics.DiseaseDistribution(c.Context())
	if err != nil {
		return h.fail(c, "disease distribution", err)
	}
	return c.JSON(rows)
}

func (h *AnalyticsHandler) handlePatientsOverTime(c *fiber.Ctx) error {
	rows, err := h.analytics.PatientsOverTime(c.Context())
	if err != nil {
		return h.fail(c, "patients over time", err)
	}
	return c.JSON(rows)
}

func (h *AnalyticsHandler) fail(c *fiber.Ctx, report string, err error) error {
	h.log.Error().Err(err).Str("report", report).Msg("analytics query failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot compute report"})
}
