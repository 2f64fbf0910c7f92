package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/carelog/patient-records-api/audit"
	"github.com/carelog/patient-records-api/middleware"
	"github.com/carelog/patient-records-api/models"
	"github.com/carelog/patient-records-api/storage"
)

// PatientsHandler owns patient CRUD and listing.
type PatientsHandler struct {
	patients storage.PatientStore
	audit    *audit.Recorder
	log      zerolog.Logger
}

func NewPatientsHandler(patients storage.PatientStore, recorder *audit.Recorder, log zerolog.Logger) *PatientsHandler {
	return &PatientsHandler{patients: patients, audit: recorder, log: log}
}

// Register attaches the patient routes. The router is expected to carry the
// auth guard already.
func (h *PatientsHandler) Register(router fiber.Router) {
	router.Get("/", h.handleList)
	router.Post("/", h.handleCreate)
	router.Get("/:id", h.handleGet)
	router.Put("/:id", h.handleUpdate)
	router.Delete("/:id", h.handleDelete)
}

func (h *PatientsHandler) handleList(c *fiber.Ctx) error {
	params := storage.ListParams{
		Page:      c.QueryInt("page", 1),
		Limit:     c.QueryInt("limit", 10),
		Search:    c.Query("search"),
		SortBy:    c.Query("sortBy", "createdAt"),
		SortOrder: c.Query("sortOrder", "desc"),
	}

	page, err := h.patients.List(c.Context(), params)
	if err != nil {
		h.log.Error().Err(err).Msg("list patients failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot fetch patients"})
	}
	return c.JSON(page)
}

func (h *PatientsHandler) handleGet(c *fiber.Ctx) error {
	patient, err := h.patients.Get(c.Context(), c.Params("id"))
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidID):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid patient ID"})
		case errors.Is(err, storage.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "patient not found"})
		default:
			h.log.Error().Err(err).Msg("fetch patient failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot fetch patient"})
		}
	}
	return c.JSON(patient)
}

func (h *PatientsHandler) handleCreate(c *fiber.Ctx) error {
	var patient models.Patient
	if err := c.BodyParser(&patient); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot parse JSON"})
	}

	id, err := h.patients.Create(c.Context(), patient)
	if err != nil {
		h.log.Error().Err(err).Msg("create patient failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot create patient"})
	}

	h.recordMutation(c, audit.ActionPatientCreated, id)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"patient_id": id,
		"message":    "patient created successfully",
	})
}

func (h *PatientsHandler) handleUpdate(c *fiber.Ctx) error {
	id := c.Params("id")

	var patient models.Patient
	if err := c.BodyParser(&patient); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot parse JSON"})
	}

	if err := h.patients.Update(c.Context(), id, patient); err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidID):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid patient ID"})
		case errors.Is(err, storage.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "patient not found"})
		default:
			h.log.Error().Err(err).Msg("update patient failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot update patient"})
		}
	}

	h.recordMutation(c, audit.ActionPatientUpdated, id)
	return c.JSON(fiber.Map{"message": "patient updated successfully"})
}

func (h *PatientsHandler) handleDelete(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := h.patients.Delete(c.Context(), id); err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidID):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid patient ID"})
		case errors.Is(err, storage.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "patient not found"})
		default:
			h.log.Error().Err(err).Msg("delete patient failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot delete patient"})
		}
	}

	h.recordMutation(c, audit.ActionPatientDeleted, id)
	return c.JSON(fiber.Map{"message": "patient deleted successfully"})
}

func (h *PatientsHandler) recordMutation(c *fiber.Ctx, action, patientID string) {
	claims, _ := middleware.ClaimsFrom(c)
	h.audit.Record(audit.Entry{
		Action:    action,
		ActorID:   claims.UserID,
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Detail:    map[string]any{"patientId": patientID},
	})
}
