package handlers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/carelog/patient-records-api/audit"
	"github.com/carelog/patient-records-api/middleware"
	"github.com/carelog/patient-records-api/models"
	"github.com/carelog/patient-records-api/storage"
)

// allowedExtensions is the upload allow-list. Anything else is rejected
// before touching disk. There is no size cap or content sniffing.
var allowedExtensions = map[string]bool{
	".txt":  true,
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".doc":  true,
	".docx": true,
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// UploadsHandler stores patient document files and their metadata.
type UploadsHandler struct {
	patients  storage.PatientStore
	documents storage.DocumentStore
	audit     *audit.Recorder
	uploadDir string
	log       zerolog.Logger
}

func NewUploadsHandler(patients storage.PatientStore, documents storage.DocumentStore, recorder *audit.Recorder, uploadDir string, log zerolog.Logger) *UploadsHandler {
	return &UploadsHandler{
		patients:  patients,
		documents: documents,
		audit:     recorder,
		uploadDir: uploadDir,
		log:       log,
	}
}

// Register attaches the upload route and the per-patient document listing.
// Both routers are expected to carry the auth guard already.
func (h *UploadsHandler) Register(upload fiber.Router, patients fiber.Router) {
	upload.Post("/patient-document", h.handleUpload)
	patients.Get("/:id/documents", h.handleListDocuments)
}

func (h *UploadsHandler) handleUpload(c *fiber.Ctx) error {
	patientID := c.FormValue("patientId")
	if patientID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "patientId is required"})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}
	if strings.TrimSpace(file.Filename) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "filename is required"})
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unsupported file type"})
	}

	patient, err := h.patients.Get(c.Context(), patientID)
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

	stored := fmt.Sprintf("%s_%d_%s", patientID, time.Now().UnixNano(), sanitizeFilename(file.Filename))
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		h.log.Error().Err(err).Msg("create upload dir failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot store file"})
	}
	if err := c.SaveFile(file, filepath.Join(h.uploadDir, stored)); err != nil {
		h.log.Error().Err(err).Msg("save file failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot store file"})
	}

	claims, _ := middleware.ClaimsFrom(c)
	doc := models.PatientDocument{
		PatientID:    patient.ID,
		UploadedBy:   claims.UserID,
		FileName:     stored,
		OriginalName: file.Filename,
		Size:         file.Size,
		FileType:     strings.TrimPrefix(ext, "."),
		CreatedAt:    time.Now().UTC(),
	}
	saved, err := h.documents.Insert(c.Context(), doc)
	if err != nil {
		h.log.Error().Err(err).Msg("insert document metadata failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot store document"})
	}

	h.audit.Record(audit.Entry{
		Action:    audit.ActionDocumentUploaded,
		ActorID:   claims.UserID,
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Detail:    map[string]any{"patientId": patientID, "filename": stored, "size": file.Size},
	})

	return c.JSON(fiber.Map{"filename": stored, "document": saved})
}

func (h *UploadsHandler) handleListDocuments(c *fiber.Ctx) error {
	docs, err := h.documents.ListByPatient(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, storage.ErrInvalidID) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid patient ID"})
		}
		h.log.Error().Err(err).Msg("list documents failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot fetch documents"})
	}
	return c.JSON(fiber.Map{"documents": docs})
}

func sanitizeFilename(name string) string {
	return unsafeFileChars.ReplaceAllString(filepath.Base(name), "_")
}
