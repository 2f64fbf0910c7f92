package handlers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carelog/patient-records-api/audit"
	"github.com/carelog/patient-records-api/middleware"
	"github.com/carelog/patient-records-api/storage"
)

// AdminHandler serves the admin-only management surface. Every route here is
// expected to sit behind both the auth guard and the admin role guard.
type AdminHandler struct {
	users         storage.UserStore
	patients      storage.PatientStore
	documents     storage.DocumentStore
	auditLogs     storage.AuditStore
	audit         *audit.Recorder
	backupDir     string
	retentionDays int
	startedAt     time.Time
	log           zerolog.Logger
}

func NewAdminHandler(
	users storage.UserStore,
	patients storage.PatientStore,
	documents storage.DocumentStore,
	auditLogs storage.AuditStore,
	recorder *audit.Recorder,
	backupDir string,
	retentionDays int,
	log zerolog.Logger,
) *AdminHandler {
	return &AdminHandler{
		users:         users,
		patients:      patients,
		documents:     documents,
		auditLogs:     auditLogs,
		audit:         recorder,
		backupDir:     backupDir,
		retentionDays: retentionDays,
		startedAt:     time.Now(),
		log:           log,
	}
}

func (h *AdminHandler) Register(router fiber.Router) {
	router.Get("/users", h.handleListUsers)
	router.Get("/audit-logs", h.handleListAuditLogs)
	router.Get("/system-stats", h.handleSystemStats)
	router.Post("/backup", h.handleBackup)
	router.Post("/maintenance", h.handleMaintenance)
}

func (h *AdminHandler) handleListUsers(c *fiber.Ctx) error {
	users, err := h.users.List(c.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("list users failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot fetch users"})
	}
	return c.JSON(fiber.Map{"users": users, "total": len(users)})
}

func (h *AdminHandler) handleListAuditLogs(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)

	logs, total, err := h.auditLogs.List(c.Context(), page, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("list audit logs failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot fetch audit logs"})
	}
	return c.JSON(fiber.Map{
		"logs":  logs,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func (h *AdminHandler) handleSystemStats(c *fiber.Ctx) error {
	userCount, err := h.users.Count(c.Context())
	if err != nil {
		return h.statsFail(c, "users", err)
	}
	patientCount, err := h.patients.Count(c.Context())
	if err != nil {
		return h.statsFail(c, "patients", err)
	}
	documentCount, err := h.documents.Count(c.Context())
	if err != nil {
		return h.statsFail(c, "documents", err)
	}
	auditCount, err := h.auditLogs.Count(c.Context())
	if err != nil {
		return h.statsFail(c, "audit logs", err)
	}

	return c.JSON(fiber.Map{
		"users":         userCount,
		"patients":      patientCount,
		"documents":     documentCount,
		"auditLogs":     auditCount,
		"uptimeSeconds": int64(time.Since(h.startedAt).Seconds()),
	})
}

func (h *AdminHandler) statsFail(c *fiber.Ctx, collection string, err error) error {
	h.log.Error().Err(err).Str("collection", collection).Msg("system stats query failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot compute system stats"})
}

// handleBackup snapshots the patient collection to a JSON file under the
// backup directory. The snapshot is whole-collection and unencrypted.
func (h *AdminHandler) handleBackup(c *fiber.Ctx) error {
	patients, err := h.patients.All(c.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("backup read failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot create backup"})
	}

	if err := os.MkdirAll(h.backupDir, 0o755); err != nil {
		h.log.Error().Err(err).Msg("create backup dir failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot create backup"})
	}

	name := fmt.Sprintf("patients_%s_%s.json", time.Now().UTC().Format("20060102T150405"), uuid.NewString())
	path := filepath.Join(h.backupDir, name)

	data, err := json.MarshalIndent(fiber.Map{
		"createdAt": time.Now().UTC(),
		"count":     len(patients),
		"patients":  patients,
	}, "", "  ")
	if err != nil {
		h.log.Error().Err(err).Msg("encode backup failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot create backup"})
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		h.log.Error().Err(err).Msg("write backup failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot create backup"})
	}

	h.recordAdminAction(c, audit.ActionBackupCreated, map[string]any{
		"file":  name,
		"count": len(patients),
	})
	return c.JSON(fiber.Map{
		"message": "backup created successfully",
		"file":    name,
		"count":   len(patients),
	})
}

// handleMaintenance purges audit entries older than the retention window. The
// request body may override the configured default.
func (h *AdminHandler) handleMaintenance(c *fiber.Ctx) error {
	body := struct {
		RetentionDays int `json:"retentionDays"`
	}{RetentionDays: h.retentionDays}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot parse JSON"})
		}
	}
	if body.RetentionDays <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "retentionDays must be positive"})
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -body.RetentionDays)
	purged, err := h.auditLogs.PurgeOlderThan(c.Context(), cutoff)
	if err != nil {
		h.log.Error().Err(err).Msg("maintenance purge failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot run maintenance"})
	}

	h.recordAdminAction(c, audit.ActionMaintenanceRun, map[string]any{
		"retentionDays": body.RetentionDays,
		"purged":        purged,
	})
	return c.JSON(fiber.Map{
		"message":       "maintenance completed",
		"purged":        purged,
		"retentionDays": body.RetentionDays,
	})
}

func (h *AdminHandler) recordAdminAction(c *fiber.Ctx, action string, detail map[string]any) {
	claims, _ := middleware.ClaimsFrom(c)
	h.audit.Record(audit.Entry{
		Action:    action,
		ActorID:   claims.UserID,
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Detail:    detail,
	})
}
