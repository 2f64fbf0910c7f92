package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/carelog/patient-records-api/middleware"
	"github.com/carelog/patient-records-api/storage"
)

// NotificationsHandler serves the authenticated user's notifications.
type NotificationsHandler struct {
	notifications storage.NotificationStore
	log           zerolog.Logger
}

func NewNotificationsHandler(notifications storage.NotificationStore, log zerolog.Logger) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications, log: log}
}

func (h *NotificationsHandler) Register(router fiber.Router) {
	router.Get("/", h.handleList)
	router.Put("/:id/read", h.handleMarkRead)
}

func (h *NotificationsHandler) handleList(c *fiber.Ctx) error {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}

	notifications, err := h.notifications.ListByUser(c.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidID) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user ID"})
		}
		h.log.Error().Err(err).Msg("list notifications failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot fetch notifications"})
	}
	return c.JSON(fiber.Map{"notifications": notifications})
}

func (h *NotificationsHandler) handleMarkRead(c *fiber.Ctx) error {
	if err := h.notifications.MarkRead(c.Context(), c.Params("id")); err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidID):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid notification ID"})
		case errors.Is(err, storage.ErrNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "notification not found"})
		default:
			h.log.Error().Err(err).Msg("mark notification read failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot update notification"})
		}
	}
	return c.JSON(fiber.Map{"message": "notification marked as read"})
}
