package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/carelog/patient-records-api/audit"
	"github.com/carelog/patient-records-api/auth"
	"github.com/carelog/patient-records-api/models"
	"github.com/carelog/patient-records-api/storage"
)

// AuthHandler owns the register and login endpoints.
type AuthHandler struct {
	users         storage.UserStore
	notifications storage.NotificationStore
	tokens        *auth.TokenManager
	audit         *audit.Recorder
	log           zerolog.Logger
}

func NewAuthHandler(users storage.UserStore, notifications storage.NotificationStore, tokens *auth.TokenManager, recorder *audit.Recorder, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{users: users, notifications: notifications, tokens: tokens, audit: recorder, log: log}
}

// Register attaches the auth routes. These are the only unauthenticated
// mutating endpoints.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/register", h.handleRegister)
	router.Post("/login", h.handleLogin)
}

func (h *AuthHandler) handleRegister(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Role     string `json:"role"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot parse JSON"})
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name, email, and password are required"})
	}
	if req.Role == "" {
		req.Role = models.RoleStaff
	}
	if !models.ValidRole(req.Role) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid role"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot hash password"})
	}

	now := time.Now().UTC()
	user := models.User{
		Email:       req.Email,
		Name:        req.Name,
		Password:    string(hashed),
		Role:        req.Role,
		Active:      true,
		CreatedAt:   now,
		LastLoginAt: &now,
	}

	created, err := h.users.Create(c.Context(), user)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "email already exists"})
		}
		h.log.Error().Err(err).Str("email", req.Email).Msg("create user failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot create user"})
	}

	token, err := h.tokens.Issue(created)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot generate token"})
	}

	h.audit.Record(audit.Entry{
		Action:    audit.ActionUserRegistered,
		ActorID:   created.ID.Hex(),
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Detail:    map[string]any{"email": created.Email, "role": created.Role},
	})

	welcome := models.Notification{
		UserID:    created.ID,
		Message:   "Welcome, " + created.Name + ". Your account is ready.",
		CreatedAt: now,
	}
	if err := h.notifications.Insert(c.Context(), welcome); err != nil {
		h.log.Warn().Err(err).Str("user_id", created.ID.Hex()).Msg("insert welcome notification failed")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"token": token, "user": created})
}

func (h *AuthHandler) handleLogin(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot parse JSON"})
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email and password are required"})
	}

	user, err := h.users.FindByEmail(c.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
		}
		h.log.Error().Err(err).Msg("fetch user failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot fetch user"})
	}
	if !user.Active {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "account disabled"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}

	now := time.Now().UTC()
	if err := h.users.TouchLastLogin(c.Context(), user.ID.Hex(), now); err != nil {
		h.log.Warn().Err(err).Str("user_id", user.ID.Hex()).Msg("update last login failed")
	}
	user.LastLoginAt = &now

	token, err := h.tokens.Issue(user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "cannot generate token"})
	}

	return c.JSON(fiber.Map{"token": token, "user": user})
}
