package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/carelog/patient-records-api/audit"
	"github.com/carelog/patient-records-api/auth"
	"github.com/carelog/patient-records-api/config"
	"github.com/carelog/patient-records-api/database"
	"github.com/carelog/patient-records-api/handlers"
	"github.com/carelog/patient-records-api/middleware"
	"github.com/carelog/patient-records-api/models"
	"github.com/carelog/patient-records-api/storage/mongodb"
)

func main() {
	// A missing .env is fine; config falls back to the environment.
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := database.Connect(ctx, cfg.MongoURI, cfg.DatabaseName)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	users := mongodb.NewUserStore(db)
	patients := mongodb.NewPatientStore(db)
	analytics := mongodb.NewAnalyticsStore(db)
	auditLogs := mongodb.NewAuditStore(db)
	documents := mongodb.NewDocumentStore(db)
	notifications := mongodb.NewNotificationStore(db)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL())
	recorder := audit.NewRecorder(auditLogs, log)

	app := fiber.New(fiber.Config{
		AppName:      "patient-records-api",
		ErrorHandler: errorHandler(log),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: "GET,POST,PUT,DELETE",
		AllowHeaders: "Content-Type,Authorization",
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: cfg.RateLimitWindow(),
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "too many requests"})
		},
	}))
	app.Use(middleware.Logger(log))

	api := app.Group("/api")
	handlers.NewHealthHandler(database.NewHealth(db), log).Register(api)
	handlers.NewAuthHandler(users, notifications, tokens, recorder, log).Register(api.Group("/auth"))

	authGuard := middleware.RequireAuth(tokens)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	patientsGroup := api.Group("/patients", authGuard)
	handlers.NewPatientsHandler(patients, recorder, log).Register(patientsGroup)
	handlers.NewSearchHandler(patients, log).Register(api.Group("/search", authGuard))
	handlers.NewAnalyticsHandler(analytics, log).Register(api.Group("/analytics", authGuard))
	handlers.NewUploadsHandler(patients, documents, recorder, cfg.UploadDir, log).
		Register(api.Group("/upload", authGuard), patientsGroup)
	handlers.NewNotificationsHandler(notifications, log).Register(api.Group("/notifications", authGuard))
	handlers.NewAdminHandler(users, patients, documents, auditLogs, recorder,
		cfg.BackupDir, cfg.AuditRetentionDays, log).
		Register(api.Group("/admin", authGuard, adminOnly))

	go func() {
		log.Info().Str("address", cfg.HTTPAddress()).Msg("server starting")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		log.Error().Err(err).Msg("shutdown http server")
	}

	// Let in-flight audit writes drain before the client goes away.
	recorder.Wait()

	disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer disconnectCancel()
	if err := db.Client().Disconnect(disconnectCtx); err != nil {
		log.Error().Err(err).Msg("disconnect database")
	}
	log.Info().Msg("server stopped")
}

// errorHandler keeps unhandled fiber errors in the same JSON shape the
// handlers use.
func errorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if fe, ok := err.(*fiber.Error); ok {
			code = fe.Code
		}
		message := err.Error()
		if code >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
			message = "internal server error"
		}
		return c.Status(code).JSON(fiber.Map{"error": message})
	}
}
