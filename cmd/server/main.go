package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/healthmate/server/internal/config"
	"github.com/healthmate/server/internal/database"
	"github.com/healthmate/server/internal/handlers"
	"github.com/healthmate/server/internal/middleware"
	"github.com/healthmate/server/internal/services"
	"github.com/healthmate/server/internal/session"
	"github.com/healthmate/server/internal/storage"
	"github.com/healthmate/server/pkg/logger"
	"github.com/healthmate/server/pkg/utils"
)

func main() {
	logger.Init()

	cfg := config.Load()
	if cfg.JWT.UsesDefaultSecret() {
		logger.Warn("jwt_default_secret", map[string]interface{}{
			"reason": "JWT_SECRET is not set; session tokens are signed with the development default",
		})
	}
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.ExpirationHours)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	contentStore, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatalf("content storage initialization failed: %v", err)
	}

	sessions, err := newSessionStore(ctx, cfg.Session)
	if err != nil {
		log.Fatalf("session store initialization failed: %v", err)
	}

	var model services.Completer
	var modelName string
	if cfg.Assistant.APIKey == "" {
		logger.Warn("assistant_disabled", map[string]interface{}{
			"reason": "GOOGLE_API_KEY is not set",
		})
	} else {
		gemini, err := services.NewGeminiCompleter(ctx, cfg.Assistant.APIKey, cfg.Assistant.Model)
		if err != nil {
			log.Fatalf("assistant initialization failed: %v", err)
		}
		defer gemini.Close()
		model = gemini
		modelName = cfg.Assistant.Model
		if modelName == "" {
			modelName = "gemini-pro"
		}
	}

	auditService := services.NewAuditService(db)
	documentService := services.NewDocumentService(db)
	ingestionService := services.NewIngestionService(db, contentStore, documentService, cfg.Ingestion.StagedTTL)
	ingestionService.StartSweeper(ctx, cfg.Ingestion.SweepInterval)

	routes := &handlers.Routes{
		Auth:         handlers.NewAuthHandler(services.NewCredentialService(db), sessions, auditService),
		Consultation: handlers.NewConsultationHandler(services.NewAssistantService(model, cfg.Assistant.Timeout, cfg.Assistant.SingleTurn), sessions),
		Records:      handlers.NewRecordsHandler(ingestionService, documentService, auditService),
		Session:      middleware.NewSessionMiddleware(sessions),

		AssistantModel: modelName,
	}

	app := fiber.New(fiber.Config{BodyLimit: cfg.Server.MaxUploadMB * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())
	routes.Mount(app)

	listenAddr := fmt.Sprintf(":%s", cfg.Server.Port)

	logger.Info("server_starting", map[string]interface{}{
		"port":            cfg.Server.Port,
		"address":         listenAddr,
		"body_limit_mb":   cfg.Server.MaxUploadMB,
		"db_driver":       cfg.DB.Driver,
		"storage_driver":  cfg.Storage.Driver,
		"session_backend": cfg.Session.Backend,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(listenAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("shutting down server due to signal: %s", sig)
		shutdownDone := make(chan struct{})
		go func() {
			_ = app.Shutdown()
			close(shutdownDone)
		}()
		select {
		case <-shutdownDone:
		case <-time.After(10 * time.Second):
			log.Print("forced shutdown timeout reached")
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	}

	cancel()
	auditService.Close()
}

func newSessionStore(ctx context.Context, cfg config.SessionConfig) (session.Store, error) {
	switch cfg.Backend {
	case "memory", "":
		store := session.NewMemoryStore(cfg.TTL)
		if cfg.CleanupInterval > 0 {
			store.StartCleanup(ctx, cfg.CleanupInterval)
		}
		return store, nil
	case "redis":
		client, err := session.NewRedisClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return session.NewRedisStore(client, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unsupported SESSION_BACKEND %q", cfg.Backend)
	}
}
