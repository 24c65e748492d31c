package main

import (
	"context"
	"log"
	"strings"

	api "mailpilot-backend/cmd/api"
	authdomain "mailpilot-backend/internal/auth/domain"
	authRepo "mailpilot-backend/internal/auth/repository"
	authUsecase "mailpilot-backend/internal/auth/usecase"
	batchdomain "mailpilot-backend/internal/batch/domain"
	batchRepo "mailpilot-backend/internal/batch/repository"
	batchUsecase "mailpilot-backend/internal/batch/usecase"
	"mailpilot-backend/internal/notification"
	"mailpilot-backend/pkg/ai"
	"mailpilot-backend/pkg/config"
	"mailpilot-backend/pkg/database"
	"mailpilot-backend/pkg/fcm"
	"mailpilot-backend/pkg/gmail"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate database schemas
	if err := db.AutoMigrate(
		&authdomain.User{},
		&authdomain.FCMToken{},
		&batchdomain.BatchJob{},
		&batchdomain.MessageRecord{},
		&batchdomain.LabelRecord{},
		&batchdomain.RateLimitEntry{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize repositories (dependency injection)
	userRepo := authRepo.NewUserRepository(db)
	fcmTokenRepo := authRepo.NewFCMTokenRepository(db)
	jobRepo := batchRepo.NewBatchJobRepository(db)
	messageRepo := batchRepo.NewMessageRepository(db)
	labelRepo := batchRepo.NewLabelRepository(db)
	rateRepo := batchRepo.NewRateLimitRepository(db)

	// Mail provider and credential plumbing
	gmailService := gmail.NewService(cfg.GoogleClientID, cfg.GoogleClientSecret)
	guard := batchUsecase.NewCredentialGuard(gmailService, userRepo)
	resolver := batchUsecase.NewLabelResolver(labelRepo, guard)

	// Classification engine: Gemini behind a per-user rate limit,
	// deterministic rules underneath
	limiter := batchUsecase.NewRateLimiter(rateRepo, cfg.ClassifyRateLimit, cfg.ClassifyRateWindow)
	provider, err := ai.NewGenerativeProvider(ai.Config{
		Provider:      ai.ProviderType(cfg.AIProvider),
		GeminiAPIKey:  cfg.GeminiAPIKey,
		OllamaBaseURL: cfg.OllamaBaseURL,
		OllamaModel:   cfg.OllamaModel,
	})
	if err != nil {
		log.Printf("[Main] AI provider unavailable, classification uses rules only: %v", err)
	}
	engine := ai.NewEngine(provider, limiter, cfg.AIEnabled)

	// Orchestrator
	batchUc := batchUsecase.NewBatchUsecase(jobRepo, messageRepo, labelRepo, gmailService, guard, resolver, engine, cfg.BatchChunkDelay)

	// Optional FCM push on batch completion
	if cfg.FirebaseCredentials != "" {
		fcmClient, err := fcm.NewClient(cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[Main] Failed to initialize FCM client (push notifications disabled): %v", err)
		} else {
			batchUc.SetNotifier(notification.NewBatchNotifier(fcmClient, fcmTokenRepo))
		}
	}

	// Optional Gmail push subscription triggering auto triage
	if cfg.GoogleProjectID != "" {
		topicName := cfg.PubsubSubscription
		if parts := strings.Split(topicName, "/"); len(parts) > 1 {
			topicName = parts[len(parts)-1]
		}
		if topicName == "" {
			topicName = "gmail-updates"
		}

		notifService, err := notification.NewService(cfg.GoogleProjectID, topicName, userRepo, batchUc, cfg.FirebaseCredentials)
		if err != nil {
			log.Printf("[Main] Failed to initialize notification service: %v", err)
		} else {
			go notifService.Start(context.Background())
		}
	}

	authUsecaseInstance := authUsecase.NewAuthUsecase(userRepo, cfg)

	// Initialize HTTP handler
	handler := api.NewHandler(authUsecaseInstance, batchUc, fcmTokenRepo, cfg)

	log.Printf("Server starting on port %s", cfg.Port)
	if err := handler.Start(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
