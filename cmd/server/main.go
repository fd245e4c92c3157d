package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"familyquest/internal/config"
	"familyquest/internal/database"
	"familyquest/internal/generator"
	"familyquest/internal/handlers"
	"familyquest/internal/logger"
	"familyquest/internal/security"
	"familyquest/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", "error", err)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	startup := handlers.NewStartupStatus(
		handlers.StepDatabase,
		handlers.StepMigrations,
		handlers.StepAchievements,
		handlers.StepServices,
	)

	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}

	// Initialize database with config (supports sqlite, postgres, mysql).
	// Migrations run as part of opening the connection.
	startup.SetCurrentStep(handlers.StepDatabase)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	startup.CompleteStep(handlers.StepDatabase)
	startup.CompleteStep(handlers.StepMigrations)
	log.Info("database ready", "type", cfg.DatabaseType)

	ctx := context.Background()

	startup.SetCurrentStep(handlers.StepAchievements)
	achievementService := service.NewAchievementService(db, log)
	seeded, err := achievementService.SeedCatalog(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed achievements: %w", err)
	}
	startup.CompleteStep(handlers.StepAchievements)
	log.Info("achievement catalog seeded", "added", seeded)

	startup.SetCurrentStep(handlers.StepServices)
	emailService, err := service.NewEmailService(ctx, cfg.Email.Region, cfg.Email.FromEmail, cfg.Email.FromName, cfg.AppBaseURL, log)
	if err != nil {
		return fmt.Errorf("failed to initialize email service: %w", err)
	}
	if !emailService.IsEnabled() {
		log.Info("invitation email disabled, SES_FROM_EMAIL not set")
	}

	// Without a backend every suggestion comes from the static library
	var suggester service.TaskSuggester
	if cfg.Generator.BaseURL != "" {
		client, err := generator.NewClient(generator.Config{
			BaseURL:      cfg.Generator.BaseURL,
			APIKey:       cfg.Generator.APIKey,
			Model:        cfg.Generator.Model,
			Timeout:      cfg.Generator.Timeout,
			ClientID:     cfg.Generator.ClientID,
			ClientSecret: cfg.Generator.ClientSecret,
			TokenURL:     cfg.Generator.TokenURL,
			Scope:        cfg.Generator.Scope,
		})
		if err != nil {
			return fmt.Errorf("failed to configure task generator: %w", err)
		}
		suggester = client
		log.Info("task generator enabled", "base_url", cfg.Generator.BaseURL, "model", cfg.Generator.Model)
	}

	tokens := security.NewTokenManager(cfg.JWTSecret, cfg.SessionDuration)
	accountService := service.NewAccountService(db, tokens, log)
	taskService := service.NewTaskService(db, cfg.Location(), log)
	familyService := service.NewFamilyService(db, emailService, cfg.InviteTTL, log)
	suggestionService := service.NewSuggestionService(db, suggester, log)

	limiter := security.NewRateLimiter(cfg.LoginRateLimit, time.Minute)
	defer limiter.Stop()

	h := &handlers.Handlers{
		Auth:         handlers.NewAuthHandler(accountService, taskService, achievementService, log),
		Tasks:        handlers.NewTaskHandler(taskService, suggestionService, log),
		Family:       handlers.NewFamilyHandler(familyService, log),
		Achievements: handlers.NewAchievementHandler(achievementService, log),
		Startup:      startup,
		DB:           db,
		Middleware:   handlers.NewMiddleware(accountService, familyService, limiter, log),
	}
	mux := http.NewServeMux()
	h.Register(mux)
	startup.CompleteStep(handlers.StepServices)

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
	})
	handler := handlers.Logging(log, c.Handler(mux))

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()
	startup.MarkReady()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-quit:
		log.Info("server shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}
