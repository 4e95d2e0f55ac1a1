package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"damage-detect/config"
	"damage-detect/internal/api/telegram"
	"damage-detect/internal/api/web"
	"damage-detect/internal/container"
	"damage-detect/internal/infrastructure/detectapi"
	"damage-detect/internal/infrastructure/storage"
	"damage-detect/internal/infrastructure/vision"
	"damage-detect/pkg/log"
)

const (
	shutdownTimeout = 10 * time.Second
	janitorInterval = time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(log.Fields{"error": err.Error()}, "Failed to load config")
	}

	logger := log.NewLogger(log.Options{Env: cfg.AppEnv, Level: cfg.LogLevel, Dir: cfg.LogDir})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	detector := detectapi.NewClient(cfg.DetectorURL, logger)
	if !detector.CheckHealth(ctx) {
		logger.Warnf("Detection service at %s is not reachable, requests will fail until it is up", cfg.DetectorURL)
	}

	// Создаём хранилище сессий
	sessionRepo := storage.NewMemorySessionRepository()

	// Собираем сервисы приложения
	appContainer := container.New(cfg, sessionRepo, detector, vision.NewProber(), vision.NewRenderer(), logger)

	// Забываем сессии, которые давно не обращались к серверу
	go appContainer.DetectionService.RunJanitor(ctx, janitorInterval, cfg.SessionTTL)

	bodyLimit := web.BodyLimit(cfg.ImageMaxBytes, cfg.VideoMaxBytes)
	server, err := web.NewServer(
		web.WithContext(ctx),
		web.WithFiber(web.NewFiber(logger, bodyLimit)),
		web.WithLogger(logger),
		web.WithMiddleware(cfg.RateLimit, cfg.RateBurst),
		web.WithDetectionService(appContainer.DetectionService, appContainer.Dashboard),
	)
	if err != nil {
		logger.Fatal(err)
	}
	server.RegisterHandler()

	go func() {
		if err := server.Run(cfg.AppPort); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()
	logger.Infof("Server started on port %s", cfg.AppPort)

	if cfg.TelegramEnabled() {
		bot, err := telegram.NewBot(cfg.TelegramToken, appContainer.SessionService, appContainer.DetectionService, appContainer.Dashboard, logger)
		if err != nil {
			logger.Fatalf("Failed to create bot: %v", err)
		}

		go func() {
			logger.Info("Bot is running...")
			if err := bot.Run(ctx); err != nil {
				logger.Errorf("Bot error: %v", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Shutdown error: %v", err)
	}
}
