package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Dosada05/association-portal/app"
	"github.com/Dosada05/association-portal/config"
	"github.com/Dosada05/association-portal/db"
	"github.com/Dosada05/association-portal/gateway"
	"github.com/Dosada05/association-portal/handlers"
	"github.com/Dosada05/association-portal/live"
	"github.com/Dosada05/association-portal/metrics"
	"github.com/Dosada05/association-portal/middleware"
	api "github.com/Dosada05/association-portal/routes"
	"github.com/Dosada05/association-portal/services"
	"github.com/Dosada05/association-portal/storage"
	"github.com/Dosada05/association-portal/views"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	// Транспорт данных: напрямую в Postgres, если задан DATABASE_URL, иначе REST API
	var runner gateway.Runner
	if cfg.DatabaseURL != "" {
		dbConn, err := db.Connect(ctx, cfg.DatabaseURL, 5*time.Second)
		if err != nil {
			logger.Error("failed to connect to database", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := dbConn.Close(); err != nil {
				logger.Error("failed to close database connection", slog.Any("error", err))
			} else {
				logger.Info("database connection closed")
			}
		}()
		runner = db.NewPostgresRunner(dbConn, logger)
		logger.Info("database connection established")
	}

	backend, err := gateway.New(gateway.Config{
		URL:       cfg.SupabaseURL,
		AnonKey:   cfg.SupabaseAnonKey,
		JWTSecret: cfg.SupabaseJWTSecret,
		Runner:    runner,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to initialize backend gateway", slog.Any("error", err))
		os.Exit(1)
	}

	// Инициализация загрузчика файлов (Cloudflare R2)
	var uploader storage.FileUploader = storage.Disabled{}
	if cfg.StorageEnabled() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, cfg.R2)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("logo uploads disabled: R2 is not configured")
	}

	// Live-канал и реестр клиентских экземпляров
	hub := live.NewHub(logger)
	go hub.Run(ctx)
	registry := app.NewRegistry(backend, hub, cfg.ClientIdleTimeout, logger)
	go registry.Run(ctx)
	logger.Info("client registry started", slog.Duration("idle_timeout", cfg.ClientIdleTimeout))

	renderer, err := views.New()
	if err != nil {
		logger.Error("failed to parse templates", slog.Any("error", err))
		os.Exit(1)
	}
	cookies, err := middleware.NewCookieStore(cfg.SessionSecret, cfg.CookieSecure)
	if err != nil {
		logger.Error("failed to initialize cookie store", slog.Any("error", err))
		os.Exit(1)
	}

	// Инициализация сервисов
	dashboardLoader := services.NewDashboardLoader(logger, time.Now)
	adminLoader := services.NewAdminDashboardLoader(logger, time.Now)
	associationService := services.NewAssociationService(uploader, logger)
	memberService := services.NewMemberService(logger, time.Now)
	competitionService := services.NewCompetitionService(logger, time.Now)
	registrationService := services.NewRegistrationService(logger, time.Now)
	resultService := services.NewResultService(logger)

	router := chi.NewRouter()
	api.SetupRoutes(router, api.Deps{
		Cookies:        cookies,
		ClientRoot:     middleware.ClientRoot(cookies, registry, logger),
		AuthError:      handlers.AuthUnavailable(renderer, logger),
		LoginLimiter:   middleware.NewRateLimiter(5, 12*time.Second),
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,

		Auth:          handlers.NewAuthHandler(renderer, cookies, logger),
		Dashboard:     handlers.NewDashboardHandler(dashboardLoader, renderer, cookies, logger),
		Admin:         handlers.NewAdminHandler(adminLoader, renderer, logger),
		Association:   handlers.NewAssociationHandler(associationService),
		Members:       handlers.NewMemberHandler(memberService),
		Competitions:  handlers.NewCompetitionHandler(competitionService, resultService),
		Registrations: handlers.NewRegistrationHandler(registrationService),
		WebSocket:     handlers.NewWebSocketHandler(hub, cfg.AllowedOrigins, logger),
	})
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			registry.Close()
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
		} else {
			logger.Info("server shutdown complete")
		}
	}
	registry.Close()
	logger.Info("application exited")
}
