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
	"github.com/kswiatek/tile-league/config"
	"github.com/kswiatek/tile-league/db"
	"github.com/kswiatek/tile-league/handlers"
	"github.com/kswiatek/tile-league/live"
	"github.com/kswiatek/tile-league/repositories"
	api "github.com/kswiatek/tile-league/routes"
	"github.com/kswiatek/tile-league/services"
	"github.com/kswiatek/tile-league/sheets"
	"github.com/kswiatek/tile-league/storage"
	_ "github.com/lib/pq"
)

const rosterFetchTimeout = 15 * time.Second

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		}
	}()
	logger.Info("database connection established")

	// Инициализация WebSocket Hub
	wsHub := live.NewHub()
	go wsHub.Run()

	// Инициализация репозиториев
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	tableRepo := repositories.NewPostgresTableRepository(dbConn)
	roundRepo := repositories.NewPostgresRoundRepository(dbConn)
	draftRepo := repositories.NewPostgresDraftRepository(dbConn)
	logger.Info("repositories initialized")

	// Инициализация сервисов
	authService := services.NewAuthService(userRepo)
	playerService := services.NewPlayerService(playerRepo)
	tournamentService := services.NewTournamentService(tournamentRepo)
	rosterSource := sheets.NewCSVFetcher(rosterFetchTimeout)
	rosterService := services.NewRosterService(playerRepo, tournamentRepo, rosterSource, logger)
	ratingService := services.NewRatingService(playerRepo, roundRepo, tableRepo, logger)
	tableService := services.NewTableService(tableRepo, tournamentRepo, roundRepo, ratingService, logger)
	roundService := services.NewRoundService(roundRepo, tableRepo, ratingService, wsHub, logger)
	draftService := services.NewDraftService(draftRepo, tableRepo)

	// Экспорт снапшотов рейтингов включается только при полной R2-конфигурации.
	var exportService *services.ExportService
	if cfg.ExportEnabled() {
		uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		exportService = services.NewExportService(playerRepo, tournamentRepo, uploader, logger)
		logger.Info("ratings snapshot export enabled")
	}
	logger.Info("services initialized")

	// Инициализация обработчиков HTTP
	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	tournamentHandler := handlers.NewTournamentHandler(tournamentService, exportService)
	rosterHandler := handlers.NewRosterHandler(rosterService, playerService)
	playerHandler := handlers.NewPlayerHandler(playerService)
	tableHandler := handlers.NewTableHandler(tableService)
	roundHandler := handlers.NewRoundHandler(roundService, draftService)
	draftHandler := handlers.NewDraftHandler(draftService)
	webSocketHandler := handlers.NewWebSocketHandler(wsHub)

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		cfg.JWTSecretKey,
		authHandler,
		tournamentHandler,
		rosterHandler,
		playerHandler,
		tableHandler,
		roundHandler,
		draftHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if err := server.Close(); err != nil {
				logger.Error("forced shutdown failed", slog.Any("error", err))
			}
		}
		logger.Info("server stopped")
	}
}
