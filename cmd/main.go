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

	_ "github.com/lib/pq"

	"github.com/courtside/bracket-engine/brackets"
	"github.com/courtside/bracket-engine/config"
	"github.com/courtside/bracket-engine/db"
	"github.com/courtside/bracket-engine/handlers"
	"github.com/courtside/bracket-engine/repositories"
	"github.com/courtside/bracket-engine/routes"
	"github.com/courtside/bracket-engine/services"
	"github.com/courtside/bracket-engine/storage"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

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

	// Snapshot storage is optional; without it the archive endpoint
	// reports a conflict instead of failing startup.
	var uploader storage.FileUploader
	if cfg.SnapshotStorageConfigured() {
		uploader, err = storage.NewR2Uploader(storage.R2UploaderConfig{
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
		logger.Info("snapshot storage initialized")
	} else {
		logger.Warn("snapshot storage not configured, archive endpoint disabled")
	}

	wsHub := brackets.NewHub()
	go wsHub.Run()
	logger.Info("websocket hub started")

	configRepo := repositories.NewPostgresBracketConfigRepository(dbConn)
	groupRepo := repositories.NewPostgresGroupRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	entryRepo := repositories.NewPostgresEntryRepository(dbConn)
	transactor := repositories.NewSQLTransactor(dbConn)

	publisher := services.NewHubPublisher(wsHub, logger)

	configService := services.NewBracketConfigService(dbConn, configRepo, groupRepo)
	preliminaryService := services.NewPreliminaryService(transactor, configRepo, groupRepo, matchRepo, entryRepo, publisher, logger)
	mainBracketService := services.NewMainBracketService(transactor, configRepo, groupRepo, matchRepo, entryRepo, publisher, logger)
	bracketDataService := services.NewBracketDataService(configRepo, groupRepo, matchRepo)
	snapshotService := services.NewSnapshotService(bracketDataService, uploader, logger)
	matchResultService := services.NewMatchResultService(
		transactor,
		configRepo,
		matchRepo,
		entryRepo,
		preliminaryService,
		publisher,
		snapshotService,
		logger,
	)
	logger.Info("services initialized")

	bracketHandler := handlers.NewBracketHandler(
		configService,
		preliminaryService,
		mainBracketService,
		bracketDataService,
		snapshotService,
	)
	matchHandler := handlers.NewMatchHandler(matchResultService)
	wsHandler := handlers.NewWebSocketHandler(wsHub, logger)

	router := routes.SetupRoutes(bracketHandler, matchHandler, wsHandler, cfg.JWTSecretKey)
	logger.Info("routes configured")

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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
}
