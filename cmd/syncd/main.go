package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/config"
	apierrors "github.com/howmarketing/aws-stream-ocr-audio-sync/internal/errors"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/handler"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/health"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/index"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/metrics"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/server"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/stream"
	syncsvc "github.com/howmarketing/aws-stream-ocr-audio-sync/internal/sync"
)

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("index_db", cfg.Storage.IndexDBPath))

	m := metrics.New()

	reader := index.OpenReader(cfg.Storage.IndexDBPath, logger)
	defer reader.Close()

	normalizer := syncsvc.NewNormalizer(logger)
	searcher := syncsvc.NewSearcher(reader, cfg.Sync.DriftTolerance, m, logger)
	calculator := syncsvc.NewCalculator(logger)
	syncService := syncsvc.NewService(normalizer, searcher, calculator,
		cfg.Sync.DefaultOCRConfidence, m, logger)

	streamService := stream.NewService(cfg.Storage.HLSDir, logger)
	errorHandler := apierrors.NewHandler(logger)
	handlers := handler.New(syncService, reader, streamService, errorHandler, logger)
	healthCheck := health.NewCheck(reader, logger)

	srv := server.New(cfg, handlers, healthCheck, m, logger)
	srv.SetupRoutes()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Signal received, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
	}
}

func initLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}
