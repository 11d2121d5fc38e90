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
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/index"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/metrics"
	"github.com/howmarketing/aws-stream-ocr-audio-sync/internal/watcher"
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

	logger.Info("Indexer starting",
		zap.String("hls_dir", cfg.Storage.HLSDir),
		zap.String("index_db", cfg.Storage.IndexDBPath),
		zap.Float64("segment_duration", cfg.Ingest.SegmentDuration))

	m := metrics.New()

	store, err := index.OpenWriter(cfg.Storage.IndexDBPath, logger)
	if err != nil {
		logger.Fatal("Failed to open segment index", zap.Error(err))
	}

	w, err := watcher.New(watcher.Config{
		Dir:             cfg.Storage.HLSDir,
		SegmentDuration: cfg.Ingest.SegmentDuration,
		SettleWindow:    cfg.Ingest.SettleWindow.Std(),
	}, store, m, logger)
	if err != nil {
		store.Close()
		logger.Fatal("Failed to create watcher", zap.Error(err))
	}

	if err := w.Start(context.Background()); err != nil {
		w.Stop()
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	logger.Info("Signal received, shutting down", zap.String("signal", sig.String()))
	w.Stop()
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
