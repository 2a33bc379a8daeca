package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pricepred/config"
	"pricepred/db"
	phttp "pricepred/http"
	"pricepred/logging"
	"pricepred/ml"
	"pricepred/monitoring"
	"pricepred/service"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	// 1. Load config
	path, err := config.Locate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "locate config: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("service stopped with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	// 2. Load model and schema
	store, err := ml.NewArtifactStore(ml.ArtifactPaths{
		ModelType:  cfg.ML.ModelType,
		ModelPath:  cfg.ML.ModelPath,
		SchemaPath: cfg.ML.SchemaPath,
	})
	if err != nil {
		return fmt.Errorf("load artifacts: %w", err)
	}
	artifacts, _ := store.Current()
	logger.Info("artifacts loaded",
		zap.String("model", cfg.ML.ModelPath),
		zap.String("model_type", ml.ModelType(artifacts.Model)),
		zap.String("schema", cfg.ML.SchemaPath),
		zap.Int("columns", artifacts.Schema.Len()),
		zap.Strings("cities", artifacts.Schema.Cities()),
	)

	// 3. Initialize history database
	history, err := db.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer history.Close()
	logger.Info("prediction history ready", zap.String("path", cfg.Database.Path))

	cache, err := ml.NewPredictionCache(cfg.ML.CacheSize)
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := monitoring.NewMetricsCollector()
	hub := monitoring.NewHub(logger)
	go hub.Run(ctx)

	store.OnSwap(func(a *ml.Artifacts) {
		cache.Purge()
		metrics.RecordReload()
		_, generation := store.Current()
		hub.PublishReload(monitoring.ReloadMessage{
			ModelType:  ml.ModelType(a.Model),
			Columns:    a.Schema.Len(),
			Generation: generation,
			Timestamp:  time.Now(),
		})
	})

	// 4. Watch model files
	var watcher *ml.Watcher
	if cfg.WatchEnabled() {
		watcher, err = ml.NewWatcher(store, logger)
		if err != nil {
			return err
		}
		go watcher.Run(ctx)
	}

	predictor := service.NewPredictor(store,
		service.WithCache(cache),
		service.WithHistory(history),
		service.WithPublisher(hub),
		service.WithMetrics(metrics),
		service.WithLogger(logger),
	)

	// 5. Start HTTP server
	api := phttp.NewAPI(predictor, history, metrics, hub, logger)
	server := phttp.NewServer(phttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
	}, api)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// 6. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	if err := server.Stop(); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}
	cancel()
	<-hub.Done()
	if watcher != nil {
		<-watcher.Done()
	}
	logger.Info("exiting")
	return nil
}
