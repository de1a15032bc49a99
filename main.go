package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"floodrisk/config"
	"floodrisk/db"
	fhttp "floodrisk/http"
	"floodrisk/logging"
	"floodrisk/ml"
	"floodrisk/monitoring"
)

func main() {
	configPath := flag.String("config", "config.yaml", "config file")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// 2. Load the model; the server cannot run without one
	model, err := ml.LoadModel(cfg.Model.Path)
	if err != nil {
		logger.Fatal("failed to load model", zap.String("path", cfg.Model.Path), zap.Error(err))
	}
	logger.Info("model loaded",
		zap.String("path", cfg.Model.Path),
		zap.String("encoding", model.Encoding),
		zap.Int("trees", len(model.Forest.Trees)),
		zap.Int("data_points", model.DataPoints),
		zap.Time("trained_at", model.TrainedAt),
	)

	// 3. Optional history database
	var store *db.Store
	if cfg.Database.Path != "" {
		store, err = db.InitDB(cfg.Database.Path)
		if err != nil {
			logger.Fatal("failed to initialize database", zap.Error(err))
		}
		defer store.Close()
		logger.Info("database initialized", zap.String("path", cfg.Database.Path))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.NewMetrics(registry)

	sessions, err := fhttp.NewSessionStore(cfg.Session.MaxSessions, cfg.Session.CookieName)
	if err != nil {
		logger.Fatal("failed to create session store", zap.Error(err))
	}

	// 4. Start HTTP server
	server, err := fhttp.NewServer(fhttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
	}, fhttp.Deps{
		Model:    model,
		Sessions: sessions,
		Store:    store,
		Metrics:  metrics,
		Gatherer: registry,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("failed to create server", zap.Error(err))
	}

	errs := make(chan error, 1)
	go func() {
		errs <- server.Start()
	}()

	// 5. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errs:
		if err != nil {
			logger.Error("http server failed", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("exiting")
}
