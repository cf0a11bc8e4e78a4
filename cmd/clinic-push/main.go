package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/smilecare-labs/clinic-push/internal/bootstrap"
	"github.com/smilecare-labs/clinic-push/internal/config"
	"github.com/smilecare-labs/clinic-push/internal/firebaseapp"
	"github.com/smilecare-labs/clinic-push/internal/logging"
	"github.com/smilecare-labs/clinic-push/internal/server"
	"github.com/smilecare-labs/clinic-push/internal/service"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{
		Level:      cfg.Log.Level,
		Encoding:   cfg.Log.Encoding,
		OutputPath: cfg.Log.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	store, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open token store", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer store.Close()

	var broadcaster server.Broadcaster
	transport, err := bootstrap.NewFCM(ctx, cfg, logger)
	switch {
	case errors.Is(err, firebaseapp.ErrCredentialsMissing):
		logger.Warn("Firebase credentials not configured, admin broadcast disabled")
	case err != nil:
		logger.Fatal("Failed to init FCM", zap.Error(err))
	default:
		broadcaster = service.NewBroadcastService(store, transport, logger,
			service.WithMaxConcurrency(cfg.Broadcast.MaxConcurrency))
	}

	authSvc := service.NewAuthService(cfg)
	tokenSvc := service.NewTokenService(store, logger)
	srv := server.New(cfg, tokenSvc, broadcaster, authSvc, logger)

	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server stopped", zap.Error(err))
		}
	}()

	// graceful shutdown
	waitForSignal()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.WriteTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}
