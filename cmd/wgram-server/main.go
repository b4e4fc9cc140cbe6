package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/wgram/wgram/internal/config"
	"github.com/wgram/wgram/internal/provider/gotd"
	"github.com/wgram/wgram/internal/server"
	"github.com/wgram/wgram/internal/session"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := godotenv.Load(); err == nil {
		fmt.Fprintln(os.Stderr, "Loaded environment variables from .env file")
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting wgram gateway",
		zap.Int("api_id", cfg.Telegram.APIID),
		zap.String("session_file", cfg.Telegram.SessionFile))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tg := gotd.New(cfg.Telegram.APIID, cfg.Telegram.APIHash, cfg.Telegram.SessionFile, logger)

	runErr := make(chan error, 1)
	go func() {
		runErr <- tg.Run(ctx)
	}()

	// Failing to open the provider session aborts startup.
	select {
	case <-tg.Ready():
	case err := <-runErr:
		logger.Fatal("Provider client failed to start", zap.Error(err))
	case <-time.After(30 * time.Second):
		logger.Fatal("Timed out connecting to provider")
	}
	logger.Info("Provider client connected")

	manager := session.NewManager(tg, logger.Named("session"))
	defer manager.Close()

	srv := server.New(cfg.Server.Addr, manager, logger.Named("http"))
	if err := srv.Run(ctx); err != nil {
		logger.Error("Server error", zap.Error(err))
	}

	cancel()
	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Provider client stopped with error", zap.Error(err))
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg := zap.NewProductionConfig()
	logCfg.Level = lvl
	return logCfg.Build()
}
