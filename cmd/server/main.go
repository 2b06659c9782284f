package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Tyrowin/gosignal/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (SIGNAL_* environment variables override it)")
	flag.Parse()

	config, err := server.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := config.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := server.NewLogger(config.Log.Level, config.Log.Production)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting GoSignal relay",
		zap.String("path", config.Path),
		zap.Strings("allowed_origins", config.AllowedOrigins),
		zap.Bool("auth", config.AuthEnabled()),
		zap.Int("ice_servers", len(config.ICEServers)))

	relayServer := server.New(config, logger)
	httpServer := server.CreateServer(config.Addr, relayServer.SetupRoutes())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer, logger)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped", zap.Error(err))
			os.Exit(1)
		}
		return
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	// Hijacked WebSocket connections are invisible to http.Server.Shutdown, so
	// the hub closes them separately.
	if err := server.ShutdownServer(httpServer, config.ShutdownTimeout, logger); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	if err := relayServer.Shutdown(config.ShutdownTimeout); err != nil {
		logger.Warn("relay shutdown incomplete", zap.Error(err))
	}
}
