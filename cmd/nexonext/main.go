package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"nexonext/config"
	"nexonext/native/matrix"
	"nexonext/observability/logging"
	"nexonext/rpc"
	"nexonext/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./nexonext.toml", "path to configuration")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("NEXONEXT_ENV"))
	logger := logging.Setup("nexonext", env)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	if env == "" {
		env = cfg.Environment
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("create data dir", "path", cfg.DataDir, "error", err)
		os.Exit(1)
	}
	store, err := storage.NewStore(filepath.Join(cfg.DataDir, "nexonext.db"), nil)
	if err != nil {
		logger.Error("open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	engine := matrix.NewEngine(cfg.MatrixPrograms())

	srv := rpc.New(rpc.Config{
		Store:  store,
		Engine: engine,
		Log:    logger,
		RateLimits: map[string]rpc.RateLimit{
			"purchase": {RatePerSecond: 2, Burst: 10},
			"unfreeze": {RatePerSecond: 1, Burst: 5},
			"gift":     {RatePerSecond: 1, Burst: 5},
			"members":  {RatePerSecond: 10, Burst: 50},
		},
	})

	server := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		logger.Error("listen", "address", cfg.ListenAddress, "error", err)
		os.Exit(1)
	}
	go func() {
		logger.Info("listening", "address", listener.Addr().String())
		if serveErr := server.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Error("serve", "error", serveErr)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
