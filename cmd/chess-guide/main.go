package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	appcfg "github.com/park285/chess-audio-guide/internal/config"
	"github.com/park285/chess-audio-guide/internal/guidebuilder"
	"github.com/park285/chess-audio-guide/internal/httpapi"
	"github.com/park285/chess-audio-guide/internal/obslog"
	"go.uber.org/zap"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.Init(cfg.Log); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	deps, err := guidebuilder.New(cfg, logger)
	if err != nil {
		log.Fatalf("guide init error: %v", err)
	}
	defer deps.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go deps.Service.RunReaper(ctx, time.Minute)

	srv := httpapi.NewServer(cfg.HTTPAddr, deps.Router)
	go func() {
		logger.Info("http_listen", zap.String("addr", cfg.HTTPAddr), zap.String("narration_engine", cfg.NarrationEngine))
		if err := srv.Run(); err != nil {
			logger.Error("http_server_failed", zap.Error(err))
			cancel()
		}
	}()

	// Wait for termination signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutdown_signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
	}

	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn("http_shutdown_failed", zap.Error(err))
	}
}
