package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vshulcz/rtcobserver/internal/config"
	"github.com/vshulcz/rtcobserver/internal/misc"
	"github.com/vshulcz/rtcobserver/pkg/util"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	cfg, err := config.LoadServerConfig(os.Args[1:], os.Stderr)
	if err != nil {
		log.Fatalf("failed to parse flags: %v", err)
	}

	logger, err := misc.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("collector build", util.Build{Version: buildVersion, Date: buildDate, Commit: buildCommit}.Fields()...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx, cfg, logger, prometheus.NewRegistry())
	if err != nil {
		logger.Fatal("collector init failed", zap.Error(err))
	}
	if err := serve(ctx, cfg, logger, a); err != nil {
		logger.Fatal("collector stopped", zap.Error(err))
	}
}
