package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	goruntime "runtime"
	"time"

	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"github.com/vshulcz/rtcobserver/internal/adapters/collector/runtime"
	"github.com/vshulcz/rtcobserver/internal/adapters/devices"
	"github.com/vshulcz/rtcobserver/internal/adapters/publisher/httpjson"
	"github.com/vshulcz/rtcobserver/internal/adapters/source/pion"
	"github.com/vshulcz/rtcobserver/internal/config"
	"github.com/vshulcz/rtcobserver/internal/domain"
	"github.com/vshulcz/rtcobserver/internal/ports"
	"github.com/vshulcz/rtcobserver/internal/services/client"
	"github.com/vshulcz/rtcobserver/internal/services/events"
	"github.com/vshulcz/rtcobserver/internal/services/sampler"
)

// sourceFactory opens the stats sources the agent observes. The closer
// releases them on shutdown.
type sourceFactory func() ([]ports.StatsSource, io.Closer, error)

func loopbackSources() ([]ports.StatsSource, io.Closer, error) {
	l, err := pion.NewLoopback(webrtc.Configuration{})
	if err != nil {
		return nil, nil, err
	}
	return l.Sources(), l, nil
}

func run(ctx context.Context, cfg config.AgentConfig, logger *zap.Logger, open sourceFactory) error {
	dev, err := devices.Detect(ctx, devices.Overrides{BrowserName: cfg.BrowserName, BrowserVersion: cfg.BrowserVersion})
	if err != nil {
		logger.Warn("host detection failed", zap.Error(err))
		dev = domain.ClientDevices{
			OS:      domain.OperationSystem{Name: goruntime.GOOS},
			Browser: domain.Browser{Name: "pion"},
			Engine:  domain.Engine{Name: "pion"},
		}
	}

	newSender := func() (ports.Sender, error) {
		return httpjson.New(cfg.Address, &http.Client{Timeout: 10 * time.Second}, cfg.Key)
	}
	sender, err := newSender()
	if err != nil {
		return fmt.Errorf("sender: %w", err)
	}

	metrics, metricsHandler := newMetrics()
	if cfg.MetricsAddress != "" {
		_, stop, err := serveMetrics(cfg.MetricsAddress, metricsHandler, logger)
		if err != nil {
			return fmt.Errorf("metrics endpoint: %w", err)
		}
		defer stop()
	}

	obs := client.New(client.Config{
		Sampler: sampler.Config{
			ClientID: cfg.ClientID,
			CallID:   cfg.CallID,
			RoomID:   cfg.RoomID,
			UserID:   cfg.UserID,
		},
		CollectingPeriod: cfg.CollectingPeriod,
		SamplingPeriod:   cfg.SamplingPeriod,
		SendingPeriod:    cfg.SendingPeriod,
		StatsExpiration:  cfg.StatsExpiration,
		MaxSamples:       cfg.MaxSamples,
	}, dev, client.WithLogger(logger), client.WithSender(sender), client.WithMetrics(metrics))

	sources, closer, err := open()
	if err != nil {
		return errors.Join(fmt.Errorf("stats sources: %w", err), obs.Close())
	}
	defer func() {
		if closer != nil {
			if err := closer.Close(); err != nil {
				logger.Warn("close stats sources", zap.Error(err))
			}
		}
	}()
	for _, src := range sources {
		if err := obs.AddStatsCollector(src); err != nil {
			return errors.Join(err, obs.Close())
		}
	}

	probe := runtime.New()
	if cfg.CollectingPeriod > 0 {
		if err := probe.Start(ctx, cfg.CollectingPeriod); err != nil {
			return errors.Join(err, obs.Close())
		}
	}
	defer probe.Stop()

	offLoad := obs.Events().OnStatsCollected(func(context.Context, events.StatsCollected) error {
		ext, err := probe.Extension()
		if err != nil {
			return err
		}
		obs.AddExtensionStats(ext)
		return nil
	})
	defer offLoad()

	// A failed batch discards the sender; install a fresh one for the next round.
	offSent := obs.Events().OnSamplesSent(func(_ context.Context, e events.SamplesSent) error {
		if e.Err == nil {
			return nil
		}
		s, err := newSender()
		if err != nil {
			return err
		}
		obs.SetSender(s)
		return nil
	})
	defer offSent()

	logger.Info("agent started",
		zap.String("server", cfg.Address),
		zap.String("clientId", obs.ClientID()),
		zap.Int("sources", len(sources)),
		zap.Duration("collect", cfg.CollectingPeriod),
		zap.Duration("sample", cfg.SamplingPeriod),
		zap.Duration("send", cfg.SendingPeriod))

	if err := obs.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	logger.Info("agent stopped")
	return nil
}
