package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vshulcz/rtcobserver/internal/config"
)

const shutdownTimeout = 5 * time.Second

// serve runs the HTTP server until ctx is done. The latest samples are saved
// every cfg.Interval and once more on shutdown.
func serve(ctx context.Context, cfg config.ServerConfig, logger *zap.Logger, a *app) error {
	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("collector listening",
			zap.String("addr", cfg.Address),
			zap.String("file", cfg.File),
			zap.Duration("interval", cfg.Interval),
			zap.Bool("restore", cfg.Restore),
			zap.Bool("db", a.db != nil))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if a.persister != nil && cfg.Interval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(cfg.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					a.save(gctx, logger)
				}
			}
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	err := g.Wait()
	a.save(context.Background(), logger)
	if a.db != nil {
		err = errors.Join(err, a.db.Close())
	}
	return err
}

func (a *app) save(ctx context.Context, logger *zap.Logger) {
	if a.persister == nil {
		return
	}
	latest, err := a.repo.Snapshot(ctx)
	if err != nil {
		logger.Warn("snapshot failed", zap.Error(err))
		return
	}
	if err := a.persister.Save(ctx, latest); err != nil {
		logger.Warn("periodic save failed", zap.Error(err))
	}
}
