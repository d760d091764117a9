package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	auditfile "github.com/vshulcz/rtcobserver/internal/adapters/audit/file"
	remoteaudit "github.com/vshulcz/rtcobserver/internal/adapters/audit/remote"
	"github.com/vshulcz/rtcobserver/internal/adapters/http/ginserver"
	"github.com/vshulcz/rtcobserver/internal/adapters/http/ginserver/middlewares"
	"github.com/vshulcz/rtcobserver/internal/adapters/persistence/file"
	memrepo "github.com/vshulcz/rtcobserver/internal/adapters/repository/memory"
	pgrepo "github.com/vshulcz/rtcobserver/internal/adapters/repository/postgres"
	"github.com/vshulcz/rtcobserver/internal/config"
	"github.com/vshulcz/rtcobserver/internal/domain"
	"github.com/vshulcz/rtcobserver/internal/ports"
	"github.com/vshulcz/rtcobserver/internal/services/audit"
	"github.com/vshulcz/rtcobserver/internal/services/samples"
	"github.com/vshulcz/rtcobserver/internal/telemetry"
)

type app struct {
	handler   http.Handler
	repo      ports.SamplesRepo
	persister ports.Persister
	db        *sql.DB
}

func build(ctx context.Context, cfg config.ServerConfig, logger *zap.Logger, reg *prometheus.Registry) (*app, error) {
	a := &app{}
	a.repo, a.persister, a.db = buildRepoAndPersister(ctx, cfg, logger)

	subject, err := buildAudit(cfg, logger)
	if err != nil {
		return nil, err
	}

	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := telemetry.New(reg)

	var onChanged func(context.Context, []domain.ClientSample)
	if a.persister != nil && cfg.Interval == 0 {
		onChanged = func(ctx context.Context, latest []domain.ClientSample) {
			if err := a.persister.Save(ctx, latest); err != nil {
				logger.Warn("save failed", zap.Error(err))
			}
		}
	}

	svc := samples.New(a.repo, onChanged, samples.WithAudit(subject), samples.WithMetrics(m))
	h := ginserver.NewHandler(svc, ginserver.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	a.handler = ginserver.NewRouter(h, logger,
		middlewares.RequestID(),
		middlewares.ZapLogger(logger),
		middlewares.GzipRequest(),
		middlewares.GzipResponse(),
		middlewares.HashSHA256(cfg.Key),
	)
	return a, nil
}

func buildRepoAndPersister(ctx context.Context, cfg config.ServerConfig, logger *zap.Logger) (ports.SamplesRepo, ports.Persister, *sql.DB) {
	if cfg.DSN != "" {
		db, err := pgrepo.Open(ctx, cfg.DSN)
		if err == nil {
			logger.Info("db connected & migrated")
			return pgrepo.New(db, cfg.RetainSamples), nil, db
		}
		logger.Warn("postgres init failed, falling back to memory", zap.Error(err))
	}
	repo := memrepo.New(cfg.RetainSamples)
	if cfg.File == "" {
		return repo, nil, nil
	}
	p := file.New(cfg.File)
	if cfg.Restore {
		if err := p.Restore(ctx, repo); err != nil {
			logger.Warn("restore failed", zap.Error(err))
		} else {
			logger.Info("restore ok", zap.String("file", cfg.File))
		}
	}
	return repo, p, nil
}

func buildAudit(cfg config.ServerConfig, logger *zap.Logger) (*audit.Subject, error) {
	subject := audit.NewSubject()
	subject.SetErrorHandler(func(err error) {
		logger.Warn("audit delivery failed", zap.Error(err))
	})
	if cfg.AuditFile != "" {
		subject.Attach(auditfile.New(cfg.AuditFile))
	}
	if cfg.AuditURL != "" {
		c, err := remoteaudit.New(cfg.AuditURL, &http.Client{Timeout: 5 * time.Second})
		if err != nil {
			return nil, err
		}
		subject.Attach(c)
	}
	return subject, nil
}
