// Package collector pulls raw stats from the registered sources, normalizes
// them and forwards the canonical records to a sink.
package collector

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/vshulcz/rtcobserver/internal/domain"
	"github.com/vshulcz/rtcobserver/internal/ports"
	"github.com/vshulcz/rtcobserver/internal/telemetry"
)

type Service struct {
	adapter ports.Adapter
	sink    ports.StatsSink
	logger  *zap.Logger
	metrics *telemetry.Metrics
	sources map[string]ports.StatsSource
	mu      sync.RWMutex
}

func New(adapter ports.Adapter, sink ports.StatsSink, logger *zap.Logger, m *telemetry.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if m == nil {
		m = telemetry.Nop()
	}
	return &Service{
		adapter: adapter,
		sink:    sink,
		logger:  logger,
		metrics: m,
		sources: make(map[string]ports.StatsSource),
	}
}

// Add registers src under its id, replacing a source with the same id.
func (s *Service) Add(src ports.StatsSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[src.ID()] = src
}

// Remove forgets a source. Unknown ids are ignored.
func (s *Service) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sources, id)
}

func (s *Service) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sources[id]
	return ok
}

// Close drops every registration.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.sources)
}

// Collect pulls every source once. A failing source is logged and skipped;
// the returned error combines the failures after all sources were visited.
func (s *Service) Collect(ctx context.Context) error {
	s.mu.RLock()
	ids := slices.Sorted(maps.Keys(s.sources))
	sources := make([]ports.StatsSource, 0, len(ids))
	for _, id := range ids {
		sources = append(sources, s.sources[id])
	}
	s.mu.RUnlock()

	var errs error
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		n, err := s.collectOne(ctx, src)
		if err != nil {
			s.metrics.CollectFailures.Inc()
			s.logger.Warn("collect stats failed", zap.String("collector", src.ID()), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("collector %s: %w", src.ID(), err))
			continue
		}
		s.metrics.RecordsCollected.Add(float64(n))
	}
	return errs
}

func (s *Service) collectOne(ctx context.Context, src ports.StatsSource) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stats source panicked: %v", r)
		}
	}()
	report, err := src.Stats(ctx)
	if err != nil {
		return 0, err
	}
	records, err := s.adapter.Adapt(report)
	if err != nil {
		return 0, err
	}
	for st := range records {
		if err := s.sink.Update(src.ID(), st); err != nil {
			if errors.Is(err, domain.ErrUnknownCollector) {
				s.logger.Debug("stats for unregistered collector dropped", zap.String("collector", src.ID()))
				return n, nil
			}
			s.logger.Debug("stats record rejected",
				zap.String("collector", src.ID()),
				zap.String("type", string(st.StatsType())),
				zap.Error(err))
			continue
		}
		n++
	}
	return n, nil
}
