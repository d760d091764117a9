// Package samples implements the collector server use cases: ingesting the
// batches delivered by agents and answering queries about known clients.
package samples

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vshulcz/rtcobserver/internal/domain"
	"github.com/vshulcz/rtcobserver/internal/ports"
	"github.com/vshulcz/rtcobserver/internal/services/audit"
	"github.com/vshulcz/rtcobserver/internal/telemetry"
)

type Option func(*Service)

// WithAudit publishes an audit event for every accepted batch.
func WithAudit(p audit.Publisher) Option {
	return func(s *Service) { s.audit = p }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type Service struct {
	repo      ports.SamplesRepo
	onChanged func(context.Context, []domain.ClientSample)
	audit     audit.Publisher
	metrics   *telemetry.Metrics
	now       func() time.Time
}

// New returns a Service over repo. onChanged, when set, receives the latest
// sample of every client after each accepted batch.
func New(repo ports.SamplesRepo, onChanged func(context.Context, []domain.ClientSample), opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		onChanged: onChanged,
		metrics:   telemetry.Nop(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Ingest stores a batch. The batch is rejected as a whole when it is empty or
// any sample lacks a client id.
func (s *Service) Ingest(ctx context.Context, batch []domain.ClientSample) (int, error) {
	if len(batch) == 0 {
		return 0, fmt.Errorf("%w: empty batch", domain.ErrInvalidInput)
	}
	for i := range batch {
		id := strings.TrimSpace(batch[i].ClientID)
		if id == "" {
			return 0, fmt.Errorf("%w: sample %d has no clientId", domain.ErrInvalidInput, i)
		}
		batch[i].ClientID = id
	}
	if err := s.repo.SaveMany(ctx, batch); err != nil {
		return 0, err
	}
	s.metrics.SamplesIngested.Add(float64(len(batch)))

	if s.audit != nil {
		s.audit.Publish(ctx, audit.NewEvent(s.now(), audit.ClientIPFromContext(ctx), batch))
	}
	if s.onChanged != nil {
		if latest, err := s.repo.Snapshot(ctx); err == nil {
			s.onChanged(ctx, latest)
		}
	}
	return len(batch), nil
}

func (s *Service) Latest(ctx context.Context, clientID string) (domain.ClientSample, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return domain.ClientSample{}, domain.ErrNotFound
	}
	return s.repo.Latest(ctx, clientID)
}

func (s *Service) Clients(ctx context.Context) ([]ports.ClientSummary, error) {
	return s.repo.Clients(ctx)
}

type historyReader interface {
	History(ctx context.Context, clientID string) ([]domain.ClientSample, error)
}

// History returns the retained samples of a client, oldest first. Repositories
// that keep no history answer with the latest sample only.
func (s *Service) History(ctx context.Context, clientID string) ([]domain.ClientSample, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, domain.ErrNotFound
	}
	if h, ok := s.repo.(historyReader); ok {
		return h.History(ctx, clientID)
	}
	latest, err := s.repo.Latest(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return []domain.ClientSample{latest}, nil
}

// Snapshot returns the latest sample of every client.
func (s *Service) Snapshot(ctx context.Context) ([]domain.ClientSample, error) {
	return s.repo.Snapshot(ctx)
}
