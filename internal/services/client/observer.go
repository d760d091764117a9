// Package client wires the collect, sample and send pipeline behind one
// facade that an application embeds next to its peer connections.
package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/vshulcz/rtcobserver/internal/adapters/devices"
	"github.com/vshulcz/rtcobserver/internal/adapters/dialect"
	"github.com/vshulcz/rtcobserver/internal/domain"
	"github.com/vshulcz/rtcobserver/internal/ports"
	"github.com/vshulcz/rtcobserver/internal/services/accumulator"
	"github.com/vshulcz/rtcobserver/internal/services/collector"
	"github.com/vshulcz/rtcobserver/internal/services/events"
	"github.com/vshulcz/rtcobserver/internal/services/sampler"
	"github.com/vshulcz/rtcobserver/internal/services/schedule"
	"github.com/vshulcz/rtcobserver/internal/services/storage"
	"github.com/vshulcz/rtcobserver/internal/telemetry"
)

// Config holds the cadences of the pipeline. A zero period disables that
// cadence; with every period at zero the caller drives the pipeline.
type Config struct {
	Sampler          sampler.Config
	CollectingPeriod time.Duration
	SamplingPeriod   time.Duration
	SendingPeriod    time.Duration
	// StatsExpiration trims entries not updated for that long on every
	// collect cycle. Zero keeps entries until their collector is removed.
	StatsExpiration time.Duration
	MaxSamples      int
}

type Option func(*Observer)

func WithLogger(l *zap.Logger) Option {
	return func(o *Observer) { o.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(o *Observer) { o.now = now }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *Observer) { o.metrics = m }
}

// WithSender enables sending. Without a Sender samples are created and
// announced but never queued.
func WithSender(s ports.Sender) Option {
	return func(o *Observer) { o.sender = s }
}

// WithAdapter overrides the dialect chosen from the browser description.
func WithAdapter(a ports.Adapter) Option {
	return func(o *Observer) { o.adapter = a }
}

type Observer struct {
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
	metrics *telemetry.Metrics
	adapter ports.Adapter
	devices domain.ClientDevices

	storage     *storage.Storage
	collector   *collector.Service
	sampler     *sampler.Sampler
	accumulator *accumulator.Accumulator
	timer       *schedule.Timer
	events      *events.Relayer
	media       *devices.Registry

	sendMu   sync.Mutex
	senderMu sync.RWMutex
	sender   ports.Sender
	closed   atomic.Bool
}

func New(cfg Config, dev domain.ClientDevices, opts ...Option) *Observer {
	o := &Observer{
		cfg:     cfg,
		logger:  zap.NewNop(),
		now:     time.Now,
		devices: dev,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.metrics == nil {
		o.metrics = telemetry.Nop()
	}
	if o.adapter == nil {
		o.adapter = dialect.Select(dev.Browser, o.logger)
	}

	o.storage = storage.New(storage.WithClock(o.now), storage.WithLogger(o.logger))
	o.collector = collector.New(o.adapter, o.storage, o.logger, o.metrics)
	o.sampler = sampler.New(cfg.Sampler, dev, o.storage,
		sampler.WithClock(o.now), sampler.WithLogger(o.logger))
	o.accumulator = accumulator.New(cfg.MaxSamples)
	o.events = events.New(o.logger)
	o.media = devices.NewRegistry()
	o.timer = schedule.New(o.logger)
	o.timer.Add(schedule.Task{Name: "collect", Period: cfg.CollectingPeriod, Run: o.Collect})
	o.timer.Add(schedule.Task{Name: "sample", Period: cfg.SamplingPeriod, Run: o.Sample})
	o.timer.Add(schedule.Task{Name: "send", Period: cfg.SendingPeriod, Run: o.Send})

	o.logger.Info("client observer created",
		zap.String("clientId", o.sampler.ClientID()),
		zap.String("dialect", dialect.Name(o.adapter)))
	return o
}

func (o *Observer) ClientID() string { return o.sampler.ClientID() }

func (o *Observer) CallID() string { return o.sampler.CallID() }

func (o *Observer) Devices() domain.ClientDevices { return o.devices }

// Stats exposes the read view of the collected stats.
func (o *Observer) Stats() ports.StatsReader { return o.storage }

// Events is where listeners subscribe.
func (o *Observer) Events() *events.Relayer { return o.events }

func (o *Observer) AudioInputs() []domain.MediaDevice { return o.media.Values(domain.AudioInput) }

func (o *Observer) AudioOutputs() []domain.MediaDevice { return o.media.Values(domain.AudioOutput) }

func (o *Observer) VideoInputs() []domain.MediaDevice { return o.media.Values(domain.VideoInput) }

// AddStatsCollector starts pulling src on every collect cycle.
func (o *Observer) AddStatsCollector(src ports.StatsSource) error {
	if src == nil || src.ID() == "" {
		return domain.ErrInvalidInput
	}
	o.collector.Add(src)
	o.storage.Register(src.ID(), src.Label())
	return nil
}

// RemoveStatsCollector stops pulling the source and drops its entries.
func (o *Observer) RemoveStatsCollector(id string) {
	o.collector.Remove(id)
	o.storage.Unregister(id)
}

func (o *Observer) AddTrackRelation(r domain.TrackRelation) { o.sampler.AddTrackRelation(r) }

func (o *Observer) RemoveTrackRelation(trackID string) { o.sampler.RemoveTrackRelation(trackID) }

// AddMediaDevice records d and reports it in the next sample.
func (o *Observer) AddMediaDevice(d domain.MediaDevice) {
	o.media.Add(d)
	o.sampler.AddMediaDevice(d)
}

func (o *Observer) RemoveMediaDevice(id string) { o.media.Remove(id) }

func (o *Observer) AddMediaConstraints(c string) { o.sampler.AddMediaConstraints(c) }

func (o *Observer) AddUserMediaError(msg string) { o.sampler.AddUserMediaError(msg) }

func (o *Observer) AddExtensionStats(e domain.ExtensionStat) { o.sampler.AddExtensionStats(e) }

func (o *Observer) SetMarker(marker string) { o.sampler.SetMarker(marker) }

// Collect pulls every stats source once. Source failures are logged and do
// not fail the cycle; only a canceled ctx does.
func (o *Observer) Collect(ctx context.Context) error {
	if err := o.collector.Collect(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		o.logger.Warn("error occurred while collecting", zap.Error(err))
	}
	now := o.now()
	o.events.EmitStatsCollected(ctx, events.StatsCollected{At: now, Collectors: o.storage.Collectors()})

	if o.cfg.StatsExpiration > 0 {
		if n := o.storage.Trim(now.Add(-o.cfg.StatsExpiration)); n > 0 {
			o.metrics.EntriesTrimmed.Add(float64(n))
			o.logger.Debug("expired stats trimmed", zap.Int("entries", n))
		}
	}
	return nil
}

// Sample makes a sample when anything changed since the previous one.
func (o *Observer) Sample(ctx context.Context) error {
	s, ok := o.sampler.Make()
	if !ok {
		return nil
	}
	o.metrics.SamplesCreated.Inc()
	if o.currentSender() != nil {
		o.accumulator.Add(*s)
	}
	o.events.EmitSampleCreated(ctx, events.SampleCreated{Sample: s})
	return nil
}

// Send drains the queued samples to the Sender. A failed batch is dropped
// and the Sender is closed and discarded, so later calls return ErrNoSender
// until SetSender installs a new one.
func (o *Observer) Send(ctx context.Context) error {
	o.sendMu.Lock()
	defer o.sendMu.Unlock()

	sender := o.currentSender()
	if sender == nil {
		return domain.ErrNoSender
	}
	sent := 0
	err := o.accumulator.DrainTo(func(batch []domain.ClientSample) error {
		if len(batch) == 0 {
			return nil
		}
		if err := sender.Send(ctx, batch); err != nil {
			return err
		}
		sent += len(batch)
		o.metrics.SamplesSent.Add(float64(len(batch)))
		return nil
	})
	if err != nil {
		o.metrics.SendFailures.Inc()
		o.logger.Warn("send samples failed, sender discarded", zap.Int("sent", sent), zap.Error(err))
		o.discardSender(sender)
	}
	o.events.EmitSamplesSent(ctx, events.SamplesSent{Samples: sent, Err: err})
	return err
}

// SetSender installs s, closing the previous Sender if there was one.
func (o *Observer) SetSender(s ports.Sender) {
	o.senderMu.Lock()
	prev := o.sender
	o.sender = s
	o.senderMu.Unlock()
	if prev != nil && prev != s {
		if err := prev.Close(); err != nil {
			o.logger.Warn("close replaced sender", zap.Error(err))
		}
	}
}

func (o *Observer) currentSender() ports.Sender {
	o.senderMu.RLock()
	defer o.senderMu.RUnlock()
	return o.sender
}

func (o *Observer) discardSender(s ports.Sender) {
	o.senderMu.Lock()
	if o.sender == s {
		o.sender = nil
	}
	o.senderMu.Unlock()
	if s.Closed() {
		return
	}
	if err := s.Close(); err != nil {
		o.logger.Warn("close failed sender", zap.Error(err))
	}
}

// Start arms the enabled cadences. Runs use ctx.
func (o *Observer) Start(ctx context.Context) {
	if o.closed.Load() {
		o.logger.Warn("start on a closed client observer")
		return
	}
	o.timer.Start(ctx)
}

// Run starts the cadences and blocks until ctx is done, then closes the
// observer and waits for in-flight runs.
func (o *Observer) Run(ctx context.Context) error {
	o.Start(ctx)
	<-ctx.Done()
	return multierr.Append(o.Close(), o.timer.Wait())
}

// Close stops the cadences and releases every component. Queued samples are
// not flushed. A second call only logs a warning.
func (o *Observer) Close() error {
	if o.closed.Swap(true) {
		o.logger.Warn("attempted to close twice")
		return nil
	}
	o.timer.Clear()
	o.collector.Close()
	o.sampler.Close()
	o.media.Clear()

	var err error
	if s := o.currentSender(); s != nil {
		err = s.Close()
	}
	o.storage.Clear()
	o.events.Close()
	o.logger.Info("client observer closed", zap.String("clientId", o.sampler.ClientID()))
	return err
}
