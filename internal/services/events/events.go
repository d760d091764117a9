// Package events relays pipeline notifications to application listeners.
package events

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vshulcz/rtcobserver/internal/domain"
	"github.com/vshulcz/rtcobserver/pkg/observer"
)

// StatsCollected follows every collect cycle.
type StatsCollected struct {
	At         time.Time
	Collectors []string
}

// SampleCreated carries each sample as soon as it is made.
type SampleCreated struct {
	Sample *domain.ClientSample
}

// SamplesSent follows every send cycle.
type SamplesSent struct {
	Err     error
	Samples int
}

type Relayer struct {
	collected *observer.Subject[StatsCollected]
	created   *observer.Subject[SampleCreated]
	sent      *observer.Subject[SamplesSent]
}

func New(logger *zap.Logger) *Relayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Relayer{
		collected: observer.NewSubject[StatsCollected](),
		created:   observer.NewSubject[SampleCreated](),
		sent:      observer.NewSubject[SamplesSent](),
	}
	onErr := func(err error) { logger.Warn("event listener failed", zap.Error(err)) }
	r.collected.SetErrorHandler(onErr)
	r.created.SetErrorHandler(onErr)
	r.sent.SetErrorHandler(onErr)
	return r
}

func (r *Relayer) OnStatsCollected(fn func(context.Context, StatsCollected) error) (off func()) {
	return r.collected.Subscribe(observer.ObserverFunc[StatsCollected](fn))
}

func (r *Relayer) OnSampleCreated(fn func(context.Context, SampleCreated) error) (off func()) {
	return r.created.Subscribe(observer.ObserverFunc[SampleCreated](fn))
}

func (r *Relayer) OnSamplesSent(fn func(context.Context, SamplesSent) error) (off func()) {
	return r.sent.Subscribe(observer.ObserverFunc[SamplesSent](fn))
}

func (r *Relayer) EmitStatsCollected(ctx context.Context, e StatsCollected) {
	r.collected.Publish(ctx, e)
}

func (r *Relayer) EmitSampleCreated(ctx context.Context, e SampleCreated) {
	r.created.Publish(ctx, e)
}

func (r *Relayer) EmitSamplesSent(ctx context.Context, e SamplesSent) {
	r.sent.Publish(ctx, e)
}

// Close removes every listener.
func (r *Relayer) Close() {
	r.collected.Clear()
	r.created.Clear()
	r.sent.Clear()
}
