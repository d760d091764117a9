package ports

import (
	"context"
	"iter"

	"github.com/vshulcz/rtcobserver/internal/domain"
)

// StatsSource produces a raw stats report of one peer connection on demand.
type StatsSource interface {
	ID() string
	Label() string
	Stats(ctx context.Context) (domain.RawReport, error)
}

// Adapter normalizes one raw report of a single dialect. The returned
// sequence is one-shot.
type Adapter interface {
	Adapt(report domain.RawReport) (iter.Seq[domain.Stats], error)
}

// StatsSink accepts canonical records tagged with their collector id.
type StatsSink interface {
	Update(collectorID string, s domain.Stats) error
}

// StatsReader is the read view over collected stats.
type StatsReader interface {
	Version() uint64
	Collectors() []string
	Entries(collectorID string) []domain.StatsEntry
	Entry(collectorID string, t domain.StatsType, id string) (domain.StatsEntry, bool)
	Resolve(collectorID string, l domain.Link) (domain.StatsEntry, bool)
	Snapshot() []domain.PeerConnectionSample
}

// Sender transmits a batch of samples.
type Sender interface {
	Send(ctx context.Context, batch []domain.ClientSample) error
	Close() error
	Closed() bool
}
