package ports

import (
	"context"

	"github.com/vshulcz/rtcobserver/internal/domain"
)

// ClientSummary describes one reporting client known to the collector server.
type ClientSummary struct {
	ClientID  string `json:"clientId"`
	CallID    string `json:"callId,omitempty"`
	Samples   int64  `json:"samples"`
	LastSeq   int64  `json:"lastSeq"`
	UpdatedAt int64  `json:"updatedAt"`
}

type SamplesRepo interface {
	SaveMany(ctx context.Context, items []domain.ClientSample) error
	Latest(ctx context.Context, clientID string) (domain.ClientSample, error)
	Clients(ctx context.Context) ([]ClientSummary, error)
	// Snapshot returns the latest sample of every client.
	Snapshot(ctx context.Context) ([]domain.ClientSample, error)
	Ping(ctx context.Context) error
}

type Persister interface {
	Save(ctx context.Context, latest []domain.ClientSample) error
	Restore(ctx context.Context, repo SamplesRepo) error
}
