// Package memory implements an in-memory client samples repository.
package memory

import (
	"cmp"
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/vshulcz/rtcobserver/internal/domain"
	"github.com/vshulcz/rtcobserver/internal/ports"
)

const defaultRetain = 100

type client struct {
	samples []domain.ClientSample
	summary ports.ClientSummary
}

// Repo keeps the most recent samples of every client with coarse-grained RW locking.
type Repo struct {
	clients map[string]*client
	retain  int
	mu      sync.RWMutex
}

var _ ports.SamplesRepo = (*Repo)(nil)

// New returns an empty repository keeping at most retain samples per client.
func New(retain int) *Repo {
	if retain <= 0 {
		retain = defaultRetain
	}
	return &Repo{clients: make(map[string]*client), retain: retain}
}

// SaveMany appends the batch in order, dropping the oldest samples of a
// client beyond the retention limit.
func (r *Repo) SaveMany(_ context.Context, items []domain.ClientSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range items {
		c, ok := r.clients[s.ClientID]
		if !ok {
			c = &client{summary: ports.ClientSummary{ClientID: s.ClientID}}
			r.clients[s.ClientID] = c
		}
		c.samples = append(c.samples, s)
		if over := len(c.samples) - r.retain; over > 0 {
			c.samples = slices.Delete(c.samples, 0, over)
		}
		c.summary.Samples++
		c.summary.LastSeq = s.SampleSeq
		c.summary.UpdatedAt = s.Timestamp
		if s.CallID != "" {
			c.summary.CallID = s.CallID
		}
	}
	return nil
}

// Latest returns the last saved sample of a client or domain.ErrNotFound.
func (r *Repo) Latest(_ context.Context, clientID string) (domain.ClientSample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[clientID]
	if !ok || len(c.samples) == 0 {
		return domain.ClientSample{}, domain.ErrNotFound
	}
	return c.samples[len(c.samples)-1], nil
}

// History returns the retained samples of a client, oldest first.
func (r *Repo) History(_ context.Context, clientID string) ([]domain.ClientSample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[clientID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return slices.Clone(c.samples), nil
}

func (r *Repo) Clients(_ context.Context) ([]ports.ClientSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ports.ClientSummary, 0, len(r.clients))
	for _, id := range slices.Sorted(maps.Keys(r.clients)) {
		out = append(out, r.clients[id].summary)
	}
	return out, nil
}

// Snapshot returns the latest sample of every client ordered by client id.
func (r *Repo) Snapshot(_ context.Context) ([]domain.ClientSample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ClientSample, 0, len(r.clients))
	for _, c := range r.clients {
		if n := len(c.samples); n > 0 {
			out = append(out, c.samples[n-1])
		}
	}
	slices.SortFunc(out, func(a, b domain.ClientSample) int { return cmp.Compare(a.ClientID, b.ClientID) })
	return out, nil
}

// Ping reports that the in-memory store is not backed by a real database.
func (*Repo) Ping(context.Context) error {
	return errors.New("db not configured")
}
