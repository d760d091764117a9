// Package storage keeps the latest canonical stats of every registered
// collector and resolves the relations between them at read time.
package storage

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vshulcz/rtcobserver/internal/domain"
	"github.com/vshulcz/rtcobserver/internal/ports"
)

type entryKey struct {
	t  domain.StatsType
	id string
}

type collector struct {
	label   string
	entries map[entryKey]*domain.StatsEntry
}

// Storage is safe for concurrent use. Reads see every completed Update.
type Storage struct {
	collectors map[string]*collector
	now        func() time.Time
	logger     *zap.Logger
	version    uint64
	mu         sync.RWMutex
}

var (
	_ ports.StatsSink   = (*Storage)(nil)
	_ ports.StatsReader = (*Storage)(nil)
)

type Option func(*Storage)

// WithClock overrides the clock used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) { s.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Storage) { s.logger = l }
}

func New(opts ...Option) *Storage {
	s := &Storage{
		collectors: make(map[string]*collector),
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register adds a collector. Registering a known id only updates its label.
func (s *Storage) Register(id, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collectors[id]; ok {
		c.label = label
		return
	}
	s.collectors[id] = &collector{label: label, entries: make(map[entryKey]*domain.StatsEntry)}
	s.version++
}

// Unregister drops a collector with all of its entries.
func (s *Storage) Unregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collectors[id]; !ok {
		return
	}
	delete(s.collectors, id)
	s.version++
}

// Update merges st into the entry of the same type and id.
func (s *Storage) Update(collectorID string, st domain.Stats) error {
	if st == nil {
		return fmt.Errorf("%w: nil stats", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collectors[collectorID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownCollector, collectorID)
	}
	k := entryKey{t: st.StatsType(), id: st.StatsID()}
	e, ok := c.entries[k]
	if !ok {
		e = &domain.StatsEntry{CollectorID: collectorID}
		c.entries[k] = e
	}
	merged, err := domain.MergeStats(e.Stats, st)
	if err != nil {
		if e.Stats == nil {
			delete(c.entries, k)
		}
		return fmt.Errorf("update %s/%s: %w", k.t, k.id, err)
	}
	e.Stats = merged
	e.UpdatedAt = s.now()
	e.Links = domain.LinksOf(merged)
	s.version++
	return nil
}

// Trim removes every entry last updated strictly before threshold and
// returns how many were removed.
func (s *Storage) Trim(threshold time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for _, c := range s.collectors {
		for k, e := range c.entries {
			if e.UpdatedAt.Before(threshold) {
				delete(c.entries, k)
				removed++
			}
		}
	}
	if removed > 0 {
		s.version++
		s.logger.Debug("stats entries trimmed", zap.Int("removed", removed), zap.Time("threshold", threshold))
	}
	return removed
}

// Clear drops all collectors and entries.
func (s *Storage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.collectors)
	s.version++
}

// Version changes after every mutation.
func (s *Storage) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Collectors returns the registered collector ids in order.
func (s *Storage) Collectors() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.collectors))
	for id := range s.collectors {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Label returns the label of a registered collector.
func (s *Storage) Label(collectorID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collectors[collectorID]
	if !ok {
		return "", false
	}
	return c.label, true
}

// Entries returns copies of the collector's entries ordered by type and id.
func (s *Storage) Entries(collectorID string) []domain.StatsEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collectors[collectorID]
	if !ok {
		return nil
	}
	return s.entriesLocked(c)
}

func (s *Storage) Entry(collectorID string, t domain.StatsType, id string) (domain.StatsEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collectors[collectorID]
	if !ok {
		return domain.StatsEntry{}, false
	}
	e, ok := c.entries[entryKey{t: t, id: id}]
	if !ok {
		return domain.StatsEntry{}, false
	}
	return s.copyLocked(c, e), true
}

// Resolve returns the entry a link points to. Track links also match the
// sender or receiver synthesized from that track.
func (s *Storage) Resolve(collectorID string, l domain.Link) (domain.StatsEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collectors[collectorID]
	if !ok {
		return domain.StatsEntry{}, false
	}
	e := lookup(c, l)
	if e == nil {
		return domain.StatsEntry{}, false
	}
	return s.copyLocked(c, e), true
}

// Snapshot copies the whole storage. It never blocks on I/O, so a Trim can
// not interleave with it.
func (s *Storage) Snapshot() []domain.PeerConnectionSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PeerConnectionSample, 0, len(s.collectors))
	for id, c := range s.collectors {
		out = append(out, domain.PeerConnectionSample{
			PeerConnectionID: id,
			Label:            c.label,
			Stats:            s.entriesLocked(c),
		})
	}
	slices.SortFunc(out, func(a, b domain.PeerConnectionSample) int {
		return cmp.Compare(a.PeerConnectionID, b.PeerConnectionID)
	})
	return out
}

func (s *Storage) entriesLocked(c *collector) []domain.StatsEntry {
	out := make([]domain.StatsEntry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, s.copyLocked(c, e))
	}
	slices.SortFunc(out, func(a, b domain.StatsEntry) int {
		return cmp.Or(cmp.Compare(a.Type(), b.Type()), cmp.Compare(a.ID(), b.ID()))
	})
	return out
}

func (s *Storage) copyLocked(c *collector, e *domain.StatsEntry) domain.StatsEntry {
	out := *e
	if st, err := domain.CloneStats(e.Stats); err == nil {
		out.Stats = st
	} else {
		s.logger.Warn("stats entry copy failed", zap.String("type", string(e.Type())), zap.Error(err))
	}
	out.Links = make([]domain.Link, len(e.Links))
	for i, l := range e.Links {
		l.Resolved = lookup(c, l) != nil
		out.Links[i] = l
	}
	return out
}

func lookup(c *collector, l domain.Link) *domain.StatsEntry {
	if e, ok := c.entries[entryKey{t: l.Type, id: l.ID}]; ok {
		return e
	}
	if l.Type != domain.StatsTypeTrack {
		return nil
	}
	for _, t := range []domain.StatsType{domain.StatsTypeSender, domain.StatsTypeReceiver} {
		if e, ok := c.entries[entryKey{t: t, id: l.ID}]; ok {
			return e
		}
	}
	return nil
}
