// Package sampler assembles client samples from the stats read view and the
// metadata queued by the application between samples.
package sampler

import (
	"cmp"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vshulcz/rtcobserver/internal/domain"
	"github.com/vshulcz/rtcobserver/internal/ports"
)

// Config identifies the client in every sample.
type Config struct {
	ClientID string
	CallID   string
	RoomID   string
	UserID   string
}

type Option func(*Sampler)

// WithClock overrides the clock used for sample timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Sampler) { s.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Sampler) { s.logger = l }
}

// Sampler is safe for concurrent use.
type Sampler struct {
	reader  ports.StatsReader
	now     func() time.Time
	logger  *zap.Logger
	devices domain.ClientDevices
	cfg     Config

	relations map[string]domain.TrackRelation
	pending   pending

	mu          sync.Mutex
	seq         int64
	lastVersion uint64
	sampled     bool
	dirty       bool
	closed      bool
}

// pending holds metadata carried by exactly one sample.
type pending struct {
	marker      *string
	devices     []domain.MediaDevice
	constraints []string
	errors      []string
	extensions  []domain.ExtensionStat
}

func (p pending) empty() bool {
	return p.marker == nil && len(p.devices) == 0 && len(p.constraints) == 0 &&
		len(p.errors) == 0 && len(p.extensions) == 0
}

// New creates a Sampler reading from reader. An empty ClientID is replaced by
// a random UUID.
func New(cfg Config, devices domain.ClientDevices, reader ports.StatsReader, opts ...Option) *Sampler {
	if cfg.ClientID == "" {
		cfg.ClientID = uuid.NewString()
	}
	s := &Sampler{
		reader:    reader,
		now:       time.Now,
		logger:    zap.NewNop(),
		devices:   devices,
		cfg:       cfg,
		relations: make(map[string]domain.TrackRelation),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ClientID returns the configured or generated client id.
func (s *Sampler) ClientID() string { return s.cfg.ClientID }

func (s *Sampler) CallID() string { return s.cfg.CallID }

// AddTrackRelation adds or replaces the relation of a track.
func (s *Sampler) AddTrackRelation(r domain.TrackRelation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.relations[r.TrackID]; ok && prev == r {
		return
	}
	s.relations[r.TrackID] = r
	s.dirty = true
}

// RemoveTrackRelation forgets the relation of a track. Unknown ids are ignored.
func (s *Sampler) RemoveTrackRelation(trackID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.relations[trackID]; !ok {
		return
	}
	delete(s.relations, trackID)
	s.dirty = true
}

// AddMediaDevice queues a device for the next sample.
func (s *Sampler) AddMediaDevice(d domain.MediaDevice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.devices = append(s.pending.devices, d)
}

// AddMediaConstraints queues a constraints description for the next sample.
func (s *Sampler) AddMediaConstraints(c string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.constraints = append(s.pending.constraints, c)
}

// AddUserMediaError queues a getUserMedia failure for the next sample.
func (s *Sampler) AddUserMediaError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.errors = append(s.pending.errors, msg)
}

// AddExtensionStats queues application stats for the next sample.
func (s *Sampler) AddExtensionStats(e domain.ExtensionStat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.extensions = append(s.pending.extensions, e)
}

// SetMarker sets the marker of the next sample. A later call before the
// sample is made overwrites it.
func (s *Sampler) SetMarker(marker string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.marker = &marker
}

// Make returns a new sample, or false when neither the stats nor any
// metadata changed since the previous one.
func (s *Sampler) Make() (*domain.ClientSample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	version := s.reader.Version()
	if s.sampled && version == s.lastVersion && !s.dirty && s.pending.empty() {
		return nil, false
	}

	s.seq++
	sample := &domain.ClientSample{
		ClientID:         s.cfg.ClientID,
		CallID:           s.cfg.CallID,
		RoomID:           s.cfg.RoomID,
		UserID:           s.cfg.UserID,
		SampleSeq:        s.seq,
		Timestamp:        s.now().UnixMilli(),
		MediaDevices:     s.pending.devices,
		MediaConstraints: s.pending.constraints,
		UserMediaErrors:  s.pending.errors,
		ExtensionStats:   s.pending.extensions,
		TrackRelations:   s.relationsLocked(),
		PeerConnections:  s.reader.Snapshot(),
	}
	if s.pending.marker != nil {
		sample.Marker = *s.pending.marker
	}
	os, browser, platform, engine := s.devices.OS, s.devices.Browser, s.devices.Platform, s.devices.Engine
	sample.OS, sample.Browser, sample.Platform, sample.Engine = &os, &browser, &platform, &engine

	s.pending = pending{}
	s.lastVersion = version
	s.sampled = true
	s.dirty = false
	s.logger.Debug("sample made",
		zap.Int64("seq", sample.SampleSeq),
		zap.Int("peerConnections", len(sample.PeerConnections)))
	return sample, true
}

// Close drops queued metadata. Make returns false afterwards.
func (s *Sampler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.pending = pending{}
	clear(s.relations)
}

func (s *Sampler) relationsLocked() []domain.TrackRelation {
	if len(s.relations) == 0 {
		return nil
	}
	out := slices.Collect(maps.Values(s.relations))
	slices.SortFunc(out, func(a, b domain.TrackRelation) int { return cmp.Compare(a.TrackID, b.TrackID) })
	return out
}
