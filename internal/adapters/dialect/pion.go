package dialect

import (
	"iter"

	"go.uber.org/zap"

	"github.com/vshulcz/rtcobserver/internal/domain"
	"github.com/vshulcz/rtcobserver/internal/ports"
)

// Pion handles reports produced by pion/webrtc peer connections. Rtp records
// carry their own senderId or receiverId; a track record, when present, is
// merged under the rtp record it is referenced by.
type Pion struct {
	logger *zap.Logger
}

var _ ports.Adapter = (*Pion)(nil)

// NewPion returns the dialect for reports converted from pion peer connections.
func NewPion(logger *zap.Logger) *Pion {
	return &Pion{logger: orNop(logger)}
}

// Adapt never fails: a nil report is logged and yields nothing.
func (a *Pion) Adapt(report domain.RawReport) (iter.Seq[domain.Stats], error) {
	if report == nil {
		a.logger.Warn("pion: nil stats report")
		return oneShot(empty), nil
	}
	return oneShot(func(yield func(domain.Stats) bool) {
		tracks := make(map[string]domain.RawStats)
		for r := range records(report) {
			if domain.StatsType(r.Type()) == domain.StatsTypeTrack && r.ID() != "" {
				tracks[r.ID()] = r
			}
		}

		e := newEmitter("pion", a.logger)
		var anch anchors
		for r := range records(report) {
			t := domain.StatsType(r.Type())
			if auxiliaryOnly(t) {
				continue
			}
			r = r.Clone()
			switch {
			case isRTP(t):
				src := r
				if trackID, ok := r.Key(fieldTrackID); ok {
					if track, found := tracks[trackID]; found {
						r = mergeUnder(track, r)
						src = track
					}
				}
				backfillKind(r)
				backfillAnchor(t, r, r.ID())
				if id, ok := r.Key(anchorField(t)); ok {
					anch.put(anchorType(t), id, src)
				}
			case isCandidate(t):
				backfillAddress(r)
				delete(r, fieldIP)
				delete(r, fieldNetwork)
			}
			if !e.emit(t, r, yield) {
				return
			}
		}
		anch.emit(e, yield)
	}), nil
}
