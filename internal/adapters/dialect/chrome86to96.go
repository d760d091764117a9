package dialect

import (
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/vshulcz/rtcobserver/internal/domain"
	"github.com/vshulcz/rtcobserver/internal/ports"
)

// Chrome86to96 handles reports of Chromium 87 and later. Track records are
// correlated with rtp records by ssrc and the legacy trackId, mediaType, ip,
// isRemote and networkType fields are dropped.
type Chrome86to96 struct {
	logger *zap.Logger
}

var _ ports.Adapter = (*Chrome86to96)(nil)

// NewChrome86to96 returns the dialect for Chromium 87 and later.
func NewChrome86to96(logger *zap.Logger) *Chrome86to96 {
	return &Chrome86to96{logger: orNop(logger)}
}

// Adapt rejects a nil report with ErrInvalidInput.
func (a *Chrome86to96) Adapt(report domain.RawReport) (iter.Seq[domain.Stats], error) {
	if report == nil {
		return nil, fmt.Errorf("%w: chrome86to96: report is nil", domain.ErrInvalidInput)
	}
	return oneShot(func(yield func(domain.Stats) bool) {
		tracks := make(map[string]domain.RawStats)
		for r := range records(report) {
			if domain.StatsType(r.Type()) != domain.StatsTypeTrack {
				continue
			}
			if ssrc, ok := r.Key(fieldSSRC); ok {
				tracks[ssrc] = r
			}
		}

		e := newEmitter("chrome86to96", a.logger)
		var anch anchors
		for r := range records(report) {
			t := domain.StatsType(r.Type())
			if auxiliaryOnly(t) {
				continue
			}
			r = r.Clone()
			switch {
			case isRTP(t):
				if ssrc, ok := r.Key(fieldSSRC); ok {
					if track, found := tracks[ssrc]; found {
						r = mergeUnder(track, r)
						backfillAnchor(t, r, track.ID())
						anch.put(anchorType(t), track.ID(), track)
					}
				}
				backfillKind(r)
				delete(r, fieldMediaType)
				delete(r, fieldTrackID)
			case isCandidate(t):
				backfillAddress(r)
				delete(r, fieldIP)
				delete(r, fieldIsRemote)
				if t == domain.StatsTypeLocalCandidate {
					delete(r, fieldNetwork)
				}
			}
			if !e.emit(t, r, yield) {
				return
			}
		}
		anch.emit(e, yield)
	}), nil
}
