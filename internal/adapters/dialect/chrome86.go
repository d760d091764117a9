package dialect

import (
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/vshulcz/rtcobserver/internal/domain"
	"github.com/vshulcz/rtcobserver/internal/ports"
)

// Chrome86 handles reports of Chromium up to version 86, where rtp records
// reference their track record by trackId.
type Chrome86 struct {
	logger *zap.Logger
}

var _ ports.Adapter = (*Chrome86)(nil)

// NewChrome86 returns the dialect for Chromium 86 and earlier. A nil logger
// discards output.
func NewChrome86(logger *zap.Logger) *Chrome86 {
	return &Chrome86{logger: orNop(logger)}
}

// Adapt rejects a nil report with ErrInvalidInput.
func (a *Chrome86) Adapt(report domain.RawReport) (iter.Seq[domain.Stats], error) {
	if report == nil {
		return nil, fmt.Errorf("%w: chrome86: report is nil", domain.ErrInvalidInput)
	}
	return oneShot(func(yield func(domain.Stats) bool) {
		tracks := make(map[string]domain.RawStats)
		for r := range records(report) {
			if domain.StatsType(r.Type()) == domain.StatsTypeTrack && r.ID() != "" {
				tracks[r.ID()] = r
			}
		}

		e := newEmitter("chrome86", a.logger)
		var anch anchors
		for r := range records(report) {
			t := domain.StatsType(r.Type())
			if auxiliaryOnly(t) {
				continue
			}
			r = r.Clone()
			switch {
			case isRTP(t):
				if trackID, ok := r.Key(fieldTrackID); ok {
					if track, found := tracks[trackID]; found {
						r = mergeUnder(track, r)
						anch.put(anchorType(t), track.ID(), track)
					}
					backfillAnchor(t, r, trackID)
				}
				backfillKind(r)
			case isCandidate(t):
				backfillAddress(r)
			}
			if !e.emit(t, r, yield) {
				return
			}
		}
		anch.emit(e, yield)
	}), nil
}
