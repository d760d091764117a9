package dialect

import (
	"iter"

	"go.uber.org/zap"

	"github.com/vshulcz/rtcobserver/internal/domain"
	"github.com/vshulcz/rtcobserver/internal/ports"
)

// Firefox94 handles Gecko and WebKit reports. They carry no track records, so
// senders and receivers are synthesized from the rtp records themselves.
type Firefox94 struct {
	logger *zap.Logger
}

var _ ports.Adapter = (*Firefox94)(nil)

// NewFirefox94 returns the dialect for Firefox 94 and later.
func NewFirefox94(logger *zap.Logger) *Firefox94 {
	return &Firefox94{logger: orNop(logger)}
}

// Adapt never fails: a nil report is logged and yields nothing.
func (a *Firefox94) Adapt(report domain.RawReport) (iter.Seq[domain.Stats], error) {
	if report == nil {
		a.logger.Warn("firefox94: nil stats report")
		return oneShot(empty), nil
	}
	return oneShot(func(yield func(domain.Stats) bool) {
		e := newEmitter("firefox94", a.logger)
		var anch anchors
		for r := range records(report) {
			t := domain.StatsType(r.Type())
			if auxiliaryOnly(t) {
				continue
			}
			r = r.Clone()
			switch {
			case isRTP(t):
				backfillKind(r)
				if trackID, ok := r.Key(fieldTrackID); ok {
					backfillAnchor(t, r, trackID)
				}
				backfillAnchor(t, r, r.ID())
				if id, ok := r.Key(anchorField(t)); ok {
					anch.put(anchorType(t), id, r)
				}
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
