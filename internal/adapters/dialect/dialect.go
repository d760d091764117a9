// Package dialect normalizes engine specific raw stats reports into canonical
// records. Each dialect is stateless between calls; every Adapt call returns a
// finite sequence that can be ranged over once.
package dialect

import (
	"iter"
	"maps"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/vshulcz/rtcobserver/internal/domain"
)

const (
	fieldKind       = "kind"
	fieldMediaType  = "mediaType"
	fieldTrackID    = "trackId"
	fieldSenderID   = "senderId"
	fieldReceiverID = "receiverId"
	fieldSSRC       = "ssrc"
	fieldAddress    = "address"
	fieldIP         = "ip"
	fieldIsRemote   = "isRemote"
	fieldNetwork    = "networkType"
)

// mergeUnder lays primary over aux: aux fields are copied first, then every
// primary field overwrites them.
func mergeUnder(aux, primary domain.RawStats) domain.RawStats {
	out := make(domain.RawStats, len(aux)+len(primary))
	maps.Copy(out, aux)
	maps.Copy(out, primary)
	return out
}

// backfillKind sets kind from the legacy mediaType field when kind is unset.
func backfillKind(r domain.RawStats) {
	if r.Has(fieldMediaType) && !r.Has(fieldKind) {
		r[fieldKind] = r[fieldMediaType]
	}
}

// backfillAnchor sets senderId on outbound and receiverId on inbound records
// when the field is unset.
func backfillAnchor(t domain.StatsType, r domain.RawStats, id string) {
	if id == "" {
		return
	}
	field := anchorField(t)
	if field != "" && !r.Has(field) {
		r[field] = id
	}
}

func anchorField(t domain.StatsType) string {
	switch t {
	case domain.StatsTypeOutboundRTP:
		return fieldSenderID
	case domain.StatsTypeInboundRTP:
		return fieldReceiverID
	}
	return ""
}

func anchorType(t domain.StatsType) domain.StatsType {
	if t == domain.StatsTypeOutboundRTP {
		return domain.StatsTypeSender
	}
	return domain.StatsTypeReceiver
}

// backfillAddress copies the legacy ip field into address when unset.
func backfillAddress(r domain.RawStats) {
	if r.Has(fieldIP) && !r.Has(fieldAddress) {
		r[fieldAddress] = r[fieldIP]
	}
}

func isRTP(t domain.StatsType) bool {
	return t == domain.StatsTypeInboundRTP || t == domain.StatsTypeOutboundRTP
}

func isCandidate(t domain.StatsType) bool {
	return t == domain.StatsTypeLocalCandidate || t == domain.StatsTypeRemoteCandidate
}

// auxiliaryOnly reports types that only enrich other records.
func auxiliaryOnly(t domain.StatsType) bool {
	switch t {
	case domain.StatsTypeTrack, domain.StatsTypeRemoteInboundRTP, domain.StatsTypeRemoteOutboundRTP:
		return true
	}
	return false
}

// records yields the non-nil records of a report that carry a string type.
func records(report domain.RawReport) iter.Seq[domain.RawStats] {
	return func(yield func(domain.RawStats) bool) {
		for r := range report.Values() {
			if r == nil || r.Type() == "" {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}

// anchors collects synthesized sender and receiver sources in first-seen
// order, one per (type, id).
type anchors struct {
	order []anchorKey
	src   map[anchorKey]domain.RawStats
}

type anchorKey struct {
	t  domain.StatsType
	id string
}

func (a *anchors) put(t domain.StatsType, id string, src domain.RawStats) {
	if id == "" {
		return
	}
	k := anchorKey{t: t, id: id}
	if a.src == nil {
		a.src = make(map[anchorKey]domain.RawStats)
	}
	if _, ok := a.src[k]; !ok {
		a.order = append(a.order, k)
	}
	a.src[k] = src
}

// emit yields the senders first, then the receivers.
func (a *anchors) emit(e *emitter, yield func(domain.Stats) bool) bool {
	for _, t := range []domain.StatsType{domain.StatsTypeSender, domain.StatsTypeReceiver} {
		for _, k := range a.order {
			if k.t != t {
				continue
			}
			r := a.src[k].Clone()
			r["id"] = k.id
			if !e.emit(t, r, yield) {
				return false
			}
		}
	}
	return true
}

// emitter casts raw records and yields each (type, id) at most once.
type emitter struct {
	logger *zap.Logger
	name   string
	seen   map[anchorKey]struct{}
}

func newEmitter(name string, logger *zap.Logger) *emitter {
	return &emitter{logger: logger, name: name, seen: make(map[anchorKey]struct{})}
}

// emit returns false once the consumer stopped the sequence.
func (e *emitter) emit(t domain.StatsType, r domain.RawStats, yield func(domain.Stats) bool) bool {
	if clean, dropped := r.Finite(); len(dropped) > 0 {
		e.logger.Debug("skip unencodable stats fields",
			zap.String("dialect", e.name),
			zap.String("type", string(t)),
			zap.String("id", r.ID()),
			zap.Strings("fields", dropped))
		r = clean
	}
	s, err := domain.DecodeStats(t, r)
	if err != nil {
		e.logger.Debug("skip raw stats record",
			zap.String("dialect", e.name),
			zap.String("type", string(t)),
			zap.String("id", r.ID()),
			zap.Error(err))
		return true
	}
	k := anchorKey{t: t, id: s.StatsID()}
	if _, dup := e.seen[k]; dup {
		return true
	}
	e.seen[k] = struct{}{}
	return yield(s)
}

// oneShot guards seq so that only the first range produces records.
func oneShot(seq iter.Seq[domain.Stats]) iter.Seq[domain.Stats] {
	var used atomic.Bool
	return func(yield func(domain.Stats) bool) {
		if used.Swap(true) {
			return
		}
		seq(yield)
	}
}

func empty(func(domain.Stats) bool) {}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
