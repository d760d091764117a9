package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// NewStats returns an empty variant for the given canonical type.
func NewStats(t StatsType) (Stats, error) {
	var s Stats
	switch t {
	case StatsTypeTrack, StatsTypeSender, StatsTypeReceiver:
		s = &MediaHandler{Base: Base{Type: t}}
	case StatsTypeInboundRTP:
		s = &InboundRTP{Base: Base{Type: t}}
	case StatsTypeOutboundRTP:
		s = &OutboundRTP{Base: Base{Type: t}}
	case StatsTypeLocalCandidate, StatsTypeRemoteCandidate:
		s = &ICECandidate{Base: Base{Type: t}}
	case StatsTypeCandidatePair:
		s = &CandidatePair{Base: Base{Type: t}}
	case StatsTypeCodec:
		s = &Codec{Base: Base{Type: t}}
	case StatsTypeTransport:
		s = &Transport{Base: Base{Type: t}}
	case StatsTypePeerConnection:
		s = &PeerConnection{Base: Base{Type: t}}
	case StatsTypeDataChannel:
		s = &DataChannel{Base: Base{Type: t}}
	case StatsTypeMediaSource:
		s = &MediaSource{Base: Base{Type: t}}
	case StatsTypeCertificate:
		s = &Certificate{Base: Base{Type: t}}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatsType, t)
	}
	return s, nil
}

// DecodeStats casts a raw field bag into the variant of type t. The record
// type is always t, whatever the raw "type" says. Fields outside the variant
// are ignored; a field whose value has the wrong kind or can not be encoded
// (NaN, infinity) is left unset. Fields set to null are remembered so that
// MergeStats clears them.
func DecodeStats(t StatsType, raw RawStats) (Stats, error) {
	s, err := NewStats(t)
	if err != nil {
		return nil, err
	}
	raw, _ = raw.Finite()
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode raw %s: %w", t, err)
	}
	if err := overlay(s, b); err != nil {
		return nil, err
	}
	setType(s, t)
	if b, ok := s.(interface{ base() *Base }); ok {
		b.base().cleared = raw.Cleared()
	}
	if s.StatsID() == "" {
		return nil, fmt.Errorf("%w: %s record without id", ErrInvalidInput, t)
	}
	return s, nil
}

// MergeStats returns a new record holding prev's fields overwritten by every
// field set on next. Fields next leaves unset keep prev's value, unless next
// was decoded from a null field.
func MergeStats(prev, next Stats) (Stats, error) {
	if prev == nil {
		return CloneStats(next)
	}
	if prev.StatsType() != next.StatsType() {
		return nil, fmt.Errorf("merge %s into %s", next.StatsType(), prev.StatsType())
	}
	out, err := CloneStats(prev)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", next.StatsType(), err)
	}
	if err := overlay(out, b); err != nil {
		return nil, err
	}
	if cleared := clearedOf(next); len(cleared) > 0 {
		return without(out, cleared)
	}
	return out, nil
}

// without rebuilds s with the named json fields unset.
func without(s Stats, fields []string) (Stats, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", s.StatsType(), err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.StatsType(), err)
	}
	for _, f := range fields {
		delete(m, f)
	}
	if b, err = json.Marshal(m); err != nil {
		return nil, fmt.Errorf("encode %s: %w", s.StatsType(), err)
	}
	out, err := NewStats(s.StatsType())
	if err != nil {
		return nil, err
	}
	if err := overlay(out, b); err != nil {
		return nil, err
	}
	return out, nil
}

// CloneStats deep-copies a record.
func CloneStats(s Stats) (Stats, error) {
	out, err := NewStats(s.StatsType())
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", s.StatsType(), err)
	}
	if err := overlay(out, b); err != nil {
		return nil, err
	}
	return out, nil
}

func overlay(dst Stats, b []byte) error {
	err := json.Unmarshal(b, dst)
	var te *json.UnmarshalTypeError
	if err != nil && !errors.As(err, &te) {
		return fmt.Errorf("decode %s: %w", dst.StatsType(), err)
	}
	return nil
}

func setType(s Stats, t StatsType) {
	if b, ok := s.(interface{ base() *Base }); ok {
		b.base().Type = t
	}
}

func clearedOf(s Stats) []string {
	if b, ok := s.(interface{ base() *Base }); ok {
		return b.base().cleared
	}
	return nil
}

func (b *Base) base() *Base { return b }
