// Package pion reads raw stats reports from pion peer connections.
package pion

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"

	"github.com/pion/webrtc/v3"

	"github.com/vshulcz/rtcobserver/internal/domain"
	"github.com/vshulcz/rtcobserver/internal/ports"
)

// StatsGetter is satisfied by *webrtc.PeerConnection.
type StatsGetter interface {
	GetStats() webrtc.StatsReport
}

type Source struct {
	pc    StatsGetter
	id    string
	label string
}

var _ ports.StatsSource = (*Source)(nil)

func New(id, label string, pc StatsGetter) *Source {
	return &Source{pc: pc, id: id, label: label}
}

func (s *Source) ID() string { return s.id }

func (s *Source) Label() string { return s.label }

// Stats takes a fresh report from the peer connection.
func (s *Source) Stats(ctx context.Context) (domain.RawReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pc == nil {
		return nil, fmt.Errorf("%w: no peer connection", domain.ErrInvalidInput)
	}
	return Convert(s.pc.GetStats())
}

// Convert turns every typed stats value into a field bag keyed by its json
// names. Records come out ordered by report key; a record without an id
// takes its key.
func Convert(report webrtc.StatsReport) (domain.RawStatsList, error) {
	out := make(domain.RawStatsList, 0, len(report))
	for _, key := range slices.Sorted(maps.Keys(report)) {
		var raw domain.RawStats
		b, err := json.Marshal(report[key])
		if err != nil {
			// NaN and infinite values fail the whole struct; keep the rest.
			if raw, err = fieldsOf(report[key]); err != nil {
				return nil, fmt.Errorf("marshal %s: %w", key, err)
			}
		} else if err := json.Unmarshal(b, &raw); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", key, err)
		}
		if raw == nil {
			continue
		}
		if raw.ID() == "" {
			raw["id"] = key
		}
		out = append(out, raw)
	}
	return out, nil
}

// fieldsOf encodes the fields of a stats struct one by one, leaving out the
// ones json can not encode.
func fieldsOf(v any) (domain.RawStats, error) {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("unsupported stats value %T", v)
	}
	rt := rv.Type()
	raw := make(domain.RawStats, rt.NumField())
	for i := range rt.NumField() {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		b, err := json.Marshal(rv.Field(i).Interface())
		if err != nil {
			continue
		}
		var val any
		if err := json.Unmarshal(b, &val); err != nil {
			continue
		}
		raw[name] = val
	}
	return raw, nil
}
