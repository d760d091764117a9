// Package source provides stats sources for the collector.
package source

import (
	"context"

	"github.com/vshulcz/rtcobserver/internal/domain"
	"github.com/vshulcz/rtcobserver/internal/ports"
)

// Func is a stats source backed by a callback, for connections whose
// stats are produced outside pion.
type Func struct {
	Pull     func(ctx context.Context) (domain.RawReport, error)
	SourceID string
	Name     string
}

var _ ports.StatsSource = (*Func)(nil)

func (f *Func) ID() string { return f.SourceID }

func (f *Func) Label() string { return f.Name }

func (f *Func) Stats(ctx context.Context) (domain.RawReport, error) {
	if f.Pull == nil {
		return nil, domain.ErrInvalidInput
	}
	return f.Pull(ctx)
}
