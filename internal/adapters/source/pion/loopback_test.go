package pion

import (
	"context"
	"testing"

	"github.com/pion/webrtc/v3"

	"github.com/vshulcz/rtcobserver/internal/domain"
)

func TestLoopback(t *testing.T) {
	l, err := NewLoopback(webrtc.Configuration{})
	if err != nil {
		t.Skipf("peer connections unavailable: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })

	sources := l.Sources()
	if len(sources) != 2 || sources[0].ID() == sources[1].ID() {
		t.Fatalf("sources = %+v", sources)
	}
	report, err := sources[0].Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	list, ok := report.(domain.RawStatsList)
	if !ok {
		t.Fatalf("report type %T", report)
	}
	var pc bool
	for _, raw := range list {
		if raw.Type() == "peer-connection" {
			pc = true
		}
	}
	if !pc {
		t.Errorf("no peer-connection stats in %v", list)
	}

	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
