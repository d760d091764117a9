package pion

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/pion/webrtc/v3"

	"github.com/vshulcz/rtcobserver/internal/adapters/dialect"
	"github.com/vshulcz/rtcobserver/internal/domain"
)

type statsFunc func() webrtc.StatsReport

func (f statsFunc) GetStats() webrtc.StatsReport { return f() }

func report() webrtc.StatsReport {
	return webrtc.StatsReport{
		"RTCOutboundRTPVideoStream_111": webrtc.OutboundRTPStreamStats{
			ID:          "RTCOutboundRTPVideoStream_111",
			Type:        webrtc.StatsTypeOutboundRTP,
			SSRC:        111,
			Kind:        "video",
			PacketsSent: 42,
		},
		"candidate-1": webrtc.ICECandidateStats{
			ID:       "candidate-1",
			Type:     webrtc.StatsTypeLocalCandidate,
			IP:       "192.0.2.1",
			Port:     5000,
			Protocol: "udp",
		},
		"codec-1": webrtc.CodecStats{
			Type:        webrtc.StatsTypeCodec,
			PayloadType: 96,
			MimeType:    "video/VP8",
		},
	}
}

func TestConvert(t *testing.T) {
	raw, err := Convert(report())
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 3 {
		t.Fatalf("records = %d, want 3", len(raw))
	}
	if raw[0].ID() != "RTCOutboundRTPVideoStream_111" || raw[0].Type() != "outbound-rtp" {
		t.Errorf("first record = %v", raw[0])
	}
	if raw[2].ID() != "codec-1" {
		t.Errorf("codec id = %q, want report key", raw[2].ID())
	}
	if v, ok := raw[0]["packetsSent"].(float64); !ok || v != 42 {
		t.Errorf("packetsSent = %v", raw[0]["packetsSent"])
	}
}

func TestConvert_NonFiniteFields(t *testing.T) {
	raw, err := Convert(webrtc.StatsReport{
		"in": webrtc.InboundRTPStreamStats{
			ID:              "in",
			Type:            webrtc.StatsTypeInboundRTP,
			Kind:            "audio",
			PacketsReceived: 7,
			Jitter:          math.NaN(),
		},
		"out": webrtc.OutboundRTPStreamStats{
			ID:            "out",
			Type:          webrtc.StatsTypeOutboundRTP,
			Kind:          "video",
			TargetBitrate: math.Inf(1),
		},
	})
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if len(raw) != 2 {
		t.Fatalf("records = %d, want 2", len(raw))
	}
	in, out := raw[0], raw[1]
	if _, ok := in["jitter"]; ok {
		t.Errorf("jitter = %v, want left out", in["jitter"])
	}
	if v, ok := in["packetsReceived"].(float64); !ok || v != 7 {
		t.Errorf("packetsReceived = %v, want 7", in["packetsReceived"])
	}
	if _, ok := out["targetBitrate"]; ok {
		t.Errorf("targetBitrate = %v, want left out", out["targetBitrate"])
	}
	if out.Type() != "outbound-rtp" || out.ID() != "out" {
		t.Errorf("outbound record = %v", out)
	}
}

func TestSource_ThroughPionDialect(t *testing.T) {
	src := New("pc1", "loopback", statsFunc(report))
	rep, err := src.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	seq, err := dialect.NewPion(nil).Adapt(rep)
	if err != nil {
		t.Fatal(err)
	}
	got := map[domain.StatsType]domain.Stats{}
	for s := range seq {
		got[s.StatsType()] = s
	}

	cand, ok := got[domain.StatsTypeLocalCandidate].(*domain.ICECandidate)
	if !ok || cand.Address == nil || *cand.Address != "192.0.2.1" {
		t.Errorf("candidate = %+v", got[domain.StatsTypeLocalCandidate])
	}
	rtp, ok := got[domain.StatsTypeOutboundRTP].(*domain.OutboundRTP)
	if !ok || rtp.SenderID == nil || *rtp.SenderID != "RTCOutboundRTPVideoStream_111" {
		t.Errorf("outbound = %+v", got[domain.StatsTypeOutboundRTP])
	}
	if _, ok := got[domain.StatsTypeSender]; !ok {
		t.Error("sender not synthesized")
	}
	if _, ok := got[domain.StatsTypeCodec]; !ok {
		t.Error("codec missing")
	}
}

func TestSource_Errors(t *testing.T) {
	if _, err := New("pc1", "", nil).Stats(context.Background()); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("nil pc err = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New("pc1", "", statsFunc(report)).Stats(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled err = %v", err)
	}
}
