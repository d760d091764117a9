package storage

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vshulcz/rtcobserver/internal/domain"
)

type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func mustDecode(t *testing.T, typ domain.StatsType, raw domain.RawStats) domain.Stats {
	t.Helper()
	s, err := domain.DecodeStats(typ, raw)
	if err != nil {
		t.Fatalf("DecodeStats: %v", err)
	}
	return s
}

func TestStorage_UpdateMergesFields(t *testing.T) {
	st := New()
	st.Register("pc1", "main")

	first := mustDecode(t, domain.StatsTypeInboundRTP, domain.RawStats{"id": "i1", "jitter": 0.25, "packetsReceived": 10.0})
	second := mustDecode(t, domain.StatsTypeInboundRTP, domain.RawStats{"id": "i1", "packetsReceived": 20.0})
	for _, s := range []domain.Stats{first, second} {
		if err := st.Update("pc1", s); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	e, ok := st.Entry("pc1", domain.StatsTypeInboundRTP, "i1")
	if !ok {
		t.Fatal("entry missing")
	}
	in := e.Stats.(*domain.InboundRTP)
	if in.Jitter == nil || *in.Jitter != 0.25 {
		t.Errorf("jitter = %v, want retained 0.25", in.Jitter)
	}
	if in.PacketsReceived == nil || *in.PacketsReceived != 20 {
		t.Errorf("packetsReceived = %v, want 20", in.PacketsReceived)
	}
	if n := len(st.Entries("pc1")); n != 1 {
		t.Errorf("entries = %d, want 1", n)
	}
}

func TestStorage_UpdateClearsNullFields(t *testing.T) {
	st := New()
	st.Register("pc1", "main")

	updates := []domain.RawStats{
		{"id": "o1", "targetBitrate": 300000.0, "packetsSent": 5.0},
		{"id": "o1", "targetBitrate": nil, "packetsSent": 6.0},
		{"id": "o1", "packetsSent": 7.0},
	}
	for _, raw := range updates {
		if err := st.Update("pc1", mustDecode(t, domain.StatsTypeOutboundRTP, raw)); err != nil {
			t.Fatalf("Update: %v", err)
		}
	}

	e, _ := st.Entry("pc1", domain.StatsTypeOutboundRTP, "o1")
	out := e.Stats.(*domain.OutboundRTP)
	if out.TargetBitrate != nil {
		t.Errorf("targetBitrate = %v, want cleared", *out.TargetBitrate)
	}
	if out.PacketsSent == nil || *out.PacketsSent != 7 {
		t.Errorf("packetsSent = %v, want 7", out.PacketsSent)
	}
}

func TestStorage_UnknownCollector(t *testing.T) {
	st := New()
	err := st.Update("nope", mustDecode(t, domain.StatsTypeCodec, domain.RawStats{"id": "c"}))
	if !errors.Is(err, domain.ErrUnknownCollector) {
		t.Fatalf("err = %v, want ErrUnknownCollector", err)
	}
}

func TestStorage_LazyLinkResolution(t *testing.T) {
	st := New()
	st.Register("pc1", "")

	rtp := mustDecode(t, domain.StatsTypeOutboundRTP, domain.RawStats{"id": "o1", "senderId": "t1", "transportId": "tp"})
	if err := st.Update("pc1", rtp); err != nil {
		t.Fatal(err)
	}
	e, _ := st.Entry("pc1", domain.StatsTypeOutboundRTP, "o1")
	l, ok := e.Link(domain.RelationSender)
	if !ok || l.Resolved {
		t.Fatalf("sender link = %+v, want unresolved", l)
	}
	if _, ok := st.Resolve("pc1", l); ok {
		t.Fatal("Resolve found a missing entry")
	}

	if err := st.Update("pc1", mustDecode(t, domain.StatsTypeSender, domain.RawStats{"id": "t1", "kind": "video"})); err != nil {
		t.Fatal(err)
	}
	e, _ = st.Entry("pc1", domain.StatsTypeOutboundRTP, "o1")
	l, _ = e.Link(domain.RelationSender)
	if !l.Resolved {
		t.Fatal("sender link did not resolve once the sender arrived")
	}
	sender, ok := st.Resolve("pc1", l)
	if !ok || sender.ID() != "t1" {
		t.Fatalf("Resolve = %+v, %v", sender, ok)
	}
	if l, _ := e.Link(domain.RelationTransport); l.Resolved {
		t.Error("transport link must stay unresolved")
	}
}

func TestStorage_TrackLinkMatchesAnchor(t *testing.T) {
	st := New()
	st.Register("pc1", "")
	_ = st.Update("pc1", mustDecode(t, domain.StatsTypeInboundRTP, domain.RawStats{"id": "i1", "trackId": "t9"}))
	_ = st.Update("pc1", mustDecode(t, domain.StatsTypeReceiver, domain.RawStats{"id": "t9"}))

	e, _ := st.Entry("pc1", domain.StatsTypeInboundRTP, "i1")
	l, ok := e.Link(domain.RelationTrack)
	if !ok || !l.Resolved {
		t.Fatalf("track link = %+v, want resolved through receiver", l)
	}
}

func TestStorage_Trim(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	st := New(WithClock(clk.Now))
	st.Register("pc1", "")
	st.Register("pc2", "")

	_ = st.Update("pc1", mustDecode(t, domain.StatsTypeCodec, domain.RawStats{"id": "old"}))
	clk.Advance(time.Second)
	boundary := clk.Now()
	_ = st.Update("pc2", mustDecode(t, domain.StatsTypeCodec, domain.RawStats{"id": "edge"}))
	clk.Advance(time.Second)
	_ = st.Update("pc1", mustDecode(t, domain.StatsTypeCodec, domain.RawStats{"id": "new"}))

	if n := st.Trim(boundary); n != 1 {
		t.Fatalf("Trim removed %d, want 1", n)
	}
	if _, ok := st.Entry("pc1", domain.StatsTypeCodec, "old"); ok {
		t.Error("entry older than threshold survived")
	}
	if _, ok := st.Entry("pc2", domain.StatsTypeCodec, "edge"); !ok {
		t.Error("entry updated exactly at threshold was removed")
	}
	if _, ok := st.Entry("pc1", domain.StatsTypeCodec, "new"); !ok {
		t.Error("fresh entry was removed")
	}
}

func TestStorage_UnregisterAndVersion(t *testing.T) {
	st := New()
	v0 := st.Version()
	st.Register("pc1", "a")
	_ = st.Update("pc1", mustDecode(t, domain.StatsTypeCodec, domain.RawStats{"id": "c"}))
	v1 := st.Version()
	if v1 <= v0 {
		t.Fatalf("version did not advance: %d -> %d", v0, v1)
	}
	if st.Version() != v1 {
		t.Fatal("reads must not change the version")
	}

	st.Unregister("pc1")
	st.Unregister("pc1")
	if got := st.Entries("pc1"); got != nil {
		t.Errorf("entries after unregister = %+v", got)
	}
	if len(st.Collectors()) != 0 {
		t.Errorf("collectors = %v", st.Collectors())
	}
	if st.Version() <= v1 {
		t.Error("unregister did not advance the version")
	}
}

func TestStorage_SnapshotIsDeepCopy(t *testing.T) {
	st := New()
	st.Register("pc2", "second")
	st.Register("pc1", "first")
	_ = st.Update("pc1", mustDecode(t, domain.StatsTypeSender, domain.RawStats{"id": "s", "kind": "audio"}))

	snap := st.Snapshot()
	if len(snap) != 2 || snap[0].PeerConnectionID != "pc1" || snap[0].Label != "first" {
		t.Fatalf("snapshot = %+v", snap)
	}
	*snap[0].Stats[0].Stats.(*domain.MediaHandler).Kind = "video"

	e, _ := st.Entry("pc1", domain.StatsTypeSender, "s")
	if *e.Stats.(*domain.MediaHandler).Kind != "audio" {
		t.Fatal("snapshot shares state with storage")
	}
}

func TestStorage_Clear(t *testing.T) {
	st := New()
	st.Register("pc1", "")
	_ = st.Update("pc1", mustDecode(t, domain.StatsTypeCodec, domain.RawStats{"id": "c"}))
	st.Clear()
	if len(st.Snapshot()) != 0 {
		t.Fatal("Clear left collectors behind")
	}
}

func TestStorage_ConcurrentAccess(t *testing.T) {
	st := New()
	st.Register("pc1", "")
	updates := make([]domain.Stats, 8)
	for i := range updates {
		updates[i] = mustDecode(t, domain.StatsTypeCodec, domain.RawStats{"id": "c", "payloadType": float64(i)})
	}
	var wg sync.WaitGroup
	for _, u := range updates {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = st.Update("pc1", u)
		}()
		go func() {
			defer wg.Done()
			_ = st.Snapshot()
		}()
	}
	wg.Wait()
	if n := len(st.Entries("pc1")); n != 1 {
		t.Fatalf("entries = %d, want 1", n)
	}
}
