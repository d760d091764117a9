package sampler

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vshulcz/rtcobserver/internal/domain"
	"github.com/vshulcz/rtcobserver/internal/services/storage"
)

var devices = domain.ClientDevices{
	OS:      domain.OperationSystem{Name: "linux"},
	Browser: domain.Browser{Name: "pion", Version: "v3.2.9"},
	Engine:  domain.Engine{Name: "pion", Version: "v3.2.9"},
}

func newSampler(t *testing.T) (*Sampler, *storage.Storage) {
	t.Helper()
	st := storage.New()
	st.Register("pc1", "main")
	clock := func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	return New(Config{ClientID: "client", CallID: "call"}, devices, st, WithClock(clock)), st
}

func update(t *testing.T, st *storage.Storage, raw domain.RawStats) {
	t.Helper()
	s, err := domain.DecodeStats(domain.StatsTypeCodec, raw)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Update("pc1", s); err != nil {
		t.Fatal(err)
	}
}

func TestMake_NothingNew(t *testing.T) {
	s, st := newSampler(t)
	update(t, st, domain.RawStats{"id": "c1"})

	first, ok := s.Make()
	if !ok {
		t.Fatal("first Make returned nothing")
	}
	if first.ClientID != "client" || first.CallID != "call" || first.SampleSeq != 1 {
		t.Errorf("sample header = %+v", first)
	}
	if first.Timestamp != 1_700_000_000_000 {
		t.Errorf("timestamp = %d", first.Timestamp)
	}
	if len(first.PeerConnections) != 1 || len(first.PeerConnections[0].Stats) != 1 {
		t.Errorf("peer connections = %+v", first.PeerConnections)
	}
	if first.Browser == nil || first.Browser.Name != "pion" {
		t.Errorf("browser = %+v", first.Browser)
	}

	if _, ok := s.Make(); ok {
		t.Fatal("second Make without changes produced a sample")
	}

	update(t, st, domain.RawStats{"id": "c1", "payloadType": 96.0})
	next, ok := s.Make()
	if !ok || next.SampleSeq != 2 {
		t.Fatalf("Make after storage change = %+v, %v", next, ok)
	}
}

func TestMake_PendingConsumedOnce(t *testing.T) {
	s, _ := newSampler(t)
	s.Make()

	s.AddMediaConstraints("video: 720p")
	s.AddUserMediaError("NotAllowedError")
	s.AddUserMediaError("NotFoundError")
	s.AddExtensionStats(domain.ExtensionStat{ExtensionType: "app", Payload: `{"x":1}`})
	s.AddMediaDevice(domain.MediaDevice{ID: "mic", Kind: domain.AudioInput})
	s.SetMarker("first")
	s.SetMarker("second")

	got, ok := s.Make()
	if !ok {
		t.Fatal("pending metadata did not produce a sample")
	}
	if len(got.MediaConstraints) != 1 || len(got.UserMediaErrors) != 2 ||
		len(got.ExtensionStats) != 1 || len(got.MediaDevices) != 1 {
		t.Errorf("pending metadata = %+v", got)
	}
	if got.Marker != "second" {
		t.Errorf("marker = %q, want latest value", got.Marker)
	}

	if _, ok := s.Make(); ok {
		t.Fatal("metadata was reported twice")
	}
	s.AddUserMediaError("again")
	again, ok := s.Make()
	if !ok {
		t.Fatal("new error not sampled")
	}
	if len(again.UserMediaErrors) != 1 || again.Marker != "" || len(again.MediaConstraints) != 0 {
		t.Errorf("stale metadata carried over: %+v", again)
	}
}

func TestTrackRelations(t *testing.T) {
	s, _ := newSampler(t)
	s.Make()

	s.AddTrackRelation(domain.TrackRelation{TrackID: "b", SfuStreamID: "s2"})
	s.AddTrackRelation(domain.TrackRelation{TrackID: "a", SfuStreamID: "s1"})
	got, ok := s.Make()
	if !ok || len(got.TrackRelations) != 2 || got.TrackRelations[0].TrackID != "a" {
		t.Fatalf("relations = %+v, %v", got, ok)
	}

	s.AddTrackRelation(domain.TrackRelation{TrackID: "a", SfuStreamID: "s1"})
	if _, ok := s.Make(); ok {
		t.Error("re-adding an identical relation is not a change")
	}

	s.RemoveTrackRelation("b")
	got, ok = s.Make()
	if !ok || len(got.TrackRelations) != 1 {
		t.Fatalf("after remove = %+v, %v", got, ok)
	}
	s.RemoveTrackRelation("missing")
	if _, ok := s.Make(); ok {
		t.Error("removing an unknown relation is not a change")
	}
}

func TestClientIDDefault(t *testing.T) {
	s := New(Config{}, devices, storage.New())
	if _, err := uuid.Parse(s.ClientID()); err != nil {
		t.Fatalf("client id %q is not a uuid: %v", s.ClientID(), err)
	}
}

func TestClose(t *testing.T) {
	s, _ := newSampler(t)
	s.SetMarker("m")
	s.Close()
	if _, ok := s.Make(); ok {
		t.Fatal("closed sampler produced a sample")
	}
}
