package domain

// Relation names the role of a linked entry.
type Relation string

const (
	RelationSender            Relation = "sender"
	RelationReceiver          Relation = "receiver"
	RelationTrack             Relation = "track"
	RelationTransport         Relation = "transport"
	RelationCodec             Relation = "codec"
	RelationMediaSource       Relation = "mediaSource"
	RelationLocalCandidate    Relation = "localCandidate"
	RelationRemoteCandidate   Relation = "remoteCandidate"
	RelationSelectedPair      Relation = "selectedCandidatePair"
	RelationLocalCertificate  Relation = "localCertificate"
	RelationRemoteCertificate Relation = "remoteCertificate"
)

// Link points from one entry to another entry of the same collector.
// Resolved is only meaningful on links returned by a storage read.
type Link struct {
	Relation Relation  `json:"relation"`
	Type     StatsType `json:"type"`
	ID       string    `json:"id"`
	Resolved bool      `json:"resolved"`
}

// LinksOf lists the relations declared by the record's id fields.
func LinksOf(s Stats) []Link {
	var out []Link
	add := func(rel Relation, t StatsType, id *string) {
		if id != nil && *id != "" {
			out = append(out, Link{Relation: rel, Type: t, ID: *id})
		}
	}
	switch v := s.(type) {
	case *InboundRTP:
		add(RelationReceiver, StatsTypeReceiver, v.ReceiverID)
		add(RelationTrack, StatsTypeTrack, v.TrackID)
		add(RelationTransport, StatsTypeTransport, v.TransportID)
		add(RelationCodec, StatsTypeCodec, v.CodecID)
	case *OutboundRTP:
		add(RelationSender, StatsTypeSender, v.SenderID)
		add(RelationTrack, StatsTypeTrack, v.TrackID)
		add(RelationTransport, StatsTypeTransport, v.TransportID)
		add(RelationCodec, StatsTypeCodec, v.CodecID)
		add(RelationMediaSource, StatsTypeMediaSource, v.MediaSourceID)
	case *MediaHandler:
		add(RelationMediaSource, StatsTypeMediaSource, v.MediaSourceID)
	case *CandidatePair:
		add(RelationTransport, StatsTypeTransport, v.TransportID)
		add(RelationLocalCandidate, StatsTypeLocalCandidate, v.LocalCandidateID)
		add(RelationRemoteCandidate, StatsTypeRemoteCandidate, v.RemoteCandidateID)
	case *ICECandidate:
		add(RelationTransport, StatsTypeTransport, v.TransportID)
	case *Codec:
		add(RelationTransport, StatsTypeTransport, v.TransportID)
	case *Transport:
		add(RelationSelectedPair, StatsTypeCandidatePair, v.SelectedCandidatePairID)
		add(RelationLocalCertificate, StatsTypeCertificate, v.LocalCertificateID)
		add(RelationRemoteCertificate, StatsTypeCertificate, v.RemoteCertificateID)
	}
	return out
}
