package domain

// StatsType enumerates the canonical stats record types.
type StatsType string

const (
	StatsTypeTrack           StatsType = "track"
	StatsTypeInboundRTP      StatsType = "inbound-rtp"
	StatsTypeOutboundRTP     StatsType = "outbound-rtp"
	StatsTypeSender          StatsType = "sender"
	StatsTypeReceiver        StatsType = "receiver"
	StatsTypeLocalCandidate  StatsType = "local-candidate"
	StatsTypeRemoteCandidate StatsType = "remote-candidate"
	StatsTypeCandidatePair   StatsType = "candidate-pair"
	StatsTypeCodec           StatsType = "codec"
	StatsTypeTransport       StatsType = "transport"
	StatsTypePeerConnection  StatsType = "peer-connection"
	StatsTypeDataChannel     StatsType = "data-channel"
	StatsTypeMediaSource     StatsType = "media-source"
	StatsTypeCertificate     StatsType = "certificate"

	// Remote views of the other side's rtp streams. Recognized, never canonical.
	StatsTypeRemoteInboundRTP  StatsType = "remote-inbound-rtp"
	StatsTypeRemoteOutboundRTP StatsType = "remote-outbound-rtp"
)

// Stats is a canonical stats record. Every implementation is a pointer to one
// of the fixed variant structs in this package.
type Stats interface {
	StatsType() StatsType
	StatsID() string
}

// Base carries the fields shared by every variant.
type Base struct {
	Type      StatsType `json:"type"`
	ID        string    `json:"id"`
	Timestamp *float64  `json:"timestamp,omitempty"`

	// fields the source explicitly set to null; an update clears them
	cleared []string
}

// StatsType returns the record type.
func (b *Base) StatsType() StatsType { return b.Type }

// StatsID returns the record id.
func (b *Base) StatsID() string { return b.ID }

// TrackFields are media handler metrics. They appear on track, sender and
// receiver records and on rtp records merged with their track.
type TrackFields struct {
	TrackIdentifier                *string  `json:"trackIdentifier,omitempty"`
	RemoteSource                   *bool    `json:"remoteSource,omitempty"`
	Ended                          *bool    `json:"ended,omitempty"`
	Detached                       *bool    `json:"detached,omitempty"`
	MediaSourceID                  *string  `json:"mediaSourceId,omitempty"`
	FrameWidth                     *int64   `json:"frameWidth,omitempty"`
	FrameHeight                    *int64   `json:"frameHeight,omitempty"`
	FramesPerSecond                *float64 `json:"framesPerSecond,omitempty"`
	FramesCaptured                 *int64   `json:"framesCaptured,omitempty"`
	FramesSent                     *int64   `json:"framesSent,omitempty"`
	HugeFramesSent                 *int64   `json:"hugeFramesSent,omitempty"`
	FramesReceived                 *int64   `json:"framesReceived,omitempty"`
	FramesDecoded                  *int64   `json:"framesDecoded,omitempty"`
	FramesDropped                  *int64   `json:"framesDropped,omitempty"`
	FramesCorrupted                *int64   `json:"framesCorrupted,omitempty"`
	AudioLevel                     *float64 `json:"audioLevel,omitempty"`
	TotalAudioEnergy               *float64 `json:"totalAudioEnergy,omitempty"`
	TotalSamplesDuration           *float64 `json:"totalSamplesDuration,omitempty"`
	EchoReturnLoss                 *float64 `json:"echoReturnLoss,omitempty"`
	EchoReturnLossEnhancement      *float64 `json:"echoReturnLossEnhancement,omitempty"`
	JitterBufferDelay              *float64 `json:"jitterBufferDelay,omitempty"`
	JitterBufferEmittedCount       *int64   `json:"jitterBufferEmittedCount,omitempty"`
	TotalSamplesReceived           *int64   `json:"totalSamplesReceived,omitempty"`
	TotalSamplesSent               *int64   `json:"totalSamplesSent,omitempty"`
	ConcealedSamples               *int64   `json:"concealedSamples,omitempty"`
	SilentConcealedSamples         *int64   `json:"silentConcealedSamples,omitempty"`
	ConcealmentEvents              *int64   `json:"concealmentEvents,omitempty"`
	InsertedSamplesForDeceleration *int64   `json:"insertedSamplesForDeceleration,omitempty"`
	RemovedSamplesForAcceleration  *int64   `json:"removedSamplesForAcceleration,omitempty"`
}

// RTPFields are shared by inbound and outbound rtp streams.
type RTPFields struct {
	SSRC        *int64  `json:"ssrc,omitempty"`
	Kind        *string `json:"kind,omitempty"`
	TransportID *string `json:"transportId,omitempty"`
	CodecID     *string `json:"codecId,omitempty"`
	Mid         *string `json:"mid,omitempty"`
	TrackID     *string `json:"trackId,omitempty"`
	RemoteID    *string `json:"remoteId,omitempty"`
	FIRCount    *int64  `json:"firCount,omitempty"`
	PLICount    *int64  `json:"pliCount,omitempty"`
	NACKCount   *int64  `json:"nackCount,omitempty"`
	SLICount    *int64  `json:"sliCount,omitempty"`
	QPSum       *int64  `json:"qpSum,omitempty"`
}

// MediaHandler is the variant of track, sender and receiver records.
type MediaHandler struct {
	Base
	TrackFields
	Kind *string `json:"kind,omitempty"`
}

// InboundRTP describes a received rtp stream.
type InboundRTP struct {
	Base
	RTPFields
	TrackFields
	ReceiverID                  *string  `json:"receiverId,omitempty"`
	PacketsReceived             *int64   `json:"packetsReceived,omitempty"`
	PacketsLost                 *int64   `json:"packetsLost,omitempty"`
	PacketsDiscarded            *int64   `json:"packetsDiscarded,omitempty"`
	PacketsRepaired             *int64   `json:"packetsRepaired,omitempty"`
	FECPacketsReceived          *int64   `json:"fecPacketsReceived,omitempty"`
	FECPacketsDiscarded         *int64   `json:"fecPacketsDiscarded,omitempty"`
	BytesReceived               *int64   `json:"bytesReceived,omitempty"`
	HeaderBytesReceived         *int64   `json:"headerBytesReceived,omitempty"`
	Jitter                      *float64 `json:"jitter,omitempty"`
	KeyFramesDecoded            *int64   `json:"keyFramesDecoded,omitempty"`
	TotalDecodeTime             *float64 `json:"totalDecodeTime,omitempty"`
	TotalInterFrameDelay        *float64 `json:"totalInterFrameDelay,omitempty"`
	LastPacketReceivedTimestamp *float64 `json:"lastPacketReceivedTimestamp,omitempty"`
	DecoderImplementation       *string  `json:"decoderImplementation,omitempty"`
}

// OutboundRTP describes a sent rtp stream.
type OutboundRTP struct {
	Base
	RTPFields
	TrackFields
	SenderID                           *string  `json:"senderId,omitempty"`
	Rid                                *string  `json:"rid,omitempty"`
	PacketsSent                        *int64   `json:"packetsSent,omitempty"`
	BytesSent                          *int64   `json:"bytesSent,omitempty"`
	HeaderBytesSent                    *int64   `json:"headerBytesSent,omitempty"`
	RetransmittedPacketsSent           *int64   `json:"retransmittedPacketsSent,omitempty"`
	RetransmittedBytesSent             *int64   `json:"retransmittedBytesSent,omitempty"`
	TargetBitrate                      *float64 `json:"targetBitrate,omitempty"`
	TotalEncodedBytesTarget            *int64   `json:"totalEncodedBytesTarget,omitempty"`
	FramesEncoded                      *int64   `json:"framesEncoded,omitempty"`
	KeyFramesEncoded                   *int64   `json:"keyFramesEncoded,omitempty"`
	TotalEncodeTime                    *float64 `json:"totalEncodeTime,omitempty"`
	TotalPacketSendDelay               *float64 `json:"totalPacketSendDelay,omitempty"`
	QualityLimitationReason            *string  `json:"qualityLimitationReason,omitempty"`
	QualityLimitationResolutionChanges *int64   `json:"qualityLimitationResolutionChanges,omitempty"`
	EncoderImplementation              *string  `json:"encoderImplementation,omitempty"`
	Active                             *bool    `json:"active,omitempty"`
}

// ICECandidate is the variant of local-candidate and remote-candidate records.
type ICECandidate struct {
	Base
	TransportID   *string `json:"transportId,omitempty"`
	Address       *string `json:"address,omitempty"`
	Port          *int64  `json:"port,omitempty"`
	Protocol      *string `json:"protocol,omitempty"`
	CandidateType *string `json:"candidateType,omitempty"`
	Priority      *int64  `json:"priority,omitempty"`
	URL           *string `json:"url,omitempty"`
	RelayProtocol *string `json:"relayProtocol,omitempty"`
	Deleted       *bool   `json:"deleted,omitempty"`
}

// CandidatePair describes an ICE candidate pair.
type CandidatePair struct {
	Base
	TransportID                 *string  `json:"transportId,omitempty"`
	LocalCandidateID            *string  `json:"localCandidateId,omitempty"`
	RemoteCandidateID           *string  `json:"remoteCandidateId,omitempty"`
	State                       *string  `json:"state,omitempty"`
	Nominated                   *bool    `json:"nominated,omitempty"`
	PacketsSent                 *int64   `json:"packetsSent,omitempty"`
	PacketsReceived             *int64   `json:"packetsReceived,omitempty"`
	BytesSent                   *int64   `json:"bytesSent,omitempty"`
	BytesReceived               *int64   `json:"bytesReceived,omitempty"`
	LastPacketSentTimestamp     *float64 `json:"lastPacketSentTimestamp,omitempty"`
	LastPacketReceivedTimestamp *float64 `json:"lastPacketReceivedTimestamp,omitempty"`
	TotalRoundTripTime          *float64 `json:"totalRoundTripTime,omitempty"`
	CurrentRoundTripTime        *float64 `json:"currentRoundTripTime,omitempty"`
	AvailableOutgoingBitrate    *float64 `json:"availableOutgoingBitrate,omitempty"`
	AvailableIncomingBitrate    *float64 `json:"availableIncomingBitrate,omitempty"`
	RequestsReceived            *int64   `json:"requestsReceived,omitempty"`
	RequestsSent                *int64   `json:"requestsSent,omitempty"`
	ResponsesReceived           *int64   `json:"responsesReceived,omitempty"`
	ResponsesSent               *int64   `json:"responsesSent,omitempty"`
	ConsentRequestsSent         *int64   `json:"consentRequestsSent,omitempty"`
}

// Codec describes a payload type in use on a transport.
type Codec struct {
	Base
	PayloadType *int64  `json:"payloadType,omitempty"`
	TransportID *string `json:"transportId,omitempty"`
	MimeType    *string `json:"mimeType,omitempty"`
	ClockRate   *int64  `json:"clockRate,omitempty"`
	Channels    *int64  `json:"channels,omitempty"`
	SDPFmtpLine *string `json:"sdpFmtpLine,omitempty"`
}

// Transport describes a DTLS/ICE transport.
type Transport struct {
	Base
	PacketsSent                  *int64  `json:"packetsSent,omitempty"`
	PacketsReceived              *int64  `json:"packetsReceived,omitempty"`
	BytesSent                    *int64  `json:"bytesSent,omitempty"`
	BytesReceived                *int64  `json:"bytesReceived,omitempty"`
	ICERole                      *string `json:"iceRole,omitempty"`
	ICELocalUsernameFragment     *string `json:"iceLocalUsernameFragment,omitempty"`
	ICEState                     *string `json:"iceState,omitempty"`
	DTLSState                    *string `json:"dtlsState,omitempty"`
	SelectedCandidatePairID      *string `json:"selectedCandidatePairId,omitempty"`
	SelectedCandidatePairChanges *int64  `json:"selectedCandidatePairChanges,omitempty"`
	LocalCertificateID           *string `json:"localCertificateId,omitempty"`
	RemoteCertificateID          *string `json:"remoteCertificateId,omitempty"`
	TLSVersion                   *string `json:"tlsVersion,omitempty"`
	DTLSCipher                   *string `json:"dtlsCipher,omitempty"`
	SRTPCipher                   *string `json:"srtpCipher,omitempty"`
}

// PeerConnection carries connection-wide counters.
type PeerConnection struct {
	Base
	DataChannelsOpened    *int64 `json:"dataChannelsOpened,omitempty"`
	DataChannelsClosed    *int64 `json:"dataChannelsClosed,omitempty"`
	DataChannelsRequested *int64 `json:"dataChannelsRequested,omitempty"`
	DataChannelsAccepted  *int64 `json:"dataChannelsAccepted,omitempty"`
}

// DataChannel describes one data channel.
type DataChannel struct {
	Base
	Label                 *string `json:"label,omitempty"`
	Protocol              *string `json:"protocol,omitempty"`
	DataChannelIdentifier *int64  `json:"dataChannelIdentifier,omitempty"`
	State                 *string `json:"state,omitempty"`
	MessagesSent          *int64  `json:"messagesSent,omitempty"`
	BytesSent             *int64  `json:"bytesSent,omitempty"`
	MessagesReceived      *int64  `json:"messagesReceived,omitempty"`
	BytesReceived         *int64  `json:"bytesReceived,omitempty"`
}

// MediaSource describes a capture source attached to a sender.
type MediaSource struct {
	Base
	TrackIdentifier      *string  `json:"trackIdentifier,omitempty"`
	Kind                 *string  `json:"kind,omitempty"`
	AudioLevel           *float64 `json:"audioLevel,omitempty"`
	TotalAudioEnergy     *float64 `json:"totalAudioEnergy,omitempty"`
	TotalSamplesDuration *float64 `json:"totalSamplesDuration,omitempty"`
	Width                *int64   `json:"width,omitempty"`
	Height               *int64   `json:"height,omitempty"`
	Frames               *int64   `json:"frames,omitempty"`
	FramesPerSecond      *float64 `json:"framesPerSecond,omitempty"`
}

// Certificate describes a DTLS certificate.
type Certificate struct {
	Base
	Fingerprint          *string `json:"fingerprint,omitempty"`
	FingerprintAlgorithm *string `json:"fingerprintAlgorithm,omitempty"`
	Base64Certificate    *string `json:"base64Certificate,omitempty"`
	IssuerCertificateID  *string `json:"issuerCertificateId,omitempty"`
}
