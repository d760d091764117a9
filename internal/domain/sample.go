package domain

// OperationSystem describes the host OS.
type OperationSystem struct {
	Name        string `json:"name,omitempty"`
	Version     string `json:"version,omitempty"`
	VersionName string `json:"versionName,omitempty"`
}

// Browser identifies the stats-producing engine family and version.
type Browser struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// Platform describes the device class.
type Platform struct {
	Type   string `json:"type,omitempty"`
	Vendor string `json:"vendor,omitempty"`
	Model  string `json:"model,omitempty"`
}

// Engine is the media engine implementation.
type Engine struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// ClientDevices groups the static facts about the running client.
type ClientDevices struct {
	OS       OperationSystem `json:"os"`
	Browser  Browser         `json:"browser"`
	Platform Platform        `json:"platform"`
	Engine   Engine          `json:"engine"`
}

// MediaDeviceKind values follow the enumerateDevices kinds.
type MediaDeviceKind string

const (
	AudioInput  MediaDeviceKind = "audioinput"
	AudioOutput MediaDeviceKind = "audiooutput"
	VideoInput  MediaDeviceKind = "videoinput"
)

// MediaDevice is a capture or playout device known to the client.
type MediaDevice struct {
	ID    string          `json:"id"`
	Kind  MediaDeviceKind `json:"kind"`
	Label string          `json:"label,omitempty"`
}

// TrackRelation ties a local track to its SFU side stream and sink.
type TrackRelation struct {
	TrackID     string `json:"trackId"`
	SfuStreamID string `json:"sfuStreamId,omitempty"`
	SfuSinkID   string `json:"sfuSinkId,omitempty"`
}

// ExtensionStat is an application defined payload carried by a sample.
type ExtensionStat struct {
	ExtensionType string `json:"extensionType"`
	Payload       string `json:"payload"`
}

// PeerConnectionSample is the stats snapshot of one collector.
type PeerConnectionSample struct {
	PeerConnectionID string       `json:"peerConnectionId"`
	Label            string       `json:"label,omitempty"`
	Stats            []StatsEntry `json:"stats"`
}

// ClientSample is one point-in-time report of a client.
type ClientSample struct {
	ClientID         string                 `json:"clientId"`
	CallID           string                 `json:"callId,omitempty"`
	RoomID           string                 `json:"roomId,omitempty"`
	UserID           string                 `json:"userId,omitempty"`
	SampleSeq        int64                  `json:"sampleSeq"`
	Timestamp        int64                  `json:"timestamp"`
	Marker           string                 `json:"marker,omitempty"`
	OS               *OperationSystem       `json:"os,omitempty"`
	Browser          *Browser               `json:"browser,omitempty"`
	Platform         *Platform              `json:"platform,omitempty"`
	Engine           *Engine                `json:"engine,omitempty"`
	MediaDevices     []MediaDevice          `json:"mediaDevices,omitempty"`
	TrackRelations   []TrackRelation        `json:"trackRelations,omitempty"`
	MediaConstraints []string               `json:"mediaConstraints,omitempty"`
	UserMediaErrors  []string               `json:"userMediaErrors,omitempty"`
	ExtensionStats   []ExtensionStat        `json:"extensionStats,omitempty"`
	PeerConnections  []PeerConnectionSample `json:"peerConnections,omitempty"`
}
