package audit

import (
	"slices"
	"time"

	"github.com/vshulcz/rtcobserver/internal/domain"
)

// Event records which clients delivered samples, when, and from which IP address.
type Event struct {
	Clients   []string `json:"clients"`
	IPAddress string   `json:"ip_address"`
	Timestamp int64    `json:"ts"`
	Samples   int      `json:"samples"`
}

// NewEvent describes one ingested batch. Client ids are sorted and unique.
func NewEvent(at time.Time, ip string, batch []domain.ClientSample) Event {
	clients := make([]string, 0, len(batch))
	for _, s := range batch {
		clients = append(clients, s.ClientID)
	}
	slices.Sort(clients)
	return Event{
		Clients:   slices.Compact(clients),
		IPAddress: ip,
		Timestamp: at.Unix(),
		Samples:   len(batch),
	}
}
