package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// StatsEntry is the stored form of a canonical record: the latest merged
// fields of one (type, id) pair of a collector.
type StatsEntry struct {
	CollectorID string    `json:"collectorId"`
	Stats       Stats     `json:"stats"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Links       []Link    `json:"links,omitempty"`
}

// Type returns the type of the stored record.
func (e StatsEntry) Type() StatsType {
	if e.Stats == nil {
		return ""
	}
	return e.Stats.StatsType()
}

// ID returns the id of the stored record.
func (e StatsEntry) ID() string {
	if e.Stats == nil {
		return ""
	}
	return e.Stats.StatsID()
}

// Link returns the first link with the given relation.
func (e StatsEntry) Link(rel Relation) (Link, bool) {
	for _, l := range e.Links {
		if l.Relation == rel {
			return l, true
		}
	}
	return Link{}, false
}

type statsEntryJSON struct {
	CollectorID string          `json:"collectorId"`
	Type        StatsType       `json:"type"`
	Stats       json.RawMessage `json:"stats"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Links       []Link          `json:"links,omitempty"`
}

func (e StatsEntry) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(e.Stats)
	if err != nil {
		return nil, err
	}
	return json.Marshal(statsEntryJSON{
		CollectorID: e.CollectorID,
		Type:        e.Type(),
		Stats:       raw,
		UpdatedAt:   e.UpdatedAt,
		Links:       e.Links,
	})
}

func (e *StatsEntry) UnmarshalJSON(b []byte) error {
	var aux statsEntryJSON
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	s, err := NewStats(aux.Type)
	if err != nil {
		return err
	}
	if len(aux.Stats) > 0 {
		if err := json.Unmarshal(aux.Stats, s); err != nil {
			return fmt.Errorf("decode %s entry: %w", aux.Type, err)
		}
	}
	setType(s, aux.Type)
	*e = StatsEntry{
		CollectorID: aux.CollectorID,
		Stats:       s,
		UpdatedAt:   aux.UpdatedAt,
		Links:       aux.Links,
	}
	return nil
}
