// Package telemetry exposes the pipeline counters as Prometheus metrics.
package telemetry

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rtcobserver"

// Metrics groups the counters shared by the agent and the collector server.
// The zero value is not usable; build it with New or Nop.
type Metrics struct {
	RecordsCollected prometheus.Counter
	CollectFailures  prometheus.Counter
	EntriesTrimmed   prometheus.Counter
	SamplesCreated   prometheus.Counter
	SamplesSent      prometheus.Counter
	SendFailures     prometheus.Counter
	SamplesIngested  prometheus.Counter
}

// New creates the counters and registers them on reg. Counters that are
// already registered are reused.
func New(reg prometheus.Registerer) *Metrics {
	m := Nop()
	if reg == nil {
		return m
	}
	m.RecordsCollected = register(reg, m.RecordsCollected)
	m.CollectFailures = register(reg, m.CollectFailures)
	m.EntriesTrimmed = register(reg, m.EntriesTrimmed)
	m.SamplesCreated = register(reg, m.SamplesCreated)
	m.SamplesSent = register(reg, m.SamplesSent)
	m.SendFailures = register(reg, m.SendFailures)
	m.SamplesIngested = register(reg, m.SamplesIngested)
	return m
}

// Nop returns working counters that are not registered anywhere.
func Nop() *Metrics {
	return &Metrics{
		RecordsCollected: counter("stats_records_collected_total", "Canonical stats records stored."),
		CollectFailures:  counter("stats_collect_failures_total", "Stats sources that failed to report."),
		EntriesTrimmed:   counter("stats_entries_trimmed_total", "Stats entries removed after expiration."),
		SamplesCreated:   counter("samples_created_total", "Client samples made."),
		SamplesSent:      counter("samples_sent_total", "Client samples delivered to the collector."),
		SendFailures:     counter("send_failures_total", "Failed sample batch transmissions."),
		SamplesIngested:  counter("samples_ingested_total", "Client samples accepted by the collector server."),
	}
}

func counter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
}

func register(reg prometheus.Registerer, c prometheus.Counter) prometheus.Counter {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing
			}
		}
	}
	return c
}
