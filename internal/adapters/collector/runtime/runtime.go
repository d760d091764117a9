// Package runtime samples Go runtime and host load and reports it as an
// extension stat attached to client samples.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/vshulcz/rtcobserver/internal/domain"
)

// ExtensionType tags the extension stats produced by Probe.
const ExtensionType = "host-load"

// Load is the payload of a host-load extension stat.
type Load struct {
	CPUUtilization []float64 `json:"cpuUtilization,omitempty"`
	HeapAlloc      uint64    `json:"heapAlloc"`
	Sys            uint64    `json:"sys"`
	TotalMemory    uint64    `json:"totalMemory,omitempty"`
	FreeMemory     uint64    `json:"freeMemory,omitempty"`
	GCCPUFraction  float64   `json:"gcCpuFraction"`
	Goroutines     int       `json:"goroutines"`
	NumGC          uint32    `json:"numGc"`
	Polls          int64     `json:"polls"`
}

// Probe periodically samples runtime and host load in the background.
type Probe struct {
	stop chan struct{}
	load Load
	wg   sync.WaitGroup
	mu   sync.RWMutex
	once sync.Once
}

func New() *Probe {
	return &Probe{stop: make(chan struct{})}
}

// Start launches the runtime and host sampling loops.
func (p *Probe) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: probe interval %s", domain.ErrConfiguration, interval)
	}
	p.wg.Add(2)
	go p.every(ctx, interval, p.sampleRuntime)
	go p.every(ctx, interval, p.sampleHost)
	return nil
}

func (p *Probe) every(ctx context.Context, interval time.Duration, fn func()) {
	defer p.wg.Done()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-t.C:
			fn()
		}
	}
}

func (p *Probe) sampleRuntime() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	g := runtime.NumGoroutine()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.load.HeapAlloc = ms.HeapAlloc
	p.load.Sys = ms.Sys
	p.load.NumGC = ms.NumGC
	p.load.GCCPUFraction = ms.GCCPUFraction
	p.load.Goroutines = g
	p.load.Polls++
}

func (p *Probe) sampleHost() {
	vm, vmErr := mem.VirtualMemory()
	pct, cpuErr := cpu.Percent(0, true)

	p.mu.Lock()
	defer p.mu.Unlock()
	if vmErr == nil && vm != nil {
		p.load.TotalMemory = vm.Total
		p.load.FreeMemory = vm.Free
	}
	if cpuErr == nil {
		p.load.CPUUtilization = pct
	}
}

// Stop halts the sampling loops and waits for them.
func (p *Probe) Stop() {
	p.once.Do(func() { close(p.stop) })
	p.wg.Wait()
}

// Snapshot returns a copy of the latest load.
func (p *Probe) Snapshot() Load {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := p.load
	out.CPUUtilization = append([]float64(nil), p.load.CPUUtilization...)
	return out
}

// Extension encodes the latest load as an extension stat.
func (p *Probe) Extension() (domain.ExtensionStat, error) {
	b, err := json.Marshal(p.Snapshot())
	if err != nil {
		return domain.ExtensionStat{}, fmt.Errorf("marshal host load: %w", err)
	}
	return domain.ExtensionStat{ExtensionType: ExtensionType, Payload: string(b)}, nil
}
