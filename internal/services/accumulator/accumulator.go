// Package accumulator buffers client samples between sampling and sending.
package accumulator

import (
	"sync"

	"github.com/vshulcz/rtcobserver/internal/domain"
)

// Accumulator is a FIFO of samples waiting to be sent.
type Accumulator struct {
	queue      []domain.ClientSample
	maxSamples int
	mu         sync.Mutex
}

// New returns an Accumulator handing out batches of at most maxSamples
// samples. Zero or less means one batch per drain.
func New(maxSamples int) *Accumulator {
	return &Accumulator{maxSamples: maxSamples}
}

// Add appends a sample. It never blocks and never drops.
func (a *Accumulator) Add(s domain.ClientSample) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.queue = append(a.queue, s)
}

func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queue)
}

// DrainTo takes every queued sample and hands them to consume in order,
// chunked by the configured batch size. An empty queue calls consume(nil)
// once. The first consume error stops the hand-off; drained samples are not
// put back.
func (a *Accumulator) DrainTo(consume func([]domain.ClientSample) error) error {
	a.mu.Lock()
	queue := a.queue
	a.queue = nil
	a.mu.Unlock()

	if len(queue) == 0 {
		return consume(nil)
	}
	size := a.maxSamples
	if size <= 0 {
		size = len(queue)
	}
	for start := 0; start < len(queue); start += size {
		end := min(start+size, len(queue))
		if err := consume(queue[start:end:end]); err != nil {
			return err
		}
	}
	return nil
}
