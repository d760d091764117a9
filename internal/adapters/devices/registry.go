package devices

import (
	"cmp"
	"slices"
	"sync"

	"github.com/vshulcz/rtcobserver/internal/domain"
)

// Registry keeps the media devices currently known to the application.
type Registry struct {
	devices map[string]domain.MediaDevice
	mu      sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{devices: make(map[string]domain.MediaDevice)}
}

// Add stores d and reports whether it was new or changed. Devices without an
// id are ignored.
func (r *Registry) Add(d domain.MediaDevice) bool {
	if d.ID == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.devices[d.ID]; ok && prev == d {
		return false
	}
	r.devices[d.ID] = d
	return true
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.devices, id)
}

// Values returns the devices of the given kind ordered by id. An empty kind
// matches every device.
func (r *Registry) Values(kind domain.MediaDeviceKind) []domain.MediaDevice {
	r.mu.RLock()
	out := make([]domain.MediaDevice, 0, len(r.devices))
	for _, d := range r.devices {
		if kind == "" || d.Kind == kind {
			out = append(out, d)
		}
	}
	r.mu.RUnlock()
	slices.SortFunc(out, func(a, b domain.MediaDevice) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Clear forgets every device.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.devices)
}
