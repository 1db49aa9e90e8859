package presence

import (
	"context"
	"time"
)

// Station is one association observed on the access point.
type Station struct {
	MAC MAC
	IP  string
}

// ConnectedDevice is a device currently associated with the network.
type ConnectedDevice struct {
	MAC       MAC
	IP        string
	Attempted bool
	JoinedAt  time.Time
}

// Source supplies the current set of associated stations.
type Source interface {
	Stations(ctx context.Context) ([]Station, error)
}

// Tracker maintains the set of currently associated devices and
// diffs it against each poll snapshot. Not safe for concurrent use;
// the engine loop is its only caller.
type Tracker struct {
	devices map[MAC]*ConnectedDevice
	order   []MAC
}

// NewTracker constructs an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{devices: make(map[MAC]*ConnectedDevice)}
}

// Poll replaces the tracked set with the snapshot and returns the
// devices that joined and the addresses that left since the previous
// poll. Joined devices are returned in snapshot order with the
// attendance-attempted flag cleared.
func (t *Tracker) Poll(snapshot []Station, now time.Time) (joined []*ConnectedDevice, left []MAC) {
	seen := make(map[MAC]struct{}, len(snapshot))
	for _, station := range snapshot {
		if station.MAC.IsZero() {
			continue
		}
		if _, dup := seen[station.MAC]; dup {
			continue
		}
		seen[station.MAC] = struct{}{}
		if existing, ok := t.devices[station.MAC]; ok {
			existing.IP = station.IP
			continue
		}
		device := &ConnectedDevice{MAC: station.MAC, IP: station.IP, JoinedAt: now}
		t.devices[station.MAC] = device
		t.order = append(t.order, station.MAC)
		joined = append(joined, device)
	}

	remaining := t.order[:0]
	for _, mac := range t.order {
		if _, ok := seen[mac]; ok {
			remaining = append(remaining, mac)
			continue
		}
		delete(t.devices, mac)
		left = append(left, mac)
	}
	t.order = remaining
	return joined, left
}

// MarkAttempted flags a tracked device as having had attendance
// processing attempted. Unknown addresses are ignored.
func (t *Tracker) MarkAttempted(mac MAC) {
	if device, ok := t.devices[mac]; ok {
		device.Attempted = true
	}
}

// Count returns the number of currently tracked devices.
func (t *Tracker) Count() int {
	return len(t.devices)
}

// Devices returns the tracked devices in join order.
func (t *Tracker) Devices() []ConnectedDevice {
	out := make([]ConnectedDevice, 0, len(t.order))
	for _, mac := range t.order {
		if device, ok := t.devices[mac]; ok {
			out = append(out, *device)
		}
	}
	return out
}
