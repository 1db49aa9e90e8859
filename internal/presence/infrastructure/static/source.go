// Package static provides a fixed-station presence source for dry
// runs, where the controller runs against a known device list instead
// of the kernel neighbour table.
package static

import (
	"context"
	"fmt"
	"strings"

	presence "rollcall/internal/presence/domain"
)

// Source reports the same station set on every poll.
type Source struct {
	stations []presence.Station
}

// NewSource constructs a source over a fixed station list.
func NewSource(stations []presence.Station) *Source {
	return &Source{stations: append([]presence.Station(nil), stations...)}
}

// ParseStations parses a "MAC=IP,MAC,..." list, IP optional per entry.
func ParseStations(value string) ([]presence.Station, error) {
	var stations []presence.Station
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		addr, ip, _ := strings.Cut(entry, "=")
		mac, err := presence.ParseMAC(addr)
		if err != nil {
			return nil, fmt.Errorf("static source: entry %q: %w", entry, err)
		}
		stations = append(stations, presence.Station{MAC: mac, IP: ip})
	}
	return stations, nil
}

// Stations returns the fixed station list.
func (s *Source) Stations(_ context.Context) ([]presence.Station, error) {
	return append([]presence.Station(nil), s.stations...), nil
}
