package arp

import (
	"bufio"
	"context"
	"errors"
	"os"
	"strconv"
	"strings"

	presence "rollcall/internal/presence/domain"
)

const defaultTablePath = "/proc/net/arp"

// neighbour entries without a resolved link-layer address carry
// flags 0x0 (incomplete) and must be skipped.
const flagComplete = 0x2

// Source reads associated stations from the kernel neighbour table.
type Source struct {
	path  string
	iface string
}

// Option configures the source.
type Option func(*Source)

// WithTablePath overrides the neighbour table path.
func WithTablePath(path string) Option {
	return func(s *Source) {
		if path != "" {
			s.path = path
		}
	}
}

// WithInterface restricts entries to one network interface.
func WithInterface(iface string) Option {
	return func(s *Source) {
		s.iface = iface
	}
}

// NewSource constructs a neighbour-table source.
func NewSource(opts ...Option) *Source {
	s := &Source{path: defaultTablePath}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stations returns the currently resolved neighbour entries.
func (s *Source) Stations(ctx context.Context) ([]presence.Station, error) {
	if s == nil {
		return nil, errors.New("arp: nil source")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var stations []presence.Station
	scanner := bufio.NewScanner(file)
	for line := 0; scanner.Scan(); line++ {
		if line == 0 {
			continue // header
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 6 {
			continue
		}
		flags, err := strconv.ParseInt(strings.TrimPrefix(fields[2], "0x"), 16, 64)
		if err != nil || flags&flagComplete == 0 {
			continue
		}
		if s.iface != "" && fields[5] != s.iface {
			continue
		}
		mac, err := presence.ParseMAC(fields[3])
		if err != nil || mac.IsZero() {
			continue
		}
		stations = append(stations, presence.Station{MAC: mac, IP: fields[0]})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return stations, nil
}
