package presence

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidMAC reports a hardware address that could not be parsed.
var ErrInvalidMAC = errors.New("presence: invalid hardware address")

// MAC is a 6-byte hardware address.
type MAC [6]byte

// ParseMAC parses a colon- or dash-separated hex hardware address.
// Hex case is not significant.
func ParseMAC(value string) (MAC, error) {
	var mac MAC
	cleaned := strings.NewReplacer("-", ":", ".", ":").Replace(strings.TrimSpace(value))
	parts := strings.Split(cleaned, ":")
	if len(parts) != 6 {
		return mac, fmt.Errorf("%w: %q", ErrInvalidMAC, value)
	}
	for i, part := range parts {
		if len(part) != 2 {
			return mac, fmt.Errorf("%w: %q", ErrInvalidMAC, value)
		}
		b, err := hex.DecodeString(part)
		if err != nil {
			return mac, fmt.Errorf("%w: %q", ErrInvalidMAC, value)
		}
		mac[i] = b[0]
	}
	return mac, nil
}

// String formats the address canonically, uppercase colon-separated.
func (m MAC) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", m[0], m[1], m[2], m[3], m[4], m[5])
}

// IsZero reports whether the address is all zeroes.
func (m MAC) IsZero() bool {
	return m == MAC{}
}

// EqualString compares the address to a textual hardware address,
// ignoring hex case. Unparseable input never matches.
func (m MAC) EqualString(value string) bool {
	other, err := ParseMAC(value)
	if err != nil {
		return false
	}
	return m == other
}
