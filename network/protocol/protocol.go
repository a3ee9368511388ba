// Package protocol is a TCP-only trim of nabbar-golib/network/protocol's
// NetworkProtocol enum: this module's Non-goals exclude UDP, Unix sockets
// and raw IP, so only the three TCP variants the teacher defines are kept,
// at the same integer codes the teacher assigns them (NetworkTCP=2,
// NetworkTCP4=3, NetworkTCP6=4) so a value decoded from a config file that
// also feeds a teacher-descended component would still mean the same thing.
package protocol

import "strings"

// NetworkProtocol identifies which of the TCP dial networks a Server or
// Client config targets.
type NetworkProtocol uint8

const (
	NetworkEmpty NetworkProtocol = 0
	NetworkTCP   NetworkProtocol = 2
	NetworkTCP4  NetworkProtocol = 3
	NetworkTCP6  NetworkProtocol = 4
)

// String returns the network name as accepted by net.Dial/net.Listen
// ("tcp", "tcp4", "tcp6"), or "" for NetworkEmpty or an out-of-range value.
func (p NetworkProtocol) String() string {
	switch p {
	case NetworkTCP:
		return "tcp"
	case NetworkTCP4:
		return "tcp4"
	case NetworkTCP6:
		return "tcp6"
	default:
		return ""
	}
}

// Int returns the protocol's integer code, matching the teacher's
// NetworkProtocol.Int() values so codes decoded by either module agree.
func (p NetworkProtocol) Int() int { return int(p) }

// Valid reports whether p is one of the three recognized TCP variants.
func (p NetworkProtocol) Valid() bool {
	switch p {
	case NetworkTCP, NetworkTCP4, NetworkTCP6:
		return true
	default:
		return false
	}
}

// UnmarshalText lets NetworkProtocol decode from a YAML/flag string value
// (e.g. "tcp") via mapstructure's TextUnmarshallerHookFunc, rather than
// requiring the raw integer code in config files.
func (p *NetworkProtocol) UnmarshalText(text []byte) error {
	*p = Parse(string(text))
	return nil
}

// MarshalText is String's counterpart, for symmetry with UnmarshalText.
func (p NetworkProtocol) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Parse maps a case-insensitive, whitespace-trimmed network name to its
// NetworkProtocol, returning NetworkEmpty for anything unrecognized
// (including the UDP/Unix/IP names this trim dropped).
func Parse(s string) NetworkProtocol {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tcp":
		return NetworkTCP
	case "tcp4":
		return NetworkTCP4
	case "tcp6":
		return NetworkTCP6
	default:
		return NetworkEmpty
	}
}
