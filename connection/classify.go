// Package connection owns the single active printer connection.
package connection

import (
	"regexp"
	"strings"

	"github.com/nixxel-company-limited/posprint/adapter"
)

var (
	ipPattern  = regexp.MustCompile(`^(\d{1,3})\.(\d{1,3})\.(\d{1,3})\.(\d{1,3})(:\d{1,5})?$`)
	macPattern = regexp.MustCompile(`^[0-9A-Fa-f]{2}(:[0-9A-Fa-f]{2}){5}$`)
)

// Target is a classified device address
type Target struct {
	Kind    adapter.Kind
	Address string
	// Host and Port are set for WiFi targets
	Host string
	Port int
}

// Classify maps an address to exactly one transport kind. The internal
// sentinel wins, then IPv4[:port], then a MAC; anything else is treated
// as a Bluetooth Classic identifier.
func Classify(address string) Target {
	addr := strings.TrimSpace(address)

	if strings.EqualFold(addr, adapter.InternalAddress) {
		return Target{Kind: adapter.Internal, Address: adapter.InternalAddress}
	}
	if ipPattern.MatchString(addr) {
		if host, port, err := adapter.ParseHostPort(addr); err == nil {
			return Target{Kind: adapter.WiFi, Address: addr, Host: host, Port: port}
		}
	}
	if macPattern.MatchString(addr) {
		return Target{Kind: adapter.BluetoothClassic, Address: strings.ToUpper(addr)}
	}
	return Target{Kind: adapter.BluetoothClassic, Address: addr}
}

// IsMAC reports whether address looks like AA:BB:CC:DD:EE:FF
func IsMAC(address string) bool {
	return macPattern.MatchString(strings.TrimSpace(address))
}
