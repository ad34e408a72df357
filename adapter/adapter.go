package adapter

import (
	"context"
	"fmt"
)

// Adapter is a byte-level printer port (USB endpoint, serial line)
type Adapter interface {
	// Open opens the connection to the printer
	Open() error

	// Write sends data to the printer
	Write(data []byte) (int, error)

	// Read reads data from the printer
	Read(buf []byte) (int, error)

	// Close closes the connection to the printer
	Close() error

	// IsOpen returns whether the connection is open
	IsOpen() bool
}

// Kind identifies the physical channel a driver serves
type Kind int

const (
	KindNone Kind = iota
	BluetoothClassic
	BluetoothLE
	WiFi
	Internal
)

func (k Kind) String() string {
	switch k {
	case BluetoothClassic:
		return "bluetooth-classic"
	case BluetoothLE:
		return "bluetooth-le"
	case WiFi:
		return "wifi"
	case Internal:
		return "internal"
	default:
		return "none"
	}
}

// IsBluetooth reports whether k is one of the Bluetooth kinds
func (k Kind) IsBluetooth() bool {
	return k == BluetoothClassic || k == BluetoothLE
}

// MarshalText renders the kind by name in JSON
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Handle describes an established connection
type Handle struct {
	Kind    Kind
	Address string
	// ServiceUUID and CharacteristicUUID are set by the BLE driver for diagnostics
	ServiceUUID        string
	CharacteristicUUID string
	// Lost is closed when the far end drops the link. It may be nil when the
	// transport cannot report disconnects.
	Lost <-chan struct{}
}

// Driver is implemented by every transport
type Driver interface {
	// Kind returns the channel served by the driver
	Kind() Kind

	// Connect establishes a connection to address
	Connect(ctx context.Context, address string) (Handle, error)

	// Write sends a complete command stream over the active connection
	Write(ctx context.Context, data []byte) error

	// Disconnect closes the active connection. It is a no-op when idle.
	Disconnect() error
}

// Device is a printer seen during discovery
type Device struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
	RSSI    int    `json:"rssi,omitempty"`
}

// Scanner is implemented by drivers that can discover nearby printers
type Scanner interface {
	Scan(ctx context.Context) ([]Device, error)
}

// Chunk splits data into consecutive pieces of at most size bytes.
// The pieces alias data.
func Chunk(data []byte, size int) [][]byte {
	if size <= 0 {
		panic(fmt.Sprintf("adapter: invalid chunk size %d", size))
	}
	chunks := make([][]byte, 0, (len(data)+size-1)/size)
	for start := 0; start < len(data); start += size {
		end := start + size
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[start:end])
	}
	return chunks
}
