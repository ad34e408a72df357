package adapter

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// SerialAdapter is a byte port over a serial line, used for RFCOMM-bound
// Bluetooth Classic printers (/dev/rfcommN) and plain RS-232 printers.
type SerialAdapter struct {
	name        string
	baud        int
	readTimeout time.Duration
	open        func(*serial.Config) (io.ReadWriteCloser, error)

	mu   sync.Mutex
	port io.ReadWriteCloser
}

// NewSerialAdapter creates an adapter for the device at name. A zero baud selects 9600.
func NewSerialAdapter(name string, baud int) *SerialAdapter {
	if baud <= 0 {
		baud = 9600
	}
	return &SerialAdapter{
		name:        name,
		baud:        baud,
		readTimeout: 500 * time.Millisecond,
		open: func(c *serial.Config) (io.ReadWriteCloser, error) {
			return serial.OpenPort(c)
		},
	}
}

// Open opens the serial port
func (a *SerialAdapter) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port != nil {
		return errors.New("device already open")
	}
	port, err := a.open(&serial.Config{Name: a.name, Baud: a.baud, ReadTimeout: a.readTimeout})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", a.name, err)
	}
	a.port = port
	return nil
}

// Write sends data to the printer
func (a *SerialAdapter) Write(data []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port == nil {
		return 0, errors.New("device not open")
	}
	n, err := a.port.Write(data)
	if err != nil {
		return n, fmt.Errorf("write failed: %w", err)
	}
	return n, nil
}

// Read reads status bytes from the printer
func (a *SerialAdapter) Read(buf []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port == nil {
		return 0, errors.New("device not open")
	}
	return a.port.Read(buf)
}

// Close closes the port. Closing a closed adapter is a no-op.
func (a *SerialAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.port == nil {
		return nil
	}
	err := a.port.Close()
	a.port = nil
	return err
}

// IsOpen returns whether the port is open
func (a *SerialAdapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.port != nil
}

// Name returns the device path
func (a *SerialAdapter) Name() string {
	return a.name
}
