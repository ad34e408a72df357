package adapter

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/nixxel-company-limited/posprint/apperror"
)

// InternalAddress is the sentinel address of the embedded printer
const InternalAddress = "internal"

// Opener creates the port of the embedded printer
type Opener func() (Adapter, error)

// USBOpener opens the first USB printer-class device
func USBOpener(logger *zap.Logger) Opener {
	return func() (Adapter, error) {
		return NewUSBAdapterAuto(logger)
	}
}

// InternalDriver prints on the printer built into the terminal. It has no
// addressing: Connect ignores the address it is given.
type InternalDriver struct {
	open   Opener
	logger *zap.Logger

	mu      sync.Mutex
	port    Adapter
	lost    chan struct{}
	lostOne sync.Once
}

// NewInternalDriver creates a driver that obtains its port from open
func NewInternalDriver(open Opener, logger *zap.Logger) *InternalDriver {
	return &InternalDriver{open: open, logger: logger.Named("internal")}
}

// Kind returns Internal
func (d *InternalDriver) Kind() Kind {
	return Internal
}

// Connect opens the embedded printer
func (d *InternalDriver) Connect(_ context.Context, _ string) (Handle, error) {
	_ = d.Disconnect()

	port, err := d.open()
	if err != nil {
		return Handle{}, apperror.New(apperror.DeviceNotFound, "internal.connect", err)
	}
	if err := port.Open(); err != nil {
		_ = port.Close()
		return Handle{}, apperror.New(apperror.ConnectionFailed, "internal.connect", err)
	}

	lost := make(chan struct{})
	d.mu.Lock()
	d.port = port
	d.lost = lost
	d.lostOne = sync.Once{}
	d.mu.Unlock()

	if src, ok := port.(EventSource); ok {
		src.On(EventDisconnect, func(e Event) {
			d.logger.Warn("Embedded printer went away", zap.Error(e.Error))
			d.signalLost(lost)
		})
	}

	d.logger.Info("Connected to embedded printer")
	return Handle{Kind: Internal, Address: InternalAddress, Lost: lost}, nil
}

func (d *InternalDriver) signalLost(lost chan struct{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lost == lost {
		d.lostOne.Do(func() { close(lost) })
	}
}

// Write sends the whole stream to the port
func (d *InternalDriver) Write(_ context.Context, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.port == nil {
		return apperror.New(apperror.NotConnected, "internal.write", nil)
	}
	for len(data) > 0 {
		n, err := d.port.Write(data)
		if err != nil {
			return apperror.New(apperror.WriteFailed, "internal.write", err)
		}
		if n == 0 {
			return apperror.Newf(apperror.WriteFailed, "internal.write", "printer accepted no data")
		}
		data = data[n:]
	}
	return nil
}

// Disconnect releases the port
func (d *InternalDriver) Disconnect() error {
	d.mu.Lock()
	port := d.port
	d.port = nil
	d.lost = nil
	d.mu.Unlock()

	if port == nil {
		return nil
	}
	if err := port.Close(); err != nil {
		return apperror.New(apperror.ConnectionFailed, "internal.disconnect", err)
	}
	return nil
}
