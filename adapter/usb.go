package adapter

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/gousb"
	"go.uber.org/zap"
)

// Interface class codes
// Reference: http://www.usb.org/developers/defined_class
const (
	IfaceClassAudio   = 0x01
	IfaceClassHID     = 0x03
	IfaceClassPrinter = 0x07
	IfaceClassHub     = 0x09
)

// EventType represents device events
type EventType int

const (
	EventConnect EventType = iota
	EventDisconnect
	EventData
	EventClose
)

// Event represents a device event
type Event struct {
	Type  EventType
	Data  []byte
	Error error
}

// EventSource is implemented by adapters that publish device events
type EventSource interface {
	On(eventType EventType, handler func(Event))
}

// USBAdapter drives the built-in printer of POS terminals, which is
// attached internally as a USB printer-class device.
type USBAdapter struct {
	device         *gousb.Device
	ctx            *gousb.Context
	outEndpoint    *gousb.OutEndpoint
	inEndpoint     *gousb.InEndpoint
	iface          *gousb.Interface
	ifaceDone      func()
	eventListeners map[EventType][]func(Event)
	listenersMutex sync.RWMutex
	isOpen         bool
	mu             sync.Mutex
	logger         *zap.Logger
}

// NewUSBAdapter opens the device with the given VID/PID, falling back to
// the first printer-class device when it is absent.
func NewUSBAdapter(vid, pid uint16, logger *zap.Logger) (*USBAdapter, error) {
	ctx := gousb.NewContext()
	a := newUSBAdapter(ctx, logger)

	device, err := ctx.OpenDeviceWithVIDPID(gousb.ID(vid), gousb.ID(pid))
	if err != nil || device == nil {
		devices := FindPrinters(ctx, a.logger)
		if len(devices) == 0 {
			ctx.Close()
			return nil, errors.New("cannot find printer")
		}
		a.device = devices[0]
		closeAll(devices[1:])
	} else {
		a.device = device
	}
	return a, nil
}

// NewUSBAdapterAuto opens the first printer-class device
func NewUSBAdapterAuto(logger *zap.Logger) (*USBAdapter, error) {
	ctx := gousb.NewContext()
	a := newUSBAdapter(ctx, logger)

	devices := FindPrinters(ctx, a.logger)
	if len(devices) == 0 {
		ctx.Close()
		return nil, errors.New("cannot find printer")
	}
	a.device = devices[0]
	closeAll(devices[1:])
	return a, nil
}

func newUSBAdapter(ctx *gousb.Context, logger *zap.Logger) *USBAdapter {
	return &USBAdapter{
		ctx:            ctx,
		eventListeners: make(map[EventType][]func(Event)),
		logger:         logger.Named("usb"),
	}
}

func closeAll(devices []*gousb.Device) {
	for _, d := range devices {
		d.Close()
	}
}

// IsPrinter checks if a device exposes a printer-class interface
func IsPrinter(dev *gousb.Device) bool {
	return printerInterface(dev) >= 0
}

// printerInterface returns the number of the first printer-class
// interface of the active configuration, or -1
func printerInterface(dev *gousb.Device) int {
	if dev == nil {
		return -1
	}
	cfgNum, err := dev.ActiveConfigNum()
	if err != nil {
		return -1
	}
	desc, ok := dev.Desc.Configs[cfgNum]
	if !ok {
		return -1
	}
	for _, iface := range desc.Interfaces {
		for _, alt := range iface.AltSettings {
			if alt.Class == IfaceClassPrinter {
				return iface.Number
			}
		}
	}
	return -1
}

// FindPrinters returns all USB printer devices. The caller owns them.
func FindPrinters(ctx *gousb.Context, logger *zap.Logger) []*gousb.Device {
	var printers []*gousb.Device

	devices, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return true
	})
	if err != nil {
		logger.Debug("Some USB devices could not be opened", zap.Error(err))
	}

	for _, dev := range devices {
		if IsPrinter(dev) {
			logger.Info("Found printer",
				zap.Stringer("vid", dev.Desc.Vendor),
				zap.Stringer("pid", dev.Desc.Product),
			)
			printers = append(printers, dev)
		} else {
			dev.Close()
		}
	}
	return printers
}

// On adds an event listener
func (a *USBAdapter) On(eventType EventType, handler func(Event)) {
	a.listenersMutex.Lock()
	defer a.listenersMutex.Unlock()

	a.eventListeners[eventType] = append(a.eventListeners[eventType], handler)
}

// emit triggers an event
func (a *USBAdapter) emit(event Event) {
	a.listenersMutex.RLock()
	defer a.listenersMutex.RUnlock()

	for _, handler := range a.eventListeners[event.Type] {
		go handler(event)
	}
}

// Open claims the printer interface and its bulk endpoints
func (a *USBAdapter) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.isOpen {
		return errors.New("device already open")
	}
	if a.device == nil {
		return errors.New("device not found")
	}

	// Set auto-detach kernel driver on Linux
	if runtime.GOOS == "linux" {
		_ = a.device.SetAutoDetach(true)
	}

	num := printerInterface(a.device)
	if num < 0 {
		return errors.New("no printer interface found")
	}

	cfgNum, err := a.device.ActiveConfigNum()
	if err != nil {
		return fmt.Errorf("failed to get active config: %w", err)
	}
	cfg, err := a.device.Config(cfgNum)
	if err != nil {
		return fmt.Errorf("failed to get config: %w", err)
	}
	iface, err := cfg.Interface(num, 0)
	if err != nil {
		cfg.Close()
		return fmt.Errorf("failed to claim interface: %w", err)
	}
	// the config stays referenced while the interface is claimed
	done := func() {
		iface.Close()
		cfg.Close()
	}

	for _, ep := range iface.Setting.Endpoints {
		switch {
		case ep.Direction == gousb.EndpointDirectionOut && a.outEndpoint == nil:
			if out, err := iface.OutEndpoint(ep.Number); err == nil {
				a.outEndpoint = out
			}
		case ep.Direction == gousb.EndpointDirectionIn && a.inEndpoint == nil:
			if in, err := iface.InEndpoint(ep.Number); err == nil {
				a.inEndpoint = in
			}
		}
	}
	if a.outEndpoint == nil {
		done()
		return errors.New("cannot find output endpoint from printer")
	}

	a.iface = iface
	a.ifaceDone = done
	a.isOpen = true
	a.emit(Event{Type: EventConnect})
	return nil
}

// Write sends data to the bulk out endpoint. A vanished device is
// reported to EventDisconnect listeners.
func (a *USBAdapter) Write(data []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isOpen {
		return 0, errors.New("device not open")
	}

	n, err := a.outEndpoint.Write(data)
	if err != nil {
		if errors.Is(err, gousb.ErrorNoDevice) {
			a.emit(Event{Type: EventDisconnect, Error: err})
		}
		return n, fmt.Errorf("write failed: %w", err)
	}
	a.emit(Event{Type: EventData, Data: data[:n]})
	return n, nil
}

// Read reads status bytes from the printer
func (a *USBAdapter) Read(buf []byte) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.isOpen {
		return 0, errors.New("device not open")
	}
	if a.inEndpoint == nil {
		return 0, errors.New("input endpoint not available")
	}

	n, err := a.inEndpoint.Read(buf)
	if err != nil {
		return n, fmt.Errorf("read failed: %w", err)
	}
	return n, nil
}

// Close releases the interface, the device and the libusb context. It
// also releases an adapter that was never opened.
func (a *USBAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.device == nil && a.ctx == nil {
		return nil
	}

	var errs []error
	if a.ifaceDone != nil {
		a.ifaceDone()
		a.ifaceDone = nil
	}
	a.iface = nil
	a.outEndpoint = nil
	a.inEndpoint = nil

	if a.device != nil {
		if err := a.device.Close(); err != nil {
			errs = append(errs, err)
		}
		a.device = nil
	}
	if a.ctx != nil {
		if err := a.ctx.Close(); err != nil {
			errs = append(errs, err)
		}
		a.ctx = nil
	}

	wasOpen := a.isOpen
	a.isOpen = false
	if wasOpen {
		a.emit(Event{Type: EventClose})
	}
	return errors.Join(errs...)
}

// IsOpen returns whether the device is open
func (a *USBAdapter) IsOpen() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.isOpen
}
