package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/nixxel-company-limited/posprint/apperror"
)

// Plugin is the platform printer plugin that owns the Bluetooth Classic link
type Plugin interface {
	Scan(ctx context.Context) ([]Device, error)
	Connect(ctx context.Context, address string) error
	Write(data []byte) error
	Disconnect() error
}

// PermissionChecker is implemented by plugins on platforms with runtime permissions
type PermissionChecker interface {
	CheckPermissions(ctx context.Context) error
}

// RadioChecker is implemented by plugins that can tell whether the radio is on
type RadioChecker interface {
	RadioEnabled() (bool, error)
}

// DisconnectNotifier is implemented by plugins that report link loss
type DisconnectNotifier interface {
	Disconnected() <-chan struct{}
}

// ClassicDriver serves Bluetooth Classic printers through a Plugin
type ClassicDriver struct {
	plugin Plugin
	logger *zap.Logger

	mu        sync.Mutex
	connected bool
}

// NewClassicDriver wraps plugin
func NewClassicDriver(plugin Plugin, logger *zap.Logger) *ClassicDriver {
	return &ClassicDriver{plugin: plugin, logger: logger.Named("classic")}
}

// Kind returns BluetoothClassic
func (d *ClassicDriver) Kind() Kind {
	return BluetoothClassic
}

// ready runs the checks the plugin exposes; checks the platform lacks are skipped
func (d *ClassicDriver) ready(ctx context.Context, op string) error {
	if pc, ok := d.plugin.(PermissionChecker); ok {
		if err := pc.CheckPermissions(ctx); err != nil {
			return apperror.New(apperror.TransportUnavailable, op, err)
		}
	}
	if rc, ok := d.plugin.(RadioChecker); ok {
		on, err := rc.RadioEnabled()
		if err != nil {
			return apperror.New(apperror.TransportUnavailable, op, err)
		}
		if !on {
			return apperror.Newf(apperror.TransportUnavailable, op, "bluetooth is turned off")
		}
	}
	return nil
}

// Scan lists paired or discoverable printers known to the plugin
func (d *ClassicDriver) Scan(ctx context.Context) ([]Device, error) {
	if err := d.ready(ctx, "classic.scan"); err != nil {
		return nil, err
	}
	devices, err := d.plugin.Scan(ctx)
	if err != nil {
		return nil, apperror.New(apperror.TransportUnavailable, "classic.scan", err)
	}
	return devices, nil
}

// Connect asks the plugin to open address
func (d *ClassicDriver) Connect(ctx context.Context, address string) (Handle, error) {
	_ = d.Disconnect()

	if err := d.ready(ctx, "classic.connect"); err != nil {
		return Handle{}, err
	}

	d.logger.Info("Connecting", zap.String("address", address))
	if err := d.plugin.Connect(ctx, address); err != nil {
		if apperror.KindOf(err) != apperror.Unknown {
			return Handle{}, err
		}
		return Handle{}, apperror.New(apperror.ConnectionFailed, "classic.connect", err)
	}

	d.mu.Lock()
	d.connected = true
	d.mu.Unlock()

	h := Handle{Kind: BluetoothClassic, Address: address}
	if n, ok := d.plugin.(DisconnectNotifier); ok {
		h.Lost = n.Disconnected()
	}
	d.logger.Info("Connected", zap.String("address", address))
	return h, nil
}

// Write hands the whole stream to the plugin
func (d *ClassicDriver) Write(_ context.Context, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.connected {
		return apperror.New(apperror.NotConnected, "classic.write", nil)
	}
	if err := d.plugin.Write(data); err != nil {
		return apperror.New(apperror.WriteFailed, "classic.write", err)
	}
	return nil
}

// Disconnect asks the plugin to close the link
func (d *ClassicDriver) Disconnect() error {
	d.mu.Lock()
	wasConnected := d.connected
	d.connected = false
	d.mu.Unlock()

	if !wasConnected {
		return nil
	}
	if err := d.plugin.Disconnect(); err != nil {
		return apperror.New(apperror.ConnectionFailed, "classic.disconnect", err)
	}
	return nil
}

// SerialPlugin implements Plugin on Linux by writing to RFCOMM serial
// devices. Bindings map a printer MAC to the device node it was bound to
// (rfcomm bind 0 AA:BB:CC:DD:EE:FF gives /dev/rfcomm0).
type SerialPlugin struct {
	bindings map[string]string
	baud     int
	// sysfs is where bluetooth controllers are listed; empty disables the radio check
	sysfs      string
	newAdapter func(name string, baud int) Adapter

	mu      sync.Mutex
	adapter Adapter
	lost    chan struct{}
}

// NewSerialPlugin creates a plugin from MAC → device bindings
func NewSerialPlugin(bindings map[string]string, baud int) *SerialPlugin {
	normalized := make(map[string]string, len(bindings))
	for mac, dev := range bindings {
		normalized[strings.ToUpper(strings.TrimSpace(mac))] = strings.TrimSpace(dev)
	}
	return &SerialPlugin{
		bindings: normalized,
		baud:     baud,
		sysfs:    "/sys/class/bluetooth",
		newAdapter: func(name string, baud int) Adapter {
			return NewSerialAdapter(name, baud)
		},
	}
}

// ParseBindings reads "MAC=/dev/rfcommN" entries
func ParseBindings(entries []string) (map[string]string, error) {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		mac, dev, ok := strings.Cut(e, "=")
		if !ok || strings.TrimSpace(mac) == "" || strings.TrimSpace(dev) == "" {
			return nil, fmt.Errorf("invalid bluetooth binding %q, want MAC=/dev/rfcommN", e)
		}
		out[strings.ToUpper(strings.TrimSpace(mac))] = strings.TrimSpace(dev)
	}
	return out, nil
}

// RadioEnabled reports whether at least one controller is registered
func (p *SerialPlugin) RadioEnabled() (bool, error) {
	if p.sysfs == "" {
		return true, nil
	}
	entries, err := os.ReadDir(p.sysfs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return len(entries) > 0, nil
}

// Scan lists the bound printers
func (p *SerialPlugin) Scan(context.Context) ([]Device, error) {
	out := make([]Device, 0, len(p.bindings))
	for mac, dev := range p.bindings {
		out = append(out, Device{Address: mac, Name: dev})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

// Connect opens the serial device bound to address
func (p *SerialPlugin) Connect(_ context.Context, address string) error {
	dev, ok := p.bindings[strings.ToUpper(address)]
	if !ok {
		return apperror.Newf(apperror.DeviceNotFound, "classic.connect", "no rfcomm binding for %s", address)
	}
	a := p.newAdapter(dev, p.baud)
	if err := a.Open(); err != nil {
		return err
	}

	p.mu.Lock()
	p.adapter = a
	p.lost = make(chan struct{})
	p.mu.Unlock()
	return nil
}

// Write writes the whole buffer to the port. A failed write means the
// link is gone, so the disconnect channel is closed.
func (p *SerialPlugin) Write(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.adapter == nil {
		return errors.New("device not open")
	}
	for len(data) > 0 {
		n, err := p.adapter.Write(data)
		if err == nil && n == 0 {
			err = io.ErrShortWrite
		}
		if err != nil {
			p.signalLost()
			return err
		}
		data = data[n:]
	}
	return nil
}

// Disconnect closes the port
func (p *SerialPlugin) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.adapter == nil {
		return nil
	}
	err := p.adapter.Close()
	p.adapter = nil
	p.lost = nil
	return err
}

// Disconnected returns the channel closed when the current link fails
func (p *SerialPlugin) Disconnected() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lost
}

func (p *SerialPlugin) signalLost() {
	if p.lost != nil {
		close(p.lost)
		p.lost = nil
	}
}
