package connection

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nixxel-company-limited/posprint/adapter"
	"github.com/nixxel-company-limited/posprint/apperror"
)

// State is the connection lifecycle state
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// MarshalText renders the state by name in JSON
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is a snapshot of the manager state
type Status struct {
	State              State        `json:"state"`
	Address            string       `json:"address,omitempty"`
	Kind               adapter.Kind `json:"transport"`
	ServiceUUID        string       `json:"service_uuid,omitempty"`
	CharacteristicUUID string       `json:"characteristic_uuid,omitempty"`
	Since              time.Time    `json:"since"`
}

// Config tunes the manager
type Config struct {
	// SettleDelay is waited after tearing down a live connection before
	// dialing the next one, so the radio or socket is fully released.
	SettleDelay time.Duration
}

// Manager holds at most one live connection across all transports.
// Connect, Write and Disconnect are serialized.
type Manager struct {
	cfg       Config
	logger    *zap.Logger
	drivers   map[adapter.Kind]adapter.Driver
	bluetooth adapter.Driver

	op sync.Mutex

	mu     sync.RWMutex
	status Status
	active adapter.Driver
	stop   chan struct{}
	gen    uint64
	subs   map[chan Status]struct{}
}

// NewManager creates a manager over drivers. The first Bluetooth driver
// given (Classic or LE) serves every Bluetooth address.
func NewManager(cfg Config, logger *zap.Logger, drivers ...adapter.Driver) *Manager {
	m := &Manager{
		cfg:     cfg,
		logger:  logger.Named("connection"),
		drivers: make(map[adapter.Kind]adapter.Driver),
		status:  Status{State: Disconnected, Since: time.Now()},
		subs:    make(map[chan Status]struct{}),
	}
	for _, d := range drivers {
		if d == nil {
			continue
		}
		if d.Kind().IsBluetooth() {
			if m.bluetooth == nil {
				m.bluetooth = d
			}
			continue
		}
		if _, dup := m.drivers[d.Kind()]; !dup {
			m.drivers[d.Kind()] = d
		}
	}
	return m
}

func (m *Manager) driverFor(kind adapter.Kind) adapter.Driver {
	if kind.IsBluetooth() {
		return m.bluetooth
	}
	return m.drivers[kind]
}

// Connect tears down any live connection and connects to address using
// the driver its classification selects. On failure the manager is left
// Disconnected.
func (m *Manager) Connect(ctx context.Context, address string) (Status, error) {
	m.op.Lock()
	defer m.op.Unlock()

	target := Classify(address)
	driver := m.driverFor(target.Kind)

	if m.teardown() && m.cfg.SettleDelay > 0 {
		select {
		case <-time.After(m.cfg.SettleDelay):
		case <-ctx.Done():
			m.setStatus(Status{State: Disconnected})
			return m.Status(), apperror.New(apperror.ConnectionFailed, "connection.connect", ctx.Err())
		}
	}

	if driver == nil {
		m.setStatus(Status{State: Disconnected})
		return m.Status(), apperror.Newf(apperror.TransportUnavailable, "connection.connect",
			"no driver for %s addresses", target.Kind)
	}

	m.setStatus(Status{State: Connecting, Address: target.Address, Kind: driver.Kind()})
	m.logger.Info("Connecting",
		zap.String("address", target.Address),
		zap.Stringer("transport", driver.Kind()),
	)

	h, err := driver.Connect(ctx, target.Address)
	if err != nil {
		m.setStatus(Status{State: Disconnected})
		m.logger.Warn("Connect failed", zap.String("address", target.Address), zap.Error(err))
		if apperror.KindOf(err) == apperror.Unknown {
			err = apperror.New(apperror.ConnectionFailed, "connection.connect", err)
		}
		return m.Status(), err
	}

	stop := make(chan struct{})
	m.mu.Lock()
	m.active = driver
	m.stop = stop
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	kind := h.Kind
	if kind == adapter.KindNone {
		kind = driver.Kind()
	}
	addr := h.Address
	if addr == "" {
		addr = target.Address
	}
	m.setStatus(Status{
		State:              Connected,
		Address:            addr,
		Kind:               kind,
		ServiceUUID:        h.ServiceUUID,
		CharacteristicUUID: h.CharacteristicUUID,
	})

	if h.Lost != nil {
		go m.watch(gen, h.Lost, stop)
	}
	return m.Status(), nil
}

// watch moves the manager to Disconnected when the far end drops the link,
// unless the connection was replaced or closed in the meantime.
func (m *Manager) watch(gen uint64, lost <-chan struct{}, stop <-chan struct{}) {
	select {
	case <-lost:
	case <-stop:
		return
	}

	m.op.Lock()
	defer m.op.Unlock()

	m.mu.Lock()
	if m.gen != gen || m.active == nil {
		m.mu.Unlock()
		return
	}
	driver := m.active
	address := m.status.Address
	m.active = nil
	m.stop = nil
	m.gen++
	m.mu.Unlock()

	m.logger.Warn("Printer disconnected", zap.String("address", address))
	m.setStatus(Status{State: Disconnected})
	if err := driver.Disconnect(); err != nil {
		m.logger.Debug("Cleanup after link loss failed", zap.Error(err))
	}
}

// teardown disconnects the active driver. It reports whether there was one.
// The caller holds op.
func (m *Manager) teardown() bool {
	m.mu.Lock()
	driver := m.active
	stop := m.stop
	m.active = nil
	m.stop = nil
	m.gen++
	m.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if driver == nil {
		return false
	}
	m.logger.Info("Closing previous connection", zap.Stringer("transport", driver.Kind()))
	if err := driver.Disconnect(); err != nil {
		m.logger.Warn("Disconnect failed", zap.Error(err))
	}
	return true
}

// Disconnect closes the live connection. The manager is Disconnected afterwards
// even if the driver reported an error.
func (m *Manager) Disconnect() error {
	m.op.Lock()
	defer m.op.Unlock()

	m.mu.Lock()
	driver := m.active
	stop := m.stop
	m.active = nil
	m.stop = nil
	m.gen++
	m.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	var err error
	if driver != nil {
		err = driver.Disconnect()
	}
	m.setStatus(Status{State: Disconnected})
	return err
}

// Write sends a complete command stream over the live connection
func (m *Manager) Write(ctx context.Context, data []byte) error {
	m.op.Lock()
	defer m.op.Unlock()

	m.mu.RLock()
	driver := m.active
	m.mu.RUnlock()

	if driver == nil {
		return apperror.New(apperror.NotConnected, "connection.write", nil)
	}
	if err := driver.Write(ctx, data); err != nil {
		if apperror.KindOf(err) == apperror.Unknown {
			err = apperror.New(apperror.WriteFailed, "connection.write", err)
		}
		return err
	}
	return nil
}

// Scan lists Bluetooth printers when the configured driver can discover them
func (m *Manager) Scan(ctx context.Context) ([]adapter.Device, error) {
	scanner, ok := m.bluetooth.(adapter.Scanner)
	if !ok {
		return nil, apperror.Newf(apperror.TransportUnavailable, "connection.scan", "bluetooth discovery not available")
	}
	return scanner.Scan(ctx)
}

// IsConnected reports whether a connection is live
func (m *Manager) IsConnected() bool {
	return m.Status().State == Connected
}

// Status returns the current state
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Subscribe returns a channel receiving every status change and a function
// that cancels the subscription. Slow subscribers miss updates.
func (m *Manager) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 8)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, ch)
			m.mu.Unlock()
			close(ch)
		})
	}
}

func (m *Manager) setStatus(s Status) {
	s.Since = time.Now()

	m.mu.Lock()
	m.status = s
	for ch := range m.subs {
		select {
		case ch <- s:
		default:
		}
	}
	m.mu.Unlock()
}
