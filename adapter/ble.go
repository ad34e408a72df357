package adapter

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-ble/ble"
	"go.uber.org/zap"

	"github.com/nixxel-company-limited/posprint/apperror"
)

// ErrScanInProgress is returned when a scan is requested while another runs
var ErrScanInProgress = errors.New("scan already in progress")

// Vendor UUIDs seen on common thermal printers. Matching uses the 16-bit
// short code (characters 4..8 of the full form).
var (
	knownServiceUUIDs = []string{
		"000018f0-0000-1000-8000-00805f9b34fb",
		"0000ff00-0000-1000-8000-00805f9b34fb",
		"49535343-fe7d-4ae5-8fa9-9fafd205e455",
		"0000ffe0-0000-1000-8000-00805f9b34fb",
	}
	knownCharacteristicUUIDs = []string{
		"00002af1-0000-1000-8000-00805f9b34fb",
		"0000ff02-0000-1000-8000-00805f9b34fb",
		"49535343-8841-43f4-a8d4-ecbe34729bb3",
		"0000ffe1-0000-1000-8000-00805f9b34fb",
	}
)

// BLEConfig tunes the BLE driver
type BLEConfig struct {
	// ScanTimeout bounds the discovery pass that precedes every connect
	ScanTimeout time.Duration
	// MTU is the largest chunk handed to a single characteristic write
	MTU int
	// ChunkDelay is the pause between consecutive chunks
	ChunkDelay time.Duration
}

// DefaultBLEConfig returns conservative settings that work on most printers
func DefaultBLEConfig() BLEConfig {
	return BLEConfig{
		ScanTimeout: 10 * time.Second,
		MTU:         100,
		ChunkDelay:  20 * time.Millisecond,
	}
}

// bleClient is the subset of ble.Client used by the driver
type bleClient interface {
	DiscoverProfile(force bool) (*ble.Profile, error)
	WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error
	CancelConnection() error
	Disconnected() <-chan struct{}
}

// bleStack abstracts the host controller so tests can run without a radio
type bleStack interface {
	Scan(ctx context.Context, handler func(ble.Advertisement)) error
	Dial(ctx context.Context, addr string) (bleClient, error)
}

// BLEDriver talks to printers over Bluetooth Low Energy GATT writes
type BLEDriver struct {
	cfg      BLEConfig
	stack    bleStack
	logger   *zap.Logger
	scanning atomic.Bool

	mu     sync.Mutex
	client bleClient
	char   *ble.Characteristic
}

// NewBLEDriver creates a driver on the default HCI device
func NewBLEDriver(cfg BLEConfig, logger *zap.Logger) *BLEDriver {
	return newBLEDriver(cfg, &hciStack{open: openDefaultDevice}, logger)
}

func newBLEDriver(cfg BLEConfig, stack bleStack, logger *zap.Logger) *BLEDriver {
	def := DefaultBLEConfig()
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = def.ScanTimeout
	}
	if cfg.MTU <= 0 {
		cfg.MTU = def.MTU
	}
	if cfg.ChunkDelay < 0 {
		cfg.ChunkDelay = 0
	}
	return &BLEDriver{cfg: cfg, stack: stack, logger: logger.Named("ble")}
}

// Kind returns BluetoothLE
func (d *BLEDriver) Kind() Kind {
	return BluetoothLE
}

// Scan lists advertising devices for the configured scan window
func (d *BLEDriver) Scan(ctx context.Context) ([]Device, error) {
	var (
		mu      sync.Mutex
		order   []string
		devices = make(map[string]Device)
	)
	err := d.scan(ctx, func(a ble.Advertisement) bool {
		addr := strings.ToUpper(a.Addr().String())
		mu.Lock()
		defer mu.Unlock()
		dev, seen := devices[addr]
		if !seen {
			order = append(order, addr)
		}
		dev.Address = addr
		dev.RSSI = a.RSSI()
		if name := a.LocalName(); name != "" {
			dev.Name = name
		}
		devices[addr] = dev
		return false
	})
	if err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()
	out := make([]Device, 0, len(order))
	for _, addr := range order {
		out = append(out, devices[addr])
	}
	return out, nil
}

// scan runs the stack scanner until the window elapses or match returns true
func (d *BLEDriver) scan(ctx context.Context, match func(ble.Advertisement) bool) error {
	if !d.scanning.CompareAndSwap(false, true) {
		return apperror.New(apperror.TransportUnavailable, "ble.scan", ErrScanInProgress)
	}
	defer d.scanning.Store(false)

	scanCtx, cancel := context.WithTimeout(ctx, d.cfg.ScanTimeout)
	defer cancel()

	err := d.stack.Scan(scanCtx, func(a ble.Advertisement) {
		if match(a) {
			cancel()
		}
	})
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return apperror.New(apperror.TransportUnavailable, "ble.scan", err)
	}
	return nil
}

// Connect scans for address, dials it, discovers the GATT profile and picks
// the characteristic used for printing.
func (d *BLEDriver) Connect(ctx context.Context, address string) (Handle, error) {
	_ = d.Disconnect()

	var found atomic.Bool
	err := d.scan(ctx, func(a ble.Advertisement) bool {
		if strings.EqualFold(a.Addr().String(), address) {
			found.Store(true)
			return true
		}
		return false
	})
	if err != nil {
		return Handle{}, err
	}
	if !found.Load() {
		return Handle{}, apperror.Newf(apperror.DeviceNotFound, "ble.connect",
			"%s not seen within %s", address, d.cfg.ScanTimeout)
	}

	d.logger.Info("Device found, connecting", zap.String("address", address))
	client, err := d.stack.Dial(ctx, address)
	if err != nil {
		return Handle{}, apperror.New(apperror.ConnectionFailed, "ble.dial", err)
	}

	profile, err := client.DiscoverProfile(true)
	if err != nil {
		_ = client.CancelConnection()
		return Handle{}, apperror.New(apperror.ConnectionFailed, "ble.discover", err)
	}

	svc, char := selectCharacteristic(profile)
	if char == nil {
		_ = client.CancelConnection()
		return Handle{}, apperror.Newf(apperror.UnsupportedDevice, "ble.discover",
			"no writable characteristic on %s", address)
	}

	d.mu.Lock()
	d.client = client
	d.char = char
	d.mu.Unlock()

	h := Handle{
		Kind:               BluetoothLE,
		Address:            address,
		ServiceUUID:        svc.UUID.String(),
		CharacteristicUUID: char.UUID.String(),
		Lost:               client.Disconnected(),
	}
	d.logger.Info("Connected",
		zap.String("address", address),
		zap.String("service", h.ServiceUUID),
		zap.String("characteristic", h.CharacteristicUUID),
	)
	return h, nil
}

// Write sends data in MTU-sized chunks with a pause between them. A chunk
// rejected as an acknowledged write is retried without response.
func (d *BLEDriver) Write(ctx context.Context, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client == nil || d.char == nil {
		return apperror.New(apperror.NotConnected, "ble.write", nil)
	}

	chunks := Chunk(data, d.cfg.MTU)
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return apperror.New(apperror.WriteFailed, "ble.write", err)
		}
		if err := d.client.WriteCharacteristic(d.char, chunk, false); err != nil {
			d.logger.Debug("Acknowledged write failed, retrying without response",
				zap.Int("chunk", i), zap.Error(err))
			if err := d.client.WriteCharacteristic(d.char, chunk, true); err != nil {
				return apperror.Newf(apperror.WriteFailed, "ble.write", "chunk %d/%d: %w", i+1, len(chunks), err)
			}
		}
		if i < len(chunks)-1 && d.cfg.ChunkDelay > 0 {
			select {
			case <-time.After(d.cfg.ChunkDelay):
			case <-ctx.Done():
				return apperror.New(apperror.WriteFailed, "ble.write", ctx.Err())
			}
		}
	}
	return nil
}

// Disconnect cancels the GATT connection
func (d *BLEDriver) Disconnect() error {
	d.mu.Lock()
	client := d.client
	d.client = nil
	d.char = nil
	d.mu.Unlock()

	if client == nil {
		return nil
	}
	if err := client.CancelConnection(); err != nil {
		return apperror.New(apperror.ConnectionFailed, "ble.disconnect", err)
	}
	return nil
}

func writable(c *ble.Characteristic) bool {
	return c.Property&(ble.CharWrite|ble.CharWriteNR) != 0
}

func matchesKnown(uuid ble.UUID, known []string) bool {
	s := strings.ToLower(strings.ReplaceAll(uuid.String(), "-", ""))
	for _, k := range known {
		if strings.Contains(s, k[4:8]) {
			return true
		}
	}
	return false
}

// selectCharacteristic ranks writable characteristics: known service and
// characteristic first, either one known next, otherwise the first writable.
func selectCharacteristic(p *ble.Profile) (*ble.Service, *ble.Characteristic) {
	var (
		bestSvc  *ble.Service
		best     *ble.Characteristic
		bestRank = -1
	)
	if p == nil {
		return nil, nil
	}
	for _, svc := range p.Services {
		knownSvc := matchesKnown(svc.UUID, knownServiceUUIDs)
		for _, c := range svc.Characteristics {
			if !writable(c) {
				continue
			}
			rank := 0
			if knownSvc {
				rank++
			}
			if matchesKnown(c.UUID, knownCharacteristicUUIDs) {
				rank++
			}
			if rank > bestRank {
				bestSvc, best, bestRank = svc, c, rank
			}
			if rank == 2 {
				return bestSvc, best
			}
		}
	}
	return bestSvc, best
}

// hciStack is the production stack backed by ble's default device.
// The device is opened on first use; a failed open is retried on the next call.
type hciStack struct {
	open  func() error
	mu    sync.Mutex
	ready bool
}

func (s *hciStack) init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if err := s.open(); err != nil {
		return apperror.New(apperror.TransportUnavailable, "ble.init", err)
	}
	s.ready = true
	return nil
}

func (s *hciStack) Scan(ctx context.Context, handler func(ble.Advertisement)) error {
	if err := s.init(); err != nil {
		return err
	}
	return ble.Scan(ctx, true, handler, nil)
}

func (s *hciStack) Dial(ctx context.Context, addr string) (bleClient, error) {
	if err := s.init(); err != nil {
		return nil, err
	}
	return ble.Dial(ctx, ble.NewAddr(addr))
}
