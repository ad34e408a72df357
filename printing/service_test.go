package printing

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nixxel-company-limited/posprint/adapter"
	"github.com/nixxel-company-limited/posprint/apperror"
	"github.com/nixxel-company-limited/posprint/connection"
	"github.com/nixxel-company-limited/posprint/escpos"
	"github.com/nixxel-company-limited/posprint/imaging"
	"github.com/nixxel-company-limited/posprint/receipt"
)

type fakePrinter struct {
	mu         sync.Mutex
	connected  bool
	connectErr error
	writeErr   error
	block      bool
	written    [][]byte
	address    string
}

func (p *fakePrinter) Connect(_ context.Context, address string) (connection.Status, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connectErr != nil {
		p.connected = false
		return connection.Status{State: connection.Disconnected}, p.connectErr
	}
	p.connected = true
	p.address = address
	return connection.Status{State: connection.Connected, Address: address, Kind: adapter.WiFi}, nil
}

func (p *fakePrinter) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return nil
}

func (p *fakePrinter) Write(ctx context.Context, data []byte) error {
	if p.block {
		<-ctx.Done()
		return ctx.Err()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.writeErr != nil {
		return p.writeErr
	}
	p.written = append(p.written, append([]byte(nil), data...))
	return nil
}

func (p *fakePrinter) Scan(context.Context) ([]adapter.Device, error) {
	return []adapter.Device{{Address: "AA:BB:CC:DD:EE:FF", Name: "MTP-II"}}, nil
}

func (p *fakePrinter) Subscribe() (<-chan connection.Status, func()) {
	ch := make(chan connection.Status, 1)
	ch <- connection.Status{State: connection.Connecting}
	return ch, func() {}
}

func (p *fakePrinter) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *fakePrinter) Status() connection.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return connection.Status{State: connection.Disconnected}
	}
	return connection.Status{State: connection.Connected, Address: p.address, Kind: adapter.WiFi}
}

type fakeLogos struct {
	logo     imaging.Logo
	prepared []string
	cleared  []string
}

func (f *fakeLogos) Prepare(_ context.Context, source string, _ imaging.PaperWidth) imaging.Logo {
	f.prepared = append(f.prepared, source)
	if source == "" {
		return imaging.Logo{}
	}
	return f.logo
}

func (f *fakeLogos) Clear(source string) int {
	f.cleared = append(f.cleared, source)
	return 2
}

func (f *fakeLogos) Stats() imaging.CacheStats {
	return imaging.CacheStats{Size: len(f.prepared)}
}

func newTestService(p *fakePrinter, l *fakeLogos) *Service {
	return NewService(DefaultConfig(), p, l, zap.NewNop())
}

func sale() *receipt.Sale {
	return &receipt.Sale{
		Kind:     receipt.Receipt,
		Series:   "B001",
		Number:   "7",
		Business: receipt.Business{Name: "Bodega Rosa", TaxID: "10456789012", LogoURL: "https://cdn.example.pe/logo.png"},
		Items: []receipt.Item{
			{Name: "Arroz 1kg", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("4.50")},
		},
	}
}

func TestPrintReceipt(t *testing.T) {
	p := &fakePrinter{connected: true}
	logos := &fakeLogos{logo: imaging.Logo{Ready: true, Raster: make([]byte, 8), PixelWidth: 64, Height: 1}}
	svc := newTestService(p, logos)

	res := svc.PrintReceipt(context.Background(), sale(), imaging.Narrow)
	require.True(t, res.Success, res.Error)
	assert.NotEmpty(t, res.JobID)
	require.Len(t, p.written, 1)
	assert.Equal(t, len(p.written[0]), res.Bytes)
	assert.Equal(t, []string{"https://cdn.example.pe/logo.png"}, logos.prepared)
	assert.True(t, bytes.Contains(p.written[0], []byte("Arroz 1kg")))
	assert.True(t, bytes.Contains(p.written[0], []byte{0x1d, 'v', '0', 0, 8, 0, 1, 0}))

	other := svc.PrintReceipt(context.Background(), sale(), imaging.Wide)
	assert.NotEqual(t, res.JobID, other.JobID)
}

func TestPrintReceiptWithoutLogo(t *testing.T) {
	p := &fakePrinter{connected: true}
	svc := newTestService(p, &fakeLogos{logo: imaging.Logo{Ready: false}})

	res := svc.PrintReceipt(context.Background(), sale(), imaging.Narrow)
	require.True(t, res.Success)
	assert.False(t, bytes.Contains(p.written[0], []byte{0x1d, 'v', '0'}))
}

func TestPrintRejectsInvalidJob(t *testing.T) {
	p := &fakePrinter{connected: true}
	svc := newTestService(p, &fakeLogos{})

	res := svc.PrintReceipt(context.Background(), &receipt.Sale{}, imaging.Narrow)
	assert.False(t, res.Success)
	assert.Equal(t, "InvalidJob", res.ErrorKind)
	assert.True(t, apperror.IsKind(res.Err(), apperror.InvalidJob))

	res = svc.PrintKitchenOrder(context.Background(), nil, imaging.Narrow, "")
	assert.Equal(t, "InvalidJob", res.ErrorKind)
	assert.Empty(t, p.written)
}

func TestPrintNotConnected(t *testing.T) {
	p := &fakePrinter{}
	logos := &fakeLogos{}
	svc := newTestService(p, logos)

	res := svc.PrintReceipt(context.Background(), sale(), imaging.Narrow)
	assert.False(t, res.Success)
	assert.Equal(t, "NotConnected", res.ErrorKind)
	assert.Empty(t, logos.prepared, "no logo fetch without a printer")
}

func TestPrintWriteFailure(t *testing.T) {
	p := &fakePrinter{connected: true, writeErr: apperror.New(apperror.WriteFailed, "tcp.write", errors.New("broken pipe"))}
	svc := newTestService(p, &fakeLogos{})

	res := svc.PrintPreBill(context.Background(), &receipt.PreBill{
		Items: []receipt.Item{{Name: "Pisco sour", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(25)}},
	}, receipt.TaxConfig{Rate: decimal.NewFromInt(18)}, imaging.Narrow, receipt.SurchargeConfig{})
	assert.False(t, res.Success)
	assert.Equal(t, "WriteFailed", res.ErrorKind)
	assert.Contains(t, res.Error, "broken pipe")
	assert.NotZero(t, res.Bytes)
}

func TestPrintDeadline(t *testing.T) {
	p := &fakePrinter{connected: true, block: true}
	svc := NewService(Config{WriteTimeout: 20 * time.Millisecond}, p, &fakeLogos{}, zap.NewNop())

	start := time.Now()
	res := svc.PrintTest(context.Background(), imaging.Narrow)
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, res.Success)
	assert.Equal(t, "WriteFailed", res.ErrorKind)
}

func TestPrintKitchenOrder(t *testing.T) {
	p := &fakePrinter{connected: true}
	svc := newTestService(p, &fakeLogos{})

	res := svc.PrintKitchenOrder(context.Background(), &receipt.KitchenOrder{
		OrderNumber: "12",
		Items:       []receipt.KitchenItem{{Name: "Lomo saltado", Quantity: decimal.NewFromInt(1)}},
	}, imaging.Wide, "cocina")
	require.True(t, res.Success)
	assert.True(t, bytes.Contains(p.written[0], []byte("COCINA")))
}

func TestPrintTestPageShowsConnection(t *testing.T) {
	p := &fakePrinter{}
	svc := newTestService(p, &fakeLogos{})

	res := svc.Connect(context.Background(), "192.168.1.50")
	require.True(t, res.Success)
	require.NotNil(t, res.Status)
	assert.Equal(t, connection.Connected, res.Status.State)

	res = svc.PrintTest(context.Background(), imaging.Narrow)
	require.True(t, res.Success)
	assert.True(t, bytes.Contains(p.written[0], []byte("Conexion: wifi")))
	assert.True(t, bytes.Contains(p.written[0], []byte("192.168.1.50")))
}

func TestConnectFailure(t *testing.T) {
	p := &fakePrinter{connectErr: apperror.New(apperror.DeviceNotFound, "ble.connect", nil)}
	svc := newTestService(p, &fakeLogos{})

	res := svc.Connect(context.Background(), "AA:BB:CC:DD:EE:FF")
	assert.False(t, res.Success)
	assert.Equal(t, "DeviceNotFound", res.ErrorKind)
	assert.False(t, svc.IsConnected())

	res = svc.Disconnect()
	assert.True(t, res.Success)
	assert.Equal(t, connection.Disconnected, res.Status.State)
}

func TestRenderPanicIsContained(t *testing.T) {
	p := &fakePrinter{connected: true}
	svc := newTestService(p, &fakeLogos{})

	var res Result
	require.NotPanics(t, func() {
		res = svc.run(context.Background(), testJob{}, func(context.Context, *escpos.Builder) { panic("boom") })
	})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "boom")
	assert.Empty(t, p.written)
}

func TestLogoCacheDelegation(t *testing.T) {
	logos := &fakeLogos{}
	svc := newTestService(&fakePrinter{}, logos)
	assert.Equal(t, 2, svc.ClearLogos("https://cdn.example.pe/logo.png"))
	assert.Equal(t, []string{"https://cdn.example.pe/logo.png"}, logos.cleared)

	devices, err := svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, devices, 1)
}

func TestWatch(t *testing.T) {
	svc := newTestService(&fakePrinter{}, &fakeLogos{})
	updates, cancel := svc.Watch()
	defer cancel()
	assert.Equal(t, connection.Connecting, (<-updates).State)
}
