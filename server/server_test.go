package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockPrinter records every forwarded write
type mockPrinter struct {
	mu        sync.Mutex
	writeData []byte
	writes    int
	err       error
}

func (m *mockPrinter) Write(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.writeData = append(m.writeData, data...)
	m.writes++
	return nil
}

func (m *mockPrinter) data() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.writeData...)
}

func newRelay(p Forwarder) *Server {
	return New(p, "127.0.0.1:0", time.Second, zap.NewNop())
}

func TestNewServer(t *testing.T) {
	server := New(&mockPrinter{}, "localhost:9100", 0, zap.NewNop())

	assert.NotNil(t, server)
	assert.Equal(t, "localhost:9100", server.Address())
	assert.False(t, server.IsRunning())
}

func TestServerStartStop(t *testing.T) {
	server := newRelay(&mockPrinter{})

	err := server.StartAsync()
	require.NoError(t, err)
	assert.True(t, server.IsRunning())
	assert.NotEqual(t, "127.0.0.1:0", server.Address(), "resolved port")

	err = server.StartAsync()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	require.NoError(t, server.Stop())
	assert.False(t, server.IsRunning())

	assert.NoError(t, server.Stop())
}

func TestServerConnection(t *testing.T) {
	printer := &mockPrinter{}
	server := newRelay(printer)
	require.NoError(t, server.StartAsync())
	defer server.Stop()

	conn, err := net.Dial("tcp", server.Address())
	require.NoError(t, err)
	defer conn.Close()

	testData := []byte("\x1b@Hello, Printer!\n")
	n, err := conn.Write(testData)
	require.NoError(t, err)
	assert.Equal(t, len(testData), n)

	assert.Eventually(t, func() bool {
		return string(printer.data()) == string(testData)
	}, time.Second, 10*time.Millisecond)
}

func TestServerMultipleConnections(t *testing.T) {
	printer := &mockPrinter{}
	server := newRelay(printer)
	require.NoError(t, server.StartAsync())
	defer server.Stop()

	for i := 0; i < 3; i++ {
		conn, err := net.Dial("tcp", server.Address())
		require.NoError(t, err)
		defer conn.Close()

		_, err = conn.Write([]byte{byte(i + 1)})
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool {
		return len(printer.data()) == 3
	}, time.Second, 10*time.Millisecond)
}

func TestServerDropsClientOnWriteFailure(t *testing.T) {
	server := newRelay(&mockPrinter{err: errors.New("not connected")})
	require.NoError(t, server.StartAsync())
	defer server.Stop()

	conn, err := net.Dial("tcp", server.Address())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("data"))
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, err = conn.Read(make([]byte, 1))
	assert.Error(t, err, "relay closes the client")
	var netErr net.Error
	if errors.As(err, &netErr) {
		assert.False(t, netErr.Timeout())
	}
}

func TestServerStopClosesClients(t *testing.T) {
	server := newRelay(&mockPrinter{})
	require.NoError(t, server.StartAsync())

	conn, err := net.Dial("tcp", server.Address())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte{0x1b, 0x40})
	require.NoError(t, err)

	done := make(chan error)
	go func() { done <- server.Stop() }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop() blocked on an idle client")
	}
}

func TestServerInvalidAddress(t *testing.T) {
	server := New(&mockPrinter{}, "invalid:address:9100", 0, zap.NewNop())

	err := server.StartAsync()
	assert.Error(t, err)
	assert.False(t, server.IsRunning())
}

func TestServerStartBlocking(t *testing.T) {
	printer := &mockPrinter{}
	server := newRelay(printer)

	started := make(chan error)
	go func() {
		started <- server.Start()
	}()

	require.Eventually(t, server.IsRunning, time.Second, 10*time.Millisecond)

	conn, err := net.Dial("tcp", server.Address())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("Blocking test"))
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		return string(printer.data()) == "Blocking test"
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, server.Stop())

	select {
	case err := <-started:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start() did not return after Stop()")
	}
}

// failingListener fails every Accept until it is closed
type failingListener struct {
	mu      sync.Mutex
	accepts int
	closed  chan struct{}
}

func (l *failingListener) Accept() (net.Conn, error) {
	l.mu.Lock()
	l.accepts++
	l.mu.Unlock()
	select {
	case <-l.closed:
		return nil, net.ErrClosed
	default:
		return nil, errors.New("accept: too many open files")
	}
}

func (l *failingListener) Close() error {
	close(l.closed)
	return nil
}

func (l *failingListener) Addr() net.Addr { return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9100} }

func (l *failingListener) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.accepts
}

func TestServerAcceptErrorsBackOff(t *testing.T) {
	ln := &failingListener{closed: make(chan struct{})}
	srv := New(&mockPrinter{}, "127.0.0.1:0", 0, zap.NewNop())
	srv.listener = ln
	srv.running = true
	srv.wg.Add(1)
	go srv.acceptConnections()

	time.Sleep(100 * time.Millisecond)
	// 5+10+20+40 ms fit in the window, so only a handful of attempts run
	assert.LessOrEqual(t, ln.count(), 8)
	assert.GreaterOrEqual(t, ln.count(), 2)

	require.NoError(t, srv.Stop())
	assert.False(t, srv.IsRunning())
}
