package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nixxel-company-limited/posprint/apperror"
)

// DefaultTCPPort is the raw printing port used when an address has none
const DefaultTCPPort = 9100

// TCPConfig tunes the WiFi/TCP driver
type TCPConfig struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultTCPConfig returns the driver defaults
func DefaultTCPConfig() TCPConfig {
	return TCPConfig{
		DialTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// ParseHostPort splits "ip[:port]" and applies DefaultTCPPort when the port is missing
func ParseHostPort(address string) (string, int, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", 0, errors.New("empty address")
	}
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		// no port present
		return address, DefaultTCPPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port %q", portStr)
	}
	return host, port, nil
}

// TCPDriver prints to network printers over a raw socket
type TCPDriver struct {
	cfg    TCPConfig
	dialer *net.Dialer
	logger *zap.Logger

	mu   sync.Mutex
	conn net.Conn
}

// NewTCPDriver creates a WiFi/TCP driver
func NewTCPDriver(cfg TCPConfig, logger *zap.Logger) *TCPDriver {
	def := DefaultTCPConfig()
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = def.DialTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	return &TCPDriver{
		cfg:    cfg,
		dialer: &net.Dialer{Timeout: cfg.DialTimeout},
		logger: logger.Named("tcp"),
	}
}

// Kind returns WiFi
func (d *TCPDriver) Kind() Kind {
	return WiFi
}

// Connect dials ip[:port]
func (d *TCPDriver) Connect(ctx context.Context, address string) (Handle, error) {
	_ = d.Disconnect()

	host, port, err := ParseHostPort(address)
	if err != nil {
		return Handle{}, apperror.New(apperror.ConnectionFailed, "tcp.connect", err)
	}
	target := net.JoinHostPort(host, strconv.Itoa(port))

	d.logger.Info("Connecting", zap.String("address", target))
	conn, err := d.dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return Handle{}, apperror.New(apperror.ConnectionFailed, "tcp.connect", err)
	}

	d.mu.Lock()
	d.conn = conn
	d.mu.Unlock()

	lost := make(chan struct{})
	go d.drain(conn, lost)

	d.logger.Info("Connected", zap.String("address", target))
	return Handle{Kind: WiFi, Address: target, Lost: lost}, nil
}

// drain discards status bytes sent back by the printer and closes lost
// once the socket stops delivering.
func (d *TCPDriver) drain(conn net.Conn, lost chan<- struct{}) {
	defer close(lost)
	buf := make([]byte, 256)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			d.logger.Debug("Status bytes from printer", zap.Binary("data", buf[:n]))
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				d.logger.Debug("Read loop ended", zap.Error(err))
			}
			return
		}
	}
}

// Write sends data in one stream write bounded by the write timeout
func (d *TCPDriver) Write(ctx context.Context, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.conn == nil {
		return apperror.New(apperror.NotConnected, "tcp.write", nil)
	}

	deadline := time.Now().Add(d.cfg.WriteTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := d.conn.SetWriteDeadline(deadline); err != nil {
		return apperror.New(apperror.WriteFailed, "tcp.write", err)
	}
	if _, err := d.conn.Write(data); err != nil {
		return apperror.New(apperror.WriteFailed, "tcp.write", err)
	}
	return nil
}

// Disconnect closes the socket
func (d *TCPDriver) Disconnect() error {
	d.mu.Lock()
	conn := d.conn
	d.conn = nil
	d.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return apperror.New(apperror.ConnectionFailed, "tcp.disconnect", err)
	}
	return nil
}
