// Package server runs the raw print relay: a TCP listener in the style of a
// port 9100 printer whose bytes are forwarded to the active printer connection.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Accept failures back off between these bounds, doubling each time
const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// Forwarder receives relayed command streams
type Forwarder interface {
	Write(ctx context.Context, data []byte) error
}

// Server is a TCP relay that forwards data to a Forwarder
type Server struct {
	printer      Forwarder
	listener     net.Listener
	address      string
	writeTimeout time.Duration
	mu           sync.Mutex
	running      bool
	conns        map[net.Conn]struct{}
	wg           sync.WaitGroup
	logger       *zap.Logger
}

// New creates a relay listening on address. Each forwarded write is bounded
// by writeTimeout when it is positive.
func New(printer Forwarder, address string, writeTimeout time.Duration, logger *zap.Logger) *Server {
	return &Server{
		printer:      printer,
		address:      address,
		writeTimeout: writeTimeout,
		conns:        make(map[net.Conn]struct{}),
		logger:       logger.Named("relay"),
	}
}

func (s *Server) listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		s.logger.Error("Failed to start relay", zap.String("address", s.address), zap.Error(err))
		return fmt.Errorf("failed to start server: %w", err)
	}

	s.listener = listener
	s.address = listener.Addr().String()
	s.running = true
	s.logger.Info("Relay listening", zap.String("address", s.address))
	return nil
}

// Start starts the relay and blocks until Stop is called
func (s *Server) Start() error {
	if err := s.listen(); err != nil {
		return err
	}
	s.wg.Add(1)
	s.acceptConnections()
	return nil
}

// StartAsync starts the relay in a goroutine
func (s *Server) StartAsync() error {
	if err := s.listen(); err != nil {
		return err
	}
	s.wg.Add(1)
	go s.acceptConnections()
	return nil
}

func (s *Server) acceptConnections() {
	defer s.wg.Done()
	var backoff time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.IsRunning() {
				return
			}
			if backoff == 0 {
				backoff = minAcceptBackoff
			} else {
				backoff = min(2*backoff, maxAcceptBackoff)
			}
			s.logger.Warn("Accept failed", zap.Error(err), zap.Duration("retry_in", backoff))
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		s.mu.Lock()
		if !s.running {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.logger.Debug("Client connected", zap.Stringer("client", conn.RemoteAddr()))
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	client := conn.RemoteAddr().String()
	buf := make([]byte, 4096)
	total := 0

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if werr := s.forward(buf[:n]); werr != nil {
				s.logger.Error("Relay write failed",
					zap.String("client", client),
					zap.Int("forwarded", total),
					zap.Error(werr),
				)
				return
			}
			total += n
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Warn("Read from client failed", zap.String("client", client), zap.Error(err))
			}
			s.logger.Info("Relayed job", zap.String("client", client), zap.Int("bytes", total))
			return
		}
	}
}

func (s *Server) forward(data []byte) error {
	ctx := context.Background()
	if s.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.writeTimeout)
		defer cancel()
	}
	return s.printer.Write(ctx, data)
}

// Stop closes the listener and every client connection, then waits for
// the handlers to return. Stopping an idle relay is a no-op.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	listener := s.listener
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	var err error
	if listener != nil {
		err = listener.Close()
	}
	s.wg.Wait()
	s.logger.Info("Relay stopped")
	return err
}

// IsRunning returns whether the relay is accepting connections
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Address returns the listen address, resolved once started
func (s *Server) Address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.address
}
