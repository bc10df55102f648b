// Package server provides the TCP server implementation for Kafka
package server

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/moband/kaf/internal/kafka"
	"github.com/moband/kaf/internal/metrics"
	"github.com/moband/kaf/pkg/logger"
)

// Config holds server configuration
type Config struct {
	Host string
	Port int
	// MaxClients caps concurrent connections. Zero means unlimited.
	MaxClients    int
	MaxFrameBytes int
	IdleTimeout   time.Duration
	WriteTimeout  time.Duration
}

// Option customizes a Server
type Option func(*Server)

// WithMetrics records connection and request metrics in registry
func WithMetrics(registry *metrics.Registry) Option {
	return func(s *Server) { s.metrics = registry }
}

// WithHandlerOptions passes collaborators through to the request handler
func WithHandlerOptions(opts ...kafka.HandlerOption) Option {
	return func(s *Server) { s.handlerOpts = append(s.handlerOpts, opts...) }
}

// Server represents a Kafka server
type Server struct {
	config      Config
	logger      *logger.Logger
	listener    net.Listener
	parser      *kafka.MessageParser
	handler     *kafka.RequestHandler
	handlerOpts []kafka.HandlerOption
	metrics     *metrics.Registry
	wg          sync.WaitGroup
	clients     map[string]net.Conn
	clientsMu   sync.Mutex
	shutdown    chan struct{}
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates a new Kafka server
func New(config Config, logger *logger.Logger, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:   config,
		logger:   logger,
		clients:  make(map[string]net.Conn),
		shutdown: make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.parser = kafka.NewMessageParser(logger, config.MaxFrameBytes)
	s.handler = kafka.NewRequestHandler(logger, s.handlerOpts...)
	return s
}

// Start starts the Kafka server
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to %s: %w", addr, err)
	}

	s.listener = listener
	s.logger.Info("Kafka server started on %s", listener.Addr())

	// Accept connections in a goroutine
	s.wg.Add(1)
	go s.acceptConnections()

	return nil
}

// Addr returns the bound listener address, or nil before Start
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serving reports whether the listener is up and not shutting down
func (s *Server) Serving() bool {
	if s.listener == nil {
		return false
	}
	select {
	case <-s.shutdown:
		return false
	default:
		return true
	}
}

// Stop stops the Kafka server
func (s *Server) Stop() error {
	// Signal the shutdown
	close(s.shutdown)
	s.cancel()

	// Close the listener
	if s.listener != nil {
		if err := s.listener.Close(); err != nil {
			s.logger.Error("Error closing listener: %s", err.Error())
		}
	}

	// Close all client connections
	s.clientsMu.Lock()
	for _, conn := range s.clients {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Error("Error closing client connection: %s", err.Error())
		}
	}
	s.clientsMu.Unlock()

	// Wait for all goroutines to finish
	s.wg.Wait()

	s.logger.Info("Kafka server stopped")
	return nil
}

func (s *Server) shuttingDown() bool {
	select {
	case <-s.shutdown:
		return true
	default:
		return false
	}
}

// acceptConnections accepts incoming connections
func (s *Server) acceptConnections() {
	defer s.wg.Done()

	for {
		if s.shuttingDown() {
			return
		}

		conn, err := s.listener.Accept()
		if err != nil {
			if s.shuttingDown() {
				return
			}
			s.logger.Error("Error accepting connection: %s", err.Error())
			continue
		}

		// Register the client
		clientAddr := conn.RemoteAddr().String()
		if !s.registerClient(clientAddr, conn) {
			s.logger.Warn("Rejecting %s: %d clients connected", clientAddr, s.config.MaxClients)
			conn.Close()
			continue
		}

		// Handle the connection in a goroutine
		s.wg.Add(1)
		go s.handleConnection(clientAddr, conn)
	}
}

// registerClient registers a client connection. It returns false when the
// MaxClients limit is reached.
func (s *Server) registerClient(addr string, conn net.Conn) bool {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	if s.config.MaxClients > 0 && len(s.clients) >= s.config.MaxClients {
		return false
	}
	s.clients[addr] = conn
	if s.metrics != nil {
		s.metrics.ConnectionOpened()
	}
	s.logger.Info("New connection from: %s", addr)
	return true
}

// unregisterClient removes a client connection
func (s *Server) unregisterClient(addr string) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	delete(s.clients, addr)
	if s.metrics != nil {
		s.metrics.ConnectionClosed()
	}
	s.logger.Info("Connection closed: %s", addr)
}

// handleConnection handles a client connection
func (s *Server) handleConnection(addr string, conn net.Conn) {
	defer func() {
		conn.Close()
		s.unregisterClient(addr)
		s.wg.Done()
	}()

	c := newConnection(s, conn, s.logger.With("remote", addr))
	c.serve(s.ctx)
}
