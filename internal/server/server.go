// Package server exposes the debug console over a unix domain socket. Each
// accepted connection gets its own session goroutine; a session quitting
// closes only its own connection, never the listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/tinydbg/dbgcon/internal/console"
	"github.com/tinydbg/dbgcon/pkg/quitter"
	"go.uber.org/zap"
)

// Server accepts console connections on a unix socket.
type Server struct {
	console    *console.Console
	socketPath string
	logger     *zap.Logger

	listener net.Listener
	sessions sync.WaitGroup
	nextID   atomic.Uint64
	closed   atomic.Bool

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// New creates a Server for the given console and socket path.
func New(c *console.Console, socketPath string, logger *zap.Logger) (*Server, error) {
	if c == nil {
		return nil, fmt.Errorf("server requires a console")
	}
	if socketPath == "" {
		return nil, fmt.Errorf("server requires a socket path")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		console:    c,
		socketPath: socketPath,
		logger:     logger,
		conns:      make(map[net.Conn]struct{}),
	}, nil
}

// trackConn keeps the set of open connections current so Close can unblock
// sessions stuck in a read.
func (s *Server) trackConn(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		// A connection accepted while Close was running would otherwise be
		// missed by its sweep.
		if s.closed.Load() {
			conn.Close()
		}
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

// Listen binds the unix socket, replacing a stale socket file left by a
// previous run.
func (s *Server) Listen() error {
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	s.listener = listener
	s.logger.Info("console listening", zap.String("socket", s.socketPath))
	return nil
}

// Serve accepts connections until the context is cancelled or the server is
// closed. Each connection runs a console session in its own goroutine.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		return fmt.Errorf("server is not listening")
	}

	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-stopped:
		}
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				s.sessions.Wait()
				return nil
			}
			return fmt.Errorf("accepting connection: %w", err)
		}

		name := fmt.Sprintf("conn-%d", s.nextID.Add(1))
		s.trackConn(conn, true)
		s.sessions.Add(1)
		go s.handle(ctx, name, conn)
	}
}

// handle runs one session on its own goroutine and closes the connection
// when the session ends, however it ends.
func (s *Server) handle(ctx context.Context, name string, conn net.Conn) {
	defer s.sessions.Done()
	defer s.trackConn(conn, false)
	defer conn.Close()

	err := s.console.Run(ctx, name, conn, conn)
	if err == nil {
		return
	}

	var req *quitter.ExitRequest
	if errors.As(err, &req) {
		s.logger.Info("session quit",
			zap.String("session", name),
			zap.Int("code", req.ExitCode()))
		return
	}
	// Shutdown closes the connection under the session; that read error is
	// expected, not a session failure.
	if s.closed.Load() || errors.Is(err, net.ErrClosed) {
		s.logger.Debug("session disconnected on shutdown", zap.String("session", name))
		return
	}
	s.logger.Warn("session failed", zap.String("session", name), zap.Error(err))
}

// SocketPath returns the socket the server is bound to.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Close stops accepting connections, disconnects in-flight sessions, and
// removes the socket file. Serve waits for the session goroutines to finish
// before returning.
func (s *Server) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.listener == nil {
		return nil
	}
	err := s.listener.Close()

	// Unblock sessions waiting on input so Serve's wait can complete.
	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	if rmErr := os.Remove(s.socketPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
		err = rmErr
	}
	return err
}
