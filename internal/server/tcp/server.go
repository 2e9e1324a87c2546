// Package tcp accepts raw TCP connections for the line protocol and hands
// each one to a connection handler on its own goroutine.
package tcp

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/logging"
)

// ConnHandler serves one connection and returns when it is finished.
type ConnHandler func(ctx context.Context, conn net.Conn)

const acceptRetryDelay = 50 * time.Millisecond

type Server struct {
	address string
	handler ConnHandler
	logger  logging.Logger

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

func NewServer(address string, h ConnHandler, l logging.Logger) *Server {
	return &Server{
		address: address,
		handler: h,
		logger:  l.With("module", "tcp_server"),
		conns:   make(map[net.Conn]struct{}),
	}
}

func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts on listen until ctx is cancelled. On shutdown it closes the
// listener and every live connection, then waits for the handlers to return.
func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping chat server...")
		_ = listen.Close()
		s.closeConns()
	}()

	s.logger.Info(ctx, "Starting chat server", "address", listen.Addr().String())

	var err error
	for {
		var conn net.Conn
		conn, err = listen.Accept()
		if err != nil {
			if ctx.Err() != nil {
				err = nil
				break
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.logger.Warn(ctx, "accept failed, retrying", "error", err)
				time.Sleep(acceptRetryDelay)
				continue
			}
			break
		}

		if !s.track(conn) {
			_ = conn.Close()
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.handler(ctx, conn)
		}()
	}

	s.closeConns()
	s.wg.Wait()
	return err
}

// track registers conn unless the server is already shutting down.
func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conns == nil {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
	_ = conn.Close()
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.conns = nil
}
