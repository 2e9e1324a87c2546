package session

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/protocol"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/registry"
	"github.com/google/uuid"
)

type State int32

const (
	StateConnected State = iota
	StateAuthenticating
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

const initialBufferSize = 64 * 1024

// Session is one client connection. Send may be called from any goroutine;
// everything else runs on the session's own goroutine.
type Session struct {
	id     string
	h      *Handler
	conn   net.Conn
	logger logging.Logger

	state atomic.Int32
	user  models.User

	wmu       sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
}

func newSession(h *Handler, conn net.Conn) *Session {
	id := uuid.NewString()
	return &Session{
		id:     id,
		h:      h,
		conn:   conn,
		logger: h.logger.With("session_id", id, "remote", conn.RemoteAddr().String()),
	}
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Send writes one line to the client. Writes are serialized and bounded by
// the write timeout; a failed write closes the connection.
func (s *Session) Send(line string) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.writeLocked(line, s.h.writeTimeout)
}

// Push delivers a line from another session. It uses the shorter push
// deadline because the caller holds the registry read lock.
func (s *Session) Push(line string) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.writeLocked(line, s.h.pushTimeout)
}

func (s *Session) writeLocked(line string, timeout time.Duration) error {
	if s.closed.Load() {
		return net.ErrClosed
	}
	if timeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	if _, err := s.conn.Write([]byte(line + "\n")); err != nil {
		s.close()
		return err
	}
	return nil
}

func (s *Session) reply(ctx context.Context, keyword string, fields ...string) {
	if err := s.Send(protocol.Format(keyword, fields...)); err != nil {
		s.logger.Debug(ctx, "write failed", "keyword", keyword, "error", err)
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		_ = s.conn.Close()
	})
}

// evict tells a displaced session why it is being dropped and closes it.
func (s *Session) evict() {
	_ = s.Send(protocol.Format(protocol.ReplyError, protocol.ReasonSessionReplaced))
	s.close()
}

func (s *Session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		s.close()
	}()
	defer s.setState(StateClosed)

	s.h.metrics.ConnectionAccepted()
	s.logger.Debug(ctx, "connection accepted")

	scanner := bufio.NewScanner(s.conn)
	scanner.Buffer(make([]byte, 0, min(initialBufferSize, s.h.maxLineBytes)), s.h.maxLineBytes)

	s.setState(StateAuthenticating)
	if !scanner.Scan() {
		s.logScanEnd(ctx, scanner.Err())
		return
	}
	user, ok := s.authenticate(ctx, scanner.Text())
	if !ok {
		return
	}

	s.user = user
	s.logger = s.logger.With("user", user.Email)
	s.setState(StateAuthenticated)

	if replaced := s.register(ctx); replaced != nil {
		s.logger.Info(ctx, "replacing previous session")
		if old, ok := replaced.(*Session); ok {
			old.evict()
		}
	} else {
		s.h.metrics.SessionOnline()
	}
	defer func() {
		if s.h.registry.Deregister(user.Email, s) {
			s.h.metrics.SessionOffline()
		}
	}()

	s.logger.Info(ctx, "session authenticated")

	for scanner.Scan() {
		s.dispatch(ctx, scanner.Text())
	}
	s.logScanEnd(ctx, scanner.Err())
}

// register publishes the session and sends AUTH_OK while holding the write
// lock, so no push can reach the client ahead of the auth reply.
func (s *Session) register(ctx context.Context) registry.Peer {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	replaced := s.h.registry.Register(s.user.Email, s)
	if err := s.writeLocked(protocol.Format(protocol.ReplyAuthOK, s.user.FullName), s.h.writeTimeout); err != nil {
		s.logger.Debug(ctx, "write failed", "keyword", protocol.ReplyAuthOK, "error", err)
	}
	return replaced
}

func (s *Session) logScanEnd(ctx context.Context, err error) {
	switch {
	case err == nil:
		s.logger.Info(ctx, "connection closed by client")
	case s.closed.Load() || errors.Is(err, net.ErrClosed):
		s.logger.Info(ctx, "connection closed")
	case errors.Is(err, bufio.ErrTooLong):
		s.logger.Warn(ctx, "line exceeds limit, dropping connection", "limit", s.h.maxLineBytes)
	default:
		s.logger.Warn(ctx, "read failed", "error", err)
	}
}
