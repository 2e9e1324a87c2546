package session

import (
	"bufio"
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/cryptox"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/metrics"
	"github.com/dmitrijs2005/gophchat/internal/server/registry"
	"github.com/dmitrijs2005/gophchat/internal/server/services"
	"github.com/dmitrijs2005/gophchat/internal/server/store/memory"
	"github.com/dmitrijs2005/gophchat/internal/server/tcp"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	readTimeout  = 2 * time.Second
	quietTimeout = 200 * time.Millisecond
)

type testEnv struct {
	addr     string
	registry *registry.Registry
	metrics  *metrics.Metrics
	cancel   context.CancelFunc
	done     chan error
}

type envOptions struct {
	cipher       cryptox.Encrypter
	wrapChat     func(ChatService) ChatService
	maxLineBytes int
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()

	cfg := &config.Config{
		SecretKey:                   "test-secret",
		ResumeTokenValidityDuration: time.Hour,
		MaxLineBytes:                opts.maxLineBytes,
		WriteTimeout:                time.Second,
	}
	if cfg.MaxLineBytes == 0 {
		cfg.MaxLineBytes = 64 * 1024
	}

	cipher := opts.cipher
	if cipher == nil {
		c, err := cryptox.NewAESGCM(make([]byte, cryptox.KeySize))
		require.NoError(t, err)
		cipher = c
	}
	hasher, err := cryptox.NewBcrypt(bcrypt.MinCost)
	require.NoError(t, err)

	st := memory.New()
	users := services.NewUserService(st, hasher, cfg)
	var chat ChatService = services.NewChatService(st, cipher, nil, logging.Nop{})
	if opts.wrapChat != nil {
		chat = opts.wrapChat(chat)
	}

	reg := registry.New()
	m := metrics.New()
	h := NewHandler(users, chat, reg, m, cfg, logging.Nop{})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	env := &testEnv{addr: ln.Addr().String(), registry: reg, metrics: m, cancel: cancel, done: make(chan error, 1)}
	go func() { env.done <- tcp.NewServer("", h.Serve, logging.Nop{}).Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-env.done:
		case <-time.After(3 * time.Second):
			t.Error("server did not stop")
		}
	})
	return env
}

type testClient struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func (e *testEnv) dial(t *testing.T) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", e.addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &testClient{t: t, conn: conn, r: bufio.NewReader(conn)}
}

// login dials and authenticates with line, asserting AUTH_OK.
func (e *testEnv) login(t *testing.T, line, fullName string) *testClient {
	t.Helper()
	c := e.dial(t)
	c.send(line)
	c.expect("AUTH_OK|" + fullName)
	return c
}

func (c *testClient) send(line string) {
	c.t.Helper()
	_, err := c.conn.Write([]byte(line + "\n"))
	require.NoError(c.t, err)
}

func (c *testClient) read(timeout time.Duration) (string, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))
	line, err := c.r.ReadString('\n')
	return strings.TrimSuffix(line, "\n"), err
}

func (c *testClient) expect(want string) {
	c.t.Helper()
	got, err := c.read(readTimeout)
	require.NoError(c.t, err, "waiting for %q", want)
	require.Equal(c.t, want, got)
}

func (c *testClient) expectNothing() {
	c.t.Helper()
	got, err := c.read(quietTimeout)
	require.Error(c.t, err, "unexpected line %q", got)
	require.True(c.t, errors.Is(err, os.ErrDeadlineExceeded), "expected silence, got %v", err)
}

func (c *testClient) expectClosed() {
	c.t.Helper()
	got, err := c.read(readTimeout)
	require.Error(c.t, err, "expected close, got line %q", got)
	require.False(c.t, errors.Is(err, os.ErrDeadlineExceeded), "connection was not closed")
}
