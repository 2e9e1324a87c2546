package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/gophchat/internal/client/client"
	"github.com/dmitrijs2005/gophchat/internal/client/config"
)

type App struct {
	config *config.Config
	reader *bufio.Reader
	out    io.Writer
	outMu  sync.Mutex

	dial func(ctx context.Context) (*client.Client, error)

	conn      *client.Client
	userName  string
	connected atomic.Bool

	mu        sync.Mutex
	current   string
	downloads map[string]string
}

func NewApp(c *config.Config) (*App, error) {
	if err := os.MkdirAll(c.DownloadDir, 0o750); err != nil {
		return nil, fmt.Errorf("download dir: %w", err)
	}
	a := newApp(c, os.Stdin, os.Stdout)
	a.dial = func(ctx context.Context) (*client.Client, error) {
		return client.Dial(ctx, c.ServerEndpointAddr, c.DialTimeout)
	}
	return a, nil
}

func newApp(c *config.Config, in io.Reader, out io.Writer) *App {
	return &App{
		config:    c,
		reader:    bufio.NewReader(in),
		out:       out,
		downloads: make(map[string]string),
	}
}

// printf serializes output from the prompt loop and the reader goroutine.
func (a *App) printf(format string, args ...any) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) isLoggedIn() bool {
	return a.connected.Load()
}

func (a *App) status() string {
	if !a.isLoggedIn() {
		return "(offline)"
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == "" {
		return fmt.Sprintf("(%s)", a.userName)
	}
	return fmt.Sprintf("(%s @ %s)", a.userName, a.current)
}

func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer func() {
		if a.conn != nil {
			_ = a.conn.Close()
		}
	}()

	a.printf("Welcome to gophchat (type 'help' for commands)\n")
	runREPL(ctx, a, a.status, a.reader)
}
