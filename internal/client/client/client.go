// Package client speaks the gophchat line protocol over TCP on behalf of the
// terminal client: one authentication exchange, then fire-and-forget requests
// whose replies and pushes are consumed by a single reader loop.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/protocol"
)

// maxLineBytes bounds a single server line; file payloads travel inline.
const maxLineBytes = 16 << 20

// AuthError carries the reason code of an AUTH_FAIL reply.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return "authentication failed: " + e.Reason
}

var ErrUnexpectedReply = errors.New("unexpected reply")

type Client struct {
	conn    net.Conn
	scanner *bufio.Scanner
	wmu     sync.Mutex
}

func Dial(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return New(conn), nil
}

// New wraps an established connection.
func New(conn net.Conn) *Client {
	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Client{conn: conn, scanner: sc}
}

// Send writes one request line. It is safe for concurrent use.
func (c *Client) Send(command string, fields ...string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_, err := c.conn.Write([]byte(protocol.Format(command, fields...) + "\n"))
	return err
}

// ReadReply blocks for the next server line. Only one goroutine may read.
func (c *Client) ReadReply() (protocol.Reply, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return protocol.Reply{}, err
		}
		return protocol.Reply{}, net.ErrClosed
	}
	return protocol.ParseReply(c.scanner.Text()), nil
}

func (c *Client) Register(fullName, email, password string) (string, error) {
	return c.authenticate(protocol.CmdRegister, fullName, email, password)
}

func (c *Client) Login(email, password string) (string, error) {
	return c.authenticate(protocol.CmdLogin, email, password)
}

func (c *Client) Resume(token string) (string, error) {
	return c.authenticate(protocol.CmdResume, token)
}

// authenticate sends the opening line and returns the display name from
// AUTH_OK. An AUTH_FAIL yields *AuthError; the server then closes the
// connection.
func (c *Client) authenticate(command string, fields ...string) (string, error) {
	if err := c.Send(command, fields...); err != nil {
		return "", err
	}
	r, err := c.ReadReply()
	if err != nil {
		return "", err
	}
	switch r.Keyword {
	case protocol.ReplyAuthOK:
		return r.Field(0), nil
	case protocol.ReplyAuthFail:
		return "", &AuthError{Reason: r.Field(0)}
	default:
		return "", fmt.Errorf("%w: %s", ErrUnexpectedReply, r.Keyword)
	}
}

// Listen delivers every server line to handle until the connection ends or
// ctx is cancelled. Cancelling ctx closes the connection.
func (c *Client) Listen(ctx context.Context, handle func(protocol.Reply)) error {
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()

	for {
		r, err := c.ReadReply()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		handle(r)
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}
