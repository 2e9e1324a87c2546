package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/gophchat/internal/client/client"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/protocol"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

var errAlreadyLoggedIn = errors.New("already logged in")

func (a *App) Register(ctx context.Context) error {
	fullName, err := getSimpleText(a.reader, "Enter full name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	return a.authenticate(ctx, func(c *client.Client) (string, error) {
		return c.Register(fullName, email, string(password))
	})
}

func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	return a.authenticate(ctx, func(c *client.Client) (string, error) {
		return c.Login(email, string(password))
	})
}

func (a *App) Resume(ctx context.Context) error {
	token, err := getSimpleText(a.reader, "Enter resume token", a.out)
	if err != nil {
		return err
	}
	return a.authenticate(ctx, func(c *client.Client) (string, error) {
		return c.Resume(token)
	})
}

// authenticate dials a fresh connection, since the server closes it after a
// failed attempt, and starts the reader loop on success.
func (a *App) authenticate(ctx context.Context, do func(*client.Client) (string, error)) error {
	if a.isLoggedIn() {
		return errAlreadyLoggedIn
	}

	c, err := a.dial(ctx)
	if err != nil {
		return err
	}

	name, err := do(c)
	if err != nil {
		_ = c.Close()
		var ae *client.AuthError
		if errors.As(err, &ae) {
			return errors.New(describeAuthFailure(ae.Reason))
		}
		return err
	}

	if a.conn != nil {
		_ = a.conn.Close()
	}
	a.conn = c
	a.userName = name
	a.connected.Store(true)
	a.printf("Welcome, %s!\n", name)

	go func() {
		err := c.Listen(ctx, a.handleReply)
		a.connected.Store(false)
		if err != nil {
			a.printf("Connection lost: %v\n", err)
		}
	}()
	return nil
}

func describeAuthFailure(reason string) string {
	switch reason {
	case protocol.ReasonInvalidCredentials:
		return "wrong email or password"
	case protocol.ReasonUsernameExists:
		return "this email is already registered"
	case protocol.ReasonBadFormat:
		return "invalid name, email or password"
	case protocol.ReasonMissingParts:
		return "incomplete request"
	case protocol.ReasonInvalidToken:
		return "resume token is invalid or expired"
	default:
		return "authentication failed: " + reason
	}
}
