package cli

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/protocol"
)

var (
	errNotLoggedIn    = errors.New("not logged in")
	errNoConversation = errors.New("no conversation open, use 'chat <email>' or 'open <id>'")
	errBadFileName    = errors.New("file name must not contain '|'")
)

// send writes a command on the authenticated connection.
func (a *App) send(command string, fields ...string) error {
	if !a.isLoggedIn() || a.conn == nil {
		return errNotLoggedIn
	}
	return a.conn.Send(command, fields...)
}

func (a *App) currentConversation() (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == "" {
		return "", errNoConversation
	}
	return a.current, nil
}

func (a *App) Chats(ctx context.Context) error {
	return a.send(protocol.CmdListConversations)
}

func (a *App) StartChat(ctx context.Context, email string) error {
	if email == "" {
		return errors.New("usage: chat <email>")
	}
	return a.send(protocol.CmdNewChat, email)
}

func (a *App) Open(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("usage: open <conversation id>")
	}
	a.mu.Lock()
	a.current = id
	a.mu.Unlock()
	a.printf("Conversation %s opened\n", id)
	return nil
}

func (a *App) SendText(ctx context.Context, text string) error {
	id, err := a.currentConversation()
	if err != nil {
		return err
	}
	if text == "" {
		return errors.New("usage: send <text>")
	}
	return a.send(protocol.CmdSendMessage, id, text)
}

func (a *App) History(ctx context.Context) error {
	id, err := a.currentConversation()
	if err != nil {
		return err
	}
	return a.send(protocol.CmdGetMessages, id)
}

func (a *App) Search(ctx context.Context, prefix string) error {
	return a.send(protocol.CmdSearchUsers, prefix)
}

func (a *App) Files(ctx context.Context) error {
	id, err := a.currentConversation()
	if err != nil {
		return err
	}
	return a.send(protocol.CmdGetFiles, id)
}

func (a *App) SendFile(ctx context.Context, path string) error {
	id, err := a.currentConversation()
	if err != nil {
		return err
	}
	if path == "" {
		return errors.New("usage: sendfile <path>")
	}
	name := filepath.Base(path)
	if strings.Contains(name, protocol.Delimiter) {
		return errBadFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	if err := a.send(protocol.CmdSendFile, id, name, base64.StdEncoding.EncodeToString(data)); err != nil {
		return err
	}
	a.printf("Sent %s (%d bytes)\n", name, len(data))
	return nil
}

// GetFile requests a file; the reply is saved to dest, or to the download
// directory when dest is empty.
func (a *App) GetFile(ctx context.Context, name, dest string) error {
	id, err := a.currentConversation()
	if err != nil {
		return err
	}
	if name == "" {
		return errors.New("usage: getfile <name> [dest]")
	}
	if strings.Contains(name, protocol.Delimiter) {
		return errBadFileName
	}
	if dest != "" {
		a.mu.Lock()
		a.downloads[name] = dest
		a.mu.Unlock()
	}
	return a.send(protocol.CmdGetFile, id, name)
}

func (a *App) Token(ctx context.Context) error {
	return a.send(protocol.CmdGetToken)
}
