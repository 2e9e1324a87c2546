package cli

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/gophchat/internal/protocol"
)

// handleReply runs on the reader goroutine for every server line.
func (a *App) handleReply(r protocol.Reply) {
	switch r.Keyword {
	case protocol.ReplyChatStarted:
		a.mu.Lock()
		if a.current == "" {
			a.current = r.Field(0)
		}
		a.mu.Unlock()
	case protocol.ReplyFileData:
		if data := r.Field(1); data != protocol.FileNotFound && data != protocol.FileError {
			a.printf("%s\n", a.saveFile(r.Field(0), data))
			return
		}
	}
	a.printf("%s\n", render(r))
}

// render turns a server reply into a human readable line.
func render(r protocol.Reply) string {
	switch r.Keyword {
	case protocol.ReplyChatStarted:
		return fmt.Sprintf("Conversation %s started", r.Field(0))
	case protocol.ReplyChatFail:
		switch r.Field(0) {
		case protocol.ReasonUserNotFound:
			return "No such user"
		case protocol.ReasonSelfChat:
			return "You cannot start a conversation with yourself"
		}
		return "Could not start conversation: " + r.Field(0)
	case protocol.ReplyMyConvo:
		return fmt.Sprintf("  %s  %s", r.Field(0), r.Field(1))
	case protocol.ReplyMessageHistory:
		return "  " + r.Field(0)
	case protocol.ReplyNewMessage:
		return fmt.Sprintf("[%s] %s", r.Field(0), r.Field(1))
	case protocol.ReplyNewFile:
		return fmt.Sprintf("[%s] sent a file: %s", r.Field(0), r.Field(1))
	case protocol.ReplyFileList:
		return "  " + r.Field(0)
	case protocol.ReplyFileData:
		if r.Field(1) == protocol.FileNotFound {
			return fmt.Sprintf("File %s not found", r.Field(0))
		}
		return fmt.Sprintf("File %s could not be retrieved", r.Field(0))
	case protocol.ReplyUserResult:
		return fmt.Sprintf("  %s (%s)", r.Field(1), r.Field(0))
	case protocol.ReplyToken:
		return "Resume token: " + r.Field(0)
	case protocol.ReplyError:
		switch r.Field(0) {
		case protocol.ReasonConversationNotFound:
			return "Error: conversation not found"
		case protocol.ReasonSessionReplaced:
			return "Error: logged in from another location"
		}
		return "Error: " + r.Field(0)
	}
	if len(r.Fields) == 0 {
		return r.Keyword
	}
	return r.Keyword + " " + r.Field(0)
}

// saveFile decodes a FILE_DATA payload and writes it to disk.
func (a *App) saveFile(name, payload string) string {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return fmt.Sprintf("File %s: invalid payload: %v", name, err)
	}

	a.mu.Lock()
	dest, ok := a.downloads[name]
	delete(a.downloads, name)
	a.mu.Unlock()
	if !ok {
		dest = filepath.Join(a.config.DownloadDir, filepath.Base(name))
	}

	if err := os.WriteFile(dest, data, 0o600); err != nil {
		return fmt.Sprintf("File %s: %v", name, err)
	}
	return fmt.Sprintf("Saved %s to %s (%d bytes)", name, dest, len(data))
}
