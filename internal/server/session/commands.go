package session

import (
	"context"
	"errors"
	"runtime/debug"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/protocol"
	"github.com/dmitrijs2005/gophchat/internal/server/registry"
)

// Push kinds used as metric labels.
const (
	pushChatStarted = "chat_started"
	pushMessage     = "message"
	pushFile        = "file"
)

// dispatch runs one command of the authenticated loop. A failing or panicking
// command never ends the session.
func (s *Session) dispatch(ctx context.Context, line string) {
	cmd, err := protocol.Parse(line)
	switch {
	case errors.Is(err, protocol.ErrEmptyLine):
		return
	case errors.Is(err, protocol.ErrUnknownCommand):
		s.reply(ctx, protocol.ReplyError, protocol.ReasonUnknownCommand)
		return
	case errors.Is(err, protocol.ErrMissingParts):
		s.reply(ctx, protocol.ReplyError, protocol.ReasonMissingParts)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(ctx, "command panicked", "command", cmd.Name, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	s.h.metrics.Command(cmd.Name)

	switch cmd.Name {
	case protocol.CmdNewChat:
		s.newChat(ctx, cmd.Args[0])
	case protocol.CmdListConversations:
		s.listConversations(ctx)
	case protocol.CmdSendMessage:
		s.sendMessage(ctx, cmd.Args[0], cmd.Args[1])
	case protocol.CmdGetMessages:
		s.getMessages(ctx, cmd.Args[0])
	case protocol.CmdSearchUsers:
		s.searchUsers(ctx, cmd.Args[0])
	case protocol.CmdSendFile:
		s.sendFile(ctx, cmd.Args[0], cmd.Args[1], cmd.Args[2])
	case protocol.CmdGetFile:
		s.getFile(ctx, cmd.Args[0], cmd.Args[1])
	case protocol.CmdGetFiles:
		s.getFiles(ctx, cmd.Args[0])
	case protocol.CmdGetToken:
		s.getToken(ctx)
	default:
		// authentication commands are only valid as the first line
		s.reply(ctx, protocol.ReplyError, protocol.ReasonUnknownCommand)
	}
}

// push delivers line to email if that user is online. Offline peers are not
// an error: the message is already stored.
func (s *Session) push(ctx context.Context, email, line, kind string) {
	err := s.h.registry.SendTo(email, line)
	switch {
	case err == nil:
		s.h.metrics.Push(kind)
	case errors.Is(err, registry.ErrOffline):
	default:
		s.logger.Debug(ctx, "push failed", "to", email, "kind", kind, "error", err)
	}
}

// conversationError reports errors shared by every conversation-scoped
// command. It returns false for errors it does not recognise.
func (s *Session) conversationError(ctx context.Context, err error) bool {
	switch {
	case errors.Is(err, common.ErrConversationNotFound):
		s.reply(ctx, protocol.ReplyError, protocol.ReasonConversationNotFound)
	case errors.Is(err, common.ErrEncryption):
		s.logger.Warn(ctx, "encryption failed", "error", err)
		s.reply(ctx, protocol.ReplyError, protocol.ReasonEncryptionFailed)
	case errors.Is(err, common.ErrorValidation):
		s.reply(ctx, protocol.ReplyError, protocol.ReasonBadFormat)
	default:
		return false
	}
	return true
}

func (s *Session) newChat(ctx context.Context, peerEmail string) {
	conv, err := s.h.chat.StartConversation(ctx, s.user, peerEmail)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrorNotFound):
		s.reply(ctx, protocol.ReplyChatFail, protocol.ReasonUserNotFound)
		return
	case errors.Is(err, common.ErrSelfChat):
		s.reply(ctx, protocol.ReplyChatFail, protocol.ReasonSelfChat)
		return
	default:
		s.logger.Error(ctx, "start conversation failed", "peer", peerEmail, "error", err)
		return
	}

	line := protocol.Format(protocol.ReplyChatStarted, conv.ID)
	s.reply(ctx, protocol.ReplyChatStarted, conv.ID)
	s.push(ctx, conv.Peer(s.user.Email), line, pushChatStarted)
}

func (s *Session) listConversations(ctx context.Context) {
	refs, err := s.h.chat.ListConversations(ctx, s.user.Email)
	if err != nil {
		s.logger.Error(ctx, "list conversations failed", "error", err)
		return
	}
	for _, r := range refs {
		s.reply(ctx, protocol.ReplyMyConvo, r.ConversationID, r.DisplayName)
	}
}

func (s *Session) sendMessage(ctx context.Context, conversationID, text string) {
	recipient, err := s.h.chat.SendMessage(ctx, s.user, conversationID, text)
	if err != nil {
		if !s.conversationError(ctx, err) {
			s.logger.Error(ctx, "send message failed", "conversation", conversationID, "error", err)
		}
		return
	}
	s.push(ctx, recipient, protocol.Format(protocol.ReplyNewMessage, s.user.FullName, text), pushMessage)
}

func (s *Session) getMessages(ctx context.Context, conversationID string) {
	lines, skipped, err := s.h.chat.History(ctx, s.user.Email, conversationID)
	if err != nil {
		if !s.conversationError(ctx, err) {
			s.logger.Error(ctx, "get messages failed", "conversation", conversationID, "error", err)
		}
		return
	}
	s.h.metrics.DecryptSkipped(skipped)
	for _, l := range lines {
		s.reply(ctx, protocol.ReplyMessageHistory, l)
	}
}

func (s *Session) searchUsers(ctx context.Context, prefix string) {
	users, err := s.h.users.SearchUsers(ctx, prefix)
	if err != nil {
		s.logger.Error(ctx, "search users failed", "error", err)
		return
	}
	for _, u := range users {
		s.reply(ctx, protocol.ReplyUserResult, u.Email, u.FullName)
	}
}

func (s *Session) sendFile(ctx context.Context, conversationID, fileName, payload string) {
	recipient, err := s.h.chat.SendFile(ctx, s.user, conversationID, fileName, payload)
	if err != nil {
		if !s.conversationError(ctx, err) {
			s.logger.Error(ctx, "send file failed", "conversation", conversationID, "error", err)
		}
		return
	}
	s.push(ctx, recipient, protocol.Format(protocol.ReplyNewFile, s.user.FullName, fileName), pushFile)
}

func (s *Session) getFile(ctx context.Context, conversationID, fileName string) {
	data, err := s.h.chat.GetFile(ctx, s.user.Email, conversationID, fileName)
	switch {
	case err == nil:
		s.reply(ctx, protocol.ReplyFileData, fileName, data)
	case errors.Is(err, common.ErrConversationNotFound):
		s.reply(ctx, protocol.ReplyError, protocol.ReasonConversationNotFound)
	case errors.Is(err, common.ErrorNotFound):
		s.reply(ctx, protocol.ReplyFileData, fileName, protocol.FileNotFound)
	default:
		s.logger.Warn(ctx, "get file failed", "conversation", conversationID, "file", fileName, "error", err)
		s.reply(ctx, protocol.ReplyFileData, fileName, protocol.FileError)
	}
}

func (s *Session) getFiles(ctx context.Context, conversationID string) {
	names, err := s.h.chat.ListFiles(ctx, s.user.Email, conversationID)
	if err != nil {
		if !s.conversationError(ctx, err) {
			s.logger.Error(ctx, "list files failed", "conversation", conversationID, "error", err)
		}
		return
	}
	for _, n := range names {
		s.reply(ctx, protocol.ReplyFileList, n)
	}
}

func (s *Session) getToken(ctx context.Context) {
	token, err := s.h.users.IssueToken(s.user.Email)
	if err != nil {
		s.logger.Error(ctx, "issue token failed", "error", err)
		return
	}
	s.reply(ctx, protocol.ReplyToken, token)
}
