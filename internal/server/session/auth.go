package session

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/protocol"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

// authenticate handles the first line of a connection. On failure it replies
// AUTH_FAIL and the caller must close the connection.
func (s *Session) authenticate(ctx context.Context, line string) (models.User, bool) {
	cmd, err := protocol.Parse(line)
	if err != nil {
		reason := protocol.ReasonUnknownCommand
		if errors.Is(err, protocol.ErrMissingParts) && protocol.IsAuthCommand(cmd.Name) {
			reason = protocol.ReasonMissingParts
		}
		s.failAuth(ctx, cmd.Name, reason)
		return models.User{}, false
	}
	if !protocol.IsAuthCommand(cmd.Name) {
		s.failAuth(ctx, cmd.Name, protocol.ReasonUnknownCommand)
		return models.User{}, false
	}

	var user models.User
	switch cmd.Name {
	case protocol.CmdRegister:
		user, err = s.h.users.Register(ctx, cmd.Args[0], cmd.Args[1], cmd.Args[2])
	case protocol.CmdLogin:
		user, err = s.h.users.Login(ctx, cmd.Args[0], cmd.Args[1])
	case protocol.CmdResume:
		user, err = s.h.users.Resume(ctx, cmd.Args[0])
	}
	if err != nil {
		reason := authFailReason(err)
		if reason == protocol.ReasonInternal {
			s.logger.Error(ctx, "authentication error", "command", cmd.Name, "error", err)
		}
		s.failAuth(ctx, cmd.Name, reason)
		return models.User{}, false
	}

	s.h.metrics.AuthAttempt(authMethod(cmd.Name), "ok")
	return user, true
}

func (s *Session) failAuth(ctx context.Context, command, reason string) {
	s.h.metrics.AuthAttempt(authMethod(command), reason)
	s.logger.Info(ctx, "authentication failed", "command", command, "reason", reason)
	s.reply(ctx, protocol.ReplyAuthFail, reason)
}

func authFailReason(err error) string {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return protocol.ReasonBadFormat
	case errors.Is(err, common.ErrorAlreadyExists):
		return protocol.ReasonUsernameExists
	case errors.Is(err, common.ErrorUnauthorized):
		return protocol.ReasonInvalidCredentials
	case errors.Is(err, common.ErrInvalidToken):
		return protocol.ReasonInvalidToken
	default:
		return protocol.ReasonInternal
	}
}

// authMethod keeps the metric label set small.
func authMethod(command string) string {
	if protocol.IsAuthCommand(command) {
		return strings.ToLower(command)
	}
	return "other"
}
