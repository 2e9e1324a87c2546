// Package protocol implements the line-oriented wire format spoken between
// chat clients and the server.
//
// A frame is one UTF-8 line terminated by '\n' (a trailing '\r' is
// tolerated). Fields are separated by '|'. Every command has a fixed arity;
// the line is split into at most arity+1 pieces so the final field may carry
// the delimiter.
package protocol

import (
	"errors"
	"fmt"
	"strings"
)

const Delimiter = "|"

// Client commands.
const (
	CmdRegister          = "REGISTER"
	CmdLogin             = "LOGIN"
	CmdResume            = "RESUME"
	CmdNewChat           = "NEW_CHAT"
	CmdListConversations = "LIST_USER_CONVERSATIONS"
	CmdSendMessage       = "SEND_MESSAGE"
	CmdGetMessages       = "GET_MESSAGES"
	CmdSearchUsers       = "SEARCH_USERS"
	CmdSendFile          = "SEND_FILE"
	CmdGetFile           = "GET_FILE"
	CmdGetFiles          = "GET_FILES"
	CmdGetToken          = "GET_TOKEN"
)

// Server replies and pushes.
const (
	ReplyAuthOK         = "AUTH_OK"
	ReplyAuthFail       = "AUTH_FAIL"
	ReplyChatFail       = "CHAT_FAIL"
	ReplyChatStarted    = "CHAT_STARTED"
	ReplyMyConvo        = "MY_CONVO"
	ReplyMessageHistory = "MESSAGE_HISTORY"
	ReplyNewMessage     = "NEW_MESSAGE"
	ReplyNewFile        = "NEW_FILE"
	ReplyFileList       = "FILE_LIST"
	ReplyFileData       = "FILE_DATA"
	ReplyUserResult     = "USER_RESULT"
	ReplyToken          = "TOKEN"
	ReplyError          = "ERROR"
)

// Reason codes carried by AUTH_FAIL, CHAT_FAIL, ERROR and FILE_DATA.
const (
	ReasonMissingParts       = "missing-parts"
	ReasonBadFormat          = "bad-format"
	ReasonUsernameExists     = "username-exists"
	ReasonInvalidCredentials = "invalid-credentials"
	ReasonUnknownCommand     = "unknown-command"
	ReasonInvalidToken       = "invalid-token"
	ReasonInternal           = "internal-error"

	ReasonUserNotFound         = "UserNotFound"
	ReasonSelfChat             = "SelfChat"
	ReasonEncryptionFailed     = "encryption-failed"
	ReasonConversationNotFound = "conversation-not-found"
	ReasonSessionReplaced      = "session-replaced"

	FileNotFound = "NOT_FOUND"
	FileError    = "ERROR"
)

var (
	ErrEmptyLine      = errors.New("empty line")
	ErrUnknownCommand = errors.New("unknown command")
	ErrMissingParts   = errors.New("missing parts")
)

// arity is the number of arguments each client command takes.
var arity = map[string]int{
	CmdRegister:          3,
	CmdLogin:             2,
	CmdResume:            1,
	CmdNewChat:           1,
	CmdListConversations: 0,
	CmdSendMessage:       2,
	CmdGetMessages:       1,
	CmdSearchUsers:       1,
	CmdSendFile:          3,
	CmdGetFile:           2,
	CmdGetFiles:          1,
	CmdGetToken:          0,
}

// Command is a parsed client request.
type Command struct {
	Name string
	Args []string
}

// Arity returns the argument count of a known command.
func Arity(name string) (int, bool) {
	n, ok := arity[name]
	return n, ok
}

// IsAuthCommand reports whether name may open a connection.
func IsAuthCommand(name string) bool {
	return name == CmdRegister || name == CmdLogin || name == CmdResume
}

// Parse splits a client line into a Command. The command keyword is case
// sensitive. Missing arguments yield ErrMissingParts; surplus delimiters end
// up in the last argument.
func Parse(line string) (Command, error) {
	line = strings.TrimSuffix(line, "\r")
	if line == "" {
		return Command{}, ErrEmptyLine
	}

	name, rest, hasRest := strings.Cut(line, Delimiter)
	n, ok := arity[name]
	if !ok {
		return Command{Name: name}, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}

	cmd := Command{Name: name}
	if n == 0 {
		return cmd, nil
	}
	if !hasRest {
		return cmd, ErrMissingParts
	}

	args := strings.SplitN(rest, Delimiter, n)
	if len(args) < n {
		return cmd, ErrMissingParts
	}
	cmd.Args = args
	return cmd, nil
}

// Format joins a keyword and its fields into a line without the trailing
// newline.
func Format(keyword string, fields ...string) string {
	if len(fields) == 0 {
		return keyword
	}
	var b strings.Builder
	b.WriteString(keyword)
	for _, f := range fields {
		b.WriteString(Delimiter)
		b.WriteString(f)
	}
	return b.String()
}

// Reply is a parsed server line: a keyword plus the raw remaining fields.
type Reply struct {
	Keyword string
	Fields  []string
}

// replyFields is the number of fields a server line carries; the last one
// keeps embedded delimiters.
var replyFields = map[string]int{
	ReplyAuthOK:         1,
	ReplyAuthFail:       1,
	ReplyChatFail:       1,
	ReplyChatStarted:    1,
	ReplyMyConvo:        2,
	ReplyMessageHistory: 1,
	ReplyNewMessage:     2,
	ReplyNewFile:        2,
	ReplyFileList:       1,
	ReplyFileData:       2,
	ReplyUserResult:     2,
	ReplyToken:          1,
	ReplyError:          1,
}

// ParseReply splits a server line. Unknown keywords return the whole
// remainder as a single field.
func ParseReply(line string) Reply {
	line = strings.TrimSuffix(line, "\r")
	kw, rest, hasRest := strings.Cut(line, Delimiter)
	r := Reply{Keyword: kw}
	if !hasRest {
		return r
	}
	n, ok := replyFields[kw]
	if !ok {
		n = 1
	}
	r.Fields = strings.SplitN(rest, Delimiter, n)
	return r
}

// Field returns the i-th field or "" when absent.
func (r Reply) Field(i int) string {
	if i < 0 || i >= len(r.Fields) {
		return ""
	}
	return r.Fields[i]
}
