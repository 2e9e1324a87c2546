package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Command
		wantErr error
	}{
		{
			name: "register",
			line: "REGISTER|Alice|alice@x.com|pw",
			want: Command{Name: CmdRegister, Args: []string{"Alice", "alice@x.com", "pw"}},
		},
		{
			name: "password keeps delimiter",
			line: "LOGIN|alice@x.com|p|a|ss",
			want: Command{Name: CmdLogin, Args: []string{"alice@x.com", "p|a|ss"}},
		},
		{
			name: "message text keeps delimiter and CR stripped",
			line: "SEND_MESSAGE|a@x.com_b@y.com|hi | there\r",
			want: Command{Name: CmdSendMessage, Args: []string{"a@x.com_b@y.com", "hi | there"}},
		},
		{
			name: "zero arity",
			line: "LIST_USER_CONVERSATIONS",
			want: Command{Name: CmdListConversations},
		},
		{
			name: "zero arity ignores trailing fields",
			line: "GET_TOKEN|junk",
			want: Command{Name: CmdGetToken},
		},
		{
			name: "empty last field is allowed",
			line: "SEARCH_USERS|",
			want: Command{Name: CmdSearchUsers, Args: []string{""}},
		},
		{
			name:    "missing parts",
			line:    "SEND_FILE|conv|name.txt",
			want:    Command{Name: CmdSendFile},
			wantErr: ErrMissingParts,
		},
		{
			name:    "missing all args",
			line:    "NEW_CHAT",
			want:    Command{Name: CmdNewChat},
			wantErr: ErrMissingParts,
		},
		{
			name:    "unknown",
			line:    "new_chat|b@y.com",
			want:    Command{Name: "new_chat"},
			wantErr: ErrUnknownCommand,
		},
		{
			name:    "empty",
			line:    "\r",
			wantErr: ErrEmptyLine,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.line)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "LIST_USER_CONVERSATIONS", Format(CmdListConversations))
	assert.Equal(t, "MY_CONVO|a_b|Bob", Format(ReplyMyConvo, "a_b", "Bob"))
	assert.Equal(t, "FILE_DATA|f.txt|", Format(ReplyFileData, "f.txt", ""))
}

func TestFormatParse_SymmetricForClientCommands(t *testing.T) {
	line := Format(CmdSendFile, "a_b", "report.pdf", "aGVsbG8=")
	cmd, err := Parse(line)
	require.NoError(t, err)
	assert.Equal(t, []string{"a_b", "report.pdf", "aGVsbG8="}, cmd.Args)
}

func TestParseReply(t *testing.T) {
	r := ParseReply("NEW_MESSAGE|Alice|hi|there")
	assert.Equal(t, ReplyNewMessage, r.Keyword)
	assert.Equal(t, []string{"Alice", "hi|there"}, r.Fields)
	assert.Equal(t, "Alice", r.Field(0))
	assert.Equal(t, "", r.Field(5))

	r = ParseReply("MESSAGE_HISTORY|You: a|b")
	assert.Equal(t, []string{"You: a|b"}, r.Fields)

	r = ParseReply("LIST_USER_CONVERSATIONS")
	assert.Empty(t, r.Fields)

	r = ParseReply("SOMETHING|x|y")
	assert.Equal(t, []string{"x|y"}, r.Fields)
}

func TestArity(t *testing.T) {
	n, ok := Arity(CmdSendFile)
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = Arity("NOPE")
	assert.False(t, ok)

	assert.True(t, IsAuthCommand(CmdResume))
	assert.False(t, IsAuthCommand(CmdNewChat))
}
