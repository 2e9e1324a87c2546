package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

var printlnFn = fmt.Println

type execIface interface {
	isLoggedIn() bool

	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Resume(ctx context.Context) error

	Chats(ctx context.Context) error
	StartChat(ctx context.Context, email string) error
	Open(ctx context.Context, id string) error
	SendText(ctx context.Context, text string) error
	History(ctx context.Context) error
	Search(ctx context.Context, prefix string) error
	Files(ctx context.Context) error
	SendFile(ctx context.Context, path string) error
	GetFile(ctx context.Context, name, dest string) error
	Token(ctx context.Context) error
}

// runREPL reads commands from reader, which is shared with the credential
// prompts so no input is buffered away from them.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}

		printlnFn(fmt.Sprintf("gc %s > ", statusFn()))

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		err = nil
		if a.isLoggedIn() {
			switch cmd {
			case "help":
				printlnFn("commands: chats, chat <email>, open <id>, send <text>, history, search <prefix>, files, sendfile <path>, getfile <name> [dest], token, exit")
			case "chats":
				err = a.Chats(ctx)
			case "chat":
				err = a.StartChat(ctx, rest)
			case "open":
				err = a.Open(ctx, rest)
			case "send":
				err = a.SendText(ctx, rest)
			case "history":
				err = a.History(ctx)
			case "search":
				err = a.Search(ctx, rest)
			case "files":
				err = a.Files(ctx)
			case "sendfile":
				err = a.SendFile(ctx, rest)
			case "getfile":
				name, dest, _ := strings.Cut(rest, " ")
				err = a.GetFile(ctx, name, strings.TrimSpace(dest))
			case "token":
				err = a.Token(ctx)
			case "exit", "quit":
				return
			default:
				printlnFn("unknown command, type 'help'")
			}
		} else {
			switch cmd {
			case "help":
				printlnFn("commands: register, login, resume, exit")
			case "register":
				err = a.Register(ctx)
			case "login":
				err = a.Login(ctx)
			case "resume":
				err = a.Resume(ctx)
			case "exit", "quit":
				return
			default:
				printlnFn("unknown command, type 'help'")
			}
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
