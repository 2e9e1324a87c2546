// Package session drives one client connection: a single authentication
// exchange followed by the command loop. The same code serves raw TCP and
// WebSocket connections.
package session

import (
	"bufio"
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/metrics"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/registry"
)

// UserService is what a session needs for authentication and user search.
type UserService interface {
	Register(ctx context.Context, fullName, email, password string) (models.User, error)
	Login(ctx context.Context, email, password string) (models.User, error)
	Resume(ctx context.Context, token string) (models.User, error)
	IssueToken(email string) (string, error)
	SearchUsers(ctx context.Context, prefix string) ([]models.User, error)
}

// ChatService is what a session needs for conversations and files.
type ChatService interface {
	StartConversation(ctx context.Context, caller models.User, peerEmail string) (models.Conversation, error)
	ListConversations(ctx context.Context, email string) ([]models.ConversationRef, error)
	SendMessage(ctx context.Context, sender models.User, conversationID, text string) (string, error)
	History(ctx context.Context, viewer, conversationID string) ([]string, int, error)
	SendFile(ctx context.Context, sender models.User, conversationID, fileName, payload string) (string, error)
	GetFile(ctx context.Context, viewer, conversationID, fileName string) (string, error)
	ListFiles(ctx context.Context, viewer, conversationID string) ([]string, error)
}

// Handler holds the dependencies shared by every session.
type Handler struct {
	users        UserService
	chat         ChatService
	registry     *registry.Registry
	metrics      *metrics.Metrics
	logger       logging.Logger
	maxLineBytes int
	writeTimeout time.Duration
	pushTimeout  time.Duration
}

// maxPushTimeout caps the write deadline of pushes to other sessions.
const maxPushTimeout = 2 * time.Second

func pushTimeout(writeTimeout time.Duration) time.Duration {
	if writeTimeout <= 0 || writeTimeout > maxPushTimeout {
		return maxPushTimeout
	}
	return writeTimeout
}

func NewHandler(users UserService, chat ChatService, reg *registry.Registry, m *metrics.Metrics, cfg *config.Config, l logging.Logger) *Handler {
	maxLine := cfg.MaxLineBytes
	if maxLine <= 0 {
		maxLine = bufio.MaxScanTokenSize
	}
	return &Handler{
		users:        users,
		chat:         chat,
		registry:     reg,
		metrics:      m,
		logger:       l.With("module", "session"),
		maxLineBytes: maxLine,
		writeTimeout: cfg.WriteTimeout,
		pushTimeout:  pushTimeout(cfg.WriteTimeout),
	}
}

// Serve runs a session on conn and returns once it is closed. Cancelling ctx
// closes the connection.
func (h *Handler) Serve(ctx context.Context, conn net.Conn) {
	newSession(h, conn).run(ctx)
}
