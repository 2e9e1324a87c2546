// Package store declares the persistence boundary of the chat server.
// Implementations live in the memory, sqlstore and mongostore subpackages.
package store

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

// Supported drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Store persists users, conversations and messages.
//
// Lookups of missing records return common.ErrorNotFound; creating a user
// whose email is taken returns common.ErrorAlreadyExists.
type Store interface {
	CreateUser(ctx context.Context, u models.User) error
	GetUser(ctx context.Context, email string) (models.User, error)
	// SearchUsers matches emails starting with prefix, case-insensitively.
	SearchUsers(ctx context.Context, prefix string) ([]models.User, error)

	// CreateConversation inserts conv unless it exists. The refs are stored
	// only when this call created the conversation.
	CreateConversation(ctx context.Context, conv models.Conversation, refs ...models.OwnedRef) (created bool, err error)
	GetConversation(ctx context.Context, id string) (models.Conversation, error)
	ListConversationRefs(ctx context.Context, email string) ([]models.ConversationRef, error)

	// AppendMessage adds m to its conversation in a single write.
	AppendMessage(ctx context.Context, m models.Message) error
	// ListMessages returns the conversation history in insertion order.
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	ListFileNames(ctx context.Context, conversationID string) ([]string, error)
	// FindFile returns the most recently stored file message named name.
	FindFile(ctx context.Context, conversationID, name string) (models.Message, error)

	Close(ctx context.Context) error
}
