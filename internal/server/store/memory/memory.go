// Package memory is an in-process Store used by tests and ephemeral runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type conversation struct {
	conv     models.Conversation
	messages []models.Message
}

type Store struct {
	mu            sync.RWMutex
	users         map[string]models.User
	refs          map[string][]models.ConversationRef
	conversations map[string]*conversation
}

func New() *Store {
	return &Store{
		users:         make(map[string]models.User),
		refs:          make(map[string][]models.ConversationRef),
		conversations: make(map[string]*conversation),
	}
}

func (s *Store) CreateUser(_ context.Context, u models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.Email]; ok {
		return common.ErrorAlreadyExists
	}
	s.users[u.Email] = u
	return nil
}

func (s *Store) GetUser(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[email]
	if !ok {
		return models.User{}, common.ErrorNotFound
	}
	return u, nil
}

func (s *Store) SearchUsers(_ context.Context, prefix string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix = strings.ToLower(prefix)
	var out []models.User
	for email, u := range s.users {
		if strings.HasPrefix(strings.ToLower(email), prefix) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *Store) CreateConversation(_ context.Context, conv models.Conversation, refs ...models.OwnedRef) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conv.ID]; ok {
		return false, nil
	}
	s.conversations[conv.ID] = &conversation{conv: conv}
	for _, r := range refs {
		s.refs[r.Owner] = append(s.refs[r.Owner], r.Ref)
	}
	return true, nil
}

func (s *Store) GetConversation(_ context.Context, id string) (models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[id]
	if !ok {
		return models.Conversation{}, common.ErrorNotFound
	}
	return c.conv, nil
}

func (s *Store) ListConversationRefs(_ context.Context, email string) ([]models.ConversationRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.ConversationRef(nil), s.refs[email]...), nil
}

func (s *Store) AppendMessage(_ context.Context, m models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[m.ConversationID]
	if !ok {
		return common.ErrorNotFound
	}
	c.messages = append(c.messages, m)
	return nil
}

func (s *Store) ListMessages(_ context.Context, conversationID string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[conversationID]
	if !ok {
		return nil, nil
	}
	return append([]models.Message(nil), c.messages...), nil
}

func (s *Store) ListFileNames(_ context.Context, conversationID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[conversationID]
	if !ok {
		return nil, nil
	}
	var names []string
	for _, m := range c.messages {
		if f, ok := m.Content.(models.FileContent); ok {
			names = append(names, f.FileName)
		}
	}
	return names, nil
}

func (s *Store) FindFile(_ context.Context, conversationID, name string) (models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conversations[conversationID]
	if !ok {
		return models.Message{}, common.ErrorNotFound
	}
	for i := len(c.messages) - 1; i >= 0; i-- {
		if f, ok := c.messages[i].Content.(models.FileContent); ok && f.FileName == name {
			return c.messages[i], nil
		}
	}
	return models.Message{}, common.ErrorNotFound
}

func (s *Store) Close(context.Context) error { return nil }
