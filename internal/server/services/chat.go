package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/cryptox"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/blobs"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/store"
)

// ChatService implements conversations, messages and file sharing.
type ChatService struct {
	store  store.Store
	cipher cryptox.Encrypter
	blobs  blobs.Store
	logger logging.Logger
	now    func() time.Time
}

// NewChatService wires the service. blobStore may be nil, in which case file
// ciphertext is kept inline in the message.
func NewChatService(st store.Store, cipher cryptox.Encrypter, blobStore blobs.Store, logger logging.Logger) *ChatService {
	return &ChatService{
		store:  st,
		cipher: cipher,
		blobs:  blobStore,
		logger: logger.With("module", "chat"),
		now:    time.Now,
	}
}

// StartConversation creates or fetches the conversation between caller and
// peerEmail. References for both users are written only on creation.
func (s *ChatService) StartConversation(ctx context.Context, caller models.User, peerEmail string) (models.Conversation, error) {
	peerEmail = models.NormalizeEmail(peerEmail)
	if peerEmail == caller.Email {
		return models.Conversation{}, common.ErrSelfChat
	}

	peer, err := s.store.GetUser(ctx, peerEmail)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return models.Conversation{}, err
		}
		return models.Conversation{}, fmt.Errorf("error loading peer: %w", err)
	}

	conv := models.NewConversation(caller.Email, peer.Email)
	created, err := s.store.CreateConversation(ctx, conv,
		models.OwnedRef{Owner: caller.Email, Ref: models.ConversationRef{ConversationID: conv.ID, DisplayName: peer.FullName}},
		models.OwnedRef{Owner: peer.Email, Ref: models.ConversationRef{ConversationID: conv.ID, DisplayName: caller.FullName}},
	)
	if err != nil {
		return models.Conversation{}, fmt.Errorf("error creating conversation: %w", err)
	}
	if created {
		s.logger.Info(ctx, "conversation created", "conversation", conv.ID)
	}
	return conv, nil
}

func (s *ChatService) ListConversations(ctx context.Context, email string) ([]models.ConversationRef, error) {
	refs, err := s.store.ListConversationRefs(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("error listing conversations: %w", err)
	}
	return refs, nil
}

// conversationFor loads id and checks that email takes part in it. Both
// failures surface as common.ErrConversationNotFound.
func (s *ChatService) conversationFor(ctx context.Context, email, id string) (models.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, models.NormalizeConversationID(id))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return models.Conversation{}, fmt.Errorf("%w: %s", common.ErrConversationNotFound, id)
		}
		return models.Conversation{}, fmt.Errorf("error loading conversation: %w", err)
	}
	if !conv.HasParticipant(email) {
		return models.Conversation{}, fmt.Errorf("%w: %w", common.ErrConversationNotFound, common.ErrForbidden)
	}
	return conv, nil
}

// SendMessage stores an encrypted text message and returns the recipient.
func (s *ChatService) SendMessage(ctx context.Context, sender models.User, conversationID, text string) (string, error) {
	conv, err := s.conversationFor(ctx, sender.Email, conversationID)
	if err != nil {
		return "", err
	}

	ct, err := s.cipher.Encrypt([]byte(text))
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrEncryption, err)
	}

	m := models.Message{
		ConversationID: conv.ID,
		Sender:         sender.Email,
		CreatedAt:      s.now(),
		Summary:        models.TextSummary(sender.FullName),
		Content:        models.TextContent{Ciphertext: ct},
	}
	if err := s.store.AppendMessage(ctx, m); err != nil {
		return "", fmt.Errorf("error appending message: %w", err)
	}
	return conv.Peer(sender.Email), nil
}

// History renders the conversation for viewer, oldest first. Entries that
// cannot be decrypted are skipped and counted.
func (s *ChatService) History(ctx context.Context, viewer, conversationID string) (lines []string, skipped int, err error) {
	conv, err := s.conversationFor(ctx, viewer, conversationID)
	if err != nil {
		return nil, 0, err
	}

	msgs, err := s.store.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing messages: %w", err)
	}

	names := map[string]string{}
	for _, m := range msgs {
		switch c := m.Content.(type) {
		case models.TextContent:
			pt, err := s.cipher.Decrypt(c.Ciphertext)
			if err != nil {
				skipped++
				s.logger.Warn(ctx, "skipping undecryptable message", "conversation", conv.ID, "error", err)
				continue
			}
			if m.Sender == viewer {
				lines = append(lines, "You: "+string(pt))
			} else {
				lines = append(lines, s.displayName(ctx, names, m.Sender)+": "+string(pt))
			}
		case models.FileContent:
			if m.Sender == viewer {
				lines = append(lines, "You shared a file: "+c.FileName)
			} else {
				lines = append(lines, m.Summary)
			}
		}
	}
	return lines, skipped, nil
}

// displayName resolves a sender's full name, falling back to the email.
func (s *ChatService) displayName(ctx context.Context, cache map[string]string, email string) string {
	if n, ok := cache[email]; ok {
		return n
	}
	name := email
	if u, err := s.store.GetUser(ctx, email); err == nil {
		name = u.FullName
	}
	cache[email] = name
	return name
}

// SendFile stores an encrypted base64 payload and returns the recipient.
// The payload must be valid standard base64.
func (s *ChatService) SendFile(ctx context.Context, sender models.User, conversationID, fileName, payload string) (string, error) {
	conv, err := s.conversationFor(ctx, sender.Email, conversationID)
	if err != nil {
		return "", err
	}

	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return "", common.ErrorValidation
	}
	if _, err := base64.StdEncoding.DecodeString(payload); err != nil {
		return "", fmt.Errorf("%w: payload is not base64", common.ErrorValidation)
	}

	ct, err := s.cipher.Encrypt([]byte(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrEncryption, err)
	}

	now := s.now()
	content := models.FileContent{FileName: fileName, Ciphertext: ct}
	if s.blobs != nil {
		key := blobs.NewKey(conv.ID, now)
		if err := s.blobs.Put(ctx, key, ct); err != nil {
			return "", fmt.Errorf("error storing file: %w", err)
		}
		content = models.FileContent{FileName: fileName, StorageKey: key}
	}

	m := models.Message{
		ConversationID: conv.ID,
		Sender:         sender.Email,
		CreatedAt:      now,
		Summary:        models.FileSummary(sender.FullName, fileName),
		Content:        content,
	}
	if err := s.store.AppendMessage(ctx, m); err != nil {
		return "", fmt.Errorf("error appending file: %w", err)
	}
	return conv.Peer(sender.Email), nil
}

// GetFile returns the base64 payload of the most recent file named fileName.
func (s *ChatService) GetFile(ctx context.Context, viewer, conversationID, fileName string) (string, error) {
	conv, err := s.conversationFor(ctx, viewer, conversationID)
	if err != nil {
		return "", err
	}

	m, err := s.store.FindFile(ctx, conv.ID, fileName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", err
		}
		return "", fmt.Errorf("error finding file: %w", err)
	}

	f, ok := m.Content.(models.FileContent)
	if !ok {
		return "", common.ErrorNotFound
	}

	ct := f.Ciphertext
	if f.StorageKey != "" {
		if s.blobs == nil {
			return "", fmt.Errorf("%w: file %s is in blob storage but none is configured", common.ErrDecryption, fileName)
		}
		ct, err = s.blobs.Get(ctx, f.StorageKey)
		if err != nil {
			return "", fmt.Errorf("%w: %v", common.ErrDecryption, err)
		}
	}

	pt, err := s.cipher.Decrypt(ct)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrDecryption, err)
	}
	return string(pt), nil
}

func (s *ChatService) ListFiles(ctx context.Context, viewer, conversationID string) ([]string, error) {
	conv, err := s.conversationFor(ctx, viewer, conversationID)
	if err != nil {
		return nil, err
	}
	names, err := s.store.ListFileNames(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing files: %w", err)
	}
	return names, nil
}
