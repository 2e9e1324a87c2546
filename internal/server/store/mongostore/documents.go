package mongostore

import (
	"time"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type refDoc struct {
	ConversationID string `bson:"conversationId"`
	DisplayName    string `bson:"displayName"`
}

type userDoc struct {
	Email         string   `bson:"email"`
	FullName      string   `bson:"fullName"`
	Password      string   `bson:"password"`
	Conversations []refDoc `bson:"conversations"`
}

type messageDoc struct {
	Type       string    `bson:"type"`
	Sender     string    `bson:"sender"`
	Timestamp  time.Time `bson:"timestamp"`
	Summary    string    `bson:"summary"`
	Content    []byte    `bson:"content"`
	FileName   string    `bson:"fileName,omitempty"`
	StorageKey string    `bson:"storageKey,omitempty"`
}

type conversationDoc struct {
	ConversationID string       `bson:"conversationId"`
	Participants   []string     `bson:"participants"`
	Messages       []messageDoc `bson:"messages"`
}

func toUserDoc(u models.User) userDoc {
	return userDoc{Email: u.Email, FullName: u.FullName, Password: u.PasswordHash, Conversations: []refDoc{}}
}

func (d userDoc) model() models.User {
	return models.User{Email: d.Email, FullName: d.FullName, PasswordHash: d.Password}
}

func toMessageDoc(m models.Message) (messageDoc, bool) {
	d := messageDoc{Sender: m.Sender, Timestamp: m.CreatedAt.UTC(), Summary: m.Summary}
	switch c := m.Content.(type) {
	case models.TextContent:
		d.Type = string(models.KindText)
		d.Content = c.Ciphertext
	case models.FileContent:
		d.Type = string(models.KindFile)
		d.Content = c.Ciphertext
		d.FileName = c.FileName
		d.StorageKey = c.StorageKey
	default:
		return messageDoc{}, false
	}
	return d, true
}

func (d messageDoc) model(conversationID string) models.Message {
	m := models.Message{
		ConversationID: conversationID,
		Sender:         d.Sender,
		CreatedAt:      d.Timestamp,
		Summary:        d.Summary,
	}
	if d.Type == string(models.KindFile) {
		m.Content = models.FileContent{FileName: d.FileName, Ciphertext: d.Content, StorageKey: d.StorageKey}
	} else {
		m.Content = models.TextContent{Ciphertext: d.Content}
	}
	return m
}

func (d conversationDoc) model() models.Conversation {
	c := models.Conversation{ID: d.ConversationID}
	copy(c.Participants[:], d.Participants)
	return c
}
