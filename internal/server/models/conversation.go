package models

import (
	"sort"
	"strings"
)

const conversationIDSeparator = "_"

// Conversation is a two-party channel. Participants are kept in the sorted
// order that also forms the ID.
type Conversation struct {
	ID           string
	Participants [2]string
}

// ConversationRef is a user's denormalized pointer to a conversation.
// DisplayName is the other participant's full name at creation time.
type ConversationRef struct {
	ConversationID string
	DisplayName    string
}

// ConversationID derives the identity of the conversation between a and b.
// It is symmetric: ConversationID(a, b) == ConversationID(b, a).
func ConversationID(a, b string) string {
	p := sortedPair(a, b)
	return p[0] + conversationIDSeparator + p[1]
}

// NewConversation builds the conversation between a and b.
func NewConversation(a, b string) Conversation {
	p := sortedPair(a, b)
	return Conversation{ID: p[0] + conversationIDSeparator + p[1], Participants: p}
}

// HasParticipant reports whether email takes part in c.
func (c Conversation) HasParticipant(email string) bool {
	return c.Participants[0] == email || c.Participants[1] == email
}

// Peer returns the participant that is not email.
func (c Conversation) Peer(email string) string {
	if c.Participants[0] == email {
		return c.Participants[1]
	}
	return c.Participants[0]
}

func sortedPair(a, b string) [2]string {
	p := []string{NormalizeEmail(a), NormalizeEmail(b)}
	sort.Strings(p)
	return [2]string{p[0], p[1]}
}

// NormalizeConversationID lowercases an ID received from a client.
func NormalizeConversationID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// OwnedRef pairs a ConversationRef with the user it belongs to.
type OwnedRef struct {
	Owner string
	Ref   ConversationRef
}
