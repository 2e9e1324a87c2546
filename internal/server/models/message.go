package models

import "time"

// Message is one entry of a conversation's append-only history.
type Message struct {
	ConversationID string
	Sender         string
	CreatedAt      time.Time
	// Summary is plaintext redisplay metadata, e.g. "Alice sent a message".
	Summary string
	Content Content
}

// Content is the sealed payload of a Message: TextContent or FileContent.
type Content interface {
	isContent()
	Kind() MessageKind
}

type MessageKind string

const (
	KindText MessageKind = "text"
	KindFile MessageKind = "file"
)

// TextContent carries the encrypted message body.
type TextContent struct {
	Ciphertext []byte
}

// FileContent carries an encrypted base64 payload. When StorageKey is set the
// ciphertext lives in the blob store and Ciphertext is empty.
type FileContent struct {
	FileName   string
	Ciphertext []byte
	StorageKey string
}

func (TextContent) isContent()        {}
func (TextContent) Kind() MessageKind { return KindText }
func (FileContent) isContent()        {}
func (FileContent) Kind() MessageKind { return KindFile }

func TextSummary(senderName string) string {
	return senderName + " sent a message"
}

func FileSummary(senderName, fileName string) string {
	return senderName + " shared a file: " + fileName
}
