// Package common defines sentinel errors and small helpers shared by the
// gophchat server and client. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")
	ErrForbidden      = errors.New("forbidden")
	ErrSelfChat       = errors.New("cannot start a conversation with yourself")

	// ErrConversationNotFound covers both a missing conversation and one the
	// caller does not take part in.
	ErrConversationNotFound = errors.New("conversation not found")

	// Auth errors (invalid or malformed resume token).
	ErrInvalidToken = errors.New("invalid token")

	// Capability errors.
	ErrEncryption = errors.New("encryption failed")
	ErrDecryption = errors.New("decryption failed")
)
