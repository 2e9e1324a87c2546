// Package models defines the chat domain types shared by the store, the
// services and the session layer.
package models

import "strings"

// User is a registered account. Email is the lowercase identity.
type User struct {
	Email        string
	FullName     string
	PasswordHash string
}

// NormalizeEmail case-folds an identity. Every boundary applies it before
// using an email as a key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
