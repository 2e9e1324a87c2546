package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/cryptox"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/store"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() *config.Config {
	return &config.Config{SecretKey: "test-secret", ResumeTokenValidityDuration: time.Hour}
}

func testHasher(t *testing.T) cryptox.PasswordHasher {
	t.Helper()
	h, err := cryptox.NewBcrypt(bcrypt.MinCost)
	require.NoError(t, err)
	return h
}

// prefixCipher marks plaintext instead of encrypting it. Payloads containing
// "poison" fail to encrypt; ciphertexts containing "corrupt" fail to decrypt.
type prefixCipher struct{}

var errCipher = errors.New("cipher failure")

func (prefixCipher) Encrypt(pt []byte) ([]byte, error) {
	if bytes.Contains(pt, []byte("poison")) {
		return nil, errCipher
	}
	return append([]byte("enc:"), pt...), nil
}

func (prefixCipher) Decrypt(ct []byte) ([]byte, error) {
	if !bytes.HasPrefix(ct, []byte("enc:")) || bytes.Contains(ct, []byte("corrupt")) {
		return nil, errCipher
	}
	return ct[len("enc:"):], nil
}

type memBlobs struct {
	mu   sync.Mutex
	objs map[string][]byte
}

func newMemBlobs() *memBlobs {
	return &memBlobs{objs: map[string][]byte{}}
}

func (b *memBlobs) Put(_ context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objs[key] = append([]byte(nil), data...)
	return nil
}

func (b *memBlobs) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.objs[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return d, nil
}

// brokenStore fails every read with a driver-like error.
type brokenStore struct {
	store.Store
}

var errDB = errors.New("connection refused")

func (brokenStore) GetUser(context.Context, string) (models.User, error) {
	return models.User{}, errDB
}

func (brokenStore) CreateUser(context.Context, models.User) error {
	return errDB
}

func (brokenStore) SearchUsers(context.Context, string) ([]models.User, error) {
	return nil, errDB
}

func (brokenStore) GetConversation(context.Context, string) (models.Conversation, error) {
	return models.Conversation{}, errDB
}
