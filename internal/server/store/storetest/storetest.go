// Package storetest is a behavioral test suite shared by every Store
// implementation.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) store.Store

func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("SearchUsers", func(t *testing.T) { testSearchUsers(t, newStore(t)) })
	t.Run("CreateConversation", func(t *testing.T) { testCreateConversation(t, newStore(t)) })
	t.Run("ConcurrentCreateConversation", func(t *testing.T) { testConcurrentCreate(t, newStore(t)) })
	t.Run("Messages", func(t *testing.T) { testMessages(t, newStore(t)) })
	t.Run("Files", func(t *testing.T) { testFiles(t, newStore(t)) })
}

var (
	alice = models.User{Email: "alice@x.com", FullName: "Alice", PasswordHash: "h1"}
	bob   = models.User{Email: "bob@z.com", FullName: "Bob", PasswordHash: "h2"}
)

func seedUsers(t *testing.T, s store.Store, users ...models.User) {
	t.Helper()
	for _, u := range users {
		require.NoError(t, s.CreateUser(context.Background(), u))
	}
}

func seedConversation(t *testing.T, s store.Store) models.Conversation {
	t.Helper()
	seedUsers(t, s, alice, bob)
	conv := models.NewConversation(alice.Email, bob.Email)
	created, err := s.CreateConversation(context.Background(), conv)
	require.NoError(t, err)
	require.True(t, created)
	return conv
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetUser(ctx, alice.Email)
	require.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, s.CreateUser(ctx, alice))
	err = s.CreateUser(ctx, models.User{Email: alice.Email, FullName: "Other", PasswordHash: "x"})
	require.ErrorIs(t, err, common.ErrorAlreadyExists)

	got, err := s.GetUser(ctx, alice.Email)
	require.NoError(t, err)
	assert.Equal(t, alice, got)
}

func testSearchUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	seedUsers(t, s,
		alice,
		models.User{Email: "albert@y.com", FullName: "Albert", PasswordHash: "h"},
		bob,
		models.User{Email: "a_l%ice@q.com", FullName: "Wild", PasswordHash: "h"},
	)

	got, err := s.SearchUsers(ctx, "AL")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice@x.com", "albert@y.com"}, emails(got))

	got, err = s.SearchUsers(ctx, "a_l%")
	require.NoError(t, err)
	assert.Equal(t, []string{"a_l%ice@q.com"}, emails(got), "wildcards must be literal")

	got, err = s.SearchUsers(ctx, "zzz")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func emails(us []models.User) []string {
	out := make([]string, 0, len(us))
	for _, u := range us {
		out = append(out, u.Email)
	}
	return out
}

func testCreateConversation(t *testing.T, s store.Store) {
	ctx := context.Background()
	seedUsers(t, s, alice, bob)

	conv := models.NewConversation(bob.Email, alice.Email)
	refs := []models.OwnedRef{
		{Owner: alice.Email, Ref: models.ConversationRef{ConversationID: conv.ID, DisplayName: bob.FullName}},
		{Owner: bob.Email, Ref: models.ConversationRef{ConversationID: conv.ID, DisplayName: alice.FullName}},
	}

	created, err := s.CreateConversation(ctx, conv, refs...)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.CreateConversation(ctx, models.NewConversation(alice.Email, bob.Email), refs...)
	require.NoError(t, err)
	assert.False(t, created, "second create is a no-op")

	got, err := s.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv, got)

	ar, err := s.ListConversationRefs(ctx, alice.Email)
	require.NoError(t, err)
	assert.Equal(t, []models.ConversationRef{refs[0].Ref}, ar)

	br, err := s.ListConversationRefs(ctx, bob.Email)
	require.NoError(t, err)
	assert.Equal(t, []models.ConversationRef{refs[1].Ref}, br)

	_, err = s.GetConversation(ctx, "nobody_nothing")
	require.ErrorIs(t, err, common.ErrorNotFound)

	none, err := s.ListConversationRefs(ctx, "ghost@x.com")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testConcurrentCreate(t *testing.T, s store.Store) {
	ctx := context.Background()
	seedUsers(t, s, alice, bob)
	conv := models.NewConversation(alice.Email, bob.Email)
	ref := models.OwnedRef{Owner: alice.Email, Ref: models.ConversationRef{ConversationID: conv.ID, DisplayName: "Bob"}}

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.CreateConversation(ctx, conv, ref)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	refs, err := s.ListConversationRefs(ctx, alice.Email)
	require.NoError(t, err)
	assert.Len(t, refs, 1)
}

func testMessages(t *testing.T, s store.Store) {
	ctx := context.Background()
	conv := seedConversation(t, s)
	base := time.UnixMilli(1_700_000_000_000)

	empty, err := s.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)

	var want []models.Message
	for i, body := range []string{"one", "two", "three"} {
		m := models.Message{
			ConversationID: conv.ID,
			Sender:         alice.Email,
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
			Summary:        models.TextSummary("Alice"),
			Content:        models.TextContent{Ciphertext: []byte(body)},
		}
		require.NoError(t, s.AppendMessage(ctx, m))
		want = append(want, m)
	}

	got, err := s.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Sender, got[i].Sender)
		assert.Equal(t, want[i].Summary, got[i].Summary)
		assert.Equal(t, want[i].Content, got[i].Content)
		assert.Equal(t, want[i].CreatedAt.UnixMilli(), got[i].CreatedAt.UnixMilli())
	}
}

func testFiles(t *testing.T, s store.Store) {
	ctx := context.Background()
	conv := seedConversation(t, s)
	at := time.UnixMilli(1_700_000_000_000)

	file := func(name, payload, key string) models.Message {
		return models.Message{
			ConversationID: conv.ID,
			Sender:         bob.Email,
			CreatedAt:      at,
			Summary:        models.FileSummary("Bob", name),
			Content:        models.FileContent{FileName: name, Ciphertext: []byte(payload), StorageKey: key},
		}
	}

	require.NoError(t, s.AppendMessage(ctx, file("a.txt", "v1", "")))
	require.NoError(t, s.AppendMessage(ctx, models.Message{
		ConversationID: conv.ID, Sender: alice.Email, CreatedAt: at,
		Summary: "Alice sent a message", Content: models.TextContent{Ciphertext: []byte("x")},
	}))
	require.NoError(t, s.AppendMessage(ctx, file("b.bin", "", "files/k")))
	require.NoError(t, s.AppendMessage(ctx, file("a.txt", "v2", "")))

	names, err := s.ListFileNames(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.bin", "a.txt"}, names)

	m, err := s.FindFile(ctx, conv.ID, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, models.FileContent{FileName: "a.txt", Ciphertext: []byte("v2")}, m.Content)

	m, err = s.FindFile(ctx, conv.ID, "b.bin")
	require.NoError(t, err)
	assert.Equal(t, "files/k", m.Content.(models.FileContent).StorageKey)

	_, err = s.FindFile(ctx, conv.ID, "missing")
	require.ErrorIs(t, err, common.ErrorNotFound)
}
